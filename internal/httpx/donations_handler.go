package httpx

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ariefcatur/go-donation-fulfillment/internal/actors"
	"github.com/ariefcatur/go-donation-fulfillment/internal/donations"
	"github.com/ariefcatur/go-donation-fulfillment/internal/redisx"
	"github.com/ariefcatur/go-donation-fulfillment/internal/sentinel"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// HeaderActorID carries the actor id verified by the upstream auth layer.
	HeaderActorID = "X-Actor-ID"

	// HeaderIdempotencyKey makes POST /donations safe to retry.
	HeaderIdempotencyKey = "Idempotency-Key"
	// HeaderIdempotentReplay is set when a response repeats an earlier create.
	HeaderIdempotentReplay = "Idempotent-Replayed"

	maxIdempotencyKey = 255
)

// IdempotencyStore maps an idempotency key to the donation it created.
// redisx.CreateKeys satisfies it.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key string) (existingID string, reserved bool, err error)
	Complete(ctx context.Context, key, donationID string) error
	Release(ctx context.Context, key string) error
}

type DonationsHandler struct {
	Service     *donations.Service
	Directory   actors.Directory
	Redis       *redis.Client // optional status cache
	Idempotency IdempotencyStore
	Log         *zap.Logger
}

func (h *DonationsHandler) Register(r chi.Router) {
	r.Post("/donations", h.create)
	r.Get("/donations/{id}", h.get)
	r.Get("/donations/{id}/status", h.status)
	r.Post("/donations/{id}/status", h.advance)
	r.Post("/donations/{id}/otp", h.verifyOTP)
	r.Put("/donations/{id}/transporter", h.assignTransporter)
	r.Get("/actors/{id}/donations", h.listForActor)
}

func (h *DonationsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createDonationReq
	if !decode(w, r, &req) {
		return
	}
	key := r.Header.Get(HeaderIdempotencyKey)
	if len(key) > maxIdempotencyKey {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: HeaderIdempotencyKey + " too long", Code: sentinel.Code(sentinel.ErrInvalidArgument)})
		return
	}
	if h.Idempotency == nil {
		key = ""
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if key != "" {
		existing, reserved, err := h.Idempotency.Reserve(ctx, key)
		switch {
		case err != nil:
			// redis is a fast path only; create without the key
			h.Log.Warn("idempotency reserve failed", zap.Error(err))
			key = ""
		case !reserved && existing == "":
			writeJSON(w, http.StatusConflict, errorBody{Error: "a create with this " + HeaderIdempotencyKey + " is in progress", Code: "request_in_flight"})
			return
		case !reserved:
			d, err := h.Service.Get(ctx, existing)
			if err != nil {
				writeError(w, h.Log, err)
				return
			}
			w.Header().Set(HeaderIdempotentReplay, "true")
			writeJSON(w, http.StatusOK, d)
			return
		}
	}

	d, err := h.createDonation(ctx, req)
	if key != "" {
		h.settleKey(ctx, key, d.ID, err)
	}
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	h.cacheStatus(ctx, d)
	writeJSON(w, http.StatusCreated, d)
}

func (h *DonationsHandler) settleKey(ctx context.Context, key, donationID string, createErr error) {
	var err error
	if createErr != nil {
		err = h.Idempotency.Release(ctx, key)
	} else {
		err = h.Idempotency.Complete(ctx, key, donationID)
	}
	if err != nil {
		h.Log.Warn("idempotency update failed", zap.String("donation_id", donationID), zap.Error(err))
	}
}

func (h *DonationsHandler) createDonation(ctx context.Context, req createDonationReq) (donations.Donation, error) {
	return h.Service.CreateDonation(ctx, donations.CreateInput{
		DonorID:       req.DonorID,
		InstituteID:   req.InstituteID,
		SupplierID:    req.SupplierID,
		TransporterID: req.TransporterID,
		RequestID:     req.RequestID,
		Items:         toItems(req.Items),
	})
}

func (h *DonationsHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	d, err := h.Service.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, visibleTo(d, r.Header.Get(HeaderActorID)))
}

// status answers from the redis cache when possible and backfills it on a miss.
func (h *DonationsHandler) status(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if h.Redis != nil {
		cs, ok, err := redisx.GetDonationStatus(ctx, h.Redis, id)
		if err != nil {
			h.Log.Warn("status cache read failed", zap.String("donation_id", id), zap.Error(err))
		}
		if ok {
			writeJSON(w, http.StatusOK, statusResp{DonationID: id, Status: cs.Status, UpdatedAt: cs.UpdatedAt, Source: "cache"})
			return
		}
	}

	d, err := h.Service.Get(ctx, id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	h.cacheStatus(ctx, d)
	writeJSON(w, http.StatusOK, statusResp{DonationID: id, Status: string(d.Status), UpdatedAt: d.UpdatedAt, Source: "store"})
}

func (h *DonationsHandler) advance(w http.ResponseWriter, r *http.Request) {
	var req advanceStatusReq
	if !decode(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	actor, ok := h.actor(ctx, w, r)
	if !ok {
		return
	}
	d, err := h.Service.AdvanceStatusAs(ctx, chi.URLParam(r, "id"), donations.Status(req.Status), actor)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	h.cacheStatus(ctx, d)
	writeJSON(w, http.StatusOK, visibleTo(d, actor.ID))
}

func (h *DonationsHandler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPReq
	if !decode(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ok, err := h.Service.VerifyOTP(ctx, id, req.OTP)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyOTPResp{DonationID: id, Verified: ok})
}

func (h *DonationsHandler) assignTransporter(w http.ResponseWriter, r *http.Request) {
	var req assignTransporterReq
	if !decode(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	d, err := h.Service.AssignTransporter(ctx, chi.URLParam(r, "id"), req.TransporterID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, d.Redacted())
}

// listForActor is the per-role dashboard. Supplier and transporter views never
// include the OTP.
func (h *DonationsHandler) listForActor(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	actor, err := h.Directory.Resolve(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	active, _ := strconv.ParseBool(r.URL.Query().Get("active"))

	ds, err := h.Service.ListFor(ctx, actor.ID, actor.Role, active)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	out := make([]donations.Donation, 0, len(ds))
	for _, d := range ds {
		if actor.Role == actors.RoleSupplier || actor.Role == actors.RoleTransporter {
			d = d.Redacted()
		}
		out = append(out, d)
	}
	writeJSON(w, http.StatusOK, out)
}

// actor resolves the calling actor. A missing or unknown id is 401; directory
// failures surface as 500 so the caller can retry.
func (h *DonationsHandler) actor(ctx context.Context, w http.ResponseWriter, r *http.Request) (actors.Actor, bool) {
	id := r.Header.Get(HeaderActorID)
	if id == "" {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing " + HeaderActorID, Code: "unauthenticated"})
		return actors.Actor{}, false
	}
	a, err := h.Directory.Resolve(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unknown actor", Code: "unauthenticated"})
		return actors.Actor{}, false
	}
	if err != nil {
		writeError(w, h.Log, err)
		return actors.Actor{}, false
	}
	return a, true
}

func (h *DonationsHandler) cacheStatus(ctx context.Context, d donations.Donation) {
	if h.Redis == nil {
		return
	}
	if _, err := redisx.AdvanceDonationStatus(ctx, h.Redis, d.ID, string(d.Status), d.Status.Rank(), d.UpdatedAt); err != nil {
		h.Log.Warn("status cache write failed", zap.String("donation_id", d.ID), zap.Error(err))
	}
}

// visibleTo hides the OTP from everyone except the donor and the institute.
func visibleTo(d donations.Donation, actorID string) donations.Donation {
	if actorID != "" && (actorID == d.DonorID || actorID == d.InstituteID) {
		return d
	}
	return d.Redacted()
}
