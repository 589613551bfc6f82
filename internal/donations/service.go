package donations

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/ariefcatur/go-donation-fulfillment/internal/actors"
	"github.com/ariefcatur/go-donation-fulfillment/internal/catalog"
	kafkax "github.com/ariefcatur/go-donation-fulfillment/internal/kafka"
	"github.com/ariefcatur/go-donation-fulfillment/internal/matching"
	"github.com/ariefcatur/go-donation-fulfillment/internal/metrics"
	"github.com/ariefcatur/go-donation-fulfillment/internal/pricing"
	"github.com/ariefcatur/go-donation-fulfillment/internal/sentinel"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Publisher queues an event envelope on a topic. kafka.Bus satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, env kafkax.Envelope) error
}

type SupplierLookup interface {
	Find(id string) (catalog.Supplier, bool)
}

// Service owns donations: creation, the status state machine, OTP checks and
// the per-role views. Publisher, Metrics, Log, Now and NewOTP are optional.
type Service struct {
	Repo        Repository
	Prices      pricing.PriceList
	Suppliers   SupplierLookup
	Publisher   Publisher
	Metrics     *metrics.Metrics
	Log         *zap.Logger
	ServiceName string
	Now         func() time.Time
	NewOTP      func() string

	locks shardedLock
}

// GenerateOTP draws a 4-digit code uniformly from [1000, 9999]. It confirms a
// physical handover and is not a security credential.
func GenerateOTP() string {
	return strconv.Itoa(1000 + rand.IntN(9000))
}

func (s *Service) CreateDonation(ctx context.Context, in CreateInput) (Donation, error) {
	if err := catalog.ValidateItems(in.Items); err != nil {
		return Donation{}, err
	}
	if in.DonorID == "" || in.InstituteID == "" || in.SupplierID == "" {
		return Donation{}, fmt.Errorf("%w: donor, institute and supplier are required", sentinel.ErrInvalidArgument)
	}

	quote, err := pricing.Compute(in.Items, s.Prices)
	if err != nil {
		return Donation{}, err
	}

	supplier, ok := s.Suppliers.Find(in.SupplierID)
	if !ok {
		return Donation{}, fmt.Errorf("%w: unknown supplier %s", sentinel.ErrSupplierIneligible, in.SupplierID)
	}
	if missing := matching.Missing(supplier, in.Items); len(missing) > 0 {
		return Donation{}, fmt.Errorf("%w: supplier %s does not provide %v", sentinel.ErrSupplierIneligible, in.SupplierID, missing)
	}

	now := s.now()
	d := Donation{
		ID:             uuid.NewString(),
		DonorID:        in.DonorID,
		InstituteID:    in.InstituteID,
		SupplierID:     in.SupplierID,
		TransporterID:  in.TransporterID,
		RequestID:      in.RequestID,
		Items:          append([]catalog.Item(nil), in.Items...),
		Status:         StatusPending,
		Subtotal:       quote.Subtotal,
		DeliveryCharge: quote.DeliveryCharge,
		TotalAmount:    quote.Total,
		OTP:            s.otp(),
		History:        []StatusChange{{Status: StatusPending, Role: actors.RoleDonor, At: now}},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.Repo.Create(ctx, d); err != nil {
		return Donation{}, err
	}

	s.Metrics.IncCreated()
	s.logger().Info("donation created",
		zap.String("donation_id", d.ID),
		zap.String("supplier_id", d.SupplierID),
		zap.String("institute_id", d.InstituteID),
		zap.String("total", d.TotalAmount.String()))
	s.publish(ctx, TopicDonationCreated, EventDonationCreated, d.ID, DonationCreatedPayload{
		DonationID:    d.ID,
		DonorID:       d.DonorID,
		InstituteID:   d.InstituteID,
		SupplierID:    d.SupplierID,
		TransporterID: d.TransporterID,
		Items:         d.Items,
		TotalAmount:   d.TotalAmount,
		CreatedAt:     d.CreatedAt,
	})
	return d.Clone(), nil
}

// AdvanceStatus moves a donation exactly one step forward. Concurrent calls on
// the same id are serialised; the loser sees the new status and fails with
// ErrInvalidTransition. Only the role is checked; see AdvanceStatusAs.
func (s *Service) AdvanceStatus(ctx context.Context, id string, target Status, role actors.Role) (Donation, error) {
	return s.advance(ctx, id, target, actors.Actor{Role: role}, false)
}

// AdvanceStatusAs is AdvanceStatus for an identified caller, who must also be
// the donation's party for their role. A transporter moving a donation with no
// transporter yet claims it.
func (s *Service) AdvanceStatusAs(ctx context.Context, id string, target Status, actor actors.Actor) (Donation, error) {
	return s.advance(ctx, id, target, actor, true)
}

func (s *Service) advance(ctx context.Context, id string, target Status, actor actors.Actor, identified bool) (Donation, error) {
	d, ev, err := s.advanceLocked(ctx, id, target, actor, identified)
	if err != nil {
		return Donation{}, err
	}
	s.publish(ctx, TopicDonationStatusChanged, EventDonationStatusChanged, d.ID, ev)
	return d, nil
}

func (s *Service) advanceLocked(ctx context.Context, id string, target Status, actor actors.Actor, identified bool) (Donation, StatusChangedPayload, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	role := actor.Role
	prev, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Donation{}, StatusChangedPayload{}, err
	}
	from := prev.Status
	if !CanTransition(from, target) {
		s.reject(id, "invalid_transition", from, target, role)
		return Donation{}, StatusChangedPayload{}, fmt.Errorf("%w: %s -> %s", sentinel.ErrInvalidTransition, from, target)
	}
	if !RoleMayEnter(role, target) {
		s.reject(id, "role_not_permitted", from, target, role)
		return Donation{}, StatusChangedPayload{}, fmt.Errorf("%w: %s may not move a donation to %s", sentinel.ErrRoleNotPermitted, role, target)
	}
	if identified && !isParty(prev, actor) {
		s.reject(id, "not_party", from, target, role)
		return Donation{}, StatusChangedPayload{}, fmt.Errorf("%w: %s %s is not on donation %s", sentinel.ErrRoleNotPermitted, role, actor.ID, id)
	}
	if target == StatusDelivered && !prev.OTPVerified {
		s.reject(id, "otp_required", from, target, role)
		return Donation{}, StatusChangedPayload{}, fmt.Errorf("%w: donation %s", sentinel.ErrOtpRequired, id)
	}

	now := s.now()
	d := prev.Clone()
	d.Status = target
	d.UpdatedAt = now
	d.History = append(d.History, StatusChange{Status: target, Role: role, At: now})
	if identified && role == actors.RoleTransporter && d.TransporterID == "" {
		d.TransporterID = actor.ID
	}
	if err := s.Repo.Update(ctx, d, prev); err != nil {
		return Donation{}, StatusChangedPayload{}, err
	}

	s.Metrics.IncTransition(string(from), string(target))
	s.logger().Info("donation status changed",
		zap.String("donation_id", d.ID),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
		zap.String("role", string(role)),
		zap.String("actor_id", actor.ID))
	return d.Clone(), StatusChangedPayload{
		DonationID:    d.ID,
		InstituteID:   d.InstituteID,
		TransporterID: d.TransporterID,
		From:          from,
		To:            target,
		Role:          string(role),
		At:            now,
	}, nil
}

// isParty reports whether a is the donation's party for a's role. An
// unassigned donation admits any transporter.
func isParty(d Donation, a actors.Actor) bool {
	switch a.Role {
	case actors.RoleDonor:
		return a.ID == d.DonorID
	case actors.RoleInstitute:
		return a.ID == d.InstituteID
	case actors.RoleSupplier:
		return a.ID == d.SupplierID
	case actors.RoleTransporter:
		return d.TransporterID == "" || a.ID == d.TransporterID
	}
	return false
}

// VerifyOTP compares otp with the stored code exactly. A match is remembered
// on the donation and unlocks the final transition; the code stays valid.
func (s *Service) VerifyOTP(ctx context.Context, id, otp string) (bool, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	prev, err := s.Repo.Get(ctx, id)
	if err != nil {
		return false, err
	}
	ok := otp == prev.OTP
	s.Metrics.IncOTPCheck(ok)
	if !ok {
		s.logger().Warn("donation otp mismatch", zap.String("donation_id", id))
		return false, nil
	}
	if !prev.OTPVerified {
		d := prev.Clone()
		d.OTPVerified = true
		d.UpdatedAt = s.now()
		if err := s.Repo.Update(ctx, d, prev); err != nil {
			return false, err
		}
	}
	return true, nil
}

// AssignTransporter sets the transporter once, before delivery.
func (s *Service) AssignTransporter(ctx context.Context, id, transporterID string) (Donation, error) {
	if transporterID == "" {
		return Donation{}, fmt.Errorf("%w: transporter id is required", sentinel.ErrInvalidArgument)
	}
	d, err := s.assignLocked(ctx, id, transporterID)
	if err != nil {
		return Donation{}, err
	}
	s.logger().Info("donation transporter assigned", zap.String("donation_id", id), zap.String("transporter_id", transporterID))
	s.publish(ctx, TopicDonationStatusChanged, EventTransporterAssigned, d.ID, StatusChangedPayload{
		DonationID:    d.ID,
		InstituteID:   d.InstituteID,
		TransporterID: d.TransporterID,
		From:          d.Status,
		To:            d.Status,
		Role:          string(actors.RoleTransporter),
		At:            d.UpdatedAt,
	})
	return d, nil
}

func (s *Service) assignLocked(ctx context.Context, id, transporterID string) (Donation, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	prev, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Donation{}, err
	}
	if prev.Status.Terminal() {
		return Donation{}, fmt.Errorf("%w: donation %s already delivered", sentinel.ErrInvalidTransition, id)
	}
	if prev.TransporterID != "" {
		return Donation{}, fmt.Errorf("%w: donation %s already has transporter %s", sentinel.ErrInvalidTransition, id, prev.TransporterID)
	}
	d := prev.Clone()
	d.TransporterID = transporterID
	d.UpdatedAt = s.now()
	if err := s.Repo.Update(ctx, d, prev); err != nil {
		return Donation{}, err
	}
	return d.Clone(), nil
}

func (s *Service) Get(ctx context.Context, id string) (Donation, error) {
	return s.Repo.Get(ctx, id)
}

func (s *Service) ByDonor(ctx context.Context, donorID string) ([]Donation, error) {
	return s.Repo.List(ctx, Filter{DonorID: donorID})
}

func (s *Service) ByInstitute(ctx context.Context, instituteID string) ([]Donation, error) {
	return s.Repo.List(ctx, Filter{InstituteID: instituteID})
}

func (s *Service) BySupplier(ctx context.Context, supplierID string) ([]Donation, error) {
	return s.Repo.List(ctx, Filter{SupplierID: supplierID})
}

func (s *Service) ByTransporter(ctx context.Context, transporterID string) ([]Donation, error) {
	return s.Repo.List(ctx, Filter{TransporterID: transporterID})
}

// ListFor is the per-role view keyed by the id the donation carries for role.
func (s *Service) ListFor(ctx context.Context, actorID string, role actors.Role, activeOnly bool) ([]Donation, error) {
	if actorID == "" {
		return nil, fmt.Errorf("%w: actor id is required", sentinel.ErrInvalidArgument)
	}
	f := Filter{ActiveOnly: activeOnly}
	switch role {
	case actors.RoleDonor:
		f.DonorID = actorID
	case actors.RoleInstitute:
		f.InstituteID = actorID
	case actors.RoleSupplier:
		f.SupplierID = actorID
	case actors.RoleTransporter:
		f.TransporterID = actorID
	default:
		return nil, fmt.Errorf("%w: unknown role %q", sentinel.ErrInvalidArgument, role)
	}
	return s.Repo.List(ctx, f)
}

func (s *Service) publish(ctx context.Context, topic, eventType, donationID string, payload any) {
	if s.Publisher == nil {
		return
	}
	env, err := kafkax.NewEnvelope(eventType, s.ServiceName, donationID, payload)
	if err == nil {
		err = s.Publisher.Publish(ctx, topic, PartitionKey(donationID), env)
	}
	if err != nil {
		s.logger().Error("donation event publish failed",
			zap.String("donation_id", donationID),
			zap.String("event_type", eventType),
			zap.Error(err))
	}
}

func (s *Service) reject(id, reason string, from, to Status, role actors.Role) {
	s.Metrics.IncRejected(reason)
	s.logger().Warn("donation transition rejected",
		zap.String("donation_id", id),
		zap.String("reason", reason),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("role", string(role)))
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) otp() string {
	if s.NewOTP != nil {
		return s.NewOTP()
	}
	return GenerateOTP()
}

func (s *Service) logger() *zap.Logger {
	if s.Log != nil {
		return s.Log
	}
	return zap.NewNop()
}
