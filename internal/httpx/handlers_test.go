package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ariefcatur/go-donation-fulfillment/internal/actors"
	"github.com/ariefcatur/go-donation-fulfillment/internal/catalog"
	"github.com/ariefcatur/go-donation-fulfillment/internal/donations"
	"github.com/ariefcatur/go-donation-fulfillment/internal/metrics"
	"github.com/ariefcatur/go-donation-fulfillment/internal/registry"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()
	return newTestRouterWith(t, nil)
}

func newTestRouterWith(t *testing.T, idem IdempotencyStore) *chi.Mux {
	t.Helper()
	log := zap.NewNop()
	reg := prometheus.NewRegistry()
	m := metrics.NewWith(reg)
	cat := catalog.Default()
	suppliers := catalog.DefaultSuppliers()

	r := NewRouter(reg)
	(&DonationsHandler{
		Service: &donations.Service{
			Repo:      donations.NewMemoryRepository(),
			Prices:    cat,
			Suppliers: suppliers,
			Metrics:   m,
			Log:       log,
			NewOTP:    func() string { return "4821" },
		},
		Directory:   actors.Seed(suppliers),
		Idempotency: idem,
		Log:         log,
	}).Register(r)
	(&CatalogHandler{Catalog: cat, Suppliers: suppliers, Log: log}).Register(r)
	(&RegistryHandler{
		Service: &registry.Service{Store: registry.NewMemoryStore(), Catalog: cat, Metrics: m, Log: log},
		Log:     log,
	}).Register(r)
	return r
}

func do(t *testing.T, r http.Handler, method, path, actorID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return doWith(t, r, method, path, actorID, body, nil)
}

func doWith(t *testing.T, r http.Handler, method, path, actorID string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actorID != "" {
		req.Header.Set(HeaderActorID, actorID)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func referenceDonation() map[string]any {
	return map[string]any{
		"donor_id":     "d1",
		"institute_id": "i1",
		"supplier_id":  "s4",
		"items": []map[string]any{
			{"type": "groceries", "quantity": 10, "unit": "kg"},
			{"type": "clothing", "quantity": 20, "unit": "pieces"},
		},
	}
}

func TestDonationLifecycleOverHTTP(t *testing.T) {
	r := newTestRouter(t)

	rec := do(t, r, http.MethodPost, "/donations", "", referenceDonation())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeMap(t, rec)
	id := created["id"].(string)
	assert.Equal(t, "pending", created["status"])
	assert.Equal(t, "4500", created["subtotal"])
	assert.Equal(t, "450", created["delivery_charge"])
	assert.Equal(t, "4950", created["total_amount"])
	assert.Equal(t, "4821", created["otp"])

	rec = do(t, r, http.MethodPost, "/donations/"+id+"/status", "t1", map[string]string{"status": "accepted"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "role_not_permitted", decodeMap(t, rec)["code"])

	rec = do(t, r, http.MethodPost, "/donations/"+id+"/status", "s4", map[string]string{"status": "accepted"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, decodeMap(t, rec), "otp")

	rec = do(t, r, http.MethodPost, "/donations/"+id+"/status", "s4", map[string]string{"status": "delivered"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, r, http.MethodPost, "/donations/"+id+"/status", "t1", map[string]string{"status": "in-progress"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, r, http.MethodPost, "/donations/"+id+"/status", "t1", map[string]string{"status": "delivered"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "otp_required", decodeMap(t, rec)["code"])

	rec = do(t, r, http.MethodPost, "/donations/"+id+"/otp", "i1", map[string]string{"otp": "1111"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeMap(t, rec)["verified"])

	rec = do(t, r, http.MethodPost, "/donations/"+id+"/otp", "i1", map[string]string{"otp": "4821"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeMap(t, rec)["verified"])

	rec = do(t, r, http.MethodPost, "/donations/"+id+"/status", "i1", map[string]string{"status": "delivered"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeMap(t, rec)
	assert.Equal(t, "delivered", body["status"])
	assert.Equal(t, "4821", body["otp"])

	rec = do(t, r, http.MethodGet, "/donations/"+id+"/status", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decodeMap(t, rec)
	assert.Equal(t, "delivered", st["status"])
	assert.Equal(t, "store", st["source"])
}

func TestCreateDonationErrors(t *testing.T) {
	r := newTestRouter(t)
	cases := []struct {
		name   string
		mutate func(map[string]any)
		status int
		code   string
	}{
		{"missing supplier", func(b map[string]any) { delete(b, "supplier_id") }, http.StatusBadRequest, "invalid_argument"},
		{"empty items", func(b map[string]any) { b["items"] = []map[string]any{} }, http.StatusBadRequest, "invalid_argument"},
		{"zero quantity", func(b map[string]any) {
			b["items"] = []map[string]any{{"type": "groceries", "quantity": 0}}
		}, http.StatusBadRequest, "invalid_argument"},
		{"unknown type", func(b map[string]any) {
			b["items"] = []map[string]any{{"type": "furniture", "quantity": 1}}
		}, http.StatusBadRequest, "unknown_item_type"},
		{"ineligible supplier", func(b map[string]any) { b["supplier_id"] = "s2" }, http.StatusUnprocessableEntity, "supplier_ineligible"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := referenceDonation()
			tc.mutate(body)
			rec := do(t, r, http.MethodPost, "/donations", "", body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.Equal(t, tc.code, decodeMap(t, rec)["code"])
		})
	}
}

func TestAdvanceRequiresKnownActor(t *testing.T) {
	r := newTestRouter(t)
	rec := do(t, r, http.MethodPost, "/donations", "", referenceDonation())
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeMap(t, rec)["id"].(string)

	rec = do(t, r, http.MethodPost, "/donations/"+id+"/status", "", map[string]string{"status": "accepted"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = do(t, r, http.MethodPost, "/donations/"+id+"/status", "nobody", map[string]string{"status": "accepted"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = do(t, r, http.MethodPost, "/donations/missing/status", "s4", map[string]string{"status": "accepted"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetHidesOTPFromOtherActors(t *testing.T) {
	r := newTestRouter(t)
	rec := do(t, r, http.MethodPost, "/donations", "", referenceDonation())
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeMap(t, rec)["id"].(string)

	assert.Equal(t, "4821", decodeMap(t, do(t, r, http.MethodGet, "/donations/"+id, "d1", nil))["otp"])
	assert.Equal(t, "4821", decodeMap(t, do(t, r, http.MethodGet, "/donations/"+id, "i1", nil))["otp"])
	assert.NotContains(t, decodeMap(t, do(t, r, http.MethodGet, "/donations/"+id, "s4", nil)), "otp")
	assert.NotContains(t, decodeMap(t, do(t, r, http.MethodGet, "/donations/"+id, "", nil)), "otp")
}

func TestActorDashboards(t *testing.T) {
	r := newTestRouter(t)
	rec := do(t, r, http.MethodPost, "/donations", "", referenceDonation())
	require.Equal(t, http.StatusCreated, rec.Code)

	var list []map[string]any
	rec = do(t, r, http.MethodGet, "/actors/s4/donations", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.NotContains(t, list[0], "otp")

	rec = do(t, r, http.MethodGet, "/actors/i1/donations?active=true", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "4821", list[0]["otp"])

	rec = do(t, r, http.MethodGet, "/actors/s1/donations", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list)

	rec = do(t, r, http.MethodGet, "/actors/ghost/donations", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCatalogEndpoints(t *testing.T) {
	r := newTestRouter(t)

	var suppliers []map[string]any
	rec := do(t, r, http.MethodGet, "/suppliers/eligible?types=groceries,clothing", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &suppliers))
	require.Len(t, suppliers, 1)
	assert.Equal(t, "s4", suppliers[0]["id"])

	rec = do(t, r, http.MethodGet, "/suppliers/eligible", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPost, "/quotes", "", map[string]any{
		"items": []map[string]any{{"type": "medication", "quantity": 1}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	q := decodeMap(t, rec)
	assert.Equal(t, "100", q["subtotal"])
	assert.Equal(t, "100", q["delivery_charge"])
	assert.Equal(t, "200", q["total_amount"])

	var prices []map[string]any
	rec = do(t, r, http.MethodGet, "/catalog", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prices))
	assert.Len(t, prices, 4)
}

func TestRegistryEndpoints(t *testing.T) {
	r := newTestRouter(t)

	rec := do(t, r, http.MethodPost, "/institute-requests", "", map[string]any{
		"institute_id": "i2",
		"items":        []map[string]any{{"type": "meals", "quantity": 30}},
		"urgency":      "urgent",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reqID := decodeMap(t, rec)["id"].(string)

	rec = do(t, r, http.MethodPost, "/institute-requests", "", map[string]any{
		"institute_id": "i2",
		"items":        []map[string]any{{"type": "meals", "quantity": 1}},
		"urgency":      "whenever",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPost, "/institute-requests/"+reqID+"/fulfill", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fulfilled", decodeMap(t, rec)["status"])
	rec = do(t, r, http.MethodPost, "/institute-requests/"+reqID+"/fulfill", "", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_fulfilled", decodeMap(t, rec)["code"])

	var list []map[string]any
	rec = do(t, r, http.MethodGet, "/institute-requests?institute_id=i2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = do(t, r, http.MethodPost, "/volunteer-opportunities", "", map[string]any{
		"institute_id": "i1",
		"title":        "Reading Buddy",
		"skills":       []string{"reading", "patience"},
		"date":         "2026-11-01T09:00:00Z",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	oppID := decodeMap(t, rec)["id"].(string)

	rec = do(t, r, http.MethodPost, "/volunteer-opportunities/"+oppID+"/fill", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, r, http.MethodPost, "/volunteer-opportunities/"+oppID+"/fill", "", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_filled", decodeMap(t, rec)["code"])

	rec = do(t, r, http.MethodGet, "/volunteer-opportunities?status=open", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list)
}

func TestHealthAndMetrics(t *testing.T) {
	r := newTestRouter(t)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/healthz", "", nil).Code)

	do(t, r, http.MethodPost, "/donations", "", referenceDonation())
	rec := do(t, r, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "donation_created_total")
}

func TestAdvanceChecksActorIdentity(t *testing.T) {
	r := newTestRouter(t)
	rec := do(t, r, http.MethodPost, "/donations", "", referenceDonation())
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeMap(t, rec)["id"].(string)
	path := "/donations/" + id + "/status"

	rec = do(t, r, http.MethodPost, path, "s1", map[string]string{"status": "accepted"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "role_not_permitted", decodeMap(t, rec)["code"])
	require.Equal(t, http.StatusOK, do(t, r, http.MethodPost, path, "s4", map[string]string{"status": "accepted"}).Code)

	rec = do(t, r, http.MethodPost, path, "t1", map[string]string{"status": "in-progress"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "t1", decodeMap(t, rec)["transporter_id"])

	require.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/donations/"+id+"/otp", "i1", map[string]string{"otp": "4821"}).Code)
	assert.Equal(t, http.StatusForbidden, do(t, r, http.MethodPost, path, "t2", map[string]string{"status": "delivered"}).Code)
	assert.Equal(t, http.StatusForbidden, do(t, r, http.MethodPost, path, "i2", map[string]string{"status": "delivered"}).Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPost, path, "t1", map[string]string{"status": "delivered"}).Code)
}

type memIdempotency struct {
	mu  sync.Mutex
	ids map[string]string // "" while the create is running
}

func newMemIdempotency() *memIdempotency {
	return &memIdempotency{ids: make(map[string]string)}
}

func (m *memIdempotency) Reserve(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.ids[key]; ok {
		return id, false, nil
	}
	m.ids[key] = ""
	return "", true, nil
}

func (m *memIdempotency) Complete(_ context.Context, key, donationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids[key] = donationID
	return nil
}

func (m *memIdempotency) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ids, key)
	return nil
}

func TestCreateDonationIdempotencyKey(t *testing.T) {
	idem := newMemIdempotency()
	r := newTestRouterWith(t, idem)
	key := map[string]string{HeaderIdempotencyKey: "order-77"}

	rec := doWith(t, r, http.MethodPost, "/donations", "", referenceDonation(), key)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decodeMap(t, rec)["id"].(string)

	rec = doWith(t, r, http.MethodPost, "/donations", "", referenceDonation(), key)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "true", rec.Header().Get(HeaderIdempotentReplay))
	assert.Equal(t, first, decodeMap(t, rec)["id"])

	var list []map[string]any
	rec = do(t, r, http.MethodGet, "/actors/d1/donations", "", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = doWith(t, r, http.MethodPost, "/donations", "", referenceDonation(), map[string]string{HeaderIdempotencyKey: "order-78"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEqual(t, first, decodeMap(t, rec)["id"])

	rec = do(t, r, http.MethodPost, "/donations", "", referenceDonation())
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateDonationIdempotencyKeyInFlightAndFailure(t *testing.T) {
	idem := newMemIdempotency()
	r := newTestRouterWith(t, idem)

	_, reserved, err := idem.Reserve(context.Background(), "busy")
	require.NoError(t, err)
	require.True(t, reserved)
	rec := doWith(t, r, http.MethodPost, "/donations", "", referenceDonation(), map[string]string{HeaderIdempotencyKey: "busy"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "request_in_flight", decodeMap(t, rec)["code"])

	bad := referenceDonation()
	bad["supplier_id"] = "s2"
	retry := map[string]string{HeaderIdempotencyKey: "retry-me"}
	rec = doWith(t, r, http.MethodPost, "/donations", "", bad, retry)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	rec = doWith(t, r, http.MethodPost, "/donations", "", referenceDonation(), retry)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	long := map[string]string{HeaderIdempotencyKey: strings.Repeat("k", 256)}
	assert.Equal(t, http.StatusBadRequest, doWith(t, r, http.MethodPost, "/donations", "", referenceDonation(), long).Code)
}
