package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-donation-fulfillment/internal/donations"
	kafkax "github.com/ariefcatur/go-donation-fulfillment/internal/kafka"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	mu        sync.Mutex
	seen      map[string]bool
	status    map[string]string
	delivered map[string]int64
	failSet   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{seen: map[string]bool{}, status: map[string]string{}, delivered: map[string]int64{}}
}

func (f *fakeStore) MarkSeen(_ context.Context, consumer, eventID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := consumer + ":" + eventID
	if f.seen[k] {
		return false, nil
	}
	f.seen[k] = true
	return true, nil
}

func (f *fakeStore) AdvanceStatus(_ context.Context, donationID string, status donations.Status, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSet != nil {
		return f.failSet
	}
	if cur, ok := f.status[donationID]; ok && donations.Status(cur).Rank() >= status.Rank() {
		return nil
	}
	f.status[donationID] = string(status)
	return nil
}

func (f *fakeStore) CountDelivery(_ context.Context, instituteID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delivered[instituteID]++
	return f.delivered[instituteID], nil
}

func (f *fakeStore) Delivered(_ context.Context, instituteID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.delivered[instituteID], nil
}

func message(t *testing.T, eventType string, payload any) kafkago.Message {
	t.Helper()
	env, err := kafkax.NewEnvelope(eventType, "test", "d-1", payload)
	require.NoError(t, err)
	return kafkago.Message{Value: kafkax.MustMarshal(env)}
}

func TestHandleCreatedThenDelivered(t *testing.T) {
	store := newFakeStore()
	svc := &Service{Store: store, Log: zap.NewNop(), ServiceName: "tracker"}
	ctx := context.Background()

	require.NoError(t, svc.HandleDonationEvent(ctx, message(t, donations.EventDonationCreated,
		donations.DonationCreatedPayload{DonationID: "d-1", InstituteID: "i1", CreatedAt: time.Now()})))
	assert.Equal(t, "pending", store.status["d-1"])

	delivered := message(t, donations.EventDonationStatusChanged, donations.StatusChangedPayload{
		DonationID: "d-1", InstituteID: "i1",
		From: donations.StatusInProgress, To: donations.StatusDelivered, At: time.Now(),
	})
	require.NoError(t, svc.HandleDonationEvent(ctx, delivered))
	assert.Equal(t, "delivered", store.status["d-1"])

	// redelivery of the same event must not double count
	require.NoError(t, svc.HandleDonationEvent(ctx, delivered))
	n, err := store.Delivered(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestHandleIntermediateStatusDoesNotCount(t *testing.T) {
	store := newFakeStore()
	svc := &Service{Store: store, ServiceName: "tracker"}
	ctx := context.Background()

	require.NoError(t, svc.HandleDonationEvent(ctx, message(t, donations.EventDonationStatusChanged, donations.StatusChangedPayload{
		DonationID: "d-1", InstituteID: "i1", From: donations.StatusPending, To: donations.StatusAccepted, At: time.Now(),
	})))
	assert.Equal(t, "accepted", store.status["d-1"])
	assert.Zero(t, store.delivered["i1"])
}

func TestHandleIgnoresForeignAndGarbage(t *testing.T) {
	store := newFakeStore()
	svc := &Service{Store: store, ServiceName: "tracker"}
	ctx := context.Background()

	require.NoError(t, svc.HandleDonationEvent(ctx, kafkago.Message{Value: []byte("{not json")}))
	require.NoError(t, svc.HandleDonationEvent(ctx, message(t, "SomethingElse", map[string]string{"x": "y"})))
	assert.Empty(t, store.seen)
	assert.Empty(t, store.status)
}

func TestHandleStoreErrorIsReturned(t *testing.T) {
	store := newFakeStore()
	store.failSet = errors.New("redis down")
	svc := &Service{Store: store, ServiceName: "tracker"}

	err := svc.HandleDonationEvent(context.Background(), message(t, donations.EventDonationCreated,
		donations.DonationCreatedPayload{DonationID: "d-1", CreatedAt: time.Now()}))
	assert.EqualError(t, err, "redis down")
}

func TestLateCreatedEventDoesNotRewindStatus(t *testing.T) {
	store := newFakeStore()
	svc := &Service{Store: store, ServiceName: "tracker"}
	ctx := context.Background()

	require.NoError(t, svc.HandleDonationEvent(ctx, message(t, donations.EventDonationStatusChanged, donations.StatusChangedPayload{
		DonationID: "d-1", InstituteID: "i1", From: donations.StatusPending, To: donations.StatusAccepted, At: time.Now(),
	})))
	require.NoError(t, svc.HandleDonationEvent(ctx, message(t, donations.EventDonationCreated,
		donations.DonationCreatedPayload{DonationID: "d-1", InstituteID: "i1", CreatedAt: time.Now()})))
	assert.Equal(t, "accepted", store.status["d-1"])
}
