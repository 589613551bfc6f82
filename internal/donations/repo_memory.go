package donations

import (
	"context"
	"fmt"
	"sync"

	"github.com/ariefcatur/go-donation-fulfillment/internal/sentinel"
)

// MemoryRepository keeps donations in insertion order. Reads return clones,
// so callers never hold a record the repository can still change.
type MemoryRepository struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]Donation
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[string]Donation)}
}

func (r *MemoryRepository) Create(_ context.Context, d Donation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[d.ID]; ok {
		return fmt.Errorf("%w: donation %s already exists", sentinel.ErrInvalidArgument, d.ID)
	}
	r.byID[d.ID] = d.Clone()
	r.order = append(r.order, d.ID)
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (Donation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	if !ok {
		return Donation{}, fmt.Errorf("%w: donation %s", sentinel.ErrNotFound, id)
	}
	return d.Clone(), nil
}

func (r *MemoryRepository) Update(_ context.Context, next, prev Donation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[next.ID]
	if !ok {
		return fmt.Errorf("%w: donation %s", sentinel.ErrNotFound, next.ID)
	}
	if cur.Status != prev.Status {
		return fmt.Errorf("%w: donation %s is %s, not %s", sentinel.ErrInvalidTransition, next.ID, cur.Status, prev.Status)
	}
	if cur.TransporterID != prev.TransporterID {
		return fmt.Errorf("%w: donation %s transporter changed to %q", sentinel.ErrInvalidTransition, next.ID, cur.TransporterID)
	}
	cur.Status = next.Status
	cur.TransporterID = next.TransporterID
	cur.OTPVerified = cur.OTPVerified || next.OTPVerified
	cur.History = append([]StatusChange(nil), next.History...)
	cur.UpdatedAt = next.UpdatedAt
	r.byID[next.ID] = cur
	return nil
}

func (r *MemoryRepository) List(_ context.Context, f Filter) ([]Donation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Donation{}
	for _, id := range r.order {
		if d := r.byID[id]; f.Match(d) {
			out = append(out, d.Clone())
		}
	}
	return out, nil
}
