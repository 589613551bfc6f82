package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ariefcatur/go-donation-fulfillment/internal/sentinel"
)

type MemoryStore struct {
	mu               sync.RWMutex
	requestOrder     []string
	requests         map[string]InstituteRequest
	opportunityOrder []string
	opportunities    map[string]VolunteerOpportunity
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		requests:      make(map[string]InstituteRequest),
		opportunities: make(map[string]VolunteerOpportunity),
	}
}

func (s *MemoryStore) CreateRequest(_ context.Context, r InstituteRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[r.ID]; ok {
		return fmt.Errorf("%w: request %s already exists", sentinel.ErrInvalidArgument, r.ID)
	}
	s.requests[r.ID] = r.Clone()
	s.requestOrder = append(s.requestOrder, r.ID)
	return nil
}

func (s *MemoryStore) GetRequest(_ context.Context, id string) (InstituteRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	if !ok {
		return InstituteRequest{}, fmt.Errorf("%w: institute request %s", sentinel.ErrNotFound, id)
	}
	return r.Clone(), nil
}

func (s *MemoryStore) MarkRequestFulfilled(_ context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return false, fmt.Errorf("%w: institute request %s", sentinel.ErrNotFound, id)
	}
	if r.Status != RequestPending {
		return false, nil
	}
	r.Status = RequestFulfilled
	r.FulfilledAt = &at
	s.requests[id] = r
	return true, nil
}

func (s *MemoryStore) ListRequests(_ context.Context, f RequestFilter) ([]InstituteRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []InstituteRequest{}
	for _, id := range s.requestOrder {
		if r := s.requests[id]; f.Match(r) {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateOpportunity(_ context.Context, o VolunteerOpportunity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.opportunities[o.ID]; ok {
		return fmt.Errorf("%w: opportunity %s already exists", sentinel.ErrInvalidArgument, o.ID)
	}
	s.opportunities[o.ID] = o.Clone()
	s.opportunityOrder = append(s.opportunityOrder, o.ID)
	return nil
}

func (s *MemoryStore) GetOpportunity(_ context.Context, id string) (VolunteerOpportunity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.opportunities[id]
	if !ok {
		return VolunteerOpportunity{}, fmt.Errorf("%w: volunteer opportunity %s", sentinel.ErrNotFound, id)
	}
	return o.Clone(), nil
}

func (s *MemoryStore) MarkOpportunityFilled(_ context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.opportunities[id]
	if !ok {
		return false, fmt.Errorf("%w: volunteer opportunity %s", sentinel.ErrNotFound, id)
	}
	if o.Status != OpportunityOpen {
		return false, nil
	}
	o.Status = OpportunityFilled
	o.FilledAt = &at
	s.opportunities[id] = o
	return true, nil
}

func (s *MemoryStore) ListOpportunities(_ context.Context, f OpportunityFilter) ([]VolunteerOpportunity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []VolunteerOpportunity{}
	for _, id := range s.opportunityOrder {
		if o := s.opportunities[id]; f.Match(o) {
			out = append(out, o.Clone())
		}
	}
	return out, nil
}
