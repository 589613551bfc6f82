package registry

import (
	"context"
	"time"
)

// Store persists requests and opportunities. The Mark* methods are one-way
// compare-and-set transitions: they report false when the record was already
// terminal.
type Store interface {
	CreateRequest(ctx context.Context, r InstituteRequest) error
	GetRequest(ctx context.Context, id string) (InstituteRequest, error)
	MarkRequestFulfilled(ctx context.Context, id string, at time.Time) (bool, error)
	ListRequests(ctx context.Context, f RequestFilter) ([]InstituteRequest, error)

	CreateOpportunity(ctx context.Context, o VolunteerOpportunity) error
	GetOpportunity(ctx context.Context, id string) (VolunteerOpportunity, error)
	MarkOpportunityFilled(ctx context.Context, id string, at time.Time) (bool, error)
	ListOpportunities(ctx context.Context, f OpportunityFilter) ([]VolunteerOpportunity, error)
}
