package registry

import (
	"time"

	"github.com/ariefcatur/go-donation-fulfillment/internal/catalog"
)

type Urgency string

const (
	UrgencyNormal Urgency = "normal"
	UrgencyUrgent Urgency = "urgent"
)

type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestFulfilled RequestStatus = "fulfilled"
)

type OpportunityStatus string

const (
	OpportunityOpen   OpportunityStatus = "open"
	OpportunityFilled OpportunityStatus = "filled"
)

// InstituteRequest is an institute asking for goods. pending -> fulfilled only.
type InstituteRequest struct {
	ID          string         `json:"id"`
	InstituteID string         `json:"institute_id"`
	Items       []catalog.Item `json:"items"`
	Urgency     Urgency        `json:"urgency"`
	Status      RequestStatus  `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	FulfilledAt *time.Time     `json:"fulfilled_at,omitempty"`
}

func (r InstituteRequest) Clone() InstituteRequest {
	out := r
	out.Items = append([]catalog.Item(nil), r.Items...)
	return out
}

// VolunteerOpportunity is a volunteer posting. open -> filled only.
type VolunteerOpportunity struct {
	ID          string            `json:"id"`
	InstituteID string            `json:"institute_id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Skills      []string          `json:"skills"`
	Date        time.Time         `json:"date"`
	Status      OpportunityStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	FilledAt    *time.Time        `json:"filled_at,omitempty"`
}

func (o VolunteerOpportunity) Clone() VolunteerOpportunity {
	out := o
	out.Skills = append([]string(nil), o.Skills...)
	return out
}

type OpportunityInput struct {
	InstituteID string
	Title       string
	Description string
	Skills      []string
	Date        time.Time
}

type RequestFilter struct {
	InstituteID string
	Status      RequestStatus
}

func (f RequestFilter) Match(r InstituteRequest) bool {
	return (f.InstituteID == "" || r.InstituteID == f.InstituteID) && (f.Status == "" || r.Status == f.Status)
}

type OpportunityFilter struct {
	InstituteID string
	Status      OpportunityStatus
}

func (f OpportunityFilter) Match(o VolunteerOpportunity) bool {
	return (f.InstituteID == "" || o.InstituteID == f.InstituteID) && (f.Status == "" || o.Status == f.Status)
}
