package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/go-donation-fulfillment/internal/catalog"
	kafkax "github.com/ariefcatur/go-donation-fulfillment/internal/kafka"
	"github.com/ariefcatur/go-donation-fulfillment/internal/metrics"
	"github.com/ariefcatur/go-donation-fulfillment/internal/sentinel"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	TopicRequestFulfilled  = "registry.request.fulfilled"
	TopicOpportunityFilled = "registry.opportunity.filled"

	EventRequestFulfilled  = "InstituteRequestFulfilled"
	EventOpportunityFilled = "VolunteerOpportunityFilled"
)

type Publisher interface {
	Publish(ctx context.Context, topic, key string, env kafkax.Envelope) error
}

// ItemTypes lets the service reject item types the catalog does not price.
type ItemTypes interface {
	Known(t catalog.ItemType) bool
}

type Service struct {
	Store       Store
	Catalog     ItemTypes
	Publisher   Publisher
	Metrics     *metrics.Metrics
	Log         *zap.Logger
	ServiceName string
	Now         func() time.Time
}

func (s *Service) CreateInstituteRequest(ctx context.Context, instituteID string, items []catalog.Item, urgency Urgency) (InstituteRequest, error) {
	if instituteID == "" {
		return InstituteRequest{}, fmt.Errorf("%w: institute id is required", sentinel.ErrInvalidArgument)
	}
	if err := catalog.ValidateItems(items); err != nil {
		return InstituteRequest{}, err
	}
	if s.Catalog != nil {
		for _, it := range items {
			if !s.Catalog.Known(it.Type) {
				return InstituteRequest{}, fmt.Errorf("%w: %q", sentinel.ErrUnknownItemType, it.Type)
			}
		}
	}
	if urgency == "" {
		urgency = UrgencyNormal
	}
	if urgency != UrgencyNormal && urgency != UrgencyUrgent {
		return InstituteRequest{}, fmt.Errorf("%w: urgency %q", sentinel.ErrInvalidArgument, urgency)
	}

	r := InstituteRequest{
		ID:          uuid.NewString(),
		InstituteID: instituteID,
		Items:       append([]catalog.Item(nil), items...),
		Urgency:     urgency,
		Status:      RequestPending,
		CreatedAt:   s.now(),
	}
	if err := s.Store.CreateRequest(ctx, r); err != nil {
		return InstituteRequest{}, err
	}
	s.Metrics.IncRegistry("institute_request", string(RequestPending))
	s.logger().Info("institute request created", zap.String("request_id", r.ID), zap.String("institute_id", instituteID))
	return r, nil
}

// MarkFulfilled moves a request pending -> fulfilled exactly once.
func (s *Service) MarkFulfilled(ctx context.Context, id string) (InstituteRequest, error) {
	ok, err := s.Store.MarkRequestFulfilled(ctx, id, s.now())
	if err != nil {
		return InstituteRequest{}, err
	}
	if !ok {
		return InstituteRequest{}, fmt.Errorf("%w: institute request %s", sentinel.ErrAlreadyFulfilled, id)
	}
	r, err := s.Store.GetRequest(ctx, id)
	if err != nil {
		return InstituteRequest{}, err
	}
	s.Metrics.IncRegistry("institute_request", string(RequestFulfilled))
	s.logger().Info("institute request fulfilled", zap.String("request_id", id))
	s.publish(ctx, TopicRequestFulfilled, EventRequestFulfilled, id, r)
	return r, nil
}

func (s *Service) ListInstituteRequests(ctx context.Context, f RequestFilter) ([]InstituteRequest, error) {
	return s.Store.ListRequests(ctx, f)
}

func (s *Service) CreateVolunteerOpportunity(ctx context.Context, in OpportunityInput) (VolunteerOpportunity, error) {
	if in.InstituteID == "" {
		return VolunteerOpportunity{}, fmt.Errorf("%w: institute id is required", sentinel.ErrInvalidArgument)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return VolunteerOpportunity{}, fmt.Errorf("%w: title is required", sentinel.ErrInvalidArgument)
	}
	if in.Date.IsZero() {
		return VolunteerOpportunity{}, fmt.Errorf("%w: date is required", sentinel.ErrInvalidArgument)
	}

	o := VolunteerOpportunity{
		ID:          uuid.NewString(),
		InstituteID: in.InstituteID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Skills:      dedupeSkills(in.Skills),
		Date:        in.Date.UTC(),
		Status:      OpportunityOpen,
		CreatedAt:   s.now(),
	}
	if err := s.Store.CreateOpportunity(ctx, o); err != nil {
		return VolunteerOpportunity{}, err
	}
	s.Metrics.IncRegistry("volunteer_opportunity", string(OpportunityOpen))
	s.logger().Info("volunteer opportunity created", zap.String("opportunity_id", o.ID), zap.String("institute_id", o.InstituteID))
	return o, nil
}

// MarkFilled moves an opportunity open -> filled exactly once.
func (s *Service) MarkFilled(ctx context.Context, id string) (VolunteerOpportunity, error) {
	ok, err := s.Store.MarkOpportunityFilled(ctx, id, s.now())
	if err != nil {
		return VolunteerOpportunity{}, err
	}
	if !ok {
		return VolunteerOpportunity{}, fmt.Errorf("%w: volunteer opportunity %s", sentinel.ErrAlreadyFilled, id)
	}
	o, err := s.Store.GetOpportunity(ctx, id)
	if err != nil {
		return VolunteerOpportunity{}, err
	}
	s.Metrics.IncRegistry("volunteer_opportunity", string(OpportunityFilled))
	s.logger().Info("volunteer opportunity filled", zap.String("opportunity_id", id))
	s.publish(ctx, TopicOpportunityFilled, EventOpportunityFilled, id, o)
	return o, nil
}

func (s *Service) ListVolunteerOpportunities(ctx context.Context, f OpportunityFilter) ([]VolunteerOpportunity, error) {
	return s.Store.ListOpportunities(ctx, f)
}

// dedupeSkills trims, drops empties and keeps first occurrence, case-insensitively.
func dedupeSkills(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, sk := range skills {
		sk = strings.TrimSpace(sk)
		key := strings.ToLower(sk)
		if sk == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, sk)
	}
	return out
}

func (s *Service) publish(ctx context.Context, topic, eventType, id string, payload any) {
	if s.Publisher == nil {
		return
	}
	env, err := kafkax.NewEnvelope(eventType, s.ServiceName, id, payload)
	if err == nil {
		err = s.Publisher.Publish(ctx, topic, id, env)
	}
	if err != nil {
		s.logger().Error("registry event publish failed", zap.String("id", id), zap.String("event_type", eventType), zap.Error(err))
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) logger() *zap.Logger {
	if s.Log != nil {
		return s.Log
	}
	return zap.NewNop()
}
