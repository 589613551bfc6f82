// Package tracker consumes donation events and keeps the read-side caches
// (current status per donation, delivered count per institute) in Redis.
package tracker

import (
	"context"

	"github.com/ariefcatur/go-donation-fulfillment/internal/donations"
	kafkax "github.com/ariefcatur/go-donation-fulfillment/internal/kafka"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Service struct {
	Store       Store
	Log         *zap.Logger
	ServiceName string
}

// HandleDonationEvent is installed as the consumer handler for both donation
// topics. Replayed events are acknowledged without side effects.
func (s *Service) HandleDonationEvent(ctx context.Context, m kafkago.Message) error {
	env, err := kafkax.UnmarshalEnvelope(m.Value)
	if err != nil {
		// poison message, nothing to retry
		s.logger().Warn("dropping undecodable event", zap.String("topic", m.Topic), zap.Error(err))
		return nil
	}
	switch env.EventType {
	case donations.EventDonationCreated, donations.EventDonationStatusChanged:
	default:
		return nil
	}

	first, err := s.Store.MarkSeen(ctx, s.ServiceName, env.EventID)
	if err != nil {
		return err
	}
	if !first {
		return nil
	}

	switch env.EventType {
	case donations.EventDonationCreated:
		p, err := kafkax.UnwrapPayload[donations.DonationCreatedPayload](env.Payload)
		if err != nil {
			return err
		}
		return s.Store.AdvanceStatus(ctx, p.DonationID, donations.StatusPending, p.CreatedAt)

	case donations.EventDonationStatusChanged:
		p, err := kafkax.UnwrapPayload[donations.StatusChangedPayload](env.Payload)
		if err != nil {
			return err
		}
		if err := s.Store.AdvanceStatus(ctx, p.DonationID, p.To, p.At); err != nil {
			return err
		}
		if p.To != donations.StatusDelivered {
			return nil
		}
		n, err := s.Store.CountDelivery(ctx, p.InstituteID)
		if err != nil {
			return err
		}
		s.logger().Info("donation delivered",
			zap.String("donation_id", p.DonationID),
			zap.String("institute_id", p.InstituteID),
			zap.Int64("institute_delivered", n))
	}
	return nil
}

func (s *Service) logger() *zap.Logger {
	if s.Log != nil {
		return s.Log
	}
	return zap.NewNop()
}
