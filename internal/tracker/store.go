package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/ariefcatur/go-donation-fulfillment/internal/donations"
	"github.com/ariefcatur/go-donation-fulfillment/internal/redisx"
	"github.com/redis/go-redis/v9"
)

type Store interface {
	// MarkSeen reports true the first time eventID is seen by consumer.
	MarkSeen(ctx context.Context, consumer, eventID string) (bool, error)
	// AdvanceStatus moves the cached status forward only.
	AdvanceStatus(ctx context.Context, donationID string, status donations.Status, at time.Time) error
	CountDelivery(ctx context.Context, instituteID string) (int64, error)
	Delivered(ctx context.Context, instituteID string) (int64, error)
}

type RedisStore struct{ Redis *redis.Client }

func (s *RedisStore) MarkSeen(ctx context.Context, consumer, eventID string) (bool, error) {
	return redisx.MarkOnce(ctx, s.Redis, fmt.Sprintf(redisx.KeyDedup, consumer, eventID), redisx.TTLDedup)
}

func (s *RedisStore) AdvanceStatus(ctx context.Context, donationID string, status donations.Status, at time.Time) error {
	_, err := redisx.AdvanceDonationStatus(ctx, s.Redis, donationID, string(status), status.Rank(), at)
	return err
}

func (s *RedisStore) CountDelivery(ctx context.Context, instituteID string) (int64, error) {
	return s.Redis.Incr(ctx, fmt.Sprintf(redisx.KeyInstituteDelivered, instituteID)).Result()
}

func (s *RedisStore) Delivered(ctx context.Context, instituteID string) (int64, error) {
	n, err := s.Redis.Get(ctx, fmt.Sprintf(redisx.KeyInstituteDelivered, instituteID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}
