package redisx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// pendingCreate is the value MarkOnce stores; donation ids are uuids, so it
// never collides with a completed entry.
const pendingCreate = "1"

// CreateKeys remembers which donation an idempotency key produced.
type CreateKeys struct {
	RDB *redis.Client
}

// Reserve claims key. If an earlier request holds it, existingID is the
// donation that request created, or empty while it is still running.
func (c CreateKeys) Reserve(ctx context.Context, key string) (existingID string, reserved bool, err error) {
	k := fmt.Sprintf(KeyIdemDonationCreate, key)
	ok, err := MarkOnce(ctx, c.RDB, k, TTLIdemPending)
	if err != nil || ok {
		return "", ok, err
	}
	v, err := c.RDB.Get(ctx, k).Result()
	if err == redis.Nil {
		// expired between SETNX and GET; the holder is treated as still running
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if v == pendingCreate {
		return "", false, nil
	}
	return v, false, nil
}

func (c CreateKeys) Complete(ctx context.Context, key, donationID string) error {
	return c.RDB.Set(ctx, fmt.Sprintf(KeyIdemDonationCreate, key), donationID, TTLIdempotency).Err()
}

// Release drops a reservation whose create failed so the client can retry.
func (c CreateKeys) Release(ctx context.Context, key string) error {
	return c.RDB.Del(ctx, fmt.Sprintf(KeyIdemDonationCreate, key)).Err()
}
