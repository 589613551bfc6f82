package redisx

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type CachedStatus struct {
	Status    string    `json:"status"`
	Rank      int       `json:"rank"`
	UpdatedAt time.Time `json:"updated_at"`
}

// advanceStatus writes ARGV[1] unless the stored entry already has a rank >= ARGV[2].
var advanceStatus = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur then
  local ok, obj = pcall(cjson.decode, cur)
  if ok and type(obj) == 'table' and tonumber(obj.rank) and tonumber(obj.rank) >= tonumber(ARGV[2]) then
    return 0
  end
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// AdvanceDonationStatus caches status only if it is further along than what is
// cached, so late or reordered events never move the cache backwards.
func AdvanceDonationStatus(ctx context.Context, rdb *redis.Client, donationID, status string, rank int, at time.Time) (bool, error) {
	b, err := json.Marshal(CachedStatus{Status: status, Rank: rank, UpdatedAt: at.UTC()})
	if err != nil {
		return false, err
	}
	n, err := advanceStatus.Run(ctx, rdb,
		[]string{fmt.Sprintf(KeyDonationStatus, donationID)},
		string(b), rank, TTLStatusCache.Milliseconds(),
	).Int()
	return n == 1, err
}

// GetDonationStatus returns ok=false on a cache miss.
func GetDonationStatus(ctx context.Context, rdb *redis.Client, donationID string) (CachedStatus, bool, error) {
	s, err := rdb.Get(ctx, fmt.Sprintf(KeyDonationStatus, donationID)).Result()
	if err == redis.Nil {
		return CachedStatus{}, false, nil
	}
	if err != nil {
		return CachedStatus{}, false, err
	}
	var cs CachedStatus
	if err := json.Unmarshal([]byte(s), &cs); err != nil {
		return CachedStatus{}, false, err
	}
	return cs, true, nil
}
