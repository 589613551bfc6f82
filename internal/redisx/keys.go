package redisx

import "time"

const (
	// idem:donation:create:{idempotency_key} -> donation_id, or "1" while in flight
	KeyIdemDonationCreate = "idem:donation:create:%s"

	// donation_status:{donation_id} -> {"status": "...", "updated_at": "..."}
	KeyDonationStatus = "donation_status:%s"

	// dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// actor:{actor_id} -> JSON actor
	KeyActor = "actor:%s"

	// institute_delivered:{institute_id} -> count of delivered donations
	KeyInstituteDelivered = "institute_delivered:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLIdemPending = 30 * time.Second
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
	TTLActor       = 30 * time.Second
)
