package donations

import (
	"hash/fnv"
	"sync"
)

const numShards = 64

// shardedLock serialises mutations per donation id. Ids that hash to the same
// shard also serialise, which is harmless.
type shardedLock struct {
	shards [numShards]sync.Mutex
}

func (l *shardedLock) lock(id string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	m := &l.shards[h.Sum32()%numShards]
	m.Lock()
	return m.Unlock
}
