package symtree

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
)

// ErrSerializeShards is returned when shard serialization fails.
var ErrSerializeShards = errors.New("failed to serialize shards")

// ErrDeserializeShards is returned when shard deserialization fails.
var ErrDeserializeShards = errors.New("failed to deserialize shards")

// ErrBootShards is returned when a shard cannot be booted.
var ErrBootShards = errors.New("failed to boot shards")

// minHibernationThreshold is the minimal reasonable default if division results in 0.
const minHibernationThreshold = 1000

// ShardedAllocator spreads documents over several arenas so they can be
// hibernated and restored in parallel.
type ShardedAllocator struct {
	shards []*Allocator
	byID   map[uint32]*Allocator
}

// NewShardedAllocator creates a new ShardedAllocator with n shards.
func NewShardedAllocator(shardCount, hibernationThreshold int) *ShardedAllocator {
	if shardCount <= 0 {
		shardCount = 1
	}

	shards := make([]*Allocator, shardCount)
	byID := make(map[uint32]*Allocator, shardCount)

	for idx := range shardCount {
		shards[idx] = NewAllocator()
		byID[shards[idx].id] = shards[idx]

		if hibernationThreshold > 0 {
			shards[idx].HibernationThreshold = hibernationThreshold / shardCount
			if shards[idx].HibernationThreshold == 0 {
				shards[idx].HibernationThreshold = minHibernationThreshold
			}
		}
	}

	return &ShardedAllocator{shards: shards, byID: byID}
}

// ShardIndex returns the shard number for the given key.
func (sa *ShardedAllocator) ShardIndex(key string) int {
	hasher := fnv.New32a()
	hasher.Write([]byte(key))

	return int(hasher.Sum32() % uint32(len(sa.shards)))
}

// GetShard returns the allocator shard for the given key.
func (sa *ShardedAllocator) GetShard(key string) *Allocator {
	return sa.shards[sa.ShardIndex(key)]
}

// ByID returns the shard with the given arena ID.
func (sa *ShardedAllocator) ByID(id uint32) (*Allocator, bool) {
	alloc, ok := sa.byID[id]

	return alloc, ok
}

// Shards returns all underlying allocators.
func (sa *ShardedAllocator) Shards() []*Allocator {
	return sa.shards
}

// Hibernate hibernates all shards in parallel.
func (sa *ShardedAllocator) Hibernate() {
	wg := sync.WaitGroup{}
	wg.Add(len(sa.shards))

	for _, shard := range sa.shards {
		go func(alloc *Allocator) {
			defer wg.Done()

			// Force hibernation even if below threshold by temporarily setting threshold to 0.
			originalThreshold := alloc.HibernationThreshold
			alloc.HibernationThreshold = 0
			alloc.Hibernate()
			alloc.HibernationThreshold = originalThreshold
		}(shard)
	}

	wg.Wait()
}

// Boot boots all shards in parallel.
func (sa *ShardedAllocator) Boot() error {
	return sa.parallel(ErrBootShards, func(_ int, alloc *Allocator) error {
		return alloc.Boot()
	})
}

// Serialize writes every hibernated shard to basePath with a ".shard.N" suffix.
func (sa *ShardedAllocator) Serialize(basePath string) error {
	return sa.parallel(ErrSerializeShards, func(shardIdx int, alloc *Allocator) error {
		if alloc.storage != nil {
			// Skip shards that were not hibernated.
			return nil
		}

		return alloc.Serialize(shardPath(basePath, shardIdx))
	})
}

// Deserialize reads all shards from disk. Call Boot afterwards.
func (sa *ShardedAllocator) Deserialize(basePath string) error {
	return sa.parallel(ErrDeserializeShards, func(shardIdx int, alloc *Allocator) error {
		return alloc.Deserialize(shardPath(basePath, shardIdx))
	})
}

func (sa *ShardedAllocator) parallel(sentinel error, fn func(int, *Allocator) error) error {
	var errs []error

	var mu sync.Mutex

	wg := sync.WaitGroup{}
	wg.Add(len(sa.shards))

	for idx, shard := range sa.shards {
		go func(shardIdx int, alloc *Allocator) {
			defer wg.Done()

			err := fn(shardIdx, alloc)
			if err != nil {
				mu.Lock()

				errs = append(errs, err)

				mu.Unlock()
			}
		}(idx, shard)
	}

	wg.Wait()

	if len(errs) > 0 {
		return fmt.Errorf("%w: %v", sentinel, errs)
	}

	return nil
}

func shardPath(basePath string, shardIdx int) string {
	return fmt.Sprintf("%s.shard.%d", basePath, shardIdx)
}
