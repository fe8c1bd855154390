package symtree //nolint:testpackage // tests require access to unexported fields (shards, storage)

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShardedAllocatorThresholds(t *testing.T) {
	t.Parallel()

	sharded := NewShardedAllocator(4, 4000)
	for _, shard := range sharded.Shards() {
		assert.Equal(t, 1000, shard.HibernationThreshold)
	}

	small := NewShardedAllocator(4, 2)
	for _, shard := range small.Shards() {
		assert.Equal(t, minHibernationThreshold, shard.HibernationThreshold)
	}

	single := NewShardedAllocator(0, 0)
	assert.Len(t, single.Shards(), 1)
	assert.Zero(t, single.Shards()[0].HibernationThreshold)
}

func TestShardedAllocatorLookup(t *testing.T) {
	t.Parallel()

	sharded := NewShardedAllocator(8, 0)

	for _, key := range []string{"a", "b", "readme.md", "main.go"} {
		idx := sharded.ShardIndex(key)
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, 8)
		assert.Equal(t, idx, sharded.ShardIndex(key))
		assert.Same(t, sharded.Shards()[idx], sharded.GetShard(key))

		byID, ok := sharded.ByID(sharded.GetShard(key).ID())
		require.True(t, ok)
		assert.Same(t, sharded.GetShard(key), byID)
	}

	_, ok := sharded.ByID(0)
	assert.False(t, ok)
}

func TestShardedAllocatorRoundTrip(t *testing.T) {
	t.Parallel()

	sharded := NewShardedAllocator(3, 0)
	trees := map[string]*Tree{}

	for _, name := range []string{"one", "two", "three", "four", "five"} {
		trees[name] = testTextTree(t, sharded.GetShard(name), name, "-", name)
	}

	base := filepath.Join(t.TempDir(), "arena")

	sharded.Hibernate()

	for _, shard := range sharded.Shards() {
		assert.True(t, shard.Hibernated())
	}

	require.NoError(t, sharded.Serialize(base))
	require.NoError(t, sharded.Boot())

	restored := NewShardedAllocator(3, 0)
	require.NoError(t, restored.Deserialize(base))
	require.NoError(t, restored.Boot())

	for name, tree := range trees {
		assert.Equal(t, name+"-"+name, tree.Text())

		copied := attachTree(restored.GetShard(name), tree.root, 1, Options{})
		assert.Equal(t, tree.Layout(), copied.Layout(), name)
		require.NoError(t, copied.Validate())
	}
}

func TestShardedAllocatorDeserializeMissing(t *testing.T) {
	t.Parallel()

	sharded := NewShardedAllocator(2, 0)

	err := sharded.Deserialize(filepath.Join(t.TempDir(), "absent"))
	require.ErrorIs(t, err, ErrDeserializeShards)
}
