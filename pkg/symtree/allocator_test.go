package symtree //nolint:testpackage // tests require access to unexported fields (storage, gaps, malloc, etc.)

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTextTree(tb testing.TB, alloc *Allocator, texts ...string) *Tree {
	tb.Helper()

	tree := NewTree(alloc, Options{})

	for _, text := range texts {
		end, err := tree.End(tree.Root())
		require.NoError(tb, err)

		_, err = tree.Insert(end, TextRun(text))
		require.NoError(tb, err)
	}

	return tree
}

func TestAllocatorMallocFree(t *testing.T) {
	t.Parallel()

	alloc := NewAllocator()
	assert.Equal(t, 0, alloc.Used())

	first := alloc.malloc()
	second := alloc.malloc()
	assert.Equal(t, uint32(1), first)
	assert.Equal(t, uint32(2), second)
	assert.Equal(t, 2, alloc.Used())
	assert.Equal(t, 3, alloc.Size())

	alloc.storage[first].kind = KindRun
	assert.True(t, alloc.live(first, 0))

	alloc.free(first)
	assert.Equal(t, 1, alloc.Used())
	assert.False(t, alloc.live(first, 0))
	assert.Equal(t, -1, alloc.storage[first].offsetCache)

	reused := alloc.malloc()
	assert.Equal(t, first, reused)
	alloc.storage[reused].kind = KindRun
	assert.False(t, alloc.live(reused, 0), "the old handle must stay stale")
	assert.True(t, alloc.live(reused, 1))

	assert.False(t, alloc.live(0, 0))
	assert.False(t, alloc.live(100, 0))
	assert.Panics(t, func() { alloc.free(0) })
}

func TestAllocatorIDs(t *testing.T) {
	t.Parallel()

	first, second := NewAllocator(), NewAllocator()
	assert.NotEqual(t, first.ID(), second.ID())

	clone := first.Clone()
	assert.NotEqual(t, first.ID(), clone.ID())
}

func TestAllocatorHibernateBoot(t *testing.T) {
	t.Parallel()

	alloc := NewAllocator()
	tree := testTextTree(t, alloc, "hello", " ", "wörld")

	container, err := tree.Insert(Position{Node: tree.Root(), Offset: 1}, Container(2))
	require.NoError(t, err)

	_, err = tree.Insert(Position{Node: container, Offset: 1}, TextRun("nested"))
	require.NoError(t, err)

	removed, ok := tree.NodeAt(2)
	require.True(t, ok)
	require.NoError(t, tree.Remove(removed))

	layout := tree.Layout()
	used := alloc.Used()

	alloc.Hibernate()
	assert.True(t, alloc.Hibernated())
	assert.Panics(t, func() { alloc.Used() })

	require.NoError(t, alloc.Boot())
	assert.False(t, alloc.Hibernated())
	assert.Equal(t, used, alloc.Used())
	assert.Equal(t, layout, tree.Layout())
	require.NoError(t, tree.Validate())
	assert.False(t, tree.Contains(removed))

	for idx := 1; idx < len(alloc.storage); idx++ {
		assert.Equal(t, -1, alloc.storage[idx].offsetCache)
	}

	_, err = tree.Insert(Position{Node: tree.Root(), Offset: 1}, TextRun("again"))
	require.NoError(t, err)
	require.NoError(t, tree.Validate())
}

func TestAllocatorHibernateThreshold(t *testing.T) {
	t.Parallel()

	alloc := NewAllocator()
	testTextTree(t, alloc, "a")

	alloc.HibernationThreshold = 1000
	alloc.Hibernate()
	assert.False(t, alloc.Hibernated())
}

func TestAllocatorHibernateEmpty(t *testing.T) {
	t.Parallel()

	alloc := NewAllocator()
	alloc.Hibernate()
	assert.True(t, alloc.Hibernated())

	require.NoError(t, alloc.Boot())
	assert.Equal(t, 0, alloc.Used())
}

func TestAllocatorSerializeDeserialize(t *testing.T) {
	t.Parallel()

	alloc := NewAllocator()
	tree := testTextTree(t, alloc, "alpha", "beta", "gamma")
	layout := tree.Layout()

	path := filepath.Join(t.TempDir(), "arena")

	assert.Panics(t, func() { _ = alloc.Serialize(path) })

	alloc.Hibernate()
	require.NoError(t, alloc.Serialize(path))

	// The hibernated data stays in memory.
	require.NoError(t, alloc.Boot())
	assert.Equal(t, layout, tree.Layout())

	restored := NewAllocator()
	require.NoError(t, restored.Deserialize(path))
	require.NoError(t, restored.Boot())

	copied := attachTree(restored, tree.root, 1, Options{})
	assert.Equal(t, layout, copied.Layout())
	require.NoError(t, copied.Validate())
}

func TestAllocatorDeserializeErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	err := NewAllocator().Deserialize(filepath.Join(dir, "missing"))
	require.Error(t, err)

	truncated := filepath.Join(dir, "truncated")
	require.NoError(t, os.WriteFile(truncated, []byte{5, 0, 0, 10, 1}, 0o600))

	err = NewAllocator().Deserialize(truncated)
	require.ErrorIs(t, err, ErrIncompleteRead)
}
