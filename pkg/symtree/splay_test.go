package symtree //nolint:testpackage // tests require access to splay, split and join

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRunTree(tb testing.TB, count int) (*Tree, []uint32) {
	tb.Helper()

	tree := New(Options{})
	indices := make([]uint32, 0, count)

	for idx := range count {
		end, err := tree.End(tree.Root())
		require.NoError(tb, err)

		id, err := tree.Insert(end, Symbols(idx%5+1))
		require.NoError(tb, err)

		indices = append(indices, id.Index)
	}

	return tree, indices
}

func testOrder(tree *Tree) []uint32 {
	var order []uint32
	for idx := tree.firstContained(tree.root); idx != 0; idx = tree.nextNode(idx) {
		order = append(order, idx)
	}

	return order
}

func TestSplayKeepsOrderAndAggregates(t *testing.T) {
	t.Parallel()

	tree, indices := testRunTree(t, 64)
	rng := rand.New(rand.NewSource(7))

	for range 200 {
		idx := indices[rng.Intn(len(indices))]
		tree.splay(idx)

		assert.Equal(t, idx, tree.storage()[tree.root].contained)
		assert.Equal(t, roleLocalRoot, tree.role(idx))
		require.NoError(t, tree.Validate())
	}

	assert.Equal(t, indices, testOrder(tree))
	assert.Positive(t, tree.Stats().Rotations)
}

func TestSplayLocalToContainer(t *testing.T) {
	t.Parallel()

	tree := New(Options{})

	container, err := tree.Insert(Position{Node: tree.Root(), Offset: 1}, Container(0))
	require.NoError(t, err)

	var inner []uint32

	for range 10 {
		end, endErr := tree.End(container)
		require.NoError(t, endErr)

		id, insertErr := tree.Insert(end, TextRun("ab"))
		require.NoError(t, insertErr)

		inner = append(inner, id.Index)
	}

	for _, idx := range inner {
		tree.splay(idx)
		assert.Equal(t, idx, tree.storage()[container.Index].contained)
		assert.Equal(t, container.Index, tree.storage()[idx].parent)
	}

	assert.Equal(t, container.Index, tree.storage()[tree.root].contained)
	require.NoError(t, tree.Validate())
}

func TestSplitJoin(t *testing.T) {
	t.Parallel()

	tree, indices := testRunTree(t, 9)

	pivot := indices[4]
	right := tree.split(pivot)
	require.NotZero(t, right)

	assert.Zero(t, tree.storage()[right].parent)
	assert.Zero(t, tree.storage()[pivot].right)
	assert.Equal(t, indices[5], tree.minNode(right))
	assert.Equal(t, indices[4], tree.maxNode(pivot))

	joined := tree.join(pivot, right)
	assert.Equal(t, pivot, joined)
	assert.Equal(t, joined, tree.storage()[tree.root].contained)

	assert.Equal(t, indices, testOrder(tree))
	require.NoError(t, tree.Validate())
}

func TestJoinEmpty(t *testing.T) {
	t.Parallel()

	tree, indices := testRunTree(t, 3)
	root := tree.storage()[tree.root].contained

	assert.Equal(t, root, tree.join(0, root))

	last := indices[len(indices)-1]
	assert.Zero(t, tree.split(last))
	assert.Equal(t, last, tree.join(last, 0))
}

func TestSymbolOffsetAfterSplay(t *testing.T) {
	t.Parallel()

	tree, indices := testRunTree(t, 20)

	expected := make([]int, len(indices))
	running := 1

	for pos, idx := range indices {
		expected[pos] = running
		running += tree.storage()[idx].symbols
	}

	// Force full walks by defeating the cache.
	tree.dirty = true

	for pos := len(indices) - 1; pos >= 0; pos-- {
		assert.Equal(t, expected[pos], tree.symbolOffset(indices[pos]))
	}

	tree.dirty = false
}
