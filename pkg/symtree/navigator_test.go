package symtree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/symtree/pkg/symtree"
)

func navOffset(t *testing.T, nav *symtree.Navigator) int {
	t.Helper()

	offset, err := nav.Offset()
	require.NoError(t, err)

	return offset
}

func track(t *testing.T, tree *symtree.Tree, pos symtree.Position, gravity symtree.Direction) *symtree.Navigator {
	t.Helper()

	nav, err := tree.Track(pos, gravity)
	require.NoError(t, err)

	return nav
}

func TestNavigatorGravity(t *testing.T) {
	t.Parallel()

	tree := symtree.New(symtree.Options{})
	run := appendContent(t, tree, tree.Root(), symtree.TextRun("abcd"))

	backward := track(t, tree, symtree.Position{Node: run, Offset: 2}, symtree.Backward)
	forward := track(t, tree, symtree.Position{Node: run, Offset: 2}, symtree.Forward)
	assert.Equal(t, 2, tree.Navigators())

	inserted, err := tree.Insert(symtree.Position{Node: run, Offset: 2}, symtree.TextRun("XY"))
	require.NoError(t, err)

	assert.Equal(t, "abXYcd", tree.Text())
	assert.Equal(t, 2, navOffset(t, backward))
	assert.Equal(t, 4, navOffset(t, forward))
	assert.Equal(t, inserted, forward.Position().Node)
	assert.Equal(t, symtree.Forward, forward.Gravity())
}

func TestNavigatorFollowsSplit(t *testing.T) {
	t.Parallel()

	tree := symtree.New(symtree.Options{})
	run := appendContent(t, tree, tree.Root(), symtree.TextRun("abcd"))
	nav := track(t, tree, symtree.Position{Node: run, Offset: 3}, symtree.Backward)

	_, err := tree.Insert(symtree.Position{Node: run, Offset: 1}, symtree.TextRun("XY"))
	require.NoError(t, err)

	assert.Equal(t, 5, navOffset(t, nav))
	assert.NotEqual(t, run, nav.Position().Node)

	info, err := tree.Node(nav.Position().Node)
	require.NoError(t, err)
	assert.Equal(t, "bcd", info.Text)
}

func TestNavigatorShiftsWithEarlierInsert(t *testing.T) {
	t.Parallel()

	tree, ids := buildRuns(t, 3, 3)
	nav := track(t, tree, symtree.Position{Node: ids[1], Offset: 1}, symtree.Backward)

	_, err := tree.Insert(symtree.Position{Node: ids[0], Offset: 0}, symtree.Symbols(4))
	require.NoError(t, err)

	assert.Equal(t, 8, navOffset(t, nav))
	assert.Equal(t, symtree.Position{Node: ids[1], Offset: 1}, nav.Position())
}

func TestNavigatorRebindAfterRemove(t *testing.T) {
	t.Parallel()

	tree := symtree.New(symtree.Options{})
	appendContent(t, tree, tree.Root(), symtree.TextRun("aaa"))
	middle := appendContent(t, tree, tree.Root(), symtree.TextRun("bbb"))
	last := appendContent(t, tree, tree.Root(), symtree.TextRun("ccc"))

	nav := track(t, tree, symtree.Position{Node: middle, Offset: 1}, symtree.Forward)

	require.NoError(t, tree.Remove(middle))

	assert.Equal(t, 3, navOffset(t, nav))
	assert.Equal(t, symtree.Position{Node: last, Offset: 0}, nav.Position())
}

func TestNavigatorRebindAtCommit(t *testing.T) {
	t.Parallel()

	tree := symtree.New(symtree.Options{})
	first := appendContent(t, tree, tree.Root(), symtree.TextRun("aaa"))
	middle := appendContent(t, tree, tree.Root(), symtree.TextRun("bbb"))
	last := appendContent(t, tree, tree.Root(), symtree.TextRun("ccc"))

	nav := track(t, tree, symtree.Position{Node: middle, Offset: 1}, symtree.Backward)
	generation := tree.Generation()

	tree.Begin()
	require.NoError(t, tree.Remove(middle))

	_, err := tree.Insert(symtree.Position{Node: first, Offset: 0}, symtree.TextRun("XX"))
	require.NoError(t, err)
	require.NoError(t, tree.Commit())

	assert.Equal(t, generation+1, tree.Generation())
	assert.Equal(t, "XXaaaccc", tree.Text())
	assert.Equal(t, 5, navOffset(t, nav))
	assert.Equal(t, symtree.Position{Node: last, Offset: 0}, nav.Position())
}

func TestNavigatorDeleteRange(t *testing.T) {
	t.Parallel()

	tree := symtree.New(symtree.Options{})
	run := appendContent(t, tree, tree.Root(), symtree.TextRun("abcdef"))

	inside := track(t, tree, symtree.Position{Node: run, Offset: 2}, symtree.Backward)
	after := track(t, tree, symtree.Position{Node: run, Offset: 4}, symtree.Backward)

	removed, err := tree.DeleteRange(symtree.Position{Node: run, Offset: 1}, symtree.Position{Node: run, Offset: 3})
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, "adef", tree.Text())

	assert.Equal(t, 1, navOffset(t, inside))
	assert.Equal(t, 2, navOffset(t, after))
}

func TestNavigatorContainerEnd(t *testing.T) {
	t.Parallel()

	tree := symtree.New(symtree.Options{})
	container := appendContent(t, tree, tree.Root(), symtree.Container(0))
	appendContent(t, tree, container, symtree.TextRun("xy"))

	end, err := tree.End(container)
	require.NoError(t, err)

	forward := track(t, tree, end, symtree.Forward)
	backward := track(t, tree, end, symtree.Backward)
	behind := track(t, tree, symtree.Position{Node: container, Offset: 4}, symtree.Backward)

	z, err := tree.Insert(end, symtree.TextRun("z"))
	require.NoError(t, err)

	assert.Equal(t, 4, navOffset(t, forward))
	assert.Equal(t, symtree.Position{Node: container, Offset: 1, FromEnd: true}, forward.Position())
	assert.Equal(t, 3, navOffset(t, backward))
	assert.Equal(t, z, backward.Position().Node)
	assert.Equal(t, symtree.Position{Node: container, Offset: 0, FromEnd: true}, behind.Position())

	_, err = tree.Insert(symtree.Position{Node: container, Offset: 0}, symtree.TextRun("pre"))
	require.NoError(t, err)

	assert.Equal(t, 7, navOffset(t, forward))
	assert.Equal(t, symtree.Position{Node: container, Offset: 1, FromEnd: true}, forward.Position())
	assert.Equal(t, 8, navOffset(t, behind))
}

func TestNavigatorEmptyDocument(t *testing.T) {
	t.Parallel()

	tree := symtree.New(symtree.Options{})
	start := symtree.Position{Node: tree.Root(), Offset: 1}

	forward := track(t, tree, start, symtree.Forward)
	backward := track(t, tree, start, symtree.Backward)

	_, err := tree.Insert(start, symtree.TextRun("abc"))
	require.NoError(t, err)

	assert.Equal(t, 3, navOffset(t, forward))
	assert.Equal(t, 0, navOffset(t, backward))
}

func TestNavigatorClose(t *testing.T) {
	t.Parallel()

	tree := symtree.New(symtree.Options{})
	run := appendContent(t, tree, tree.Root(), symtree.TextRun("ab"))

	nav := track(t, tree, symtree.Position{Node: run, Offset: 1}, symtree.Backward)
	other := track(t, tree, symtree.Position{Node: run, Offset: 2}, symtree.Backward)
	assert.Equal(t, 2, tree.Navigators())

	nav.Close()
	nav.Close()
	assert.Equal(t, 1, tree.Navigators())

	tree.Untrack(other)
	assert.Zero(t, tree.Navigators())

	_, err := tree.Track(symtree.Position{Node: run, Offset: 3}, symtree.Forward)
	require.ErrorIs(t, err, symtree.ErrInvalidPosition)
}
