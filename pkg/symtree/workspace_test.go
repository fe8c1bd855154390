package symtree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/symtree/pkg/symtree"
)

func TestWorkspaceDocuments(t *testing.T) {
	t.Parallel()

	ws := symtree.NewWorkspace(2, 0, symtree.Options{})

	first := ws.Open("first")
	second := ws.Open("second")
	assert.Same(t, first, ws.Open("first"))
	assert.Equal(t, "first", first.Name())
	assert.Equal(t, []string{"first", "second"}, ws.Names())
	assert.Equal(t, uint64(2), ws.Generation())

	id := appendContent(t, first, first.Root(), symtree.TextRun("hello"))
	other := appendContent(t, second, second.Root(), symtree.TextRun("world"))
	assert.Equal(t, uint64(4), ws.Generation())

	owner, ok := ws.TreeOf(id)
	require.True(t, ok)
	assert.Same(t, first, owner)

	owner, ok = ws.TreeOf(other)
	require.True(t, ok)
	assert.Same(t, second, owner)

	_, ok = ws.TreeOf(symtree.NodeID{Arena: 0, Index: 1})
	assert.False(t, ok)

	var source symtree.Owner = ws

	owner, ok = source.TreeOf(id)
	require.True(t, ok)
	assert.Same(t, first, owner)

	require.NoError(t, ws.Close("first"))
	_, ok = ws.TreeOf(id)
	assert.False(t, ok)

	_, ok = ws.Get("first")
	assert.False(t, ok)

	require.ErrorIs(t, ws.Close("first"), symtree.ErrUnknownDocument)

	doc, ok := ws.Get("second")
	require.True(t, ok)
	assert.Equal(t, "world", doc.Text())
}

func TestWorkspaceCloseDropsNavigators(t *testing.T) {
	t.Parallel()

	ws := symtree.NewWorkspace(1, 0, symtree.Options{})
	doc := ws.Open("closing")
	run := appendContent(t, doc, doc.Root(), symtree.TextRun("hello"))

	nav, err := doc.Track(symtree.Position{Node: run, Offset: 2}, symtree.Forward)
	require.NoError(t, err)
	require.Equal(t, 1, doc.Navigators())

	require.NoError(t, ws.Close("closing"))
	assert.Equal(t, 0, doc.Navigators())

	doc.Begin()
	require.NoError(t, doc.Commit())

	_, err = nav.Offset()
	require.ErrorIs(t, err, symtree.ErrStaleNode)
	nav.Close()

	other := ws.Open("other")
	appendContent(t, other, other.Root(), symtree.TextRun("fresh"))
	assert.Equal(t, "fresh", other.Text())
}

func TestWorkspaceSaveLoad(t *testing.T) {
	t.Parallel()

	ws := symtree.NewWorkspace(3, 0, symtree.Options{})

	names := []string{"alpha", "beta", "gamma", "delta"}
	layouts := map[string]string{}

	for idx, name := range names {
		doc := ws.Open(name)
		container := appendContent(t, doc, doc.Root(), symtree.Container(idx))
		appendContent(t, doc, container, symtree.TextRun(name))
		appendContent(t, doc, doc.Root(), symtree.Symbols(idx+1))
		appendContent(t, doc, doc.Root(), symtree.Boundary(2))

		layouts[name] = doc.Layout()
	}

	dir := t.TempDir()
	require.NoError(t, ws.Save(dir))

	// Saving leaves the workspace usable.
	alpha, ok := ws.Get("alpha")
	require.True(t, ok)
	appendContent(t, alpha, alpha.Root(), symtree.TextRun("!"))
	require.NoError(t, alpha.Validate())

	loaded, err := symtree.LoadWorkspace(dir, symtree.Options{ValidateOnCommit: true})
	require.NoError(t, err)
	assert.ElementsMatch(t, names, loaded.Names())

	for _, name := range names {
		doc, ok := loaded.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, layouts[name], doc.Layout(), name)
		require.NoError(t, doc.Validate(), name)

		original, _ := ws.Get(name)
		if name != "alpha" {
			assert.Greater(t, doc.Generation(), original.Generation(), name)
		}

		id := appendContent(t, doc, doc.Root(), symtree.TextRun("more"))
		owner, ok := loaded.TreeOf(id)
		require.True(t, ok)
		assert.Same(t, doc, owner)
	}
}

func TestLoadWorkspaceMissing(t *testing.T) {
	t.Parallel()

	_, err := symtree.LoadWorkspace(t.TempDir(), symtree.Options{})
	require.Error(t, err)
}
