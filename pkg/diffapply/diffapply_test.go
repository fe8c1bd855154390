package diffapply_test

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/symtree/pkg/diffapply"
	"github.com/Sumatoshi-tech/symtree/pkg/symtree"
)

func textTree(t *testing.T, text string) *symtree.Tree {
	t.Helper()

	tree := symtree.New(symtree.Options{ValidateOnCommit: true})
	if text == "" {
		return tree
	}

	end, err := tree.End(tree.Root())
	require.NoError(t, err)

	_, err = tree.Insert(end, symtree.TextRun(text))
	require.NoError(t, err)

	return tree
}

func TestReplay_Summary(t *testing.T) {
	t.Parallel()

	tree := textTree(t, "hello world")
	generation := tree.Generation()

	summary, err := diffapply.Replay(tree, "hello brave world", diffapply.Runes)
	require.NoError(t, err)

	assert.Equal(t, "hello brave world", tree.Text())
	assert.Equal(t, 1, summary.Hunks)
	assert.Equal(t, 6, summary.Inserted)
	assert.Equal(t, 0, summary.Deleted)
	assert.Equal(t, 11, summary.Unchanged)
	assert.Equal(t, generation+1, summary.Generation)
	assert.NoError(t, tree.Validate())
}

func TestReplay_Granularity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		old         string
		target      string
		granularity diffapply.Granularity
	}{
		{name: "runes replace", old: "kitten", target: "sitting", granularity: diffapply.Runes},
		{name: "runes from empty", old: "", target: "new text", granularity: diffapply.Runes},
		{name: "runes to empty", old: "gone", target: "", granularity: diffapply.Runes},
		{name: "runes unicode", old: "héllo 😀", target: "hello 😀!", granularity: diffapply.Runes},
		{name: "lines", old: "a\nb\nc\n", target: "a\nx\ny\nc\n", granularity: diffapply.Lines},
		{name: "lines no trailing newline", old: "one\ntwo", target: "zero\none\ntwo\nthree", granularity: diffapply.Lines},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tree := textTree(t, tt.old)

			_, err := diffapply.Replay(tree, tt.target, tt.granularity)
			require.NoError(t, err)

			assert.Equal(t, tt.target, tree.Text())
			assert.Equal(t, len([]rune(tt.target)), tree.Len())
		})
	}
}

func TestReplay_RebindsNavigators(t *testing.T) {
	t.Parallel()

	tree := textTree(t, "hello world")

	pos, ok := tree.PositionAt(8)
	require.True(t, ok)

	nav, err := tree.Track(pos, symtree.Forward)
	require.NoError(t, err)

	_, err = diffapply.Replay(tree, "hello brave world", diffapply.Runes)
	require.NoError(t, err)

	offset, err := nav.Offset()
	require.NoError(t, err)
	assert.Equal(t, 14, offset)

	_, err = diffapply.Replay(tree, "world", diffapply.Runes)
	require.NoError(t, err)

	offset, err = nav.Offset()
	require.NoError(t, err)
	assert.Equal(t, 2, offset)
}

func TestApply_Errors(t *testing.T) {
	t.Parallel()

	tree := textTree(t, "ab")

	end, err := tree.End(tree.Root())
	require.NoError(t, err)

	_, err = tree.Insert(end, symtree.Boundary(1))
	require.NoError(t, err)

	_, err = diffapply.Replay(tree, "abc", diffapply.Runes)
	require.ErrorIs(t, err, diffapply.ErrNotFlat)

	tree = textTree(t, "abc")

	_, err = diffapply.Apply(tree, diffapply.Diff("abcdef", "abc", diffapply.Runes))
	require.ErrorIs(t, err, diffapply.ErrMismatch)

	_, err = diffapply.Apply(textTree(t, "abcdef"), diffapply.Diff("abc", "abc", diffapply.Runes))
	require.ErrorIs(t, err, diffapply.ErrMismatch)
}

func TestReplay_Randomized(t *testing.T) {
	t.Parallel()

	alphabet := []rune("ab é😀\n")
	rng := rand.New(rand.NewSource(7)) //nolint:gosec // deterministic test input.

	randomText := func() string {
		var text strings.Builder
		for range rng.Intn(40) {
			text.WriteRune(alphabet[rng.Intn(len(alphabet))])
		}

		return text.String()
	}

	tree := textTree(t, randomText())

	for step := range 50 {
		target := randomText()
		granularity := diffapply.Granularity(step % 2)

		_, err := diffapply.Replay(tree, target, granularity)
		require.NoError(t, err, "step %d", step)
		require.Equal(t, target, tree.Text(), "step %d", step)
	}
}
