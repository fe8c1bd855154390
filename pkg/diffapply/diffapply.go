// Package diffapply replays a text diff onto a flat symtree document as one
// change scope, so navigators tracked before the replay follow the edits.
package diffapply

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/Sumatoshi-tech/symtree/pkg/symtree"
)

// ErrNotFlat is returned for documents holding anything but text runs.
var ErrNotFlat = errors.New("document is not flat text")

// ErrMismatch is returned when a diff does not describe the document text.
var ErrMismatch = errors.New("diff does not match document")

// Granularity selects the diff unit.
type Granularity int

const (
	// Runes diffs character by character.
	Runes Granularity = iota
	// Lines diffs whole lines, which is faster on large inputs and keeps
	// edits aligned to line starts.
	Lines
)

// Summary describes an applied diff.
type Summary struct {
	Hunks      int
	Inserted   int
	Deleted    int
	Unchanged  int
	Generation uint64
}

// Diff computes the edit script from old to target.
func Diff(old, target string, granularity Granularity) []diffmatchpatch.Diff {
	dmp := diffmatchpatch.New()

	if granularity == Lines {
		oldRunes, targetRunes, lines := dmp.DiffLinesToRunes(old, target)

		return dmp.DiffCharsToLines(dmp.DiffMainRunes(oldRunes, targetRunes, false), lines)
	}

	return dmp.DiffCleanupEfficiency(dmp.DiffMain(old, target, false))
}

// Replay rewrites the document so that its text becomes target.
func Replay(tree *symtree.Tree, target string, granularity Granularity) (Summary, error) {
	return Apply(tree, Diff(tree.Text(), target, granularity))
}

// Apply replays diffs onto tree. The equal and delete segments must spell the
// current document text. Edits made before a failing segment are kept.
func Apply(tree *symtree.Tree, diffs []diffmatchpatch.Diff) (Summary, error) {
	if utf8.RuneCountInString(tree.Text()) != tree.Len() {
		return Summary{}, ErrNotFlat
	}

	var summary Summary

	err := tree.Update(func() error {
		offset := 0

		for idx, diff := range diffs {
			size := utf8.RuneCountInString(diff.Text)
			if size == 0 {
				continue
			}

			var err error

			switch diff.Type {
			case diffmatchpatch.DiffEqual:
				summary.Unchanged += size
				offset += size
			case diffmatchpatch.DiffDelete:
				err = deleteAt(tree, offset, size)
				summary.Deleted += size
				summary.Hunks++
			case diffmatchpatch.DiffInsert:
				err = insertAt(tree, offset, diff.Text)
				summary.Inserted += size
				summary.Hunks++
				offset += size
			}

			if err != nil {
				return fmt.Errorf("diff %d: %w", idx, err)
			}
		}

		if offset != tree.Len() {
			return fmt.Errorf("%w: diff covers %d of %d symbols", ErrMismatch, offset, tree.Len())
		}

		return nil
	})
	if err != nil {
		return summary, err
	}

	summary.Generation = tree.Generation()

	return summary, nil
}

func deleteAt(tree *symtree.Tree, offset, size int) error {
	from, fromOK := tree.PositionAt(offset)
	to, toOK := tree.PositionAt(offset + size)

	if !fromOK || !toOK {
		return fmt.Errorf("%w: delete [%d, %d) beyond %d", ErrMismatch, offset, offset+size, tree.Len())
	}

	_, err := tree.DeleteRange(from, to)

	return err
}

func insertAt(tree *symtree.Tree, offset int, text string) error {
	at, ok := tree.PositionAt(offset)
	if !ok {
		return fmt.Errorf("%w: insert at %d beyond %d", ErrMismatch, offset, tree.Len())
	}

	_, err := tree.Insert(at, symtree.TextRun(text))

	return err
}
