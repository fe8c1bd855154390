package symtree

import (
	"fmt"
)

// Validate checks every structural invariant by a full traversal: parent
// links, left aggregates, container counts and node kinds. It is meant for
// tests and debug builds; normal operation never recomputes aggregates.
func (tree *Tree) Validate() error {
	storage := tree.storage()
	rootNode := &storage[tree.root]

	if rootNode.kind != KindRoot || rootNode.parent != 0 {
		return fmt.Errorf("%w: node %d is not a document node", ErrCorrupt, tree.root)
	}

	_, _, err := tree.validateContainer(tree.root)

	return err
}

// validateContainer checks a root or container and returns its total counts.
func (tree *Tree) validateContainer(idx uint32) (int, int, error) {
	nd := &tree.storage()[idx]

	symbols, chars := 0, 0

	if nd.contained != 0 {
		if tree.storage()[nd.contained].parent != idx {
			return 0, 0, fmt.Errorf("%w: contained %d of %d has parent %d",
				ErrCorrupt, nd.contained, idx, tree.storage()[nd.contained].parent)
		}

		var err error

		symbols, chars, err = tree.validateLocal(nd.contained)
		if err != nil {
			return 0, 0, err
		}
	}

	if nd.symbols != symbols+edgeSymbols {
		return 0, 0, fmt.Errorf("%w: %s %d has %d symbols, content holds %d",
			ErrCorrupt, nd.kind, idx, nd.symbols, symbols)
	}

	if nd.chars != chars+nd.edgeChars {
		return 0, 0, fmt.Errorf("%w: %s %d has %d chars, content holds %d plus %d edge chars",
			ErrCorrupt, nd.kind, idx, nd.chars, chars, nd.edgeChars)
	}

	return nd.symbols, nd.chars, nil
}

// validateLocal checks a local subtree and returns its total counts.
func (tree *Tree) validateLocal(idx uint32) (int, int, error) {
	storage := tree.storage()
	nd := &storage[idx]

	switch nd.kind {
	case KindRun:
		if nd.symbols < 1 {
			return 0, 0, fmt.Errorf("%w: run %d has %d symbols", ErrCorrupt, idx, nd.symbols)
		}

		if nd.text != "" && nd.chars != tree.counter(nd.text) {
			return 0, 0, fmt.Errorf("%w: run %d has %d chars, text holds %d",
				ErrCorrupt, idx, nd.chars, tree.counter(nd.text))
		}
	case KindBoundary:
		if nd.symbols != 1 {
			return 0, 0, fmt.Errorf("%w: boundary %d has %d symbols", ErrCorrupt, idx, nd.symbols)
		}
	case KindContainer:
	default:
		return 0, 0, fmt.Errorf("%w: node %d of kind %s inside content", ErrCorrupt, idx, nd.kind)
	}

	leftSymbols, leftChars := 0, 0

	if nd.left != 0 {
		if storage[nd.left].parent != idx {
			return 0, 0, fmt.Errorf("%w: left child %d of %d has parent %d",
				ErrCorrupt, nd.left, idx, storage[nd.left].parent)
		}

		var err error

		leftSymbols, leftChars, err = tree.validateLocal(nd.left)
		if err != nil {
			return 0, 0, err
		}
	}

	if nd.leftSymbols != leftSymbols || nd.leftChars != leftChars {
		return 0, 0, fmt.Errorf("%w: node %d caches left %d/%d, left subtree holds %d/%d",
			ErrCorrupt, idx, nd.leftSymbols, nd.leftChars, leftSymbols, leftChars)
	}

	rightSymbols, rightChars := 0, 0

	if nd.right != 0 {
		if storage[nd.right].parent != idx {
			return 0, 0, fmt.Errorf("%w: right child %d of %d has parent %d",
				ErrCorrupt, nd.right, idx, storage[nd.right].parent)
		}

		var err error

		rightSymbols, rightChars, err = tree.validateLocal(nd.right)
		if err != nil {
			return 0, 0, err
		}
	}

	if nd.kind == KindContainer {
		_, _, err := tree.validateContainer(idx)
		if err != nil {
			return 0, 0, err
		}
	} else if nd.contained != 0 {
		return 0, 0, fmt.Errorf("%w: %s %d contains %d", ErrCorrupt, nd.kind, idx, nd.contained)
	}

	return leftSymbols + nd.symbols + rightSymbols, leftChars + nd.chars + rightChars, nil
}
