package symtree

import (
	"fmt"
)

// Begin opens a change scope. Scopes nest; the generation is bumped once, when
// the outermost scope with edits commits. Tracked navigators are frozen at the
// outermost Begin and rebound on its Commit.
func (tree *Tree) Begin() {
	if tree.depth == 0 {
		tree.edits = tree.edits[:0]
		tree.freezeNavigators()
	}

	tree.depth++
}

// Commit closes the innermost change scope.
func (tree *Tree) Commit() error {
	if tree.depth == 0 {
		return ErrNoOpenScope
	}

	tree.depth--
	if tree.depth > 0 || !tree.dirty {
		return nil
	}

	tree.generation++
	tree.dirty = false
	tree.stats.Commits++

	rebound := tree.rebindNavigators()

	tree.logger.Debug("symtree commit",
		"tree", tree.name,
		"generation", tree.generation,
		"edits", len(tree.edits),
		"rebound", rebound,
		"symbols", tree.Len(),
	)

	if tree.validate {
		err := tree.Validate()
		if err != nil {
			return fmt.Errorf("commit generation %d: %w", tree.generation, err)
		}
	}

	return nil
}

// InScope reports whether a change scope is open.
func (tree *Tree) InScope() bool {
	return tree.depth > 0
}

// Update runs fn inside a change scope.
func (tree *Tree) Update(fn func() error) (err error) {
	tree.Begin()

	defer func() {
		commitErr := tree.Commit()
		if err == nil {
			err = commitErr
		}
	}()

	return fn()
}

func (tree *Tree) markDirty() {
	tree.dirty = true
}

// Insert adds content at the gap denoted by anchor and returns the new node.
// An anchor inside a run splits it; the left part keeps the node.
func (tree *Tree) Insert(anchor Position, content Content) (NodeID, error) {
	err := content.validate()
	if err != nil {
		return NodeID{}, err
	}

	idx, local, err := tree.resolvePosition(anchor)
	if err != nil {
		return NodeID{}, err
	}

	var inserted NodeID

	err = tree.Update(func() error {
		inserted = tree.insert(idx, local, content)

		return nil
	})

	return inserted, err
}

func (tree *Tree) insert(idx uint32, offset int, content Content) NodeID {
	at := tree.publicOffset(idx, offset)
	waiting := tree.navigatorsAt(at)

	tree.markDirty()

	if tree.storage()[idx].kind == KindRun && offset > 0 && offset < tree.storage()[idx].symbols {
		tree.splitRun(idx, offset)
	}

	newIdx := tree.newNode(content)
	location, before := tree.gapAt(idx, offset)

	if location == 0 {
		tree.insertIntoEmpty(idx, newIdx)
	} else {
		tree.insertAtNode(newIdx, location, before)
	}

	tree.logEdit(edit{offset: at, inserted: content.count})
	tree.settleNavigators()
	tree.placeNavigators(waiting, newIdx, at)

	return tree.nodeID(newIdx)
}

// gapAt converts an edge or run boundary offset to an insertion point. A zero
// location means idx is an empty root or container.
func (tree *Tree) gapAt(idx uint32, offset int) (uint32, bool) {
	nd := &tree.storage()[idx]

	if !nd.kind.nests() {
		return idx, offset == 0
	}

	switch {
	case offset == 0:
		return idx, true
	case offset == nd.symbols:
		return idx, false
	case nd.contained == 0:
		return 0, false
	case offset == 1:
		return tree.firstContained(idx), true
	default:
		return tree.lastContained(idx), false
	}
}

func (tree *Tree) newNode(content Content) uint32 {
	idx := tree.allocator.malloc()

	nd := &tree.storage()[idx]
	nd.kind = content.kind
	nd.symbols = content.count
	nd.chars = content.chars
	nd.text = content.text

	switch content.kind {
	case KindRun:
		if content.text != "" {
			nd.chars = tree.counter(content.text)
		}
	case KindContainer:
		nd.edgeChars = content.chars
	}

	return idx
}

// splitRun cuts a run at offset. idx keeps the left part, the returned node
// holds the rest and follows it.
func (tree *Tree) splitRun(idx uint32, offset int) uint32 {
	nd := tree.storage()[idx]
	doAssert(nd.kind == KindRun && offset > 0 && offset < nd.symbols)

	leftChars, rightChars := offset, nd.symbols-offset
	leftText, rightText := "", ""

	if nd.text != "" {
		leftText = runePrefix(nd.text, offset)
		rightText = nd.text[len(leftText):]
		leftChars, rightChars = tree.counter(leftText), tree.counter(rightText)
	}

	rightIdx := tree.allocator.malloc()
	right := &tree.storage()[rightIdx]
	right.kind = KindRun
	right.symbols = nd.symbols - offset
	right.chars = rightChars
	right.text = rightText

	tree.resizeNode(idx, -right.symbols, leftChars-nd.chars)
	tree.storage()[idx].text = leftText
	tree.insertAtNode(rightIdx, idx, false)
	tree.moveNavigators(idx, offset, rightIdx)

	return rightIdx
}

// Remove deletes a node together with everything it contains.
func (tree *Tree) Remove(id NodeID) error {
	idx, err := tree.resolve(id)
	if err != nil {
		return err
	}

	if idx == tree.root {
		return ErrRootRemoval
	}

	return tree.Update(func() error {
		at := tree.symbolOffset(idx) - 1
		length := tree.storage()[idx].symbols

		tree.markDirty()
		tree.removeNode(idx)
		tree.logEdit(edit{offset: at, removed: length})
		tree.settleNavigators()

		return nil
	})
}

// DeleteRange removes the content between two positions of the same
// container, splitting runs at both ends. It returns the number of removed symbols.
func (tree *Tree) DeleteRange(from, to Position) (int, error) {
	fromIdx, fromLocal, err := tree.resolvePosition(from)
	if err != nil {
		return 0, err
	}

	toIdx, toLocal, err := tree.resolvePosition(to)
	if err != nil {
		return 0, err
	}

	start, end := tree.publicOffset(fromIdx, fromLocal), tree.publicOffset(toIdx, toLocal)
	if start > end {
		start, end = end, start
	}

	container := tree.gapContainer(fromIdx, fromLocal)
	if other := tree.gapContainer(toIdx, toLocal); other != container {
		return 0, fmt.Errorf("%w: %s and %s", ErrCrossContainer, from, to)
	}

	if start == end {
		return 0, nil
	}

	err = tree.Update(func() error {
		tree.deleteRange(container, start, end)

		return nil
	})

	return end - start, err
}

// gapContainer returns the root or container whose content holds the gap.
func (tree *Tree) gapContainer(idx uint32, offset int) uint32 {
	nd := &tree.storage()[idx]
	if nd.kind.nests() && offset > 0 && offset < nd.symbols {
		return idx
	}

	return tree.containerOf(idx)
}

func (tree *Tree) deleteRange(container uint32, start, end int) {
	base := tree.publicOffset(container, 1)

	tree.markDirty()
	tree.cutAt(container, end-base)
	tree.cutAt(container, start-base)

	removed := 0
	for removed < end-start {
		idx, local := tree.siblingAtOffset(tree.storage()[container].contained, start-base)
		doAssert(local == 0)

		removed += tree.storage()[idx].symbols
		tree.removeNode(idx)
	}

	doAssert(removed == end-start)

	tree.logEdit(edit{offset: start, removed: end - start})
	tree.settleNavigators()
}

// cutAt makes sure a node starts at the given content offset of container.
func (tree *Tree) cutAt(container uint32, offset int) {
	nd := &tree.storage()[container]
	if nd.contained == 0 || offset == nd.contentSymbols() {
		return
	}

	idx, local := tree.siblingAtOffset(nd.contained, offset)
	if local == 0 {
		return
	}

	doAssert(tree.storage()[idx].kind == KindRun)
	tree.splitRun(idx, local)
}
