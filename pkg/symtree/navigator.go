package symtree

// edit is one entry of a change scope's log, in document offsets at the time
// it was applied.
type edit struct {
	offset   int
	removed  int
	inserted int
}

func (tree *Tree) logEdit(e edit) {
	tree.edits = append(tree.edits, e)
}

// transformOffset maps an offset from before the edits to after them.
// Offsets inside a deletion collapse to its start; an insertion exactly at
// the offset pushes it forward only with forward gravity.
func transformOffset(offset int, edits []edit, gravity Direction) int {
	for _, e := range edits {
		if e.removed > 0 && offset > e.offset {
			offset = max(e.offset, offset-e.removed)
		}

		if e.inserted > 0 && (offset > e.offset || (offset == e.offset && gravity == Forward)) {
			offset += e.inserted
		}
	}

	return offset
}

// Navigator is a tracked position. While its node is alive it keeps pointing
// into that node; when the node is removed the navigator is rebound on commit
// to where its offset moved.
type Navigator struct {
	tree     *Tree
	pos      Position
	gravity  Direction
	frozen   int
	editBase int
	// fromEnd is the distance from a container's end for end edge positions, -1 otherwise.
	fromEnd int
	closed  bool
}

// Track starts tracking pos. With Forward gravity an insertion at the
// navigator's gap moves it past the inserted content.
func (tree *Tree) Track(pos Position, gravity Direction) (*Navigator, error) {
	idx, local, err := tree.resolvePosition(pos)
	if err != nil {
		return nil, err
	}

	nav := &Navigator{tree: tree, gravity: gravity}
	nav.place(idx, local)

	if pos.FromEnd && tree.storage()[idx].kind.nests() {
		nav.fromEnd = pos.Offset
	}

	if tree.depth > 0 {
		nav.frozen = tree.publicOffset(idx, local)
		nav.editBase = len(tree.edits)
	}

	tree.navigators = append(tree.navigators, nav)

	return nav, nil
}

// Untrack stops maintaining nav.
func (tree *Tree) Untrack(nav *Navigator) {
	for idx, candidate := range tree.navigators {
		if candidate == nav {
			tree.navigators = append(tree.navigators[:idx], tree.navigators[idx+1:]...)
			nav.closed = true

			return
		}
	}
}

// Navigators returns the number of tracked navigators.
func (tree *Tree) Navigators() int {
	return len(tree.navigators)
}

// Position returns the current position. End edges are named from the end.
func (nav *Navigator) Position() Position {
	if nav.fromEnd >= 0 {
		return Position{Node: nav.pos.Node, Offset: nav.fromEnd, FromEnd: true}
	}

	return nav.pos
}

// Offset returns the current document offset.
func (nav *Navigator) Offset() (int, error) {
	return nav.tree.OffsetOf(nav.pos)
}

// Gravity returns the direction the navigator leans to on insertion.
func (nav *Navigator) Gravity() Direction {
	return nav.gravity
}

// Close stops tracking. Using a closed navigator is allowed, it just no longer moves.
func (nav *Navigator) Close() {
	if !nav.closed {
		nav.tree.Untrack(nav)
	}
}

func (nav *Navigator) alive() bool {
	return nav.tree.allocator.live(nav.pos.Node.Index, nav.pos.Node.Incarnation)
}

func (nav *Navigator) place(idx uint32, offset int) {
	tree := nav.tree
	nd := &tree.storage()[idx]

	nav.pos = Position{Node: tree.nodeID(idx), Offset: offset}
	nav.fromEnd = -1

	if nd.kind.nests() && offset > 1 && offset >= nd.symbols-1 {
		nav.fromEnd = nd.symbols - offset
	}
}

func (tree *Tree) freezeNavigators() {
	for _, nav := range tree.navigators {
		nav.frozen = tree.publicOffset(nav.pos.Node.Index, nav.pos.Offset)
		nav.editBase = 0
	}
}

// navigatorsAt collects the live navigators sitting at a document offset.
func (tree *Tree) navigatorsAt(offset int) []*Navigator {
	var found []*Navigator

	for _, nav := range tree.navigators {
		if nav.alive() && tree.publicOffset(nav.pos.Node.Index, nav.pos.Offset) == offset {
			found = append(found, nav)
		}
	}

	return found
}

// placeNavigators applies gravity to the navigators that were at the gap
// where idx was just inserted.
func (tree *Tree) placeNavigators(waiting []*Navigator, idx uint32, offset int) {
	length := tree.storage()[idx].symbols

	for _, nav := range waiting {
		want, local := offset, 0
		if nav.gravity == Forward {
			want, local = offset+length, length
		}

		if nav.alive() && tree.publicOffset(nav.pos.Node.Index, nav.pos.Offset) == want {
			continue
		}

		nav.place(idx, local)
	}
}

// moveNavigators hands navigators past offset in a split run to its right part.
func (tree *Tree) moveNavigators(idx uint32, offset int, rightIdx uint32) {
	for _, nav := range tree.navigators {
		if nav.pos.Node.Index == idx && nav.alive() && nav.pos.Offset > offset {
			nav.place(rightIdx, nav.pos.Offset-offset)
		}
	}
}

// settleNavigators keeps end edge navigators on resized containers at the end.
func (tree *Tree) settleNavigators() {
	storage := tree.storage()

	for _, nav := range tree.navigators {
		if nav.fromEnd >= 0 && nav.alive() {
			nav.pos.Offset = storage[nav.pos.Node.Index].symbols - nav.fromEnd
		}
	}
}

// rebindNavigators moves navigators whose node died to the canonical position
// of their transformed offset.
func (tree *Tree) rebindNavigators() int {
	rebound := 0
	length := tree.Len()

	for _, nav := range tree.navigators {
		if nav.alive() {
			continue
		}

		offset := transformOffset(nav.frozen, tree.edits[nav.editBase:], nav.gravity)
		offset = min(max(offset, 0), length)

		idx, local := tree.positionAt(offset)
		nav.place(idx, local)

		rebound++
	}

	return rebound
}
