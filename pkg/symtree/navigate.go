package symtree

// siblingAtOffset finds the node of the local tree rooted at root whose range
// holds offset, and the offset inside it. The found node is splayed.
func (tree *Tree) siblingAtOffset(root uint32, offset int) (uint32, int) {
	storage := tree.storage()
	cur := root

	for {
		nd := &storage[cur]

		switch {
		case offset < nd.leftSymbols:
			cur = nd.left
		case offset >= nd.leftSymbols+nd.symbols && nd.right != 0:
			offset -= nd.leftSymbols + nd.symbols
			cur = nd.right
		default:
			local := offset - nd.leftSymbols
			tree.splay(cur)

			return cur, local
		}

		doAssert(cur != 0)
	}
}

// siblingAtCharOffset is the char channel analogue of siblingAtOffset. An
// offset on the seam between two nodes resolves to the left one, except at
// the very start.
func (tree *Tree) siblingAtCharOffset(root uint32, offset int) (uint32, int) {
	storage := tree.storage()
	cur := root

	for {
		nd := &storage[cur]

		switch {
		case nd.left != 0 && (offset < nd.leftChars || (offset == nd.leftChars && offset > 0)):
			cur = nd.left
		case offset > nd.leftChars+nd.chars && nd.right != 0:
			offset -= nd.leftChars + nd.chars
			cur = nd.right
		default:
			local := offset - nd.leftChars
			tree.splay(cur)

			return cur, local
		}
	}
}

// firstContained returns the first node inside idx, 0 if it is empty.
func (tree *Tree) firstContained(idx uint32) uint32 {
	contained := tree.storage()[idx].contained
	if contained == 0 {
		return 0
	}

	return tree.minNode(contained)
}

// lastContained returns the last node inside idx, 0 if it is empty.
func (tree *Tree) lastContained(idx uint32) uint32 {
	contained := tree.storage()[idx].contained
	if contained == 0 {
		return 0
	}

	return tree.maxNode(contained)
}

// nextNode returns the in-order successor of idx among its siblings.
func (tree *Tree) nextNode(idx uint32) uint32 {
	storage := tree.storage()
	if storage[idx].right != 0 {
		return tree.minNode(storage[idx].right)
	}

	for {
		switch tree.role(idx) {
		case roleLocalRoot:
			return 0
		case roleLeftChild:
			return storage[idx].parent
		case roleRightChild:
			idx = storage[idx].parent
		}
	}
}

// previousNode returns the in-order predecessor of idx among its siblings.
func (tree *Tree) previousNode(idx uint32) uint32 {
	storage := tree.storage()
	if storage[idx].left != 0 {
		return tree.maxNode(storage[idx].left)
	}

	for {
		switch tree.role(idx) {
		case roleLocalRoot:
			return 0
		case roleRightChild:
			return storage[idx].parent
		case roleLeftChild:
			idx = storage[idx].parent
		}
	}
}

// composedNext walks the whole document in order: a container comes before
// its content, and the content is followed by the container's next sibling.
func (tree *Tree) composedNext(idx uint32) uint32 {
	if first := tree.firstContained(idx); first != 0 {
		return first
	}

	for idx != tree.root {
		if next := tree.nextNode(idx); next != 0 {
			return next
		}

		idx = tree.containerOf(idx)
	}

	return 0
}

// composedPrev is the inverse of composedNext.
func (tree *Tree) composedPrev(idx uint32) uint32 {
	if idx == tree.root {
		return 0
	}

	prev := tree.previousNode(idx)
	if prev == 0 {
		container := tree.containerOf(idx)
		if container == tree.root {
			return 0
		}

		return container
	}

	for {
		last := tree.lastContained(prev)
		if last == 0 {
			return prev
		}

		prev = last
	}
}
