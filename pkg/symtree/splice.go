package symtree

// split splays idx and detaches its right subtree, which is returned as an
// independent tree. idx keeps its place in the container.
func (tree *Tree) split(idx uint32) uint32 {
	tree.splay(idx)

	storage := tree.storage()

	right := storage[idx].right
	if right != 0 {
		storage[right].parent = 0
		storage[idx].right = 0
	}

	return right
}

// join concatenates two trees. left may be attached to a container, right must
// be a local root. The root of the joined tree is returned.
func (tree *Tree) join(left, right uint32) uint32 {
	if left == 0 {
		return right
	}

	maxIdx := tree.maxNode(left)
	tree.splay(maxIdx)

	storage := tree.storage()
	doAssert(storage[maxIdx].right == 0)

	storage[maxIdx].right = right
	if right != 0 {
		storage[right].parent = maxIdx
	}

	return maxIdx
}

// insertAtNode splices the unlinked node idx next to location.
func (tree *Tree) insertAtNode(idx, location uint32, before bool) {
	tree.splay(location)

	storage := tree.storage()
	container := storage[location].parent
	doAssert(container != 0)

	var left, right uint32

	switch {
	case !before:
		left = location
		right = tree.split(location)
	case storage[location].left == 0:
		right = location
	default:
		left = tree.maxNode(storage[location].left)
		right = tree.split(left)
	}

	nd := &storage[idx]
	nd.left = left
	nd.right = right
	nd.leftSymbols = 0
	nd.leftChars = 0

	if left != 0 {
		// left was splayed by split and has no right child.
		storage[left].parent = idx
		nd.leftSymbols = storage[left].leftSymbols + storage[left].symbols
		nd.leftChars = storage[left].leftChars + storage[left].chars
	}

	if right != 0 {
		storage[right].parent = idx
	}

	storage[container].contained = idx
	nd.parent = container

	tree.updateContainerCounts(container, nd.symbols, nd.chars)
}

// insertIntoEmpty publishes idx as the only content of container.
func (tree *Tree) insertIntoEmpty(container, idx uint32) {
	storage := tree.storage()
	doAssert(storage[container].contained == 0)

	storage[container].contained = idx
	storage[idx].parent = container

	tree.updateContainerCounts(container, storage[idx].symbols, storage[idx].chars)
}

// removeNode unlinks idx, republishes the join of its children and frees idx
// together with everything it contains.
func (tree *Tree) removeNode(idx uint32) {
	tree.splay(idx)

	storage := tree.storage()
	container := storage[idx].parent
	doAssert(container != 0)

	left, right := storage[idx].left, storage[idx].right
	if left != 0 {
		storage[left].parent = 0
	}

	if right != 0 {
		storage[right].parent = 0
	}

	joined := tree.join(left, right)

	storage[container].contained = joined
	if joined != 0 {
		storage[joined].parent = container
	}

	tree.updateContainerCounts(container, -storage[idx].symbols, -storage[idx].chars)
	tree.freeSubtree(idx)
}

// updateContainerCounts adds a content delta to container and every node
// enclosing it. Each container is splayed first so no left aggregate in its own
// local tree covers it.
func (tree *Tree) updateContainerCounts(container uint32, deltaSymbols, deltaChars int) {
	storage := tree.storage()

	for container != 0 {
		tree.splay(container)

		storage[container].symbols += deltaSymbols
		storage[container].chars += deltaChars
		container = storage[container].parent
	}
}

// resizeNode changes a node's own counts in place.
func (tree *Tree) resizeNode(idx uint32, deltaSymbols, deltaChars int) {
	tree.splay(idx)

	storage := tree.storage()
	storage[idx].symbols += deltaSymbols
	storage[idx].chars += deltaChars

	tree.updateContainerCounts(storage[idx].parent, deltaSymbols, deltaChars)
}

// freeSubtree releases idx and its contained tree. idx's own children must
// already be relinked elsewhere.
func (tree *Tree) freeSubtree(idx uint32) {
	storage := tree.storage()

	var stack []uint32
	if storage[idx].contained != 0 {
		stack = append(stack, storage[idx].contained)
	}

	tree.allocator.free(idx)
	tree.stats.Frees++

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		nd := &storage[cur]
		for _, next := range [3]uint32{nd.left, nd.right, nd.contained} {
			if next != 0 {
				stack = append(stack, next)
			}
		}

		tree.allocator.free(cur)
		tree.stats.Frees++
	}
}
