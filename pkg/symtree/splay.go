package symtree

// rotateLeft promotes pivot's right child into pivot's place.
//
//	  P            R
//	 / \          / \
//	a   R   =>   P   c
//	   / \      / \
//	  b   c    a   b
func (tree *Tree) rotateLeft(pivot uint32) {
	storage := tree.storage()
	parent := storage[pivot].parent
	pivotRole := tree.role(pivot)

	right := storage[pivot].right
	doAssert(right != 0)

	storage[pivot].right = storage[right].left
	if storage[right].left != 0 {
		storage[storage[right].left].parent = pivot
	}

	storage[right].left = pivot
	storage[pivot].parent = right
	tree.replaceChild(parent, pivotRole, right)

	storage[right].leftSymbols += storage[pivot].leftSymbols + storage[pivot].symbols
	storage[right].leftChars += storage[pivot].leftChars + storage[pivot].chars
	tree.stats.Rotations++
}

// rotateRight promotes pivot's left child into pivot's place.
//
//	    P          L
//	   / \        / \
//	  L   c  =>  a   P
//	 / \            / \
//	a   b          b   c
func (tree *Tree) rotateRight(pivot uint32) {
	storage := tree.storage()
	parent := storage[pivot].parent
	pivotRole := tree.role(pivot)

	left := storage[pivot].left
	doAssert(left != 0)

	storage[pivot].left = storage[left].right
	if storage[left].right != 0 {
		storage[storage[left].right].parent = pivot
	}

	storage[left].right = pivot
	storage[pivot].parent = left
	tree.replaceChild(parent, pivotRole, left)

	storage[pivot].leftSymbols -= storage[left].leftSymbols + storage[left].symbols
	storage[pivot].leftChars -= storage[left].leftChars + storage[left].chars
	tree.stats.Rotations++
}

// replaceChild hangs child where a node of the given role used to be under parent.
func (tree *Tree) replaceChild(parent uint32, oldRole role, child uint32) {
	storage := tree.storage()
	storage[child].parent = parent

	if parent == 0 {
		return
	}

	switch oldRole {
	case roleLocalRoot:
		storage[parent].contained = child
	case roleLeftChild:
		storage[parent].left = child
	case roleRightChild:
		storage[parent].right = child
	}
}

// splay moves idx to the root of its local tree.
func (tree *Tree) splay(idx uint32) {
	storage := tree.storage()
	tree.stats.Splays++

	for {
		nodeRole := tree.role(idx)
		if nodeRole == roleLocalRoot {
			return
		}

		parent := storage[idx].parent
		parentRole := tree.role(parent)

		switch {
		case parentRole == roleLocalRoot:
			// Zig.
			if nodeRole == roleLeftChild {
				tree.rotateRight(parent)
			} else {
				tree.rotateLeft(parent)
			}
		case nodeRole == parentRole:
			// Zig-zig.
			grandparent := storage[parent].parent
			if nodeRole == roleLeftChild {
				tree.rotateRight(grandparent)
				tree.rotateRight(parent)
			} else {
				tree.rotateLeft(grandparent)
				tree.rotateLeft(parent)
			}
		default:
			// Zig-zag.
			grandparent := storage[parent].parent
			if nodeRole == roleLeftChild {
				tree.rotateRight(parent)
				tree.rotateLeft(grandparent)
			} else {
				tree.rotateLeft(parent)
				tree.rotateRight(grandparent)
			}
		}
	}
}

// minNode returns the leftmost node of the subtree rooted at idx.
func (tree *Tree) minNode(idx uint32) uint32 {
	storage := tree.storage()
	for storage[idx].left != 0 {
		idx = storage[idx].left
	}

	return idx
}

// maxNode returns the rightmost node of the subtree rooted at idx.
func (tree *Tree) maxNode(idx uint32) uint32 {
	storage := tree.storage()
	for storage[idx].right != 0 {
		idx = storage[idx].right
	}

	return idx
}
