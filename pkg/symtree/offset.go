package symtree

// cacheable reports whether offset caches may be read and written. Inside an
// open change scope with uncommitted edits every cache is suspect, because the
// generation is only bumped on commit.
func (tree *Tree) cacheable() bool {
	return !tree.dirty
}

// symbolOffset returns the internal offset of idx's start, counting the
// document start edge. The walk splays every node it passes and stops early on
// a node whose cache was stamped with the current generation. Only idx itself
// gets its cache written back.
func (tree *Tree) symbolOffset(idx uint32) int {
	if idx == tree.root {
		return 0
	}

	useCache := tree.cacheable()
	storage := tree.storage()
	offset := 0
	cur := idx

	for cur != tree.root {
		nd := &storage[cur]
		if useCache && nd.generation == tree.generation && nd.offsetCache >= 0 {
			offset += nd.offsetCache
			tree.stats.CacheHits++

			break
		}

		tree.splay(cur)

		// One for the start edge of the container entered next.
		offset += storage[cur].leftSymbols + 1
		cur = storage[cur].parent
		doAssert(cur != 0)
	}

	if cur == tree.root {
		tree.stats.CacheMisses++
	}

	if useCache {
		storage[idx].generation = tree.generation
		storage[idx].offsetCache = offset
	}

	return offset
}

// charOffset returns the number of chars before idx's start. Containers on
// the way up contribute their start edge chars.
func (tree *Tree) charOffset(idx uint32) int {
	storage := tree.storage()
	offset := 0

	for cur := idx; ; {
		tree.splay(cur)
		offset += storage[cur].leftChars

		cur = storage[cur].parent
		if cur == 0 {
			return offset
		}

		offset += storage[cur].edgeChars
	}
}
