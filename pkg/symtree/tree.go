// Package symtree indexes positions in a symbol stream with nested
// containers. A document is a splay tree per container, each node carrying the
// symbol and char totals of its subtree, so offsets, positions and node
// handles convert into each other in amortized logarithmic time. Positions and
// navigators stay meaningful across edits, and edits can be batched in change
// scopes that bump the document generation once.
package symtree

import (
	"fmt"
	"io"
	"log/slog"
)

// Options configure a Tree.
type Options struct {
	// CharCounter measures text runs in the char channel. Defaults to RuneCounter.
	CharCounter CharCounter

	// Logger receives debug records about commits. Defaults to a discarding logger.
	Logger *slog.Logger

	// Name labels the tree in logs and workspace lookups.
	Name string

	// ValidateOnCommit runs Validate after every committed change batch.
	ValidateOnCommit bool
}

// Stats counts the work done by a tree since it was created.
type Stats struct {
	Rotations   uint64
	Splays      uint64
	CacheHits   uint64
	CacheMisses uint64
	Commits     uint64
	Frees       uint64
}

// Tree is a document: a splay tree of trees indexing a symbol stream.
//
// Every query splays, so all methods need exclusive access.
type Tree struct {
	allocator  *Allocator
	counter    CharCounter
	logger     *slog.Logger
	name       string
	edits      []edit
	navigators []*Navigator
	stats      Stats
	generation uint64
	depth      int
	root       uint32
	dirty      bool
	validate   bool
}

// New creates an empty document with its own arena.
func New(opts Options) *Tree {
	return NewTree(NewAllocator(), opts)
}

// NewTree creates an empty document inside allocator.
func NewTree(allocator *Allocator, opts Options) *Tree {
	root := allocator.malloc()

	nd := &allocator.storage[root]
	nd.kind = KindRoot
	nd.symbols = edgeSymbols

	return attachTree(allocator, root, 1, opts)
}

func attachTree(allocator *Allocator, root uint32, generation uint64, opts Options) *Tree {
	counter := opts.CharCounter
	if counter == nil {
		counter = RuneCounter
	}

	return &Tree{
		allocator:  allocator,
		counter:    counter,
		logger:     opts.logger(),
		name:       opts.Name,
		generation: generation,
		root:       root,
		validate:   opts.ValidateOnCommit,
	}
}

func (opts Options) logger() *slog.Logger {
	if opts.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return opts.Logger
}

func (tree *Tree) storage() []node {
	return tree.allocator.storage
}

// Allocator returns the bound node arena.
func (tree *Tree) Allocator() *Allocator {
	return tree.allocator
}

// Name returns the label given in Options.
func (tree *Tree) Name() string {
	return tree.name
}

// Root returns the document node.
func (tree *Tree) Root() NodeID {
	return tree.nodeID(tree.root)
}

// Len returns the number of content symbols.
func (tree *Tree) Len() int {
	return tree.storage()[tree.root].contentSymbols()
}

// CharLen returns the number of content chars.
func (tree *Tree) CharLen() int {
	return tree.storage()[tree.root].chars
}

// Generation is bumped once per committed change batch.
func (tree *Tree) Generation() uint64 {
	return tree.generation
}

// Stats returns the accumulated work counters.
func (tree *Tree) Stats() Stats {
	return tree.stats
}

// Snapshot copies the document into a fresh arena. Navigators are not copied.
func (tree *Tree) Snapshot() *Tree {
	snapshot := attachTree(tree.allocator.Clone(), tree.root, tree.generation+1, Options{
		CharCounter:      tree.counter,
		Logger:           tree.logger,
		Name:             tree.name,
		ValidateOnCommit: tree.validate,
	})

	return snapshot
}

func (tree *Tree) nodeID(idx uint32) NodeID {
	return NodeID{Arena: tree.allocator.id, Index: idx, Incarnation: tree.storage()[idx].incarnation}
}

// resolve maps a handle to a live node of this tree.
func (tree *Tree) resolve(id NodeID) (uint32, error) {
	if id.Arena != tree.allocator.id {
		return 0, fmt.Errorf("%w: %s", ErrForeignNode, id)
	}

	if !tree.allocator.live(id.Index, id.Incarnation) {
		return 0, fmt.Errorf("%w: %s", ErrStaleNode, id)
	}

	if tree.docRoot(id.Index) != tree.root {
		return 0, fmt.Errorf("%w: %s", ErrForeignNode, id)
	}

	return id.Index, nil
}

// resolvePosition maps a position to a node index and the offset from that
// node's start, checking the offset.
func (tree *Tree) resolvePosition(pos Position) (uint32, int, error) {
	idx, err := tree.resolve(pos.Node)
	if err != nil {
		return 0, 0, err
	}

	nd := &tree.storage()[idx]
	local := pos.local(nd.symbols)

	if !tree.validOffset(idx, local) {
		return 0, 0, fmt.Errorf("%w: %s on a %s of %d symbols", ErrInvalidPosition, pos, nd.kind, nd.symbols)
	}

	return idx, local, nil
}

// canonical builds the public position for a node-local offset. End edges of
// roots and containers are named from the end.
func (tree *Tree) canonical(idx uint32, local int) Position {
	nd := &tree.storage()[idx]
	if nd.kind.nests() && local > 0 && local >= nd.symbols-1 {
		return Position{Node: tree.nodeID(idx), Offset: nd.symbols - local, FromEnd: true}
	}

	return Position{Node: tree.nodeID(idx), Offset: local}
}

func (tree *Tree) validOffset(idx uint32, offset int) bool {
	nd := &tree.storage()[idx]

	switch nd.kind {
	case KindRun, KindBoundary:
		return offset >= 0 && offset <= nd.symbols
	case KindContainer:
		return offset == 0 || offset == 1 || offset == nd.symbols-1 || offset == nd.symbols
	case KindRoot:
		return offset == 1 || offset == nd.symbols-1
	default:
		return false
	}
}

// TreeOf returns the tree when id belongs to it.
func (tree *Tree) TreeOf(id NodeID) (*Tree, bool) {
	_, err := tree.resolve(id)
	if err != nil {
		return nil, false
	}

	return tree, true
}

// Contains reports whether id is a live node of this tree.
func (tree *Tree) Contains(id NodeID) bool {
	_, ok := tree.TreeOf(id)

	return ok
}

// OffsetOf returns the document offset of a position. Offset 0 is the gap
// before the first content symbol.
func (tree *Tree) OffsetOf(pos Position) (int, error) {
	idx, local, err := tree.resolvePosition(pos)
	if err != nil {
		return 0, err
	}

	return tree.publicOffset(idx, local), nil
}

func (tree *Tree) publicOffset(idx uint32, offset int) int {
	return tree.symbolOffset(idx) + offset - 1
}

// NodeOffset returns the document offset of a node's first symbol.
func (tree *Tree) NodeOffset(id NodeID) (int, error) {
	idx, err := tree.resolve(id)
	if err != nil {
		return 0, err
	}

	if idx == tree.root {
		return 0, nil
	}

	return tree.symbolOffset(idx) - 1, nil
}

// PositionAt returns the canonical position of a document offset: the
// deepest node holding the symbol that starts there, or the end of the
// enclosing content. The second result is false when offset is out of range.
func (tree *Tree) PositionAt(offset int) (Position, bool) {
	if offset < 0 || offset > tree.Len() {
		return Position{}, false
	}

	return tree.canonical(tree.positionAt(offset)), true
}

func (tree *Tree) positionAt(offset int) (uint32, int) {
	storage := tree.storage()
	container := tree.root

	for {
		nd := &storage[container]
		if nd.contained == 0 || offset == nd.contentSymbols() {
			return container, offset + 1
		}

		idx, local := tree.siblingAtOffset(nd.contained, offset)
		if !storage[idx].kind.nests() || local == 0 {
			return idx, local
		}

		container = idx
		offset = local - 1
	}
}

// Compare orders two positions by the gap they denote.
func (tree *Tree) Compare(first, second Position) (Ordering, error) {
	firstOffset, err := tree.OffsetOf(first)
	if err != nil {
		return Same, err
	}

	secondOffset, err := tree.OffsetOf(second)
	if err != nil {
		return Same, err
	}

	switch {
	case firstOffset < secondOffset:
		return Before, nil
	case firstOffset > secondOffset:
		return After, nil
	default:
		return Same, nil
	}
}

// Advance moves one symbol in dir. The second result is false at the document bounds.
func (tree *Tree) Advance(pos Position, dir Direction) (Position, bool, error) {
	offset, err := tree.OffsetOf(pos)
	if err != nil {
		return Position{}, false, err
	}

	next, ok := tree.PositionAt(offset + int(dir))

	return next, ok, nil
}

// CharOffsetOf returns the char channel offset of a position.
func (tree *Tree) CharOffsetOf(pos Position) (int, error) {
	idx, local, err := tree.resolvePosition(pos)
	if err != nil {
		return 0, err
	}

	base := tree.charOffset(idx)
	nd := &tree.storage()[idx]

	switch {
	case nd.kind == KindRun:
		return base + tree.charsBefore(nd, local), nil
	case nd.kind == KindBoundary && local == 0:
		return base, nil
	case nd.kind == KindBoundary:
		return base + nd.chars, nil
	case local == 0:
		return base, nil
	case local == 1 && nd.symbols > edgeSymbols:
		return base + nd.edgeChars, nil
	default:
		return base + nd.chars, nil
	}
}

// PositionAtChar returns a position whose char offset is the given one. On a
// node seam the left node wins, and in a run the first symbol reaching the
// offset is used. The second result is false when offset is out of range.
func (tree *Tree) PositionAtChar(offset int) (Position, bool) {
	if offset < 0 || offset > tree.CharLen() {
		return Position{}, false
	}

	return tree.canonical(tree.positionAtChar(offset)), true
}

func (tree *Tree) positionAtChar(offset int) (uint32, int) {
	storage := tree.storage()
	container := tree.root

	for {
		nd := &storage[container]
		if nd.contained == 0 {
			return container, nd.symbols - 1
		}

		idx, local := tree.siblingAtCharOffset(nd.contained, offset)
		child := &storage[idx]

		switch {
		case local > child.chars:
			// Only reachable past the content, which the caller excludes.
			return container, nd.symbols - 1
		case child.kind == KindRun:
			return idx, tree.symbolsForChars(child, local)
		case local == 0:
			return idx, 0
		case child.kind == KindBoundary:
			return idx, 1
		case local <= child.edgeChars:
			return idx, 1
		}

		container = idx
		offset = local - child.edgeChars
	}
}

// Node describes a live node.
func (tree *Tree) Node(id NodeID) (NodeInfo, error) {
	idx, err := tree.resolve(id)
	if err != nil {
		return NodeInfo{}, err
	}

	return tree.info(idx), nil
}

func (tree *Tree) info(idx uint32) NodeInfo {
	nd := &tree.storage()[idx]

	return NodeInfo{
		ID:        tree.nodeID(idx),
		Text:      nd.text,
		Kind:      nd.kind,
		Symbols:   nd.symbols,
		Chars:     nd.chars,
		EdgeChars: nd.edgeChars,
	}
}

// NodeAt returns the n-th top level node in document order.
func (tree *Tree) NodeAt(n int) (NodeID, bool) {
	if n < 0 {
		return NodeID{}, false
	}

	for idx := tree.firstContained(tree.root); idx != 0; idx = tree.nextNode(idx) {
		if n == 0 {
			return tree.nodeID(idx), true
		}

		n--
	}

	return NodeID{}, false
}

// Children lists the nodes directly inside a root or container.
func (tree *Tree) Children(id NodeID) ([]NodeID, error) {
	idx, err := tree.resolve(id)
	if err != nil {
		return nil, err
	}

	var children []NodeID
	for child := tree.firstContained(idx); child != 0; child = tree.nextNode(child) {
		children = append(children, tree.nodeID(child))
	}

	return children, nil
}

// Next returns the node following id in document order. A container is
// followed by its first child.
func (tree *Tree) Next(id NodeID) (NodeID, bool, error) {
	idx, err := tree.resolve(id)
	if err != nil {
		return NodeID{}, false, err
	}

	next := tree.composedNext(idx)
	if next == 0 {
		return NodeID{}, false, nil
	}

	return tree.nodeID(next), true, nil
}

// Prev returns the node preceding id in document order.
func (tree *Tree) Prev(id NodeID) (NodeID, bool, error) {
	idx, err := tree.resolve(id)
	if err != nil {
		return NodeID{}, false, err
	}

	prev := tree.composedPrev(idx)
	if prev == 0 {
		return NodeID{}, false, nil
	}

	return tree.nodeID(prev), true, nil
}

// Parent returns the container holding id, the document node for top level nodes.
func (tree *Tree) Parent(id NodeID) (NodeID, bool, error) {
	idx, err := tree.resolve(id)
	if err != nil {
		return NodeID{}, false, err
	}

	if idx == tree.root {
		return NodeID{}, false, nil
	}

	return tree.nodeID(tree.containerOf(idx)), true, nil
}
