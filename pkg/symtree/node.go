package symtree

import "fmt"

// Kind tells what a node stands for in the symbol stream.
type Kind uint8

const (
	kindFree Kind = iota
	// KindRoot is the document node. It owns two virtual edge symbols that
	// bracket the whole content.
	KindRoot
	// KindRun is a run of one or more content symbols, usually text.
	KindRun
	// KindBoundary is a single structural symbol such as an embedded object.
	KindBoundary
	// KindContainer is an element: a start edge, nested content and an end edge.
	KindContainer
)

// edgeSymbols counts the start and end edges of roots and containers.
const edgeSymbols = 2

var kindNames = [...]string{
	kindFree:      "free",
	KindRoot:      "root",
	KindRun:       "run",
	KindBoundary:  "boundary",
	KindContainer: "container",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}

	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ParseKind is the inverse of Kind.String for the public kinds.
func ParseKind(name string) (Kind, error) {
	for kind := KindRun; kind <= KindContainer; kind++ {
		if kindNames[kind] == name {
			return kind, nil
		}
	}

	return kindFree, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// nests reports whether the kind owns a contained tree.
func (k Kind) nests() bool {
	return k == KindRoot || k == KindContainer
}

type role uint8

const (
	roleLocalRoot role = iota
	roleLeftChild
	roleRightChild
)

// node is a single arena slot. Links are allocator indices, 0 means nil.
type node struct {
	text string

	parent    uint32
	left      uint32
	right     uint32
	contained uint32

	symbols     int
	chars       int
	leftSymbols int
	leftChars   int

	// edgeChars is the char count of a container's start edge.
	edgeChars int

	// offsetCache holds the internal symbol offset computed at generation.
	offsetCache int
	generation  uint64

	incarnation uint32
	kind        Kind
}

func (nd *node) reset() {
	incarnation := nd.incarnation
	*nd = node{offsetCache: -1, incarnation: incarnation}
}

// role derives a node's position in its local tree from the parent links.
func (tree *Tree) role(idx uint32) role {
	storage := tree.storage()
	parent := storage[idx].parent

	if parent == 0 || storage[parent].contained == idx {
		return roleLocalRoot
	}

	if storage[parent].left == idx {
		return roleLeftChild
	}

	doAssert(storage[parent].right == idx)

	return roleRightChild
}

// localRoot ascends to the root of idx's local tree without splaying.
func (tree *Tree) localRoot(idx uint32) uint32 {
	for tree.role(idx) != roleLocalRoot {
		idx = tree.storage()[idx].parent
	}

	return idx
}

// containerOf returns the node owning idx's local tree, 0 for the document root.
func (tree *Tree) containerOf(idx uint32) uint32 {
	return tree.storage()[tree.localRoot(idx)].parent
}

// docRoot ascends through every container to the document node.
func (tree *Tree) docRoot(idx uint32) uint32 {
	return docRootIn(tree.storage(), idx)
}

func docRootIn(storage []node, idx uint32) uint32 {
	for storage[idx].parent != 0 {
		idx = storage[idx].parent
	}

	return idx
}

// contentSymbols is the symbol count inside a root or container, edges excluded.
func (nd *node) contentSymbols() int {
	return nd.symbols - edgeSymbols
}

// contentChars is the char count inside a root or container, start edge excluded.
func (nd *node) contentChars() int {
	return nd.chars - nd.edgeChars
}
