package symtree

import (
	"fmt"
	"unicode/utf8"
)

// NodeID is an external handle to a node. It stays valid while the node is
// alive; the incarnation detects slots reused after removal.
type NodeID struct {
	Arena       uint32
	Index       uint32
	Incarnation uint32
}

// IsZero reports whether the handle is unset.
func (id NodeID) IsZero() bool {
	return id.Index == 0
}

func (id NodeID) String() string {
	return fmt.Sprintf("%d:%d.%d", id.Arena, id.Index, id.Incarnation)
}

// Position is a location inside a node. For runs Offset is in [0, Symbols].
// Containers accept the edge offsets 0 (before start), 1 (after start),
// Symbols-1 (before end) and Symbols (after end); the document node accepts
// only 1 and Symbols-1.
//
// With FromEnd set, Offset counts back from the node's end: 1 is before the
// end edge and 0 after it. Such positions keep pointing at the end while
// content is added to the node. End and PositionAt return end edges this way.
type Position struct {
	Node    NodeID
	Offset  int
	FromEnd bool
}

func (pos Position) String() string {
	if pos.FromEnd {
		return fmt.Sprintf("%s+end-%d", pos.Node, pos.Offset)
	}

	return fmt.Sprintf("%s+%d", pos.Node, pos.Offset)
}

// local returns the offset from the node's start for a node of symbols symbols.
func (pos Position) local(symbols int) int {
	if pos.FromEnd {
		return symbols - pos.Offset
	}

	return pos.Offset
}

// Ordering is the result of Compare.
type Ordering int

const (
	// Before means the first position precedes the second.
	Before Ordering = iota - 1
	// Same means both positions denote the same gap.
	Same
	// After means the first position follows the second.
	After
)

func (o Ordering) String() string {
	switch o {
	case Before:
		return "before"
	case Same:
		return "same"
	case After:
		return "after"
	default:
		return fmt.Sprintf("Ordering(%d)", int(o))
	}
}

// Direction selects where Advance moves.
type Direction int

const (
	// Forward moves towards the document end.
	Forward Direction = 1
	// Backward moves towards the document start.
	Backward Direction = -1
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}

	return "forward"
}

// Content describes a node to insert.
type Content struct {
	text  string
	count int
	chars int
	kind  Kind
}

// TextRun is a run holding text, one symbol per rune.
func TextRun(text string) Content {
	return Content{kind: KindRun, text: text, count: utf8.RuneCountInString(text)}
}

// Symbols is a run of count symbols without text. Each symbol is one char.
func Symbols(count int) Content {
	return Content{kind: KindRun, count: count, chars: count}
}

// Boundary is a single structural symbol worth chars chars.
func Boundary(chars int) Content {
	return Content{kind: KindBoundary, count: 1, chars: chars}
}

// Container is an empty element whose start edge is worth edgeChars chars.
func Container(edgeChars int) Content {
	return Content{kind: KindContainer, count: edgeSymbols, chars: edgeChars}
}

// Kind returns the kind of node the content becomes.
func (c Content) Kind() Kind {
	return c.kind
}

// Len returns the number of symbols the content occupies.
func (c Content) Len() int {
	return c.count
}

func (c Content) validate() error {
	if c.kind == kindFree || c.count < 1 {
		return ErrEmptyContent
	}

	if c.chars < 0 {
		return fmt.Errorf("%w: negative char count %d", ErrInvalidContent, c.chars)
	}

	return nil
}

// NodeInfo is a read-only view of a node.
type NodeInfo struct {
	ID        NodeID
	Text      string
	Kind      Kind
	Symbols   int
	Chars     int
	EdgeChars int
}
