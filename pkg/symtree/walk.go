package symtree

import (
	"fmt"
	"strconv"
	"strings"
)

// Walk visits every node in document order. depth is 0 for top level nodes.
// Returning false from fn stops the walk.
func (tree *Tree) Walk(fn func(info NodeInfo, depth int) bool) {
	tree.walk(tree.root, 0, fn)
}

func (tree *Tree) walk(container uint32, depth int, fn func(NodeInfo, int) bool) bool {
	for idx := tree.firstContained(container); idx != 0; idx = tree.nextNode(idx) {
		if !fn(tree.info(idx), depth) {
			return false
		}

		if tree.storage()[idx].kind == KindContainer && !tree.walk(idx, depth+1, fn) {
			return false
		}
	}

	return true
}

// Text concatenates the text of all runs.
func (tree *Tree) Text() string {
	var text strings.Builder

	tree.Walk(func(info NodeInfo, _ int) bool {
		text.WriteString(info.Text)

		return true
	})

	return text.String()
}

// Layout renders the node structure: text runs quoted, count runs as [n],
// boundaries as | and containers as <...>.
func (tree *Tree) Layout() string {
	var layout strings.Builder

	tree.layout(&layout, tree.root)

	return layout.String()
}

func (tree *Tree) layout(layout *strings.Builder, container uint32) {
	first := true

	for idx := tree.firstContained(container); idx != 0; idx = tree.nextNode(idx) {
		if !first {
			layout.WriteByte(' ')
		}

		first = false

		nd := &tree.storage()[idx]

		switch nd.kind {
		case KindRun:
			if nd.text != "" {
				layout.WriteString(strconv.Quote(nd.text))
			} else {
				fmt.Fprintf(layout, "[%d]", nd.symbols)
			}
		case KindBoundary:
			layout.WriteByte('|')
		case KindContainer:
			layout.WriteByte('<')
			tree.layout(layout, idx)
			layout.WriteByte('>')
		}
	}
}

// Outline is a serializable description of document content.
type Outline struct {
	Kind     string    `json:"kind"               yaml:"kind"`
	Text     string    `json:"text,omitempty"     yaml:"text,omitempty"`
	Count    int       `json:"count,omitempty"    yaml:"count,omitempty"`
	Chars    int       `json:"chars,omitempty"    yaml:"chars,omitempty"`
	Children []Outline `json:"children,omitempty" yaml:"children,omitempty"`
}

// Outline describes the whole document.
func (tree *Tree) Outline() []Outline {
	return tree.outline(tree.root)
}

func (tree *Tree) outline(container uint32) []Outline {
	var items []Outline

	for idx := tree.firstContained(container); idx != 0; idx = tree.nextNode(idx) {
		nd := &tree.storage()[idx]
		item := Outline{Kind: nd.kind.String()}

		switch nd.kind {
		case KindRun:
			item.Text = nd.text
			if nd.text == "" {
				item.Count = nd.symbols
			}
		case KindBoundary:
			item.Chars = nd.chars
		case KindContainer:
			item.Chars = nd.edgeChars
			item.Children = tree.outline(idx)
		}

		items = append(items, item)
	}

	return items
}

// Content converts one outline item, children excluded.
func (item Outline) Content() (Content, error) {
	kind, err := ParseKind(item.Kind)
	if err != nil {
		return Content{}, err
	}

	switch kind {
	case KindRun:
		if item.Text != "" {
			return TextRun(item.Text), nil
		}

		return Symbols(item.Count), nil
	case KindBoundary:
		return Boundary(item.Chars), nil
	default:
		return Container(item.Chars), nil
	}
}

// Build appends outline items at the end of the document in one change scope.
func (tree *Tree) Build(items []Outline) error {
	return tree.Update(func() error {
		return tree.build(tree.Root(), items)
	})
}

func (tree *Tree) build(container NodeID, items []Outline) error {
	for idx, item := range items {
		content, err := item.Content()
		if err != nil {
			return fmt.Errorf("item %d: %w", idx, err)
		}

		end, err := tree.End(container)
		if err != nil {
			return err
		}

		id, err := tree.Insert(end, content)
		if err != nil {
			return fmt.Errorf("item %d: %w", idx, err)
		}

		if content.Kind() == KindContainer {
			err = tree.build(id, item.Children)
			if err != nil {
				return fmt.Errorf("item %d: %w", idx, err)
			}
		}
	}

	return nil
}

// Start returns the position after a container's start edge.
func (tree *Tree) Start(id NodeID) (Position, error) {
	idx, err := tree.resolve(id)
	if err != nil {
		return Position{}, err
	}

	if !tree.storage()[idx].kind.nests() {
		return Position{}, fmt.Errorf("%w: %s is a %s", ErrNotContainer, id, tree.storage()[idx].kind)
	}

	return Position{Node: id, Offset: 1}, nil
}

// End returns the position before a container's end edge, counted from the
// end so it stays there as the container grows.
func (tree *Tree) End(id NodeID) (Position, error) {
	idx, err := tree.resolve(id)
	if err != nil {
		return Position{}, err
	}

	nd := &tree.storage()[idx]
	if !nd.kind.nests() {
		return Position{}, fmt.Errorf("%w: %s is a %s", ErrNotContainer, id, nd.kind)
	}

	return Position{Node: id, Offset: 1, FromEnd: true}, nil
}
