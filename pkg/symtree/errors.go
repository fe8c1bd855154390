package symtree

import "errors"

// Sentinel errors returned by Tree and Workspace operations.
var (
	// ErrInvalidPosition is returned for an intra-node offset the node does not have.
	ErrInvalidPosition = errors.New("invalid position")
	// ErrStaleNode is returned when a NodeID refers to a node that was removed.
	ErrStaleNode = errors.New("stale node")
	// ErrForeignNode is returned when a NodeID belongs to another tree.
	ErrForeignNode = errors.New("node belongs to another tree")
	// ErrRootRemoval is returned when the document node is passed to Remove.
	ErrRootRemoval = errors.New("the document node cannot be removed")
	// ErrCrossContainer is returned when a range spans different containers.
	ErrCrossContainer = errors.New("range endpoints are in different containers")
	// ErrEmptyContent is returned for content with no symbols.
	ErrEmptyContent = errors.New("content must have at least one symbol")
	// ErrInvalidContent is returned for content with impossible counts.
	ErrInvalidContent = errors.New("invalid content")
	// ErrNotContainer is returned when a container operation gets a run or boundary.
	ErrNotContainer = errors.New("node is not a container")
	// ErrNoOpenScope is returned by Commit without a matching Begin.
	ErrNoOpenScope = errors.New("no open change scope")
	// ErrUnknownKind is returned when parsing an unknown node kind name.
	ErrUnknownKind = errors.New("unknown node kind")
	// ErrUnknownCharUnit is returned for an unsupported char unit name.
	ErrUnknownCharUnit = errors.New("unknown char unit")
	// ErrCorrupt is returned by Validate when a structural invariant does not hold.
	ErrCorrupt = errors.New("corrupt tree")
	// ErrIncompleteRead is returned when a read does not return the expected number of bytes.
	ErrIncompleteRead = errors.New("incomplete read")
)

// doAssert panics on broken structural invariants, these are programming errors.
func doAssert(condition bool) {
	if !condition {
		panic("symtree internal assertion failed")
	}
}
