package symtree

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/Sumatoshi-tech/symtree/pkg/persist"
)

// ErrUnknownDocument is returned for a document name the workspace does not hold.
var ErrUnknownDocument = errors.New("unknown document")

const (
	manifestName = "workspace"
	arenaName    = "arena"
)

// Owner is what positions need from whoever holds the documents: a commit
// counter and the document a node belongs to.
type Owner interface {
	Generation() uint64
	TreeOf(id NodeID) (*Tree, bool)
}

var (
	_ Owner = (*Tree)(nil)
	_ Owner = (*Workspace)(nil)
)

type rootKey struct {
	arena uint32
	index uint32
}

// Workspace is a composed set of named documents sharing sharded arenas.
type Workspace struct {
	shards *ShardedAllocator
	trees  map[string]*Tree
	byRoot map[rootKey]*Tree
	opts   Options
}

// NewWorkspace creates an empty workspace.
func NewWorkspace(shardCount, hibernationThreshold int, opts Options) *Workspace {
	return &Workspace{
		shards: NewShardedAllocator(shardCount, hibernationThreshold),
		trees:  map[string]*Tree{},
		byRoot: map[rootKey]*Tree{},
		opts:   opts,
	}
}

// Shards exposes the underlying arenas.
func (ws *Workspace) Shards() *ShardedAllocator {
	return ws.shards
}

// Open returns the named document, creating it when missing.
func (ws *Workspace) Open(name string) *Tree {
	if tree, ok := ws.trees[name]; ok {
		return tree
	}

	opts := ws.opts
	opts.Name = name

	tree := NewTree(ws.shards.GetShard(name), opts)
	ws.add(tree)

	return tree
}

func (ws *Workspace) add(tree *Tree) {
	ws.trees[tree.name] = tree
	ws.byRoot[rootKey{arena: tree.allocator.id, index: tree.root}] = tree
}

// Get returns the named document.
func (ws *Workspace) Get(name string) (*Tree, bool) {
	tree, ok := ws.trees[name]

	return tree, ok
}

// Names lists the documents in lexical order.
func (ws *Workspace) Names() []string {
	names := make([]string, 0, len(ws.trees))
	for name := range ws.trees {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// Close drops a document and frees its nodes. Its navigators stop tracking.
func (ws *Workspace) Close(name string) error {
	tree, ok := ws.trees[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownDocument, name)
	}

	delete(ws.trees, name)
	delete(ws.byRoot, rootKey{arena: tree.allocator.id, index: tree.root})

	for _, nav := range tree.navigators {
		nav.closed = true
	}

	tree.navigators = nil
	tree.freeSubtree(tree.root)

	return nil
}

// TreeOf resolves the document a node ultimately belongs to.
func (ws *Workspace) TreeOf(id NodeID) (*Tree, bool) {
	alloc, ok := ws.shards.ByID(id.Arena)
	if !ok || !alloc.live(id.Index, id.Incarnation) {
		return nil, false
	}

	tree, ok := ws.byRoot[rootKey{arena: id.Arena, index: docRootIn(alloc.storage, id.Index)}]

	return tree, ok
}

// Generation sums the document generations, so it grows by one per commit anywhere.
func (ws *Workspace) Generation() uint64 {
	var generation uint64
	for _, tree := range ws.trees {
		generation += tree.generation
	}

	return generation
}

// Hibernate compresses every shard.
func (ws *Workspace) Hibernate() {
	ws.shards.Hibernate()
	ws.opts.logger().Debug("symtree workspace hibernated", "documents", len(ws.trees))
}

// Boot restores hibernated shards.
func (ws *Workspace) Boot() error {
	return ws.shards.Boot()
}

type manifestDocument struct {
	Name       string `json:"name"`
	Shard      int    `json:"shard"`
	Root       uint32 `json:"root"`
	Generation uint64 `json:"generation"`
}

type manifest struct {
	Documents []manifestDocument `json:"documents"`
	Shards    int                `json:"shards"`
}

// Save writes the workspace to dir: one arena file per shard plus a JSON
// manifest naming the documents. The workspace stays usable.
func (ws *Workspace) Save(dir string) error {
	state := manifest{Shards: len(ws.shards.shards)}

	for _, name := range ws.Names() {
		tree := ws.trees[name]
		state.Documents = append(state.Documents, manifestDocument{
			Name:       name,
			Shard:      ws.shards.ShardIndex(name),
			Root:       tree.root,
			Generation: tree.generation,
		})
	}

	ws.shards.Hibernate()

	err := ws.shards.Serialize(filepath.Join(dir, arenaName))
	if err != nil {
		return errors.Join(err, ws.shards.Boot())
	}

	err = ws.shards.Boot()
	if err != nil {
		return err
	}

	return persist.SaveState(dir, manifestName, persist.NewJSONCodec(), &state)
}

// LoadWorkspace reads a workspace written by Save.
func LoadWorkspace(dir string, opts Options) (*Workspace, error) {
	var state manifest

	err := persist.LoadState(dir, manifestName, persist.NewJSONCodec(), &state)
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}

	ws := NewWorkspace(state.Shards, 0, opts)

	err = ws.shards.Deserialize(filepath.Join(dir, arenaName))
	if err != nil {
		return nil, err
	}

	err = ws.shards.Boot()
	if err != nil {
		return nil, err
	}

	for _, doc := range state.Documents {
		if doc.Shard < 0 || doc.Shard >= len(ws.shards.shards) {
			return nil, fmt.Errorf("%w: document %q on shard %d", ErrCorrupt, doc.Name, doc.Shard)
		}

		alloc := ws.shards.shards[doc.Shard]
		if int(doc.Root) >= len(alloc.storage) || alloc.storage[doc.Root].kind != KindRoot {
			return nil, fmt.Errorf("%w: document %q has no root at %d", ErrCorrupt, doc.Name, doc.Root)
		}

		docOpts := opts
		docOpts.Name = doc.Name
		ws.add(attachTree(alloc, doc.Root, doc.Generation+1, docOpts))
	}

	return ws, nil
}
