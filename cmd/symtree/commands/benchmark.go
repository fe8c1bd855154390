package commands

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/Sumatoshi-tech/symtree/pkg/observability"
	"github.com/Sumatoshi-tech/symtree/pkg/symtree"
)

const (
	maxRunSymbols = 8
	// editEvery interleaves one insert per this many lookups so the offset
	// cache keeps being invalidated.
	editEvery = 10
	// rotationFactor and the 2N slack bound total rotations by c*A*log2(N) + 2N.
	rotationFactor = 8
)

// BenchParams sizes a benchmark run.
type BenchParams struct {
	Documents int
	Nodes     int
	Accesses  int
	Samples   int
	Seed      int64
}

// BenchSample is the running average at one point of the access phase.
type BenchSample struct {
	Accesses           int
	RotationsPerAccess float64
}

// BenchResult summarizes a benchmark run.
type BenchResult struct {
	Params      BenchParams
	Rotations   uint64
	Splays      uint64
	CacheHits   uint64
	CacheMisses uint64
	ArenaNodes  int
	Elapsed     time.Duration
	Samples     []BenchSample
}

// Log2N is log2 of the average document size in nodes.
func (res BenchResult) Log2N() float64 {
	return math.Log2(float64(max(res.Params.Nodes/max(res.Params.Documents, 1), 2)))
}

// RotationsPerAccess averages access phase rotations.
func (res BenchResult) RotationsPerAccess() float64 {
	return float64(res.Rotations) / float64(max(res.Params.Accesses, 1))
}

// Bound is the amortized rotation budget for the access phase.
func (res BenchResult) Bound() float64 {
	return rotationFactor*float64(res.Params.Accesses)*res.Log2N() + 2*float64(res.Params.Nodes)
}

// WithinBound reports whether the access phase stayed inside Bound.
func (res BenchResult) WithinBound() bool {
	return float64(res.Rotations) <= res.Bound()
}

type benchDoc struct {
	tree *symtree.Tree
	ids  []symtree.NodeID
}

// RunBenchmark fills the workspace with random runs, then performs random node
// offset lookups with interleaved inserts. metrics may be nil.
func RunBenchmark(
	ctx context.Context, ws *symtree.Workspace, params BenchParams, metrics *observability.IndexMetrics,
) (BenchResult, error) {
	params.Documents = max(params.Documents, 1)
	params.Samples = max(params.Samples, 1)

	rng := rand.New(rand.NewSource(params.Seed)) //nolint:gosec // reproducible workload, not security.

	docs := make([]*benchDoc, params.Documents)
	for idx := range docs {
		docs[idx] = &benchDoc{tree: ws.Open(fmt.Sprintf("doc-%d", idx))}
	}

	for idx := range params.Nodes {
		doc := docs[idx%len(docs)]

		err := doc.insert(rng)
		if err != nil {
			return BenchResult{}, fmt.Errorf("build node %d: %w", idx, err)
		}
	}

	before := totalStats(docs)
	result := BenchResult{Params: params}
	sampleEvery := max(params.Accesses/params.Samples, 1)
	start := time.Now()

	for access := 1; access <= params.Accesses; access++ {
		doc := docs[rng.Intn(len(docs))]

		opStart := time.Now()

		op, err := doc.access(rng, access)
		if err != nil {
			return BenchResult{}, fmt.Errorf("access %d: %w", access, err)
		}

		if metrics != nil {
			metrics.RecordOperation(ctx, op, time.Since(opStart))
		}

		if access%sampleEvery == 0 || access == params.Accesses {
			rotations := totalStats(docs).Rotations - before.Rotations
			result.Samples = append(result.Samples, BenchSample{
				Accesses:           access,
				RotationsPerAccess: float64(rotations) / float64(access),
			})

			observeAll(ctx, metrics, docs)
		}
	}

	result.Elapsed = time.Since(start)

	after := totalStats(docs)
	result.Rotations = after.Rotations - before.Rotations
	result.Splays = after.Splays - before.Splays
	result.CacheHits = after.CacheHits - before.CacheHits
	result.CacheMisses = after.CacheMisses - before.CacheMisses

	for _, alloc := range ws.Shards().Shards() {
		result.ArenaNodes += alloc.Used()
	}

	return result, nil
}

func (doc *benchDoc) insert(rng *rand.Rand) error {
	at, ok := doc.tree.PositionAt(rng.Intn(doc.tree.Len() + 1))
	if !ok {
		return symtree.ErrInvalidPosition
	}

	id, err := doc.tree.Insert(at, symtree.Symbols(1+rng.Intn(maxRunSymbols)))
	if err != nil {
		return err
	}

	doc.ids = append(doc.ids, id)

	return nil
}

func (doc *benchDoc) access(rng *rand.Rand, access int) (string, error) {
	if access%editEvery == 0 || len(doc.ids) == 0 {
		return "insert", doc.insert(rng)
	}

	_, err := doc.tree.NodeOffset(doc.ids[rng.Intn(len(doc.ids))])

	return "node_offset", err
}

func totalStats(docs []*benchDoc) symtree.Stats {
	var total symtree.Stats

	for _, doc := range docs {
		stats := doc.tree.Stats()
		total.Rotations += stats.Rotations
		total.Splays += stats.Splays
		total.CacheHits += stats.CacheHits
		total.CacheMisses += stats.CacheMisses
		total.Commits += stats.Commits
		total.Frees += stats.Frees
	}

	return total
}

func observeAll(ctx context.Context, metrics *observability.IndexMetrics, docs []*benchDoc) {
	if metrics == nil {
		return
	}

	for _, doc := range docs {
		metrics.Observe(ctx, doc.tree)
	}
}
