package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/symtree/pkg/safeconv"
	"github.com/Sumatoshi-tech/symtree/pkg/symtree"
)

const (
	metricRotations   = "symtree.rotations"
	metricSplays      = "symtree.splays"
	metricCacheHits   = "symtree.cache.hits"
	metricCacheMisses = "symtree.cache.misses"
	metricCommits     = "symtree.commits"
	metricFrees       = "symtree.frees"
	metricSymbols     = "symtree.symbols"
	metricOpDuration  = "symtree.operation.duration.seconds"

	attrDocument = "document"
	attrOp       = "op"
)

// opBucketBoundaries covers 100ns to 100ms: single index operations are
// expected in the low microseconds.
var opBucketBoundaries = []float64{1e-7, 5e-7, 1e-6, 5e-6, 1e-5, 5e-5, 1e-4, 1e-3, 1e-2, 1e-1}

// IndexMetrics exports the work counters of symtree documents.
//
// Trees keep cumulative Stats; Observe turns them into counter increments by
// remembering the last value seen per document.
type IndexMetrics struct {
	rotations   metric.Int64Counter
	splays      metric.Int64Counter
	cacheHits   metric.Int64Counter
	cacheMisses metric.Int64Counter
	commits     metric.Int64Counter
	frees       metric.Int64Counter
	symbols     metric.Int64Gauge
	opDuration  metric.Float64Histogram

	mu   sync.Mutex
	last map[string]symtree.Stats
}

type counterDef struct {
	dst  *metric.Int64Counter
	name string
	desc string
	unit string
}

// NewIndexMetrics creates the index instruments from the given meter.
func NewIndexMetrics(mt metric.Meter) (*IndexMetrics, error) {
	im := &IndexMetrics{last: map[string]symtree.Stats{}}

	counters := []counterDef{
		{&im.rotations, metricRotations, "Splay tree rotations", "{rotation}"},
		{&im.splays, metricSplays, "Splay operations", "{splay}"},
		{&im.cacheHits, metricCacheHits, "Offset lookups answered from the generation cache", "{lookup}"},
		{&im.cacheMisses, metricCacheMisses, "Offset lookups that splayed", "{lookup}"},
		{&im.commits, metricCommits, "Committed change batches", "{commit}"},
		{&im.frees, metricFrees, "Nodes returned to the arena", "{node}"},
	}

	for _, def := range counters {
		counter, err := mt.Int64Counter(def.name,
			metric.WithDescription(def.desc),
			metric.WithUnit(def.unit),
		)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", def.name, err)
		}

		*def.dst = counter
	}

	symbols, err := mt.Int64Gauge(metricSymbols,
		metric.WithDescription("Content symbols held by a document"),
		metric.WithUnit("{symbol}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricSymbols, err)
	}

	opDuration, err := mt.Float64Histogram(metricOpDuration,
		metric.WithDescription("Index operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(opBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricOpDuration, err)
	}

	im.symbols = symbols
	im.opDuration = opDuration

	return im, nil
}

// Observe records the growth of a document's counters since the previous call.
func (im *IndexMetrics) Observe(ctx context.Context, tree *symtree.Tree) {
	stats := tree.Stats()

	im.mu.Lock()
	prev := im.last[tree.Name()]
	im.last[tree.Name()] = stats
	im.mu.Unlock()

	attrs := metric.WithAttributes(attribute.String(attrDocument, tree.Name()))

	addDelta(ctx, im.rotations, stats.Rotations, prev.Rotations, attrs)
	addDelta(ctx, im.splays, stats.Splays, prev.Splays, attrs)
	addDelta(ctx, im.cacheHits, stats.CacheHits, prev.CacheHits, attrs)
	addDelta(ctx, im.cacheMisses, stats.CacheMisses, prev.CacheMisses, attrs)
	addDelta(ctx, im.commits, stats.Commits, prev.Commits, attrs)
	addDelta(ctx, im.frees, stats.Frees, prev.Frees, attrs)

	im.symbols.Record(ctx, int64(tree.Len()), attrs)
}

// Forget drops the remembered counters of a closed document.
func (im *IndexMetrics) Forget(name string) {
	im.mu.Lock()
	delete(im.last, name)
	im.mu.Unlock()
}

// RecordOperation records the duration of one index operation.
func (im *IndexMetrics) RecordOperation(ctx context.Context, op string, duration time.Duration) {
	im.opDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String(attrOp, op)))
}

func addDelta(ctx context.Context, counter metric.Int64Counter, cur, prev uint64, attrs metric.AddOption) {
	if cur <= prev {
		return
	}

	counter.Add(ctx, safeconv.MustUint64ToInt64(cur-prev), attrs)
}
