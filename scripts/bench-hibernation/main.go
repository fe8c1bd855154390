// bench-hibernation measures heap memory before and after Workspace.Hibernate
// on documents filled with random text.
//
// Usage:
//
//	go run ./scripts/bench-hibernation --docs 64 --nodes 20000 --rounds 3 \
//	  --profile-dir docs/profiles/hibernation
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/symtree/pkg/symtree"
)

type heapSnapshot struct {
	label     string
	heapInUse uint64
	heapSys   uint64
	heapIdle  uint64
	numGC     uint32
}

func main() {
	docs := flag.Int("docs", 32, "Number of documents")
	nodes := flag.Int("nodes", 10000, "Text runs inserted per round, spread over the documents")
	rounds := flag.Int("rounds", 3, "Edit rounds, each followed by hibernate and boot")
	shards := flag.Int("shards", 4, "Arena shards")
	seed := flag.Int64("seed", 1, "Random seed")
	profileDir := flag.String("profile-dir", "", "Directory to write heap profiles (optional)")

	flag.Parse()

	if *profileDir != "" {
		if err := os.MkdirAll(*profileDir, 0o755); err != nil {
			log.Fatalf("mkdir profile-dir: %v", err)
		}
	}

	rng := rand.New(rand.NewSource(*seed)) //nolint:gosec // reproducible workload.
	ws := symtree.NewWorkspace(*shards, 0, symtree.Options{})

	trees := make([]*symtree.Tree, *docs)
	for idx := range trees {
		trees[idx] = ws.Open(fmt.Sprintf("doc-%d", idx))
	}

	var snapshots []heapSnapshot

	takeSnapshot := func(label string) {
		runtime.GC()
		runtime.GC()

		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		snapshots = append(snapshots, heapSnapshot{
			label:     label,
			heapInUse: m.HeapInuse,
			heapSys:   m.HeapSys,
			heapIdle:  m.HeapIdle,
			numGC:     m.NumGC,
		})
		log.Printf("  [heap] %-32s inuse=%9s  sys=%9s", label, humanize.Bytes(m.HeapInuse), humanize.Bytes(m.HeapSys))
	}

	writeHeapProfile := func(name string) {
		if *profileDir == "" {
			return
		}

		runtime.GC()

		path := filepath.Join(*profileDir, name)

		f, ferr := os.Create(path)
		if ferr != nil {
			log.Printf("warning: create heap profile %s: %v", path, ferr)

			return
		}
		defer f.Close()

		if perr := pprof.WriteHeapProfile(f); perr != nil {
			log.Printf("warning: write heap profile %s: %v", path, perr)
		}
	}

	takeSnapshot("empty")

	for round := 1; round <= *rounds; round++ {
		log.Printf("round %d/%d: inserting %d runs", round, *rounds, *nodes)

		for range *nodes {
			if err := insertRandomText(rng, trees[rng.Intn(len(trees))]); err != nil {
				log.Fatalf("insert: %v", err)
			}
		}

		takeSnapshot(fmt.Sprintf("round_%d_before_hibernate", round))
		writeHeapProfile(fmt.Sprintf("heap_round_%d_before_hibernate.prof", round))

		ws.Hibernate()

		takeSnapshot(fmt.Sprintf("round_%d_after_hibernate", round))
		writeHeapProfile(fmt.Sprintf("heap_round_%d_after_hibernate.prof", round))

		if err := ws.Boot(); err != nil {
			log.Fatalf("boot: %v", err)
		}

		takeSnapshot(fmt.Sprintf("round_%d_after_boot", round))

		for _, tree := range trees {
			if err := tree.Validate(); err != nil {
				log.Fatalf("validate %s after boot: %v", tree.Name(), err)
			}
		}
	}

	printTimeline(snapshots)
}

func insertRandomText(rng *rand.Rand, tree *symtree.Tree) error {
	at, ok := tree.PositionAt(rng.Intn(tree.Len() + 1))
	if !ok {
		return symtree.ErrInvalidPosition
	}

	_, err := tree.Insert(at, symtree.TextRun(strings.Repeat("x", 1+rng.Intn(16))))

	return err
}

func printTimeline(snapshots []heapSnapshot) {
	timeline := table.NewWriter()
	timeline.SetStyle(table.StyleLight)
	timeline.SetTitle("Heap Memory Timeline")
	timeline.AppendHeader(table.Row{"Phase", "InUse", "Sys", "Idle", "GCs"})

	for _, s := range snapshots {
		timeline.AppendRow(table.Row{
			s.label, humanize.Bytes(s.heapInUse), humanize.Bytes(s.heapSys), humanize.Bytes(s.heapIdle), s.numGC,
		})
	}

	fmt.Println(timeline.Render())
	fmt.Println()
	fmt.Println("=== Hibernation Memory Deltas ===")

	for i := 0; i+1 < len(snapshots); i++ {
		curr := snapshots[i]
		next := snapshots[i+1]

		if strings.HasSuffix(curr.label, "before_hibernate") && strings.HasSuffix(next.label, "after_hibernate") {
			delta := float64(curr.heapInUse) - float64(next.heapInUse)
			pct := (delta / float64(curr.heapInUse)) * 100
			fmt.Printf("  %s -> %s: %.1f MB freed (%.1f%%)\n", curr.label, next.label, delta/1e6, pct)
		}
	}
}
