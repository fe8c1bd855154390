package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/symtree/pkg/observability"
	"github.com/Sumatoshi-tech/symtree/pkg/safeconv"
	"github.com/Sumatoshi-tech/symtree/pkg/symtree"
)

const (
	defaultBenchSamples = 50
	readHeaderTimeout   = 5 * time.Second
	serverShutdownWait  = 5 * time.Second
)

// BenchCommand runs the randomized access benchmark.
type BenchCommand struct {
	env         *Env
	params      BenchParams
	plotPath    string
	metricsAddr string
	hold        bool
}

// NewBenchCommand creates the bench command.
func NewBenchCommand(env *Env) *cobra.Command {
	bc := &BenchCommand{env: env}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Randomized access benchmark",
		Long: `Build documents of random runs, then look up random node offsets with an
insert every few lookups. Reports rotations per access against the
amortized N log N bound.`,
		Args: cobra.NoArgs,
		RunE: bc.run,
	}

	cmd.Flags().IntVar(&bc.params.Nodes, "nodes", 0, "nodes to insert (0 = config bench.nodes)")
	cmd.Flags().IntVar(&bc.params.Accesses, "accesses", 0, "random accesses (0 = config bench.accesses)")
	cmd.Flags().Int64Var(&bc.params.Seed, "seed", 0, "random seed (0 = config bench.seed)")
	cmd.Flags().IntVar(&bc.params.Documents, "docs", 1, "documents spread over the workspace shards")
	cmd.Flags().IntVar(&bc.params.Samples, "samples", defaultBenchSamples, "points on the rotations plot")
	cmd.Flags().StringVar(&bc.plotPath, "plot", "", "write an HTML line chart of rotations per access")
	cmd.Flags().StringVar(&bc.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (default: config metrics.addr)")
	cmd.Flags().BoolVar(&bc.hold, "hold", false, "keep serving metrics after the run until interrupted")

	return cmd
}

func (bc *BenchCommand) run(cmd *cobra.Command, _ []string) error {
	cfg := bc.env.Config
	params := bc.params

	if params.Nodes <= 0 {
		params.Nodes = cfg.Bench.Nodes
	}

	if params.Accesses <= 0 {
		params.Accesses = cfg.Bench.Accesses
	}

	if params.Seed == 0 {
		params.Seed = cfg.Bench.Seed
	}

	metricsAddr := bc.metricsAddr
	if metricsAddr == "" {
		metricsAddr = cfg.Metrics.Addr
	}

	obsCfg, err := bc.env.observabilityConfig(observability.ModeBench)
	if err != nil {
		return err
	}

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return err
	}

	defer func() {
		shutdownErr := providers.Shutdown(context.Background())
		if shutdownErr != nil {
			bc.env.Logger.Warn("telemetry shutdown", "error", shutdownErr)
		}
	}()

	ctx, span := providers.Tracer.Start(cmd.Context(), "symtree.bench")
	defer span.End()

	meter := providers.Meter

	var server *http.Server

	if metricsAddr != "" {
		server, meter, err = bc.serveMetrics(metricsAddr)
		if err != nil {
			return err
		}

		defer shutdownServer(server)
	}

	metrics, err := observability.NewIndexMetrics(meter)
	if err != nil {
		return err
	}

	opts, err := bc.env.TreeOptions("")
	if err != nil {
		return err
	}

	ws := symtree.NewWorkspace(cfg.Index.Shards, cfg.Index.HibernationThreshold, opts)

	bc.env.Logger.InfoContext(ctx, "bench started",
		"nodes", params.Nodes, "accesses", params.Accesses, "docs", params.Documents, "seed", params.Seed)

	result, err := RunBenchmark(ctx, ws, params, metrics)
	if err != nil {
		return err
	}

	if !bc.env.Quiet {
		renderBench(cmd.OutOrStdout(), result)
	}

	if bc.plotPath != "" {
		err = writeBenchPlot(bc.plotPath, result)
		if err != nil {
			return err
		}

		bc.env.Logger.InfoContext(ctx, "plot written", "path", bc.plotPath)
	}

	if server != nil && bc.hold {
		bc.env.Logger.InfoContext(ctx, "serving metrics until interrupted", "addr", metricsAddr)

		waitCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		defer stop()

		<-waitCtx.Done()
	}

	return nil
}

func (bc *BenchCommand) serveMetrics(addr string) (*http.Server, metric.Meter, error) {
	handler, mp, err := observability.PrometheusHandler()
	if err != nil {
		return nil, nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	server := &http.Server{Handler: mux, ReadHeaderTimeout: readHeaderTimeout}
	server.RegisterOnShutdown(func() {
		_ = mp.Shutdown(context.Background())
	})

	go func() {
		serveErr := server.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			bc.env.Logger.Error("metrics server", "error", serveErr)
		}
	}()

	bc.env.Logger.Info("metrics endpoint", "url", "http://"+listener.Addr().String()+"/metrics")

	return server, mp.Meter("symtree"), nil
}

func shutdownServer(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), serverShutdownWait)
	defer cancel()

	_ = server.Shutdown(ctx)
}

func renderBench(out io.Writer, res BenchResult) {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Metric", "Value"})

	perAccess := res.Elapsed / time.Duration(max(res.Params.Accesses, 1))
	throughput := float64(res.Params.Accesses) / max(res.Elapsed.Seconds(), 1e-9)

	bound := "yes"
	if !res.WithinBound() {
		bound = "no"
	}

	tbl.AppendRows([]table.Row{
		{"Documents", res.Params.Documents},
		{"Nodes", humanize.Comma(int64(res.Params.Nodes))},
		{"Accesses", humanize.Comma(int64(res.Params.Accesses))},
		{"Arena nodes", humanize.Comma(int64(res.ArenaNodes))},
		{"Rotations", humanize.Comma(safeconv.MustUint64ToInt64(res.Rotations))},
		{"Splays", humanize.Comma(safeconv.MustUint64ToInt64(res.Splays))},
		{"Rotations / access", strconv.FormatFloat(res.RotationsPerAccess(), 'f', 2, 64)},
		{"log2 N", strconv.FormatFloat(res.Log2N(), 'f', 2, 64)},
		{"Within N log N bound", bound},
		{"Cache hits", humanize.Comma(safeconv.MustUint64ToInt64(res.CacheHits))},
		{"Cache misses", humanize.Comma(safeconv.MustUint64ToInt64(res.CacheMisses))},
		{"Time / access", perAccess.String()},
		{"Throughput", humanize.SIWithDigits(throughput, 2, "op/s")},
	})

	fmt.Fprintln(out, tbl.Render())
}

func writeBenchPlot(path string, res BenchResult) error {
	labels := make([]string, len(res.Samples))
	perAccess := make([]opts.LineData, len(res.Samples))
	log2N := make([]opts.LineData, len(res.Samples))

	for idx, sample := range res.Samples {
		labels[idx] = strconv.Itoa(sample.Accesses)
		perAccess[idx] = opts.LineData{Value: sample.RotationsPerAccess}
		log2N[idx] = opts.LineData{Value: res.Log2N()}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Splay rotations per access",
			Subtitle: fmt.Sprintf("%d nodes, %d documents, seed %d", res.Params.Nodes, res.Params.Documents, res.Params.Seed),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Accesses"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Rotations"}),
	)
	line.SetXAxis(labels)
	line.AddSeries("Rotations / access", perAccess,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
	)
	line.AddSeries("log2 N", log2N)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create plot: %w", err)
	}

	err = line.Render(file)
	if err != nil {
		_ = file.Close()

		return fmt.Errorf("render plot: %w", err)
	}

	return file.Close()
}
