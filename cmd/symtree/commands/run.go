package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/symtree/pkg/script"
)

// ErrScriptFailed is returned when at least one script step did not pass.
var ErrScriptFailed = errors.New("script failed")

// RunCommand runs scenario scripts.
type RunCommand struct {
	env     *Env
	noColor bool
	all     bool
}

// NewRunCommand creates the run command.
func NewRunCommand(env *Env) *cobra.Command {
	rc := &RunCommand{env: env}

	cmd := &cobra.Command{
		Use:   "run <script.yaml>...",
		Short: "Run scenario scripts",
		Long: `Run YAML scenario scripts against a fresh document each and report
every step. Exits with an error when a step fails.`,
		Args: cobra.MinimumNArgs(1),
		RunE: rc.run,
	}

	cmd.Flags().BoolVar(&rc.noColor, "no-color", false, "disable colored output")
	cmd.Flags().BoolVar(&rc.all, "all", false, "list passing steps too")

	return cmd
}

func (rc *RunCommand) run(cmd *cobra.Command, args []string) error {
	if rc.noColor {
		color.NoColor = true //nolint:reassign // intentional override of library global
	}

	out := cmd.OutOrStdout()
	failed := 0

	for _, path := range args {
		report, err := rc.runOne(path)
		if err != nil {
			return err
		}

		if !rc.env.Quiet {
			renderReport(out, path, report, rc.all)
		}

		if !report.Passed() {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d scripts", ErrScriptFailed, failed, len(args))
	}

	return nil
}

func (rc *RunCommand) runOne(path string) (*script.Report, error) {
	sc, err := script.Load(path)
	if err != nil {
		return nil, err
	}

	opts, err := rc.env.TreeOptions(sc.Name)
	if err != nil {
		return nil, err
	}

	report, err := script.Run(sc, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	rc.env.Logger.Debug("script finished",
		"path", path,
		"steps", len(report.Results),
		"passed", report.Count(script.StatusPass),
	)

	return report, nil
}

var statusColors = map[script.Status]*color.Color{
	script.StatusPass:    color.New(color.FgGreen),
	script.StatusFail:    color.New(color.FgRed),
	script.StatusError:   color.New(color.FgRed, color.Bold),
	script.StatusSkipped: color.New(color.FgYellow),
}

func renderReport(out io.Writer, path string, report *script.Report, all bool) {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"#", "Op", "Status", "Detail"})

	for _, res := range report.Results {
		if res.Status == script.StatusPass && !all {
			continue
		}

		tbl.AppendRow(table.Row{res.Index, res.Op, statusColors[res.Status].Sprint(res.Status), res.Detail})
	}

	name := report.Name
	if name == "" {
		name = path
	}

	summary := fmt.Sprintf("%s: %d/%d steps passed", name, report.Count(script.StatusPass), len(report.Results))

	if report.Passed() {
		color.New(color.FgGreen).Fprintln(out, summary)
	} else {
		color.New(color.FgRed).Fprintln(out, summary)
	}

	if tbl.Length() > 0 {
		fmt.Fprintln(out, tbl.Render())
	}
}
