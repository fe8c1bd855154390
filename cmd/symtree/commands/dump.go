package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/symtree/pkg/persist"
	"github.com/Sumatoshi-tech/symtree/pkg/script"
	"github.com/Sumatoshi-tech/symtree/pkg/symtree"
)

// ErrDumpMismatch is returned by --verify when a reloaded document differs.
var ErrDumpMismatch = errors.New("reloaded document differs")

const outlineBasename = "outline"

// OutlineFile is the persisted description of a scripted document.
type OutlineFile struct {
	Name  string            `json:"name"`
	Items []symtree.Outline `json:"items"`
}

// DumpCommand runs a script and saves the resulting document.
type DumpCommand struct {
	env    *Env
	out    string
	format string
	verify bool
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(env *Env) *cobra.Command {
	dc := &DumpCommand{env: env}

	cmd := &cobra.Command{
		Use:   "dump <script.yaml>",
		Short: "Save a scripted document to disk",
		Long: `Run a script, then write the document outline and a workspace holding the
document (manifest plus hibernated arena shards) to the output directory.`,
		Args: cobra.ExactArgs(1),
		RunE: dc.run,
	}

	cmd.Flags().StringVarP(&dc.out, "out", "o", "", "output directory")
	cmd.Flags().StringVar(&dc.format, "format", persist.FormatJSON, "outline format: json or gob")
	cmd.Flags().BoolVar(&dc.verify, "verify", false, "reload both files and compare layouts")

	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func (dc *DumpCommand) run(cmd *cobra.Command, args []string) error {
	codec, err := persist.CodecByName(dc.format)
	if err != nil {
		return err
	}

	sc, err := script.Load(args[0])
	if err != nil {
		return err
	}

	name := sc.Name
	if name == "" {
		name = args[0]
	}

	opts, err := dc.env.TreeOptions(name)
	if err != nil {
		return err
	}

	report, err := script.Run(sc, opts)
	if err != nil {
		return err
	}

	if !report.Passed() {
		return fmt.Errorf("%w: %d/%d steps passed", ErrScriptFailed, report.Count(script.StatusPass), len(report.Results))
	}

	err = os.MkdirAll(dc.out, 0o755)
	if err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	persister := persist.NewPersister[OutlineFile](outlineBasename, codec)

	err = persister.Save(dc.out, &OutlineFile{Name: name, Items: report.Tree.Outline()})
	if err != nil {
		return err
	}

	ws := symtree.NewWorkspace(dc.env.Config.Index.Shards, dc.env.Config.Index.HibernationThreshold, opts)

	err = ws.Open(name).Build(report.Tree.Outline())
	if err != nil {
		return err
	}

	err = ws.Save(dc.out)
	if err != nil {
		return err
	}

	dc.env.Logger.Info("document saved", "name", name, "dir", dc.out, "outline", persister.Path(dc.out))

	if dc.verify {
		err = verifyDump(dc.out, persister, name, report.Tree.Layout(), opts)
		if err != nil {
			return err
		}
	}

	if !dc.env.Quiet {
		color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "%s: %d symbols saved to %s\n", name, report.Tree.Len(), dc.out)
	}

	return nil
}

func verifyDump(dir string, persister *persist.Persister[OutlineFile], name, layout string, opts symtree.Options) error {
	saved, err := persister.Load(dir)
	if err != nil {
		return err
	}

	rebuilt := symtree.New(opts)

	err = rebuilt.Build(saved.Items)
	if err != nil {
		return err
	}

	if rebuilt.Layout() != layout {
		return fmt.Errorf("%w: outline gives %s", ErrDumpMismatch, rebuilt.Layout())
	}

	ws, err := symtree.LoadWorkspace(dir, opts)
	if err != nil {
		return err
	}

	doc, ok := ws.Get(name)
	if !ok {
		return fmt.Errorf("%w: %q", symtree.ErrUnknownDocument, name)
	}

	if doc.Layout() != layout {
		return fmt.Errorf("%w: workspace gives %s", ErrDumpMismatch, doc.Layout())
	}

	return doc.Validate()
}
