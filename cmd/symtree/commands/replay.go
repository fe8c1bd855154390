package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/symtree/pkg/diffapply"
	"github.com/Sumatoshi-tech/symtree/pkg/symtree"
)

// ErrReplayDiverged is returned when a replayed document does not spell the new file.
var ErrReplayDiverged = errors.New("replayed document differs from target")

// ReplayCommand diffs two files and replays the diff onto a document.
type ReplayCommand struct {
	env     *Env
	lines   bool
	track   []int
	gravity string
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(env *Env) *cobra.Command {
	rc := &ReplayCommand{env: env}

	cmd := &cobra.Command{
		Use:   "replay <old> <new>",
		Short: "Replay a file diff onto a document",
		Long: `Load <old> into a document, track the given offsets, replay the diff to
<new> as one change scope and report where the tracked offsets moved.`,
		Args: cobra.ExactArgs(2),
		RunE: rc.run,
	}

	cmd.Flags().BoolVar(&rc.lines, "lines", false, "diff by lines instead of characters")
	cmd.Flags().IntSliceVar(&rc.track, "track", nil, "document offsets to track across the replay")
	cmd.Flags().StringVar(&rc.gravity, "gravity", "forward", "navigator gravity: forward or backward")

	return cmd
}

type trackedOffset struct {
	nav    *symtree.Navigator
	before int
}

func (rc *ReplayCommand) run(cmd *cobra.Command, args []string) error {
	oldText, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read old file: %w", err)
	}

	newText, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("read new file: %w", err)
	}

	opts, err := rc.env.TreeOptions(args[0])
	if err != nil {
		return err
	}

	tree := symtree.New(opts)
	if len(oldText) > 0 {
		end, endErr := tree.End(tree.Root())
		if endErr != nil {
			return endErr
		}

		_, err = tree.Insert(end, symtree.TextRun(string(oldText)))
		if err != nil {
			return err
		}
	}

	tracked, err := rc.trackOffsets(tree)
	if err != nil {
		return err
	}

	granularity := diffapply.Runes
	if rc.lines {
		granularity = diffapply.Lines
	}

	summary, err := diffapply.Replay(tree, string(newText), granularity)
	if err != nil {
		return err
	}

	if tree.Text() != string(newText) {
		return ErrReplayDiverged
	}

	rc.env.Logger.Debug("replay applied", "hunks", summary.Hunks, "generation", summary.Generation)

	if !rc.env.Quiet {
		return renderReplay(cmd.OutOrStdout(), summary, tracked)
	}

	return nil
}

func (rc *ReplayCommand) trackOffsets(tree *symtree.Tree) ([]trackedOffset, error) {
	gravity := symtree.Forward
	if rc.gravity == "backward" {
		gravity = symtree.Backward
	}

	tracked := make([]trackedOffset, 0, len(rc.track))

	for _, offset := range rc.track {
		pos, ok := tree.PositionAt(offset)
		if !ok {
			return nil, fmt.Errorf("%w: track offset %d of %d", symtree.ErrInvalidPosition, offset, tree.Len())
		}

		nav, err := tree.Track(pos, gravity)
		if err != nil {
			return nil, err
		}

		tracked = append(tracked, trackedOffset{nav: nav, before: offset})
	}

	return tracked, nil
}

func renderReplay(out io.Writer, summary diffapply.Summary, tracked []trackedOffset) error {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Hunks", "Inserted", "Deleted", "Unchanged", "Generation"})
	tbl.AppendRow(table.Row{
		summary.Hunks,
		humanize.Comma(int64(summary.Inserted)),
		humanize.Comma(int64(summary.Deleted)),
		humanize.Comma(int64(summary.Unchanged)),
		summary.Generation,
	})

	fmt.Fprintln(out, tbl.Render())

	if len(tracked) == 0 {
		return nil
	}

	navs := table.NewWriter()
	navs.SetStyle(table.StyleLight)
	navs.AppendHeader(table.Row{"Tracked", "Before", "After", "Shift"})

	for idx, entry := range tracked {
		after, err := entry.nav.Offset()
		if err != nil {
			return err
		}

		navs.AppendRow(table.Row{idx, entry.before, after, fmt.Sprintf("%+d", after-entry.before)})
	}

	fmt.Fprintln(out, navs.Render())

	return nil
}
