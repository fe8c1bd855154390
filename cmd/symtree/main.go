// Package main provides the entry point for the symtree CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/symtree/cmd/symtree/commands"
	"github.com/Sumatoshi-tech/symtree/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	env := &commands.Env{}

	rootCmd := &cobra.Command{
		Use:   "symtree",
		Short: "symtree - splay tree text position index",
		Long: `symtree indexes positions in a stream of text runs, boundaries and nested
containers, and exercises the index from scripts, benchmarks and diffs.

Commands:
  run       Run scenario scripts
  bench     Randomized access benchmark
  replay    Replay a file diff onto a document
  dump      Save a scripted document to disk`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return env.Setup()
		},
	}

	rootCmd.PersistentFlags().StringVar(&env.ConfigPath, "config", "", "config file (default: ./symtree.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&env.Verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&env.Quiet, "quiet", "q", false, "suppress output")

	rootCmd.AddCommand(commands.NewRunCommand(env))
	rootCmd.AddCommand(commands.NewBenchCommand(env))
	rootCmd.AddCommand(commands.NewReplayCommand(env))
	rootCmd.AddCommand(commands.NewDumpCommand(env))
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
