package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ServingDashboard/pkg/config"
	"ServingDashboard/pkg/graphing"
	"ServingDashboard/pkg/logging"
)

// NewGraphCmd creates the graph subcommand.
func NewGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Aliases: []string{"g"},
		Use:     "graph <input-file>",
		Short:   "Render a recording to HTML or PNG charts",
		Long: `Render a recorded session to a single go-echarts HTML page or to a
directory with one PNG per family.

Supported input formats: parquet, jsonl, csv, tsv, sqlite

Example:
  servdash graph servdash-20240101-120000.parquet
  servdash graph run.jsonl --graph-format png --graph-output ./graphs`,
		Args: cobra.ExactArgs(1),
		RunE: runGraph,
	}

	Cfg.AddGraphFlags(cmd)

	return cmd
}

func runGraph(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	if _, err := os.Stat(inputPath); err != nil {
		return fmt.Errorf("input file not found: %s", inputPath)
	}

	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer logging.Flush(log)

	gen, err := graphing.NewGenerator(inputPath, cfg.GenerateGraphPath(inputPath), cfg.GraphFormat, log.Logger)
	if err != nil {
		return fmt.Errorf("failed to create generator: %w", err)
	}
	files, err := gen.Generate()
	if err != nil {
		return fmt.Errorf("failed to generate graphs: %w", err)
	}
	for _, f := range files {
		fmt.Fprintln(cmd.OutOrStdout(), f)
	}
	return nil
}
