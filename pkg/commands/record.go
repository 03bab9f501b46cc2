package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ServingDashboard/pkg/exporting"
	"ServingDashboard/pkg/graphing"
	"ServingDashboard/pkg/logging"
)

var recordGraphs bool

// NewRecordCmd creates the record subcommand.
func NewRecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Aliases: []string{"r"},
		Use:     "record",
		Short:   "Sample for a duration and write the series to a file",
		Long: `Run the sampling engine without the dashboard and write one row per
series per tick. Absent samples are written as nulls. Runs until the
duration elapses or until interrupted when no duration is given.

Example:
  servdash record --duration 5m -f parquet
  servdash record -d 1m -f csv --graphs --graph-format png`,
		RunE: runRecord,
	}

	Cfg.AddClusterFlags(cmd)
	Cfg.AddSamplingFlags(cmd)
	Cfg.AddOutputFlags(cmd)
	Cfg.AddGraphFlags(cmd)
	cmd.Flags().BoolVarP(&recordGraphs, "graphs", "g", false, "Render graphs when recording ends")

	return cmd
}

func runRecord(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logging.Flush(log)

	cluster, err := newCluster(cfg)
	if err != nil {
		return err
	}

	rec, err := exporting.NewRecorder(cfg.GenerateOutputPath("servdash"), cfg.OutputFormat, cfg.SessionID, log.Logger)
	if err != nil {
		return fmt.Errorf("failed to create recorder: %w", err)
	}

	engine, err := newEngine(cfg, cluster, rec, log.Logger)
	if err != nil {
		rec.Close()
		return err
	}

	ctx, stop := signalContext()
	defer stop()
	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}

	log.Logger.Info("recording",
		zap.String("path", rec.Path()),
		zap.String("format", cfg.OutputFormat),
		zap.Duration("duration", cfg.Duration))

	runErr := engine.Run(ctx)
	if err := rec.Close(); err != nil {
		return fmt.Errorf("failed to close recording: %w", err)
	}
	log.Logger.Info("recording written", zap.String("path", rec.Path()), zap.Int("rows", rec.Rows()))
	if runErr != nil {
		return runErr
	}

	if recordGraphs {
		out := cfg.GenerateGraphPath(rec.Path())
		gen, err := graphing.NewGenerator(rec.Path(), out, cfg.GraphFormat, log.Logger)
		if err != nil {
			log.Logger.Warn("failed to create graph generator", zap.Error(err))
		} else if _, err := gen.Generate(); err != nil {
			log.Logger.Warn("failed to generate graphs", zap.Error(err))
		}
	}
	return nil
}
