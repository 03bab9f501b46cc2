package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ServingDashboard/pkg/dashboard"
	"ServingDashboard/pkg/exporting"
	"ServingDashboard/pkg/logging"
	"ServingDashboard/pkg/polling"
)

var serveRecord bool

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"s"},
		Short:   "Run the sampling engine and the dashboard server",
		Long: `Discover models and containers, then sample every period and serve the
dashboard until interrupted.

Endpoints:
  /                       Live charts
  /api/catalog            All families with their samples (JSON)
  /api/families/:name     One family (JSON)
  /api/pollers            Poller health (JSON)
  /api/events             Server-sent tick and family events
  /api/status             Status of every service
  /api/configuration      Configuration of every service
  /api/tables/...         Models, containers, requests, metrics and logs
  /metrics                Prometheus metrics

Example:
  servdash serve --listen :8080 --sampling-period 2s
  servdash serve --record -f parquet`,
		RunE: runServe,
	}

	Cfg.AddClusterFlags(cmd)
	Cfg.AddSamplingFlags(cmd)
	Cfg.AddServerFlags(cmd)
	Cfg.AddOutputFlags(cmd)
	cmd.Flags().BoolVar(&serveRecord, "record", false, "Also record every sample to a file")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logging.Flush(log)

	cluster, err := newCluster(cfg)
	if err != nil {
		return err
	}

	hub := dashboard.NewHub(64)
	sinks := polling.MultiSink{hub}

	var rec *exporting.Recorder
	if serveRecord {
		rec, err = exporting.NewRecorder(cfg.GenerateOutputPath("servdash"), cfg.OutputFormat, cfg.SessionID, log.Logger)
		if err != nil {
			return fmt.Errorf("failed to create recorder: %w", err)
		}
		sinks = append(sinks, rec)
		log.Logger.Info("recording", zap.String("path", rec.Path()))
	}

	engine, err := newEngine(cfg, cluster, sinks, log.Logger)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	if err := engine.Discover(ctx); err != nil {
		log.Logger.Warn("discovery incomplete", zap.Error(err))
	}

	server := dashboard.NewServer(dashboard.Options{
		Catalog: engine.Catalog(),
		Pollers: engine.Pollers(),
		Backend: cluster,
		Hub:     hub,
		Session: cfg.SessionID,
		Period:  cfg.SamplingPeriod,
		Logger:  log.Logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return engine.Run(gctx) })
	g.Go(func() error { return server.Run(gctx, cfg.Listen) })
	err = g.Wait()

	if rec != nil {
		if cerr := rec.Close(); cerr != nil {
			log.Logger.Error("failed to close recording", zap.Error(cerr))
		} else {
			log.Logger.Info("recording written", zap.String("path", rec.Path()), zap.Int("rows", rec.Rows()))
		}
	}
	return err
}
