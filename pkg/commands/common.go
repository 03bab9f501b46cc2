package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ServingDashboard/pkg/config"
	"ServingDashboard/pkg/logging"
	"ServingDashboard/pkg/polling"
	"ServingDashboard/pkg/services"
)

// setup loads and validates the configuration and builds the logger.
func setup(cmd *cobra.Command) (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	log.Logger = log.Logger.With(zap.String("session", cfg.SessionID))
	log.SugaredLogger = log.Logger.Sugar()
	return cfg, log, nil
}

func newCluster(cfg *config.Config) (*services.Cluster, error) {
	cluster, err := services.NewCluster(services.Endpoints{
		Orchestrator: cfg.OrchestratorURL,
		Containers:   cfg.ContainersURL,
		Requests:     cfg.RequestsURL,
		Controller:   cfg.ControllerURL,
		Dispatcher:   cfg.DispatcherURL,
	}, cfg.FetchTimeout)
	if err != nil {
		return nil, err
	}
	cluster.TFSGPU = cfg.TFSGPU
	return cluster, nil
}

// newEngine wires the model metrics, SLA and quota pollers to the cluster.
func newEngine(cfg *config.Config, cluster *services.Cluster, sink polling.Sink, log *zap.Logger) (*polling.Engine, error) {
	pollers := []*polling.Poller{
		polling.NewPoller(polling.NewModelMetricsSource(cluster, cfg.Window), cfg.ModelMetricsEvery, cfg.FetchTimeout, log),
		polling.NewPoller(polling.NewSLASource(cluster), 0, cfg.FetchTimeout, log),
		polling.NewPoller(polling.NewQuotaSource(cluster, cfg.QuotaDivisor), cfg.QuotaEvery, cfg.FetchTimeout, log),
	}
	return polling.NewEngine(polling.Options{
		Period:     cfg.SamplingPeriod,
		MaxSamples: cfg.MaxSamples,
		Sink:       sink,
		Logger:     log,
	}, pollers...)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
