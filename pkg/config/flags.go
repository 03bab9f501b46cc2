package config

import (
	"github.com/spf13/cobra"
)

// AddClusterFlags adds the component URL flags to a command.
func (c *Config) AddClusterFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&c.OrchestratorURL, "orchestrator-url", c.OrchestratorURL, "Orchestrator base URL")
	flags.StringVar(&c.ContainersURL, "containers-url", c.ContainersURL, "Containers manager base URL")
	flags.StringVar(&c.RequestsURL, "requests-url", c.RequestsURL, "Requests store base URL")
	flags.StringVar(&c.ControllerURL, "controller-url", c.ControllerURL, "Controller base URL")
	flags.StringVar(&c.DispatcherURL, "dispatcher-url", c.DispatcherURL, "Dispatcher base URL")
	flags.IntVar(&c.TFSGPU, "tfs-gpu", c.TFSGPU, "GPU index of the TF Serving configuration to show")
}

// AddSamplingFlags adds the engine flags to a command.
func (c *Config) AddSamplingFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.DurationVar(&c.SamplingPeriod, "sampling-period", c.SamplingPeriod, "Tick period")
	flags.IntVar(&c.MaxSamples, "max-samples", c.MaxSamples, "Samples kept per series")
	flags.DurationVar(&c.Window, "window", c.Window, "Rate window (defaults to the sampling period)")
	flags.DurationVar(&c.FetchTimeout, "fetch-timeout", c.FetchTimeout, "Per-fetch deadline (defaults to the sampling period)")
	flags.Float64Var(&c.QuotaDivisor, "quota-divisor", c.QuotaDivisor, "CPU quota units per core")
	flags.IntVar(&c.ModelMetricsEvery, "model-metrics-every", c.ModelMetricsEvery, "Poll model metrics every N ticks")
	flags.IntVar(&c.QuotaEvery, "quota-every", c.QuotaEvery, "Poll container quotas every N ticks")
}

// AddServerFlags adds the dashboard listener flag to a command.
func (c *Config) AddServerFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&c.Listen, "listen", "l", c.Listen, "Dashboard listen address")
}

// AddOutputFlags adds recording flags to a command.
func (c *Config) AddOutputFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.DurationVarP(&c.Duration, "duration", "d", c.Duration, "Recording duration (0 records until interrupted)")
	flags.StringVarP(&c.OutputDir, "output-dir", "o", c.OutputDir, "Output directory")
	flags.StringVarP(&c.OutputFormat, "format", "f", c.OutputFormat, "Output format (parquet, jsonl, csv, tsv, sqlite)")
	flags.StringVar(&c.OutputName, "output", c.OutputName, "Output filename (auto-generated if empty)")
}

// AddGraphFlags adds graph generation flags to a command.
func (c *Config) AddGraphFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&c.GraphFormat, "graph-format", c.GraphFormat, "Graph format (html, png)")
	flags.StringVar(&c.GraphOutput, "graph-output", c.GraphOutput, "Graph output path (auto-generated if empty)")
}

// AddLogFlags adds logging flags to a command.
func (c *Config) AddLogFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error)")
	flags.StringVar(&c.LogFormat, "log-format", c.LogFormat, "Log format (json, console)")
}
