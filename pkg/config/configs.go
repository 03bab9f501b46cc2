// Package config holds the dashboard configuration and its sources.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"ServingDashboard/pkg/exporting"
)

// Config holds every dashboard option.
type Config struct {
	// Cluster components
	OrchestratorURL string `mapstructure:"orchestrator_url"`
	ContainersURL   string `mapstructure:"containers_url"`
	RequestsURL     string `mapstructure:"requests_url"`
	ControllerURL   string `mapstructure:"controller_url"`
	DispatcherURL   string `mapstructure:"dispatcher_url"`
	TFSGPU          int    `mapstructure:"tfs_gpu"`

	// Sampling
	SamplingPeriod    time.Duration `mapstructure:"sampling_period"`
	MaxSamples        int           `mapstructure:"max_samples"`
	Window            time.Duration `mapstructure:"window"`
	FetchTimeout      time.Duration `mapstructure:"fetch_timeout"`
	QuotaDivisor      float64       `mapstructure:"quota_divisor"`
	ModelMetricsEvery int           `mapstructure:"model_metrics_every"`
	QuotaEvery        int           `mapstructure:"quota_every"`

	// Dashboard server
	Listen string `mapstructure:"listen"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// Recording
	Duration     time.Duration `mapstructure:"duration"`
	OutputDir    string        `mapstructure:"output_dir"`
	OutputFormat string        `mapstructure:"format"`
	OutputName   string        `mapstructure:"output"`

	// Graphs
	GraphFormat string `mapstructure:"graph_format"`
	GraphOutput string `mapstructure:"graph_output"`

	SessionID string `mapstructure:"session_id"`
}

// Default configuration values.
const (
	DefaultSamplingPeriod = 2 * time.Second
	DefaultMaxSamples     = 50
	DefaultQuotaDivisor   = 100000
	DefaultListen         = ":8080"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "json"
	DefaultOutputDir      = "."
	DefaultFormat         = "parquet"
	DefaultGraphFormat    = "html"

	DefaultOrchestratorURL = "http://localhost:5000"
	DefaultContainersURL   = "http://localhost:5001"
	DefaultRequestsURL     = "http://localhost:5002"
	DefaultControllerURL   = "http://localhost:5003"
	DefaultDispatcherURL   = "http://localhost:8000"
)

// New creates a Config with default values.
func New() *Config {
	return &Config{
		OrchestratorURL:   DefaultOrchestratorURL,
		ContainersURL:     DefaultContainersURL,
		RequestsURL:       DefaultRequestsURL,
		ControllerURL:     DefaultControllerURL,
		DispatcherURL:     DefaultDispatcherURL,
		SamplingPeriod:    DefaultSamplingPeriod,
		MaxSamples:        DefaultMaxSamples,
		QuotaDivisor:      DefaultQuotaDivisor,
		ModelMetricsEvery: 1,
		QuotaEvery:        1,
		Listen:            DefaultListen,
		LogLevel:          DefaultLogLevel,
		LogFormat:         DefaultLogFormat,
		OutputDir:         DefaultOutputDir,
		OutputFormat:      DefaultFormat,
		GraphFormat:       DefaultGraphFormat,
	}
}

// ApplyDefaults fills in any missing values with defaults.
func (c *Config) ApplyDefaults() {
	if c.SamplingPeriod == 0 {
		c.SamplingPeriod = DefaultSamplingPeriod
	}
	if c.Window == 0 {
		c.Window = c.SamplingPeriod
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = c.SamplingPeriod
	}
	if c.MaxSamples == 0 {
		c.MaxSamples = DefaultMaxSamples
	}
	if c.QuotaDivisor == 0 {
		c.QuotaDivisor = DefaultQuotaDivisor
	}
	if c.ModelMetricsEvery == 0 {
		c.ModelMetricsEvery = 1
	}
	if c.QuotaEvery == 0 {
		c.QuotaEvery = 1
	}
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.OutputFormat == "" {
		c.OutputFormat = DefaultFormat
	}
	if c.GraphFormat == "" {
		c.GraphFormat = DefaultGraphFormat
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.SamplingPeriod < 10*time.Millisecond {
		return fmt.Errorf("sampling period must be at least 10ms, got %v", c.SamplingPeriod)
	}
	if c.Window <= 0 {
		return fmt.Errorf("window must be positive, got %v", c.Window)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive, got %v", c.FetchTimeout)
	}
	if c.MaxSamples < 1 {
		return fmt.Errorf("max samples must be at least 1, got %d", c.MaxSamples)
	}
	if c.QuotaDivisor <= 0 {
		return fmt.Errorf("quota divisor must be positive, got %v", c.QuotaDivisor)
	}
	if c.ModelMetricsEvery < 1 || c.QuotaEvery < 1 {
		return fmt.Errorf("poll multiples must be at least 1")
	}
	if c.Duration < 0 {
		return fmt.Errorf("duration cannot be negative, got %v", c.Duration)
	}

	for name, raw := range map[string]string{
		"orchestrator": c.OrchestratorURL,
		"containers":   c.ContainersURL,
		"requests":     c.RequestsURL,
		"controller":   c.ControllerURL,
		"dispatcher":   c.DispatcherURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid %s url: %q", name, raw)
		}
	}

	if !isValid(c.OutputFormat, exporting.Formats()) {
		return fmt.Errorf("invalid output format: %s (valid: %v)", c.OutputFormat, exporting.Formats())
	}
	if !isValid(c.GraphFormat, ValidGraphFormats()) {
		return fmt.Errorf("invalid graph format: %s (valid: html, png)", c.GraphFormat)
	}

	if c.OutputDir != "" {
		if info, err := os.Stat(c.OutputDir); err != nil {
			if !os.IsNotExist(err) {
				return fmt.Errorf("cannot access output directory: %w", err)
			}
		} else if !info.IsDir() {
			return fmt.Errorf("output path is not a directory: %s", c.OutputDir)
		}
	}
	return nil
}

// ValidGraphFormats returns the list of supported graph formats.
func ValidGraphFormats() []string {
	return []string{"html", "png"}
}

func isValid(format string, valid []string) bool {
	for _, f := range valid {
		if f == format {
			return true
		}
	}
	return false
}

// GenerateOutputPath creates an auto-generated recording path.
func (c *Config) GenerateOutputPath(prefix string) string {
	if c.OutputName != "" {
		return filepath.Join(c.OutputDir, c.OutputName)
	}
	timestamp := time.Now().Format("20060102-150405")
	return filepath.Join(c.OutputDir, fmt.Sprintf("%s-%s%s", prefix, timestamp, exporting.Extension(c.OutputFormat)))
}

// GenerateGraphPath derives the graph output path from the recording path.
func (c *Config) GenerateGraphPath(inputFile string) string {
	if c.GraphOutput != "" {
		return c.GraphOutput
	}
	dir := filepath.Dir(inputFile)
	base := filepath.Base(inputFile)
	name := base[:len(base)-len(filepath.Ext(base))]
	if c.GraphFormat == "png" {
		return filepath.Join(dir, name+"_graphs")
	}
	return filepath.Join(dir, name+"_graphs.html")
}
