package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SERVDASH_MAX_SAMPLES.
const EnvPrefix = "SERVDASH"

// Load layers, in increasing priority: defaults, the YAML file at path (or
// ./servdash.yaml when path is empty and the file exists), SERVDASH_*
// environment variables and the flags of fs that were set explicitly.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, New())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("servdash")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	if fs != nil {
		var bindErr error
		fs.VisitAll(func(f *pflag.Flag) {
			if bindErr != nil || f.Name == "config" {
				return
			}
			bindErr = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
		})
		if bindErr != nil {
			return nil, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("cannot decode config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("orchestrator_url", d.OrchestratorURL)
	v.SetDefault("containers_url", d.ContainersURL)
	v.SetDefault("requests_url", d.RequestsURL)
	v.SetDefault("controller_url", d.ControllerURL)
	v.SetDefault("dispatcher_url", d.DispatcherURL)
	v.SetDefault("tfs_gpu", d.TFSGPU)
	v.SetDefault("sampling_period", d.SamplingPeriod)
	v.SetDefault("max_samples", d.MaxSamples)
	v.SetDefault("window", d.Window)
	v.SetDefault("fetch_timeout", d.FetchTimeout)
	v.SetDefault("quota_divisor", d.QuotaDivisor)
	v.SetDefault("model_metrics_every", d.ModelMetricsEvery)
	v.SetDefault("quota_every", d.QuotaEvery)
	v.SetDefault("listen", d.Listen)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("duration", d.Duration)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("format", d.OutputFormat)
	v.SetDefault("output", d.OutputName)
	v.SetDefault("graph_format", d.GraphFormat)
	v.SetDefault("graph_output", d.GraphOutput)
	v.SetDefault("session_id", d.SessionID)
}
