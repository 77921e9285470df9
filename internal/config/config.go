package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/docstack/veristack/internal/logger"
	"github.com/docstack/veristack/internal/supervisor"
)

const (
	defaultRetries       = 30
	defaultRetryInterval = time.Second
)

// FileConfig represents the top-level TOML structure:
//
//	[log]                global log rotation settings
//	[history]            dsn for the verification-run sink
//	[metrics]            prometheus exposition
//	[api]                embedded document API
//	[report]             report server
//	[[services]]         ordered bring-up chain
type FileConfig struct {
	Log      logger.Config   `toml:"log" mapstructure:"log"`
	History  HistoryConfig   `toml:"history" mapstructure:"history"`
	Metrics  MetricsConfig   `toml:"metrics" mapstructure:"metrics"`
	API      APIConfig       `toml:"api" mapstructure:"api"`
	Report   ReportConfig    `toml:"report" mapstructure:"report"`
	Services []ServiceConfig `toml:"services" mapstructure:"services"`
}

type HistoryConfig struct {
	DSN string `toml:"dsn" mapstructure:"dsn"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Listen  string `toml:"listen" mapstructure:"listen"`
}

type APIConfig struct {
	Listen    string `toml:"listen" mapstructure:"listen"`
	SearchURL string `toml:"search_url" mapstructure:"search_url"`
	Index     string `toml:"index" mapstructure:"index"`
}

type ReportConfig struct {
	Listen string `toml:"listen" mapstructure:"listen"`
}

// ServiceConfig is one entry of the ordered bring-up chain.
type ServiceConfig struct {
	Name          string         `toml:"name" mapstructure:"name"`
	Command       string         `toml:"command" mapstructure:"command"`
	WorkDir       string         `toml:"workdir" mapstructure:"workdir"`
	Env           []string       `toml:"env" mapstructure:"env"`
	HealthURL     string         `toml:"health_url" mapstructure:"health_url"`
	Retries       int            `toml:"retries" mapstructure:"retries"`
	RetryInterval time.Duration  `toml:"retry_interval" mapstructure:"retry_interval"`
	Log           *logger.Config `toml:"log" mapstructure:"log"`
}

// Load reads and validates a TOML config file.
func Load(path string) (*FileConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	fc.applyDefaults()
	if err := fc.validate(); err != nil {
		return nil, err
	}
	return &fc, nil
}

func (fc *FileConfig) applyDefaults() {
	if fc.API.Listen == "" {
		fc.API.Listen = ":8000"
	}
	if fc.API.SearchURL == "" {
		fc.API.SearchURL = "http://localhost:9200"
	}
	if fc.API.Index == "" {
		fc.API.Index = "documentation_data"
	}
	if fc.Report.Listen == "" {
		fc.Report.Listen = ":8011"
	}
	if fc.Metrics.Enabled && fc.Metrics.Listen == "" {
		fc.Metrics.Listen = ":9090"
	}
	for i := range fc.Services {
		if fc.Services[i].Retries == 0 {
			fc.Services[i].Retries = defaultRetries
		}
		if fc.Services[i].RetryInterval == 0 {
			fc.Services[i].RetryInterval = defaultRetryInterval
		}
	}
}

func (fc *FileConfig) validate() error {
	seen := make(map[string]struct{}, len(fc.Services))
	for i, svc := range fc.Services {
		if svc.Name == "" {
			return fmt.Errorf("services[%d]: name is required", i)
		}
		if svc.Command == "" {
			return fmt.Errorf("service %q: command is required", svc.Name)
		}
		if svc.Retries < 0 {
			return fmt.Errorf("service %q: retries must not be negative", svc.Name)
		}
		if _, dup := seen[svc.Name]; dup {
			return fmt.Errorf("duplicate service name %q", svc.Name)
		}
		seen[svc.Name] = struct{}{}
	}
	return nil
}

// ServiceSpecs converts the configured chain into supervisor specs, in
// declaration order. Services without their own [services.log] inherit the
// global [log] settings.
func (fc *FileConfig) ServiceSpecs() []supervisor.Spec {
	specs := make([]supervisor.Spec, 0, len(fc.Services))
	for _, svc := range fc.Services {
		lc := fc.Log
		if svc.Log != nil {
			lc = *svc.Log
		}
		specs = append(specs, supervisor.Spec{
			Name:          svc.Name,
			Command:       svc.Command,
			WorkDir:       svc.WorkDir,
			Env:           svc.Env,
			HealthURL:     svc.HealthURL,
			MaxAttempts:   svc.Retries,
			RetryInterval: svc.RetryInterval,
			Log:           lc,
		})
	}
	return specs
}
