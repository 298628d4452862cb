package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to run a reconciliation batch.
type Config struct {
	Batch     BatchConfig     `yaml:"batch"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Policy    PolicyConfig    `yaml:"policy"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// BatchConfig controls worker fan-out and progress reporting.
type BatchConfig struct {
	Workers          int           `yaml:"workers"`
	ProgressInterval time.Duration `yaml:"progressInterval"`
}

// ArtifactsConfig locates the offline-built catalog and reference registry.
type ArtifactsConfig struct {
	CatalogPath  string `yaml:"catalogPath"`
	RegistryPath string `yaml:"registryPath"`
}

// PolicyConfig locates the decision-policy file overriding compiled defaults.
type PolicyConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// MetricsConfig controls the optional Prometheus endpoint served while a
// batch runs.
type MetricsConfig struct {
	Address string `yaml:"address"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("ATAREC_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.Batch.Workers <= 0 {
		cfg.Batch.Workers = runtime.NumCPU()
	}
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Batch: BatchConfig{
			Workers:          runtime.NumCPU(),
			ProgressInterval: 10 * time.Second,
		},
		Artifacts: ArtifactsConfig{
			CatalogPath:  "catalog/ata_catalog.json",
			RegistryPath: "reference_db/registry.db",
		},
		Policy:  PolicyConfig{Path: "configs/policy.yaml"},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Metrics: MetricsConfig{Address: ""},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ATAREC_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Batch.Workers = n
		}
	}
	if v := os.Getenv("ATAREC_PROGRESS_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Batch.ProgressInterval = d
		}
	}
	if v := os.Getenv("ATAREC_CATALOG_PATH"); v != "" {
		cfg.Artifacts.CatalogPath = v
	}
	if v := os.Getenv("ATAREC_REGISTRY_PATH"); v != "" {
		cfg.Artifacts.RegistryPath = v
	}
	if v := os.Getenv("ATAREC_POLICY_PATH"); v != "" {
		cfg.Policy.Path = v
	}
	if v := os.Getenv("ATAREC_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ATAREC_LOG_FORMAT"); strings.EqualFold(v, "json") {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("ATAREC_METRICS_ADDRESS"); v != "" {
		cfg.Metrics.Address = v
	}
}
