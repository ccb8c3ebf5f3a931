// Package config loads the Pulsar system configuration file and applies
// environment variable overrides, the same two-step shape the teacher uses
// for its own config (YAML defaults, then Docker/Kubernetes-friendly env
// overrides).
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pulsar-rules/pulsar/internal/domain"
	"gopkg.in/yaml.v3"
)

// Load reads and decodes a system config file, applies environment
// overrides, and validates the result.
func Load(path string) (*domain.SystemConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.IoError{Path: path, Err: err}
	}

	cfg := tierDefaults(os.Getenv("PULSAR_TIER"))
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &domain.ConfigError{Message: "malformed system config", Err: err}
	}

	applyEnvOverrides(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *domain.SystemConfig) error {
	if cfg.Version != 1 {
		return &domain.ConfigError{Message: fmt.Sprintf("unsupported config version %d, want 1", cfg.Version)}
	}
	if len(cfg.ValidSensors) == 0 {
		return &domain.ConfigError{Message: "valid_sensors must not be empty"}
	}
	return nil
}

// tierDefaults picks the base config (before the YAML file and further env
// overrides are layered on top) according to PULSAR_TIER.
func tierDefaults(tier string) *domain.SystemConfig {
	if tier == string(domain.TierPro) {
		return domain.ProSystemConfig()
	}
	return domain.DefaultSystemConfig()
}

// applyEnvOverrides applies environment variable overrides to the config.
// This enables configuration via environment for container deployments,
// matching the teacher's OSPREY_* convention renamed to PULSAR_*.
func applyEnvOverrides(cfg *domain.SystemConfig) {
	if driver := os.Getenv("PULSAR_STORE_DRIVER"); driver != "" {
		cfg.Store.Driver = driver
	}
	if host := os.Getenv("PULSAR_POSTGRES_HOST"); host != "" {
		cfg.Store.PostgresHost = host
	}
	if port := os.Getenv("PULSAR_POSTGRES_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Store.PostgresPort = p
		}
	}
	if user := os.Getenv("PULSAR_POSTGRES_USER"); user != "" {
		cfg.Store.PostgresUser = user
	}
	if pass := os.Getenv("PULSAR_POSTGRES_PASSWORD"); pass != "" {
		cfg.Store.PostgresPassword = pass
	}
	if addr := os.Getenv("PULSAR_REDIS_ADDR"); addr != "" {
		cfg.Store.RedisAddr = addr
	}
	if url := os.Getenv("PULSAR_NATS_URL"); url != "" {
		cfg.EventBus.NATSUrl = url
	}
	if cycle := os.Getenv("PULSAR_CYCLE_TIME_MS"); cycle != "" {
		if ms, err := strconv.Atoi(cycle); err == nil {
			cfg.Runtime.CycleTimeMs = ms
		}
	}
	if level := os.Getenv("PULSAR_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}
