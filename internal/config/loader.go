package config

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "ECOPOINTS_"

var metricLabelName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. file (YAML) if ECOPOINTS_CONFIG is set
//  3. env (prefix ECOPOINTS_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// ECOPOINTS_SNAPSHOT_PATH -> snapshot_path; underscores are kept to match
	// the koanf tags.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.SnapshotPath) == "" {
		return fmt.Errorf("%w: snapshot_path must not be empty", ErrInvalidConfig)
	}
	if c.DefaultRate <= 0 {
		return fmt.Errorf("%w: default_rate must be positive, got %v", ErrInvalidConfig, c.DefaultRate)
	}
	for material, rate := range c.MaterialRates {
		if rate < 0 {
			return fmt.Errorf("%w: material_rates.%s must not be negative", ErrInvalidConfig, material)
		}
	}
	for name := range c.MetricsLabels {
		if !metricLabelName.MatchString(name) {
			return fmt.Errorf("%w: metrics_labels key %q is not a valid label name", ErrInvalidConfig, name)
		}
	}
	if c.LeaderboardSize < 0 {
		return fmt.Errorf("%w: leaderboard_size must not be negative", ErrInvalidConfig)
	}
	return nil
}
