// Package config defines the tracker's configuration and how it is loaded.
//
// Conventions:
// - Defaults live in New; Load layers a YAML file and environment on top.
// - Errors returned by Load wrap ErrLoadConfig or ErrInvalidConfig.
package config

import "github.com/okian/ecopoints/internal/domain/scoring"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// SnapshotPath is the SQLite file holding the saved registry.
	SnapshotPath string `koanf:"snapshot_path"`

	// DumpPath receives a human-readable YAML copy on every save. Empty disables it.
	DumpPath string `koanf:"dump_path"`

	// MetricsTextfile receives Prometheus metrics on every save, in the
	// node_exporter textfile format. Empty disables it.
	MetricsTextfile string `koanf:"metrics_textfile"`

	// MetricsLabels are constant labels added to every exported metric,
	// e.g. {site: north} when several collection points share a collector.
	MetricsLabels map[string]string `koanf:"metrics_labels"`

	// MaterialRates maps material labels to eco-points per kilogram.
	MaterialRates map[string]float64 `koanf:"material_rates"`

	// DefaultRate applies to materials missing from MaterialRates.
	DefaultRate float64 `koanf:"default_rate"`

	// LeaderboardSize caps the ranking shown on the reports screen.
	LeaderboardSize int `koanf:"leaderboard_size"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		SnapshotPath:    "data/households.db",
		DumpPath:        "data/households.yaml",
		MetricsTextfile: "",
		MaterialRates:   scoring.DefaultRates(),
		DefaultRate:     scoring.DefaultFallbackRate(),
		LeaderboardSize: 5,
	}
}
