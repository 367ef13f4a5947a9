package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/ecopoints/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.SnapshotPath, convey.ShouldEqual, "data/households.db")
				convey.So(cfg.DefaultRate, convey.ShouldEqual, 2.0)
				convey.So(cfg.MaterialRates["Plastic"], convey.ShouldEqual, 10.0)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("ECOPOINTS_LOG_LEVEL", "debug")
			_ = os.Setenv("ECOPOINTS_SNAPSHOT_PATH", "/var/lib/ecopoints/state.db")
			_ = os.Setenv("ECOPOINTS_DUMP_PATH", "")
			_ = os.Setenv("ECOPOINTS_DEFAULT_RATE", "0.5")
			_ = os.Setenv("ECOPOINTS_LEADERBOARD_SIZE", "10")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.SnapshotPath, convey.ShouldEqual, "/var/lib/ecopoints/state.db")
				convey.So(cfg.DumpPath, convey.ShouldBeEmpty)
				convey.So(cfg.DefaultRate, convey.ShouldEqual, 0.5)
				convey.So(cfg.LeaderboardSize, convey.ShouldEqual, 10)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
snapshot_path: "/tmp/eco.db"
metrics_textfile: "/tmp/eco.prom"
default_rate: 1
material_rates:
  plastic: 12
  textiles: 3
metrics_labels:
  site: north
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("ECOPOINTS_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.SnapshotPath, convey.ShouldEqual, "/tmp/eco.db")
				convey.So(cfg.MetricsTextfile, convey.ShouldEqual, "/tmp/eco.prom")
				convey.So(cfg.DefaultRate, convey.ShouldEqual, 1.0)
				convey.So(cfg.MetricsLabels, convey.ShouldResemble, map[string]string{"site": "north"})
			})

			convey.Convey("And material rates should merge with the defaults", func() {
				convey.So(cfg.MaterialRates["plastic"], convey.ShouldEqual, 12.0)
				convey.So(cfg.MaterialRates["textiles"], convey.ShouldEqual, 3.0)
				convey.So(cfg.MaterialRates["Glass"], convey.ShouldEqual, 8.0)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
snapshot_path: "/tmp/eco.db"
dump_path: "/tmp/eco.yaml"
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("ECOPOINTS_CONFIG", tmpFile)
			_ = os.Setenv("ECOPOINTS_SNAPSHOT_PATH", "/srv/eco.db")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.SnapshotPath, convey.ShouldEqual, "/srv/eco.db")
				convey.So(cfg.DumpPath, convey.ShouldEqual, "/tmp/eco.yaml")
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("ECOPOINTS_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("ECOPOINTS_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty snapshot path", func() {
			_ = os.Setenv("ECOPOINTS_SNAPSHOT_PATH", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "snapshot_path must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with a non-positive default rate", func() {
			_ = os.Setenv("ECOPOINTS_DEFAULT_RATE", "0")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When loading config with a negative material rate", func() {
			tmpFile := createTempConfigFile("material_rates:\n  glass: -4\n")
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("ECOPOINTS_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When loading config with an invalid metrics label name", func() {
			tmpFile := createTempConfigFile("metrics_labels:\n  collection-point: north\n")
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("ECOPOINTS_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When loading config with an invalid numeric environment variable", func() {
			_ = os.Setenv("ECOPOINTS_LEADERBOARD_SIZE", "not_a_number")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"ECOPOINTS_CONFIG",
		"ECOPOINTS_LOG_LEVEL",
		"ECOPOINTS_SNAPSHOT_PATH",
		"ECOPOINTS_DUMP_PATH",
		"ECOPOINTS_METRICS_TEXTFILE",
		"ECOPOINTS_DEFAULT_RATE",
		"ECOPOINTS_LEADERBOARD_SIZE",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "ecopoints-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
