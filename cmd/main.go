package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/okian/ecopoints/internal/adapters/console"
	service "github.com/okian/ecopoints/internal/app"
	"github.com/okian/ecopoints/internal/config"
	"github.com/okian/ecopoints/internal/domain/scoring"
	"github.com/okian/ecopoints/pkg/logger"
	"github.com/okian/ecopoints/pkg/metrics"
)

func main() {
	// A local .env is optional.
	_ = godotenv.Load()

	// Logs go to stderr so they never interleave with the menu on stdout.
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdin, os.Stdout); err != nil {
		logger.Get().Error(ctx, "tracker exited with error", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

// run loads configuration, restores the saved registry and drives the menu
// until the user exits or the input ends.
func run(ctx context.Context, in io.Reader, out io.Writer) error {
	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc := newService(cfg, log)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop(context.WithoutCancel(ctx))

	err = console.New(svc, in, out, console.WithLogger(log.Named("console"))).Run(ctx)
	if ctx.Err() != nil {
		log.Warn(ctx, "interrupted; unsaved changes discarded")
		return nil
	}
	return err
}

func newService(cfg *config.Config, log logger.Logger) *service.Service {
	opts := []service.Option{
		service.WithLogger(log.Named("service")),
		service.WithRateTable(scoring.NewTable(
			scoring.WithRates(cfg.MaterialRates),
			scoring.WithDefaultRate(cfg.DefaultRate),
		)),
		service.WithSnapshotPath(cfg.SnapshotPath),
		service.WithDumpPath(cfg.DumpPath),
		service.WithLeaderboardSize(cfg.LeaderboardSize),
	}
	if cfg.MetricsTextfile != "" {
		opts = append(opts,
			service.WithMetricsTextfile(cfg.MetricsTextfile),
			service.WithMetrics(metrics.NewManager(
				metrics.WithRuntimeCollectors(),
				metrics.WithConstLabels(cfg.MetricsLabels),
			)),
		)
	}
	return service.New(opts...)
}
