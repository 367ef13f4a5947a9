// Package service provides the session controller that owns the household
// registry and connects it to persistence, metrics and logging.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/ecopoints/internal/adapters/dump"
	"github.com/okian/ecopoints/internal/adapters/repository"
	"github.com/okian/ecopoints/internal/domain/model"
	"github.com/okian/ecopoints/internal/domain/report"
	"github.com/okian/ecopoints/internal/domain/scoring"
	"github.com/okian/ecopoints/internal/domain/types"
	"github.com/okian/ecopoints/pkg/logger"
	"github.com/okian/ecopoints/pkg/metrics"
)

// Load outcomes reported to metrics.
const (
	loadOK      = "ok"
	loadEmpty   = "empty"
	loadCorrupt = "corrupt"
)

// otherMaterial labels events whose material is not in the rate table.
const otherMaterial = "other"

// RateTable is the scoring surface the service needs beyond scoring.Scorer.
type RateTable interface {
	scoring.Scorer
	Known(material string) bool
	Canonical(material string) (string, bool)
	Materials() []string
}

// Service is the single owner of a session's registry. It is not safe for
// concurrent use; one interactive session drives it.
type Service struct {
	registry *model.Registry
	rates    RateTable
	store    repository.Store
	metrics  *metrics.Manager
	logger   logger.Logger
	clock    model.Clock

	snapshotPath    string
	dumpPath        string
	metricsTextfile string
	leaderboardSize int

	started bool
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRateTable sets the eco-points rate table for new events.
func WithRateTable(t RateTable) Option {
	return func(s *Service) {
		if t != nil {
			s.rates = t
		}
	}
}

// WithStore sets the snapshot store. It takes precedence over WithSnapshotPath.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithSnapshotPath opens a SQLite snapshot store at path on Start.
func WithSnapshotPath(path string) Option {
	return func(s *Service) {
		s.snapshotPath = path
	}
}

// WithDumpPath writes a YAML copy of the registry on every save.
func WithDumpPath(path string) Option {
	return func(s *Service) {
		s.dumpPath = path
	}
}

// WithMetricsTextfile exports metrics to path on every save.
func WithMetricsTextfile(path string) Option {
	return func(s *Service) {
		s.metricsTextfile = path
	}
}

// WithMetrics sets the metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithClock sets the time source for join dates, event dates and saves.
func WithClock(c model.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLeaderboardSize caps Leaderboard results. Zero means no cap.
func WithLeaderboardSize(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.leaderboardSize = n
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		rates:           scoring.NewTable(),
		clock:           time.Now,
		leaderboardSize: 5,
	}

	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Nop()
	}
	if s.metrics == nil {
		s.metrics = metrics.Default()
	}
	s.registry = s.newRegistry()

	return s
}

func (s *Service) newRegistry() *model.Registry {
	return model.NewRegistry(model.WithScorer(s.rates), model.WithClock(s.clock))
}

// Start opens the store and restores the last snapshot. A missing snapshot
// starts an empty registry; an unreadable one is logged and also starts
// empty. Only a store that cannot be opened at all is returned as an error.
func (s *Service) Start(ctx context.Context) error {
	if s.started {
		return nil
	}

	if s.store == nil {
		store, err := s.openStore(ctx)
		if err != nil {
			return err
		}
		s.store = store
	}

	s.registry = s.restore(ctx)
	s.refreshTotals()
	s.started = true

	s.logger.Info(ctx, "eco-points session started",
		logger.Int("households", s.registry.Len()),
		logger.String("snapshot", s.snapshotPath),
	)
	return nil
}

func (s *Service) openStore(ctx context.Context) (repository.Store, error) {
	if s.snapshotPath == "" {
		s.logger.Warn(ctx, "no snapshot path configured; data will not survive a restart")
		return repository.NewMemoryStore(), nil
	}

	store, err := repository.NewSQLiteStore(ctx, s.snapshotPath)
	if err == nil {
		return store, nil
	}
	if !errors.Is(err, repository.ErrCorruptSnapshot) {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}

	moved, qerr := repository.Quarantine(s.snapshotPath, s.clock())
	if qerr != nil {
		return nil, fmt.Errorf("open snapshot store: %w", errors.Join(err, qerr))
	}
	s.logger.Error(ctx, "snapshot unreadable; moved aside and starting fresh",
		logger.String("moved_to", moved),
		logger.Error(err),
	)
	s.metrics.RecordSnapshotLoad(loadCorrupt)

	store, err = repository.NewSQLiteStore(ctx, s.snapshotPath)
	if err != nil {
		return nil, fmt.Errorf("recreate snapshot store: %w", err)
	}
	return store, nil
}

func (s *Service) restore(ctx context.Context) *model.Registry {
	snap, err := s.store.Load(ctx)
	if errors.Is(err, repository.ErrNoSnapshot) {
		s.logger.Info(ctx, "no saved data found; starting fresh")
		s.metrics.RecordSnapshotLoad(loadEmpty)
		return s.newRegistry()
	}
	if err != nil {
		s.logger.Error(ctx, "failed to load saved data; starting with an empty registry", logger.Error(err))
		s.metrics.RecordSnapshotLoad(loadCorrupt)
		return s.newRegistry()
	}

	reg, err := snap.ToRegistry(model.WithScorer(s.rates), model.WithClock(s.clock))
	if err != nil {
		s.logger.Error(ctx, "saved data is inconsistent; starting with an empty registry", logger.Error(err))
		s.metrics.RecordSnapshotLoad(loadCorrupt)
		return s.newRegistry()
	}

	s.logger.Info(ctx, "household data loaded",
		logger.Int("households", reg.Len()),
		logger.Any("saved_at", snap.SavedAt),
	)
	s.metrics.RecordSnapshotLoad(loadOK)
	return reg
}

// Stop closes the store. Unsaved changes are discarded.
func (s *Service) Stop(ctx context.Context) {
	if !s.started {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "closing snapshot store", logger.Error(err))
	}
	s.started = false
	s.logger.Info(ctx, "eco-points session stopped")
}

// Register adds a household joined now.
func (s *Service) Register(ctx context.Context, id, name, address string) (*model.Household, error) {
	if !s.started {
		return nil, ErrNotStarted
	}
	h, err := s.registry.Register(id, name, address)
	if err != nil {
		s.reject(ctx, "register", err, logger.String("id", id))
		return nil, err
	}

	s.metrics.RecordHouseholdRegistered()
	s.refreshTotals()
	s.logger.Info(ctx, "household registered",
		logger.String("id", h.ID()),
		logger.Any("join_date", h.JoinDate()),
	)
	return h, nil
}

// LogEvent records a recycling submission for a registered household.
func (s *Service) LogEvent(ctx context.Context, householdID, material string, weight float64) (model.RecyclingEvent, error) {
	if !s.started {
		return model.RecyclingEvent{}, ErrNotStarted
	}
	e, err := s.registry.AddEvent(householdID, material, weight)
	if err != nil {
		s.reject(ctx, "log_event", err,
			logger.String("household_id", householdID),
			logger.Float64("weight", weight),
		)
		return model.RecyclingEvent{}, err
	}

	label := otherMaterial
	known := s.rates.Known(material)
	if known {
		label, _ = s.rates.Canonical(material)
	} else {
		s.logger.Warn(ctx, "material not in rate table; default rate applied",
			logger.String("material", material),
			logger.Float64("rate", s.rates.Rate(material)),
		)
	}
	s.metrics.RecordEventLogged(label, e.Weight(), e.EcoPoints())
	s.refreshTotals()
	s.logger.Debug(ctx, "recycling event logged",
		logger.String("household_id", householdID),
		logger.String("event_id", e.ID()),
		logger.String("material", e.MaterialType()),
		logger.Bool("known_material", known),
		logger.Float64("weight", e.Weight()),
		logger.Float64("eco_points", e.EcoPoints()),
	)
	return e, nil
}

// Household looks up one household.
func (s *Service) Household(id string) (*model.Household, error) {
	return s.registry.Find(id)
}

// Households lists households in registration order.
func (s *Service) Households() []*model.Household {
	return s.registry.Households()
}

// Materials lists the labels with their own rate, for prompts.
func (s *Service) Materials() []string {
	return s.rates.Materials()
}

// Report summarizes the whole registry.
func (s *Service) Report() report.Summary {
	return report.Summarize(s.registry)
}

// Leaderboard ranks households by eco-points, capped by the configured size.
func (s *Service) Leaderboard() []types.Entry {
	return report.Leaderboard(s.registry, s.leaderboardSize)
}

// Save writes the snapshot, then the YAML dump and metrics textfile when
// configured. A failed snapshot write wraps ErrSnapshotNotSaved and skips the
// dump; any other error means the snapshot is committed.
func (s *Service) Save(ctx context.Context) error {
	if !s.started {
		return ErrNotStarted
	}
	now := s.clock()
	snap := repository.FromRegistry(s.registry, now)

	start := time.Now()
	err := s.store.Save(ctx, snap)
	s.metrics.RecordSnapshotSave(err, time.Since(start), now)
	if err != nil {
		s.logger.Error(ctx, "saving snapshot failed", logger.Error(err))
		return fmt.Errorf("%w: %w", ErrSnapshotNotSaved, err)
	}
	s.logger.Info(ctx, "snapshot saved",
		logger.Int("households", len(snap.Households)),
		logger.Duration("took", time.Since(start)),
	)

	var errs []error
	if s.dumpPath != "" {
		if err := dump.WriteFile(s.dumpPath, snap); err != nil {
			s.logger.Error(ctx, "writing readable dump failed", logger.String("path", s.dumpPath), logger.Error(err))
			errs = append(errs, fmt.Errorf("write dump: %w", err))
		}
	}
	if s.metricsTextfile != "" {
		if err := s.metrics.WriteTextfile(s.metricsTextfile); err != nil {
			s.logger.Warn(ctx, "exporting metrics failed", logger.String("path", s.metricsTextfile), logger.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) refreshTotals() {
	sum := report.Summarize(s.registry)
	s.metrics.UpdateRegistryTotals(sum.Households, sum.TotalWeight, sum.TotalPoints)
}

func (s *Service) reject(ctx context.Context, op string, err error, fields ...logger.Field) {
	reason := "other"
	switch {
	case errors.Is(err, model.ErrDuplicateID):
		reason = "duplicate_id"
	case errors.Is(err, model.ErrNotFound):
		reason = "not_found"
	case errors.Is(err, model.ErrInvalidWeight):
		reason = "invalid_weight"
	case errors.Is(err, model.ErrInvalidID):
		reason = "invalid_id"
	}
	s.metrics.RecordRejected(op, reason)
	s.logger.Info(ctx, "operation rejected",
		append(fields, logger.String("operation", op), logger.String("reason", reason))...)
}
