package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Save outcomes used as the "result" label.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Manager owns every tracker metric and the registry they live on.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         *prometheus.Registry

	runtimeCollectors bool

	// Activity
	householdsRegistered prometheus.Counter
	eventsLogged         *prometheus.CounterVec
	ecoPointsAwarded     prometheus.Counter
	weightRecycled       prometheus.Counter
	rejectedOperations   *prometheus.CounterVec

	// Registry state
	households        prometheus.Gauge
	communityWeightKg prometheus.Gauge
	communityPoints   prometheus.Gauge

	// Persistence
	snapshotSaves        *prometheus.CounterVec
	snapshotSaveDuration prometheus.Histogram
	snapshotLastSaveUnix prometheus.Gauge
	snapshotLoads        *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by the package-level helpers

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager()
}

// NewManager creates a metrics manager on its own registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "ecopoints",
		subsystem:        "tracker",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      map[string]string{},
	}

	for _, opt := range opts {
		opt(m)
	}
	m.registry = prometheus.NewRegistry()

	m.initializeMetrics()
	if m.runtimeCollectors {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return m
}

func (m *Manager) opts(name, help string) prometheus.Opts {
	return prometheus.Opts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.householdsRegistered = auto.NewCounter(prometheus.CounterOpts(
		m.opts("households_registered_total", "Households registered in this session")))
	m.eventsLogged = auto.NewCounterVec(prometheus.CounterOpts(
		m.opts("events_logged_total", "Recycling events logged, by material")), []string{"material"})
	m.ecoPointsAwarded = auto.NewCounter(prometheus.CounterOpts(
		m.opts("eco_points_awarded_total", "Eco-points awarded to logged events")))
	m.weightRecycled = auto.NewCounter(prometheus.CounterOpts(
		m.opts("weight_recycled_kg_total", "Kilograms recycled in logged events")))
	m.rejectedOperations = auto.NewCounterVec(prometheus.CounterOpts(
		m.opts("rejected_operations_total", "Operations rejected, by operation and reason")), []string{"operation", "reason"})

	m.households = auto.NewGauge(prometheus.GaugeOpts(
		m.opts("households", "Households currently in the registry")))
	m.communityWeightKg = auto.NewGauge(prometheus.GaugeOpts(
		m.opts("community_weight_kg", "Total kilograms recycled by all households")))
	m.communityPoints = auto.NewGauge(prometheus.GaugeOpts(
		m.opts("community_eco_points", "Total eco-points held by all households")))

	m.snapshotSaves = auto.NewCounterVec(prometheus.CounterOpts(
		m.opts("snapshot_saves_total", "Snapshot saves, by result")), []string{"result"})
	m.snapshotSaveDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "snapshot_save_duration_seconds",
		Help:        "Time spent writing a snapshot",
		ConstLabels: m.constLabels,
		Buckets:     m.histogramBuckets,
	})
	m.snapshotLastSaveUnix = auto.NewGauge(prometheus.GaugeOpts(
		m.opts("snapshot_last_save_timestamp_seconds", "Unix time of the last successful save")))
	m.snapshotLoads = auto.NewCounterVec(prometheus.CounterOpts(
		m.opts("snapshot_loads_total", "Snapshot loads at startup, by result")), []string{"result"})
}

// Registry returns the registry the metrics are registered on.
func (m *Manager) Registry() *prometheus.Registry { return m.registry }

// RecordHouseholdRegistered counts a registration.
func (m *Manager) RecordHouseholdRegistered() { m.householdsRegistered.Inc() }

// RecordEventLogged counts an event and its contribution.
func (m *Manager) RecordEventLogged(material string, weightKg, points float64) {
	m.eventsLogged.WithLabelValues(material).Inc()
	m.weightRecycled.Add(weightKg)
	m.ecoPointsAwarded.Add(points)
}

// RecordRejected counts an operation refused with reason.
func (m *Manager) RecordRejected(operation, reason string) {
	m.rejectedOperations.WithLabelValues(operation, reason).Inc()
}

// UpdateRegistryTotals sets the registry gauges.
func (m *Manager) UpdateRegistryTotals(households int, weightKg, points float64) {
	m.households.Set(float64(households))
	m.communityWeightKg.Set(weightKg)
	m.communityPoints.Set(points)
}

// RecordSnapshotSave records the outcome of a save.
func (m *Manager) RecordSnapshotSave(err error, took time.Duration, at time.Time) {
	m.snapshotSaveDuration.Observe(took.Seconds())
	if err != nil {
		m.snapshotSaves.WithLabelValues(ResultError).Inc()
		return
	}
	m.snapshotSaves.WithLabelValues(ResultOK).Inc()
	m.snapshotLastSaveUnix.Set(float64(at.Unix()))
}

// RecordSnapshotLoad records a startup load with a result such as "ok",
// "empty" or "corrupt".
func (m *Manager) RecordSnapshotLoad(result string) {
	m.snapshotLoads.WithLabelValues(result).Inc()
}

// WriteTextfile exports every metric to path in the text exposition format,
// ready for node_exporter's textfile collector.
func (m *Manager) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	return nil
}

// Default returns the process-wide manager.
func Default() *Manager { return globalManager }
