// Package metrics provides Prometheus metrics for the eco-points tracker.
package metrics

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithConstLabels attaches constant labels to every metric, e.g. the
// collection site a textfile export belongs to.
func WithConstLabels(labels map[string]string) Option {
	return func(m *Manager) {
		if len(labels) > 0 {
			m.constLabels = labels
		}
	}
}

// WithRuntimeCollectors adds Go runtime and process metrics to the registry.
func WithRuntimeCollectors() Option {
	return func(m *Manager) {
		m.runtimeCollectors = true
	}
}
