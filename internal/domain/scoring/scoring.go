// Package scoring defines the eco-points reward policy: a per-material rate
// table with a fallback rate for labels outside the canonical set.
package scoring

import (
	"sort"
	"strings"
)

// Canonical material labels.
const (
	Plastic = "Plastic"
	Glass   = "Glass"
	Metal   = "Metal"
	Paper   = "Paper"
)

// Default rates in points per kilogram.
const (
	defaultPlasticRate = 10.0
	defaultGlassRate   = 8.0
	defaultMetalRate   = 15.0
	defaultPaperRate   = 5.0
	defaultFallback    = 2.0
)

// DefaultRates returns a fresh copy of the built-in rate table keyed by
// canonical label.
func DefaultRates() map[string]float64 {
	return map[string]float64{
		Plastic: defaultPlasticRate,
		Glass:   defaultGlassRate,
		Metal:   defaultMetalRate,
		Paper:   defaultPaperRate,
	}
}

// DefaultFallbackRate is applied to labels the table does not know.
func DefaultFallbackRate() float64 { return defaultFallback }

// Scorer computes eco-points for a recycling submission.
type Scorer interface {
	// Rate returns the points-per-kg multiplier for a material label.
	Rate(material string) float64
	// ComputeEcoPoints returns weight × Rate(material).
	ComputeEcoPoints(material string, weight float64) float64
}

// Option applies a configuration option to the Table.
type Option func(*Table)

// WithRates replaces the rate table. Keys are matched case-insensitively and
// non-positive rates are dropped. When two keys differ only in case, the one
// sorting last sets the rate and the first keeps its spelling as the label.
func WithRates(rates map[string]float64) Option {
	return func(t *Table) {
		if rates == nil {
			return
		}
		t.rates = make(map[string]float64, len(rates))
		t.labels = make(map[string]string, len(rates))
		keys := make([]string, 0, len(rates))
		for material := range rates {
			keys = append(keys, material)
		}
		sort.Strings(keys)
		for _, material := range keys {
			if rate := rates[material]; rate > 0 {
				t.set(material, rate)
			}
		}
	}
}

// WithDefaultRate sets the fallback rate for unknown materials.
func WithDefaultRate(rate float64) Option {
	return func(t *Table) {
		if rate > 0 {
			t.defaultRate = rate
		}
	}
}

// Table is an immutable material -> rate lookup. Safe to share once built.
type Table struct {
	rates       map[string]float64 // normalized label -> rate
	labels      map[string]string  // normalized label -> display label
	defaultRate float64
}

// NewTable creates a rate table seeded with DefaultRates.
func NewTable(opts ...Option) *Table {
	t := &Table{
		rates:       make(map[string]float64),
		labels:      make(map[string]string),
		defaultRate: defaultFallback,
	}
	for material, rate := range DefaultRates() {
		t.set(material, rate)
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

func (t *Table) set(material string, rate float64) {
	key := normalize(material)
	if key == "" {
		return
	}
	t.rates[key] = rate
	if _, ok := t.labels[key]; !ok {
		t.labels[key] = strings.TrimSpace(material)
	}
}

// Rate returns the multiplier for material, or the default rate.
func (t *Table) Rate(material string) float64 {
	if rate, ok := t.rates[normalize(material)]; ok {
		return rate
	}
	return t.defaultRate
}

// DefaultRate returns the fallback multiplier.
func (t *Table) DefaultRate() float64 { return t.defaultRate }

// Known reports whether material has its own entry in the table.
func (t *Table) Known(material string) bool {
	_, ok := t.rates[normalize(material)]
	return ok
}

// Canonical returns the table's spelling of material, e.g. "Plastic" for
// " plastic". ok is false for unknown materials.
func (t *Table) Canonical(material string) (label string, ok bool) {
	label, ok = t.labels[normalize(material)]
	return label, ok
}

// ComputeEcoPoints returns weight × Rate(material). It does not validate weight.
func (t *Table) ComputeEcoPoints(material string, weight float64) float64 {
	return weight * t.Rate(material)
}

// Materials lists the configured labels sorted alphabetically.
func (t *Table) Materials() []string {
	out := make([]string, 0, len(t.labels))
	for _, label := range t.labels {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

func normalize(material string) string {
	return strings.ToLower(strings.TrimSpace(material))
}
