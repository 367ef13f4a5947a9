package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/ecopoints/internal/domain/scoring"
)

// Clock returns the current time. Injected so tests can pin join and event dates.
type Clock func() time.Time

// RegistryOption applies a configuration option to the Registry.
type RegistryOption func(*Registry)

// WithScorer sets the rate table used for new events.
func WithScorer(s scoring.Scorer) RegistryOption {
	return func(r *Registry) {
		if s != nil {
			r.scorer = s
		}
	}
}

// WithClock sets the time source for join and event dates.
func WithClock(c Clock) RegistryOption {
	return func(r *Registry) {
		if c != nil {
			r.clock = c
		}
	}
}

// Registry maps household ids to households. Iteration follows registration
// order so reports over the same data are reproducible.
//
// Registry is not safe for concurrent use; a session owns exactly one.
type Registry struct {
	byID   map[string]*Household
	order  []*Household
	scorer scoring.Scorer
	clock  Clock
}

// NewRegistry creates an empty registry scored with the default rate table.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		byID:   make(map[string]*Household),
		scorer: scoring.NewTable(),
		clock:  time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register creates a household joined now. The registry is unchanged on error.
func (r *Registry) Register(id, name, address string) (*Household, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidID
	}
	if _, ok := r.byID[id]; ok {
		return nil, fmt.Errorf("register %q: %w", id, ErrDuplicateID)
	}
	h := &Household{
		id:       id,
		name:     name,
		address:  address,
		joinDate: r.clock(),
	}
	r.insert(h)
	return h, nil
}

// Find looks up a household by id.
func (r *Registry) Find(id string) (*Household, error) {
	h, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("find %q: %w", id, ErrNotFound)
	}
	return h, nil
}

// AddEvent records a recycling submission against a registered household.
// Nothing is mutated when the household is unknown or the weight is invalid.
func (r *Registry) AddEvent(householdID, materialType string, weight float64) (RecyclingEvent, error) {
	h, err := r.Find(householdID)
	if err != nil {
		return RecyclingEvent{}, err
	}
	e, err := NewRecyclingEvent(r.scorer, materialType, weight, r.clock())
	if err != nil {
		return RecyclingEvent{}, err
	}
	h.AddEvent(e)
	return e, nil
}

// Households returns every household in registration order.
func (r *Registry) Households() []*Household {
	out := make([]*Household, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered households.
func (r *Registry) Len() int { return len(r.order) }

// Restore inserts previously saved households, preserving argument order.
// It fails without inserting anything if an id is empty or repeated.
func (r *Registry) Restore(households ...*Household) error {
	seen := make(map[string]struct{}, len(households))
	for _, h := range households {
		if h == nil || h.id == "" {
			return ErrInvalidID
		}
		if _, dup := seen[h.id]; dup {
			return fmt.Errorf("restore %q: %w", h.id, ErrDuplicateID)
		}
		if _, dup := r.byID[h.id]; dup {
			return fmt.Errorf("restore %q: %w", h.id, ErrDuplicateID)
		}
		seen[h.id] = struct{}{}
	}
	for _, h := range households {
		r.insert(h)
	}
	return nil
}

func (r *Registry) insert(h *Household) {
	r.byID[h.id] = h
	r.order = append(r.order, h)
}
