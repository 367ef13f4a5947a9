package repository

import (
	"fmt"
	"time"

	"github.com/okian/ecopoints/internal/domain/model"
)

// CurrentVersion is the snapshot format written by this build.
const CurrentVersion = 1

// Snapshot is the on-disk shape of a registry, decoupled from the model types.
type Snapshot struct {
	Version    int               `yaml:"version"`
	SavedAt    time.Time         `yaml:"saved_at"`
	Households []HouseholdRecord `yaml:"households"`
}

// HouseholdRecord is one household in registration order.
type HouseholdRecord struct {
	ID       string        `yaml:"id"`
	Name     string        `yaml:"name"`
	Address  string        `yaml:"address"`
	JoinDate time.Time     `yaml:"join_date"`
	Events   []EventRecord `yaml:"events"`
}

// EventRecord is one recycling event in log order.
type EventRecord struct {
	ID           string    `yaml:"id"`
	MaterialType string    `yaml:"material_type"`
	WeightKg     float64   `yaml:"weight_kg"`
	RecordedAt   time.Time `yaml:"recorded_at"`
	EcoPoints    float64   `yaml:"eco_points"`
}

// FromRegistry captures the full state of reg.
func FromRegistry(reg *model.Registry, savedAt time.Time) Snapshot {
	households := reg.Households()
	snap := Snapshot{
		Version:    CurrentVersion,
		SavedAt:    savedAt,
		Households: make([]HouseholdRecord, 0, len(households)),
	}
	for _, h := range households {
		events := h.Events()
		rec := HouseholdRecord{
			ID:       h.ID(),
			Name:     h.Name(),
			Address:  h.Address(),
			JoinDate: h.JoinDate(),
			Events:   make([]EventRecord, 0, len(events)),
		}
		for _, e := range events {
			rec.Events = append(rec.Events, EventRecord{
				ID:           e.ID(),
				MaterialType: e.MaterialType(),
				WeightKg:     e.Weight(),
				RecordedAt:   e.Date(),
				EcoPoints:    e.EcoPoints(),
			})
		}
		snap.Households = append(snap.Households, rec)
	}
	return snap
}

// ToRegistry rebuilds a registry from the snapshot. Stored eco-points are kept
// as saved; opts only affect events logged after the restore.
func (s Snapshot) ToRegistry(opts ...model.RegistryOption) (*model.Registry, error) {
	if s.Version < 1 || s.Version > CurrentVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, s.Version)
	}

	households := make([]*model.Household, 0, len(s.Households))
	for _, hr := range s.Households {
		events := make([]model.RecyclingEvent, 0, len(hr.Events))
		for _, er := range hr.Events {
			e, err := model.RestoreRecyclingEvent(er.ID, er.MaterialType, er.WeightKg, er.RecordedAt, er.EcoPoints)
			if err != nil {
				return nil, fmt.Errorf("%w: household %s: %w", ErrCorruptSnapshot, hr.ID, err)
			}
			events = append(events, e)
		}
		h, err := model.RestoreHousehold(hr.ID, hr.Name, hr.Address, hr.JoinDate, events)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
		}
		households = append(households, h)
	}

	reg := model.NewRegistry(opts...)
	if err := reg.Restore(households...); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	return reg, nil
}

// clone deep-copies the snapshot so stores never alias caller slices.
func (s Snapshot) clone() Snapshot {
	out := s
	out.Households = make([]HouseholdRecord, len(s.Households))
	for i, h := range s.Households {
		h.Events = append([]EventRecord(nil), h.Events...)
		out.Households[i] = h
	}
	return out
}
