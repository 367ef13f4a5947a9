// Package model contains the household registry and its recycling events.
package model

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/okian/ecopoints/internal/domain/scoring"
)

// DateLayout is used when rendering dates for people.
const DateLayout = "2006-01-02 15:04:05"

// FormatDate renders t in the local zone. Dates restored from storage and
// dates taken from a live clock print the same for the same instant.
func FormatDate(t time.Time) string {
	return t.Local().Format(DateLayout)
}

// RecyclingEvent is one recorded submission. Its eco-points are computed
// once at construction and never change afterwards.
type RecyclingEvent struct {
	id           string
	materialType string
	weight       float64   // kilograms, always > 0
	date         time.Time // construction time
	ecoPoints    float64
}

// NewRecyclingEvent validates weight and freezes the points awarded by scorer.
func NewRecyclingEvent(scorer scoring.Scorer, materialType string, weight float64, at time.Time) (RecyclingEvent, error) {
	if err := ValidateWeight(weight); err != nil {
		return RecyclingEvent{}, err
	}
	return RecyclingEvent{
		id:           uuid.NewString(),
		materialType: materialType,
		weight:       weight,
		date:         at,
		ecoPoints:    scorer.ComputeEcoPoints(materialType, weight),
	}, nil
}

// RestoreRecyclingEvent rebuilds a previously saved event verbatim.
// Points are taken as stored and are not recomputed against the current rates.
func RestoreRecyclingEvent(id, materialType string, weight float64, date time.Time, ecoPoints float64) (RecyclingEvent, error) {
	if err := ValidateWeight(weight); err != nil {
		return RecyclingEvent{}, fmt.Errorf("event %s: %w", id, err)
	}
	if id == "" {
		id = uuid.NewString()
	}
	return RecyclingEvent{
		id:           id,
		materialType: materialType,
		weight:       weight,
		date:         date,
		ecoPoints:    ecoPoints,
	}, nil
}

// ValidateWeight rejects non-positive and non-finite weights.
func ValidateWeight(weight float64) error {
	if math.IsNaN(weight) || math.IsInf(weight, 0) || weight <= 0 {
		return ErrInvalidWeight
	}
	return nil
}

func (e RecyclingEvent) ID() string           { return e.id }
func (e RecyclingEvent) MaterialType() string { return e.materialType }
func (e RecyclingEvent) Weight() float64      { return e.weight }
func (e RecyclingEvent) Date() time.Time      { return e.date }
func (e RecyclingEvent) EcoPoints() float64   { return e.ecoPoints }

// String renders the event for display.
func (e RecyclingEvent) String() string {
	return fmt.Sprintf("Material: %s, Weight: %.2f kg, Date: %s, Eco-points: %.2f",
		e.materialType, e.weight, FormatDate(e.date), e.ecoPoints)
}
