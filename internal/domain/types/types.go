// Package types contains presentation-neutral types shared across layers.
package types

// Entry is one row of the household leaderboard.
type Entry struct {
	Rank        int     `json:"rank" yaml:"rank"`
	HouseholdID string  `json:"household_id" yaml:"household_id"`
	Name        string  `json:"name" yaml:"name"`
	Points      float64 `json:"points" yaml:"points"`
	WeightKg    float64 `json:"weight_kg" yaml:"weight_kg"`
}
