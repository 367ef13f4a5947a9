// Package report computes cross-household aggregates. Every call recomputes
// from the event logs; nothing is cached.
package report

import (
	"sort"

	"github.com/okian/ecopoints/internal/domain/model"
	"github.com/okian/ecopoints/internal/domain/types"
)

// Source yields households in a fixed traversal order.
type Source interface {
	Households() []*model.Household
}

// TopHousehold returns the household with the most eco-points. Ties go to the
// one that comes first in src. ok is false when src is empty.
func TopHousehold(src Source) (top *model.Household, ok bool) {
	best := 0.0
	for _, h := range src.Households() {
		points := h.TotalPoints()
		if top == nil || points > best {
			top, best = h, points
		}
	}
	return top, top != nil
}

// CommunityTotalWeight sums the recycled weight of every household.
func CommunityTotalWeight(src Source) float64 {
	var total float64
	for _, h := range src.Households() {
		total += h.TotalWeight()
	}
	return total
}

// Leaderboard ranks households by points descending, keeping traversal order
// among equals. limit <= 0 returns every household.
func Leaderboard(src Source, limit int) []types.Entry {
	households := src.Households()
	entries := make([]types.Entry, len(households))
	for i, h := range households {
		entries[i] = types.Entry{
			HouseholdID: h.ID(),
			Name:        h.Name(),
			Points:      h.TotalPoints(),
			WeightKg:    h.TotalWeight(),
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Points > entries[j].Points
	})
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// Summary is the data behind the reports screen.
type Summary struct {
	Households  int
	Events      int
	TotalWeight float64
	TotalPoints float64
	Top         *model.Household // nil when there are no households
}

// Summarize computes a Summary in a single pass over src.
func Summarize(src Source) Summary {
	var s Summary
	best := 0.0
	for _, h := range src.Households() {
		points := h.TotalPoints()
		s.Households++
		s.Events += h.EventCount()
		s.TotalWeight += h.TotalWeight()
		s.TotalPoints += points
		if s.Top == nil || points > best {
			s.Top, best = h, points
		}
	}
	return s
}
