package model

import (
	"fmt"
	"time"
)

// Household is a registered participant with an append-only event log.
type Household struct {
	id       string
	name     string
	address  string
	joinDate time.Time
	events   []RecyclingEvent // oldest first
}

// RestoreHousehold rebuilds a saved household with its events in order.
func RestoreHousehold(id, name, address string, joinDate time.Time, events []RecyclingEvent) (*Household, error) {
	if id == "" {
		return nil, ErrInvalidID
	}
	h := &Household{
		id:       id,
		name:     name,
		address:  address,
		joinDate: joinDate,
		events:   make([]RecyclingEvent, len(events)),
	}
	copy(h.events, events)
	return h, nil
}

func (h *Household) ID() string          { return h.id }
func (h *Household) Name() string        { return h.name }
func (h *Household) Address() string     { return h.address }
func (h *Household) JoinDate() time.Time { return h.joinDate }

// AddEvent appends e to the log. The event is assumed valid.
func (h *Household) AddEvent(e RecyclingEvent) {
	h.events = append(h.events, e)
}

// Events returns a copy of the log in insertion order.
func (h *Household) Events() []RecyclingEvent {
	out := make([]RecyclingEvent, len(h.events))
	copy(out, h.events)
	return out
}

// EventCount returns the number of logged events.
func (h *Household) EventCount() int { return len(h.events) }

// TotalWeight sums the weight of every event, 0 for an empty log.
func (h *Household) TotalWeight() float64 {
	var total float64
	for _, e := range h.events {
		total += e.weight
	}
	return total
}

// TotalPoints sums the eco-points of every event, 0 for an empty log.
func (h *Household) TotalPoints() float64 {
	var total float64
	for _, e := range h.events {
		total += e.ecoPoints
	}
	return total
}

// String renders a one-line summary.
func (h *Household) String() string {
	return fmt.Sprintf("ID: %s, Name: %s, Address: %s, Joined: %s, Events: %d, Total: %.2f kg / %.2f pts",
		h.id, h.name, h.address, FormatDate(h.joinDate), len(h.events), h.TotalWeight(), h.TotalPoints())
}
