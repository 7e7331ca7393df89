package models

import "time"

// Phase numbers for the sequential booking windows of an event.
const (
	PhaseClosed = 0
	PhaseOne    = 1
	PhaseTwo    = 2
)

// Event is a recruiting event with gated booking phases.
//
// Booking opens in two sequential windows. Before Phase1Start no bookings are
// accepted at all; between Phase1Start and Phase2Start each student may hold
// up to Phase1Limit confirmed bookings; from Phase2Start on, up to
// Phase2Limit. An administrator can pin the phase explicitly via
// PhaseOverride, which wins over the time-derived value.
type Event struct {
	ID            string     `db:"id" json:"id"`
	Name          string     `db:"name" json:"name"`
	EventDate     time.Time  `db:"event_date" json:"event_date"`
	Phase1Start   time.Time  `db:"phase1_start" json:"phase1_start"`
	Phase1Limit   int        `db:"phase1_limit" json:"phase1_limit"`
	Phase2Start   time.Time  `db:"phase2_start" json:"phase2_start"`
	Phase2Limit   int        `db:"phase2_limit" json:"phase2_limit"`
	PhaseOverride *int       `db:"phase_override" json:"phase_override,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// PhaseState is the resolved booking phase of an event at a point in time.
type PhaseState struct {
	Phase int `json:"phase"`
	Limit int `json:"limit"`
}

// PhaseAt resolves the event's booking phase at the given instant.
// Pure function of the event row and the clock; no side effects.
func (e *Event) PhaseAt(now time.Time) PhaseState {
	if e.PhaseOverride != nil {
		return PhaseState{Phase: *e.PhaseOverride, Limit: e.limitFor(*e.PhaseOverride)}
	}
	switch {
	case now.Before(e.Phase1Start):
		return PhaseState{Phase: PhaseClosed, Limit: 0}
	case now.Before(e.Phase2Start):
		return PhaseState{Phase: PhaseOne, Limit: e.Phase1Limit}
	default:
		return PhaseState{Phase: PhaseTwo, Limit: e.Phase2Limit}
	}
}

func (e *Event) limitFor(phase int) int {
	switch phase {
	case PhaseOne:
		return e.Phase1Limit
	case PhaseTwo:
		return e.Phase2Limit
	default:
		return 0
	}
}

// EventSlot is a bounded-capacity interview timeslot offered by one company
// for one role. BookedCount tracks confirmed bookings and never exceeds
// Capacity.
type EventSlot struct {
	ID          string    `db:"id" json:"id"`
	EventID     string    `db:"event_id" json:"event_id"`
	CompanyName string    `db:"company_name" json:"company_name"`
	OfferTitle  string    `db:"offer_title" json:"offer_title"`
	StartsAt    time.Time `db:"starts_at" json:"starts_at"`
	EndsAt      time.Time `db:"ends_at" json:"ends_at"`
	Capacity    int       `db:"capacity" json:"capacity"`
	BookedCount int       `db:"booked_count" json:"booked_count"`
	Active      bool      `db:"active" json:"active"`
}

// Remaining returns the free capacity of the slot.
func (s *EventSlot) Remaining() int {
	if r := s.Capacity - s.BookedCount; r > 0 {
		return r
	}
	return 0
}
