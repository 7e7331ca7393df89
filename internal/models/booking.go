package models

import "time"

// BookingStatus enumerates the lifecycle states of a booking.
type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// Booking is one student's reservation of one interview slot. Rows are
// append-only: a cancellation flips the status and stamps cancelled_at, the
// row itself is never deleted. BookingPhase records the phase in effect when
// the booking was created and is kept for audit even after the event's phase
// advances.
type Booking struct {
	ID           string        `db:"id" json:"id"`
	SlotID       string        `db:"slot_id" json:"slot_id"`
	EventID      string        `db:"event_id" json:"event_id"`
	StudentID    string        `db:"student_id" json:"student_id"`
	Status       BookingStatus `db:"status" json:"status"`
	BookingPhase int           `db:"booking_phase" json:"booking_phase"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	CancelledAt  *time.Time    `db:"cancelled_at" json:"cancelled_at,omitempty"`
}

// BookingDetail joins a booking with its slot context for listings.
type BookingDetail struct {
	Booking
	CompanyName string    `db:"company_name" json:"company_name"`
	OfferTitle  string    `db:"offer_title" json:"offer_title"`
	StartsAt    time.Time `db:"starts_at" json:"starts_at"`
	EndsAt      time.Time `db:"ends_at" json:"ends_at"`
}

// RosterEntry is one line of an event's interview roster, joining the
// confirmed booking with the student and the slot it occupies.
type RosterEntry struct {
	BookingID    string    `db:"booking_id"`
	StudentName  string    `db:"student_name"`
	StudentEmail string    `db:"student_email"`
	CompanyName  string    `db:"company_name"`
	OfferTitle   string    `db:"offer_title"`
	StartsAt     time.Time `db:"starts_at"`
	EndsAt       time.Time `db:"ends_at"`
	BookingPhase int       `db:"booking_phase"`
	CreatedAt    time.Time `db:"created_at"`
}
