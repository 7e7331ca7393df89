package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/recruit-booking-api/internal/models"
	appErrors "github.com/noah-isme/recruit-booking-api/pkg/errors"
)

// BookingRepository owns all mutation of bookings and slot occupancy.
// Every check-and-write sequence runs inside a single transaction so that
// concurrent requests against the same slot or the same student's quota are
// serialised at the database.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository constructs the repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// CreateBooking books one unit of slot capacity for the student, atomically.
//
// Two locks serialise the contended state:
//   - pg_advisory_xact_lock on (student, event) covers the per-student quota,
//     which is contended by the same student booking different slots;
//   - SELECT ... FOR UPDATE on the slot row covers capacity, which is
//     contended by different students booking the same slot.
//
// The advisory lock is always taken first so concurrent Book calls acquire
// locks in a consistent order. Precondition failures come back as typed
// errors and roll the transaction back.
func (r *BookingRepository) CreateBooking(ctx context.Context, studentID, slotID string, now time.Time) (booking *models.Booking, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin booking transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var eventID string
	if err = tx.GetContext(ctx, &eventID, `SELECT event_id FROM event_slots WHERE id = $1`, slotID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrBookingClosed, "slot does not exist")
		}
		return nil, fmt.Errorf("resolve slot event: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1), hashtext($2))`, studentID, eventID); err != nil {
		return nil, fmt.Errorf("lock student quota: %w", err)
	}

	var slot models.EventSlot
	const slotQuery = `SELECT id, event_id, company_name, offer_title, starts_at, ends_at, capacity, booked_count, active
FROM event_slots WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &slot, slotQuery, slotID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrBookingClosed, "slot does not exist")
		}
		return nil, fmt.Errorf("lock slot row: %w", err)
	}

	var event models.Event
	const eventQuery = `SELECT id, name, event_date, phase1_start, phase1_limit, phase2_start, phase2_limit, phase_override, created_at
FROM events WHERE id = $1`
	if err = tx.GetContext(ctx, &event, eventQuery, slot.EventID); err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}

	phase := event.PhaseAt(now)
	if !slot.Active || phase.Phase == models.PhaseClosed {
		return nil, appErrors.ErrBookingClosed
	}

	var duplicates int
	if err = tx.GetContext(ctx, &duplicates,
		`SELECT COUNT(*) FROM bookings WHERE slot_id = $1 AND student_id = $2 AND status = $3`,
		slotID, studentID, models.BookingStatusConfirmed); err != nil {
		return nil, fmt.Errorf("check duplicate booking: %w", err)
	}
	if duplicates > 0 {
		return nil, appErrors.ErrDuplicateBooking
	}

	// Quota is cumulative across phases: every confirmed booking for the
	// event counts, whichever phase created it.
	var held int
	if err = tx.GetContext(ctx, &held,
		`SELECT COUNT(*) FROM bookings WHERE event_id = $1 AND student_id = $2 AND status = $3`,
		slot.EventID, studentID, models.BookingStatusConfirmed); err != nil {
		return nil, fmt.Errorf("count student bookings: %w", err)
	}
	if held >= phase.Limit {
		return nil, appErrors.ErrQuotaExceeded
	}

	if slot.BookedCount >= slot.Capacity {
		return nil, appErrors.ErrSlotFull
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE event_slots SET booked_count = booked_count + 1 WHERE id = $1`, slotID); err != nil {
		return nil, fmt.Errorf("increment slot occupancy: %w", err)
	}

	booking = &models.Booking{
		ID:           uuid.NewString(),
		SlotID:       slotID,
		EventID:      slot.EventID,
		StudentID:    studentID,
		Status:       models.BookingStatusConfirmed,
		BookingPhase: phase.Phase,
		CreatedAt:    now,
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO bookings (id, slot_id, event_id, student_id, status, booking_phase, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		booking.ID, booking.SlotID, booking.EventID, booking.StudentID, booking.Status, booking.BookingPhase, booking.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert booking: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit booking: %w", err)
	}
	return booking, nil
}

// CancelBooking marks the booking cancelled and frees its capacity unit,
// atomically. Cancellation is permitted in any phase and never re-checks
// quota.
func (r *BookingRepository) CancelBooking(ctx context.Context, studentID, bookingID string, now time.Time) (booking *models.Booking, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin cancel transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var b models.Booking
	const query = `SELECT id, slot_id, event_id, student_id, status, booking_phase, created_at, cancelled_at
FROM bookings WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &b, query, bookingID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, fmt.Errorf("lock booking row: %w", err)
	}

	if b.StudentID != studentID {
		return nil, appErrors.ErrNotOwner
	}
	if b.Status != models.BookingStatusConfirmed {
		return nil, appErrors.ErrAlreadyCancelled
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE bookings SET status = $2, cancelled_at = $3 WHERE id = $1`,
		bookingID, models.BookingStatusCancelled, now); err != nil {
		return nil, fmt.Errorf("cancel booking: %w", err)
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE event_slots SET booked_count = booked_count - 1 WHERE id = $1`, b.SlotID); err != nil {
		return nil, fmt.Errorf("decrement slot occupancy: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit cancellation: %w", err)
	}

	b.Status = models.BookingStatusCancelled
	b.CancelledAt = &now
	return &b, nil
}

// ListByStudent returns the student's bookings for an event, newest first.
// An empty eventID returns bookings across all events.
func (r *BookingRepository) ListByStudent(ctx context.Context, studentID, eventID string) ([]models.BookingDetail, error) {
	query := `SELECT b.id, b.slot_id, b.event_id, b.student_id, b.status, b.booking_phase, b.created_at, b.cancelled_at,
	s.company_name, s.offer_title, s.starts_at, s.ends_at
FROM bookings b
JOIN event_slots s ON s.id = b.slot_id
WHERE b.student_id = $1`
	args := []interface{}{studentID}
	if eventID != "" {
		query += " AND b.event_id = $2"
		args = append(args, eventID)
	}
	query += " ORDER BY b.created_at DESC"

	var bookings []models.BookingDetail
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("list student bookings: %w", err)
	}
	return bookings, nil
}

// ListRoster returns the event's confirmed bookings joined with student and
// slot details, ordered by slot start time.
func (r *BookingRepository) ListRoster(ctx context.Context, eventID string) ([]models.RosterEntry, error) {
	const query = `SELECT b.id AS booking_id, u.full_name AS student_name, u.email AS student_email,
	s.company_name, s.offer_title, s.starts_at, s.ends_at, b.booking_phase, b.created_at
FROM bookings b
JOIN users u ON u.id = b.student_id
JOIN event_slots s ON s.id = b.slot_id
WHERE b.event_id = $1 AND b.status = $2
ORDER BY s.starts_at, u.full_name`

	var roster []models.RosterEntry
	if err := r.db.SelectContext(ctx, &roster, query, eventID, models.BookingStatusConfirmed); err != nil {
		return nil, fmt.Errorf("list event roster: %w", err)
	}
	return roster, nil
}

// CountConfirmed returns the student's confirmed booking count for an event.
func (r *BookingRepository) CountConfirmed(ctx context.Context, studentID, eventID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM bookings WHERE event_id = $1 AND student_id = $2 AND status = $3`,
		eventID, studentID, models.BookingStatusConfirmed); err != nil {
		return 0, fmt.Errorf("count confirmed bookings: %w", err)
	}
	return count, nil
}
