package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/recruit-booking-api/internal/models"
)

// EventRepository handles persistence of events and their slots.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs the repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, name, event_date, phase1_start, phase1_limit, phase2_start, phase2_limit, phase_override, created_at`

// List returns all events ordered by date.
func (r *EventRepository) List(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	query := fmt.Sprintf(`SELECT %s FROM events ORDER BY event_date ASC`, eventColumns)
	if err := r.db.SelectContext(ctx, &events, query); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// FindByID returns an event by its ID.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	query := fmt.Sprintf(`SELECT %s FROM events WHERE id = $1`, eventColumns)
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		return nil, err
	}
	return &event, nil
}

// SetPhaseOverride pins the event phase explicitly. A nil phase clears the
// override so the phase derives from time again.
func (r *EventRepository) SetPhaseOverride(ctx context.Context, id string, phase *int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE events SET phase_override = $2 WHERE id = $1`, id, phase)
	if err != nil {
		return fmt.Errorf("set phase override: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set phase override: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
