package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/recruit-booking-api/internal/models"
)

// SlotRepository reads event slots. Occupancy mutation belongs exclusively
// to BookingRepository.
type SlotRepository struct {
	db *sqlx.DB
}

// NewSlotRepository constructs the repository.
func NewSlotRepository(db *sqlx.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

const slotColumns = `id, event_id, company_name, offer_title, starts_at, ends_at, capacity, booked_count, active`

// ListByEvent returns the active slots of an event ordered by start time.
func (r *SlotRepository) ListByEvent(ctx context.Context, eventID string) ([]models.EventSlot, error) {
	var slots []models.EventSlot
	query := fmt.Sprintf(`SELECT %s FROM event_slots WHERE event_id = $1 AND active = TRUE ORDER BY starts_at ASC`, slotColumns)
	if err := r.db.SelectContext(ctx, &slots, query, eventID); err != nil {
		return nil, fmt.Errorf("list event slots: %w", err)
	}
	return slots, nil
}

// FindByID returns a slot by its ID.
func (r *SlotRepository) FindByID(ctx context.Context, id string) (*models.EventSlot, error) {
	var slot models.EventSlot
	query := fmt.Sprintf(`SELECT %s FROM event_slots WHERE id = $1`, slotColumns)
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, err
	}
	return &slot, nil
}
