package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/recruit-booking-api/internal/models"
)

// RateLimitRepository owns the append-only failed-attempt log backing the
// authentication throttle. Rows are only ever inserted, counted within a
// trailing window, and purged once they can no longer influence a decision.
type RateLimitRepository struct {
	db *sqlx.DB
}

// NewRateLimitRepository constructs the repository.
func NewRateLimitRepository(db *sqlx.DB) *RateLimitRepository {
	return &RateLimitRepository{db: db}
}

// Record appends a failed attempt.
func (r *RateLimitRepository) Record(ctx context.Context, attempt *models.FailedAttempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO failed_attempts (id, email, ip_address, action, created_at)
VALUES (:id, :email, :ip_address, :action, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, attempt); err != nil {
		return fmt.Errorf("record failed attempt: %w", err)
	}
	return nil
}

// WindowCount holds the attempts counted inside the window and the oldest
// counted timestamp, from which the caller derives the wait time.
type WindowCount struct {
	Count  int
	Oldest sql.NullTime
}

// CountInWindow counts attempts for the action since the given instant,
// matching on either the email or the IP so rotating one axis alone cannot
// reset the counter.
func (r *RateLimitRepository) CountInWindow(ctx context.Context, email, ip, action string, since time.Time) (*WindowCount, error) {
	const query = `SELECT COUNT(*) AS count, MIN(created_at) AS oldest
FROM failed_attempts
WHERE action = $1 AND created_at >= $2 AND (email = $3 OR ip_address = $4)`
	var wc WindowCount
	row := r.db.QueryRowxContext(ctx, query, action, since, email, ip)
	if err := row.Scan(&wc.Count, &wc.Oldest); err != nil {
		return nil, fmt.Errorf("count attempts in window: %w", err)
	}
	return &wc, nil
}

// PurgeBefore deletes attempts older than the cutoff. Expired rows no longer
// affect any window count, so removing them is safe bookkeeping.
func (r *RateLimitRepository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM failed_attempts WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge failed attempts: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge failed attempts: %w", err)
	}
	return deleted, nil
}
