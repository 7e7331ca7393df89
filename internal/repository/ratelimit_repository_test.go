package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/recruit-booking-api/internal/models"
)

func TestRateLimitRepositoryRecordDefaultsIDAndTimestamp(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRateLimitRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO failed_attempts")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	email := "student@example.com"
	attempt := &models.FailedAttempt{Email: &email, IPAddress: "10.0.0.1", Action: models.ActionLogin}
	require.NoError(t, repo.Record(context.Background(), attempt))
	assert.NotEmpty(t, attempt.ID)
	assert.False(t, attempt.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimitRepositoryCountInWindow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRateLimitRepository(db)

	since := time.Date(2026, 3, 5, 11, 45, 0, 0, time.UTC)
	oldest := since.Add(2 * time.Minute)
	rows := sqlmock.NewRows([]string{"count", "oldest"}).AddRow(5, oldest)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) AS count, MIN(created_at) AS oldest")).
		WithArgs(models.ActionLogin, since, "student@example.com", "10.0.0.1").
		WillReturnRows(rows)

	wc, err := repo.CountInWindow(context.Background(), "student@example.com", "10.0.0.1", models.ActionLogin, since)
	require.NoError(t, err)
	assert.Equal(t, 5, wc.Count)
	require.True(t, wc.Oldest.Valid)
	assert.Equal(t, oldest, wc.Oldest.Time)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimitRepositoryCountInWindowEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRateLimitRepository(db)

	rows := sqlmock.NewRows([]string{"count", "oldest"}).AddRow(0, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) AS count, MIN(created_at) AS oldest")).
		WillReturnRows(rows)

	wc, err := repo.CountInWindow(context.Background(), "", "10.0.0.1", models.ActionSignup, time.Now().UTC())
	require.NoError(t, err)
	assert.Zero(t, wc.Count)
	assert.False(t, wc.Oldest.Valid)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimitRepositoryPurgeBefore(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRateLimitRepository(db)

	cutoff := time.Date(2026, 3, 5, 11, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM failed_attempts WHERE created_at < $1")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 7))

	deleted, err := repo.PurgeBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(7), deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}
