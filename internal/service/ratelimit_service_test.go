package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/recruit-booking-api/internal/models"
	"github.com/noah-isme/recruit-booking-api/internal/repository"
	"github.com/noah-isme/recruit-booking-api/pkg/config"
)

type stubAttemptStore struct {
	mu        sync.Mutex
	count     *repository.WindowCount
	countErr  error
	recorded  []*models.FailedAttempt
	recordErr error
	purged    []time.Time
}

func (s *stubAttemptStore) Record(ctx context.Context, attempt *models.FailedAttempt) error {
	s.recorded = append(s.recorded, attempt)
	return s.recordErr
}

func (s *stubAttemptStore) CountInWindow(ctx context.Context, email, ip, action string, since time.Time) (*repository.WindowCount, error) {
	if s.countErr != nil {
		return nil, s.countErr
	}
	return s.count, nil
}

func (s *stubAttemptStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purged = append(s.purged, cutoff)
	return 0, nil
}

func (s *stubAttemptStore) purgeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.purged)
}

type stubThrottleMetrics struct {
	decisions []bool
	degraded  int
}

func (m *stubThrottleMetrics) ObserveRateLimit(action string, allowed bool) {
	m.decisions = append(m.decisions, allowed)
}

func (m *stubThrottleMetrics) ObserveThrottleDegraded() { m.degraded++ }

func throttleConfig() config.RateLimitConfig {
	return config.RateLimitConfig{MaxAttempts: 5, Window: 15 * time.Minute}
}

func TestRateLimitServiceAllowsUnderLimit(t *testing.T) {
	store := &stubAttemptStore{count: &repository.WindowCount{Count: 4}}
	metrics := &stubThrottleMetrics{}
	svc := NewRateLimitService(store, metrics, nil, throttleConfig())

	decision := svc.Check(context.Background(), "student@example.com", "10.0.0.1", models.ActionLogin)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 1, decision.Remaining)
	assert.Zero(t, decision.WaitTime)
	assert.Equal(t, []bool{true}, metrics.decisions)
}

func TestRateLimitServiceDeniesAtLimitWithWaitTime(t *testing.T) {
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	oldest := now.Add(-10 * time.Minute)
	store := &stubAttemptStore{count: &repository.WindowCount{
		Count:  5,
		Oldest: sql.NullTime{Time: oldest, Valid: true},
	}}
	svc := NewRateLimitService(store, nil, nil, throttleConfig())
	svc.now = func() time.Time { return now }

	decision := svc.Check(context.Background(), "student@example.com", "10.0.0.1", models.ActionLogin)
	assert.False(t, decision.Allowed)
	assert.Zero(t, decision.Remaining)
	// Oldest counted attempt ages out 5 minutes from now.
	assert.Equal(t, 5*time.Minute, decision.WaitTime)
	assert.Equal(t, 5, decision.WaitMinutes())
}

func TestRateLimitServiceWaitNeverNegative(t *testing.T) {
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	store := &stubAttemptStore{count: &repository.WindowCount{
		Count:  6,
		Oldest: sql.NullTime{Time: now.Add(-20 * time.Minute), Valid: true},
	}}
	svc := NewRateLimitService(store, nil, nil, throttleConfig())
	svc.now = func() time.Time { return now }

	decision := svc.Check(context.Background(), "student@example.com", "10.0.0.1", models.ActionLogin)
	assert.False(t, decision.Allowed)
	assert.Zero(t, decision.WaitTime)
}

func TestRateLimitServiceFailsOpenOnStorageError(t *testing.T) {
	store := &stubAttemptStore{countErr: errors.New("connection refused")}
	metrics := &stubThrottleMetrics{}
	svc := NewRateLimitService(store, metrics, nil, throttleConfig())

	decision := svc.Check(context.Background(), "student@example.com", "10.0.0.1", models.ActionLogin)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 5, decision.Remaining)
	assert.Equal(t, 1, metrics.degraded)
	assert.Empty(t, metrics.decisions)
}

func TestRateLimitServiceRecordFailure(t *testing.T) {
	store := &stubAttemptStore{}
	svc := NewRateLimitService(store, nil, nil, throttleConfig())

	svc.RecordFailure(context.Background(), "student@example.com", "10.0.0.1", models.ActionLogin)
	require.Len(t, store.recorded, 1)
	attempt := store.recorded[0]
	require.NotNil(t, attempt.Email)
	assert.Equal(t, "student@example.com", *attempt.Email)
	assert.Equal(t, "10.0.0.1", attempt.IPAddress)
	assert.Equal(t, models.ActionLogin, attempt.Action)
	assert.False(t, attempt.CreatedAt.IsZero())
}

func TestRateLimitServiceRecordFailureWithoutEmail(t *testing.T) {
	store := &stubAttemptStore{}
	svc := NewRateLimitService(store, nil, nil, throttleConfig())

	svc.RecordFailure(context.Background(), "", "10.0.0.1", models.ActionSignup)
	require.Len(t, store.recorded, 1)
	assert.Nil(t, store.recorded[0].Email)
}

func TestRateLimitServiceJanitorPurges(t *testing.T) {
	store := &stubAttemptStore{}
	cfg := throttleConfig()
	cfg.PurgeInterval = 5 * time.Millisecond
	svc := NewRateLimitService(store, nil, nil, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	svc.StartJanitor(ctx)

	assert.Eventually(t, func() bool { return store.purgeCount() > 0 }, time.Second, 5*time.Millisecond)
	cancel()
}
