package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/recruit-booking-api/internal/models"
	"github.com/noah-isme/recruit-booking-api/internal/repository"
	appErrors "github.com/noah-isme/recruit-booking-api/pkg/errors"
)

type stubEventRepo struct {
	event     *models.Event
	findErr   error
	overrides map[string]*int
	setErr    error
}

func (s *stubEventRepo) List(ctx context.Context) ([]models.Event, error) {
	if s.event == nil {
		return nil, nil
	}
	return []models.Event{*s.event}, nil
}

func (s *stubEventRepo) FindByID(ctx context.Context, id string) (*models.Event, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.event == nil || s.event.ID != id {
		return nil, sql.ErrNoRows
	}
	copy := *s.event
	if override, ok := s.overrides[id]; ok {
		copy.PhaseOverride = override
	}
	return &copy, nil
}

func (s *stubEventRepo) SetPhaseOverride(ctx context.Context, id string, phase *int) error {
	if s.setErr != nil {
		return s.setErr
	}
	if s.event == nil || s.event.ID != id {
		return sql.ErrNoRows
	}
	if s.overrides == nil {
		s.overrides = make(map[string]*int)
	}
	s.overrides[id] = phase
	return nil
}

type stubSlotReader struct {
	slots []models.EventSlot
}

func (s *stubSlotReader) ListByEvent(ctx context.Context, eventID string) ([]models.EventSlot, error) {
	return s.slots, nil
}

// memPhaseCache mimics the JSON round trip of the real cache so stale-struct
// bugs surface in tests.
type memPhaseCache struct {
	entries map[string][]byte
	gets    int
	sets    int
	deletes []string
}

func newMemPhaseCache() *memPhaseCache {
	return &memPhaseCache{entries: make(map[string][]byte)}
}

func (c *memPhaseCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.gets++
	raw, ok := c.entries[key]
	if !ok {
		return repository.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memPhaseCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.sets++
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *memPhaseCache) Delete(ctx context.Context, key string) error {
	c.deletes = append(c.deletes, key)
	delete(c.entries, key)
	return nil
}

func newTestEventService(repo *stubEventRepo, cache phaseCache, at time.Time) *EventService {
	svc := NewEventService(repo, &stubSlotReader{}, cache, nil, time.Minute)
	svc.now = func() time.Time { return at }
	return svc
}

func TestEventServiceGetCurrentPhaseCachesResult(t *testing.T) {
	repo := &stubEventRepo{event: fairEvent(2, 4)}
	cache := newMemPhaseCache()
	svc := newTestEventService(repo, cache, phase1At)

	status, err := svc.GetCurrentPhase(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Equal(t, models.PhaseOne, status.Phase)
	assert.Equal(t, 2, status.Limit)
	assert.NotEmpty(t, status.Message)
	assert.Equal(t, 1, cache.sets)

	// Second read is served from the cache even though time moved on.
	svc.now = func() time.Time { return phase2At }
	again, err := svc.GetCurrentPhase(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Equal(t, models.PhaseOne, again.Phase)
	assert.Equal(t, 1, cache.sets)
}

func TestEventServiceGetCurrentPhaseWithoutCache(t *testing.T) {
	repo := &stubEventRepo{event: fairEvent(2, 4)}
	svc := newTestEventService(repo, nil, phase2At)

	status, err := svc.GetCurrentPhase(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Equal(t, models.PhaseTwo, status.Phase)
	assert.Equal(t, 4, status.Limit)
}

func TestEventServiceGetCurrentPhaseUnknownEvent(t *testing.T) {
	repo := &stubEventRepo{}
	svc := newTestEventService(repo, newMemPhaseCache(), phase1At)

	_, err := svc.GetCurrentPhase(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestEventServiceSetPhaseInvalidatesCache(t *testing.T) {
	repo := &stubEventRepo{event: fairEvent(2, 4)}
	cache := newMemPhaseCache()
	svc := newTestEventService(repo, cache, phase1At)

	// Warm the cache with the derived phase.
	_, err := svc.GetCurrentPhase(context.Background(), "evt-1")
	require.NoError(t, err)

	closed := models.PhaseClosed
	status, err := svc.SetPhase(context.Background(), "evt-1", SetPhaseRequest{Phase: &closed})
	require.NoError(t, err)
	assert.Equal(t, models.PhaseClosed, status.Phase)
	assert.Zero(t, status.Limit)
	assert.Contains(t, cache.deletes, "phase:evt-1")

	// The next read resolves the override, not the stale cached value.
	after, err := svc.GetCurrentPhase(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Equal(t, models.PhaseClosed, after.Phase)
}

func TestEventServiceSetPhaseClearOverride(t *testing.T) {
	repo := &stubEventRepo{event: fairEvent(2, 4)}
	svc := newTestEventService(repo, nil, phase2At)

	pinned := models.PhaseOne
	_, err := svc.SetPhase(context.Background(), "evt-1", SetPhaseRequest{Phase: &pinned})
	require.NoError(t, err)

	status, err := svc.SetPhase(context.Background(), "evt-1", SetPhaseRequest{Phase: nil})
	require.NoError(t, err)
	assert.Equal(t, models.PhaseTwo, status.Phase)
}

func TestEventServiceSetPhaseRejectsOutOfRange(t *testing.T) {
	repo := &stubEventRepo{event: fairEvent(2, 4)}
	svc := newTestEventService(repo, nil, phase1At)

	bad := 3
	_, err := svc.SetPhase(context.Background(), "evt-1", SetPhaseRequest{Phase: &bad})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestEventServiceSetPhaseUnknownEvent(t *testing.T) {
	repo := &stubEventRepo{}
	svc := newTestEventService(repo, nil, phase1At)

	closed := models.PhaseClosed
	_, err := svc.SetPhase(context.Background(), "missing", SetPhaseRequest{Phase: &closed})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestEventServiceGetWrapsStorageError(t *testing.T) {
	repo := &stubEventRepo{findErr: errors.New("connection refused")}
	svc := newTestEventService(repo, nil, phase1At)

	_, err := svc.Get(context.Background(), "evt-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
