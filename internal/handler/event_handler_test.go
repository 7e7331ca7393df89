package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/recruit-booking-api/internal/models"
	"github.com/noah-isme/recruit-booking-api/internal/service"
)

type stubEventStore struct {
	event    *models.Event
	slots    []models.EventSlot
	override *int
}

func (s *stubEventStore) List(ctx context.Context) ([]models.Event, error) {
	if s.event == nil {
		return nil, nil
	}
	return []models.Event{*s.event}, nil
}

func (s *stubEventStore) FindByID(ctx context.Context, id string) (*models.Event, error) {
	if s.event == nil || s.event.ID != id {
		return nil, sql.ErrNoRows
	}
	event := *s.event
	event.PhaseOverride = s.override
	return &event, nil
}

func (s *stubEventStore) SetPhaseOverride(ctx context.Context, id string, phase *int) error {
	if s.event == nil || s.event.ID != id {
		return sql.ErrNoRows
	}
	s.override = phase
	return nil
}

func (s *stubEventStore) ListByEvent(ctx context.Context, eventID string) ([]models.EventSlot, error) {
	return s.slots, nil
}

func springEvent() *models.Event {
	return &models.Event{
		ID:          "evt-1",
		Name:        "Spring Recruiting Fair",
		EventDate:   time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC),
		Phase1Start: time.Now().UTC().Add(-time.Hour),
		Phase1Limit: 2,
		Phase2Start: time.Now().UTC().Add(24 * time.Hour),
		Phase2Limit: 4,
	}
}

func eventRouter(store *stubEventStore) *gin.Engine {
	h := NewEventHandler(service.NewEventService(store, store, nil, nil, time.Minute))
	r := gin.New()
	r.GET("/events", h.List)
	r.GET("/events/:id", h.Get)
	r.GET("/events/:id/slots", h.ListSlots)
	r.GET("/events/:id/phase", h.GetPhase)
	r.PUT("/events/:id/phase", h.SetPhase)
	return r
}

func TestEventHandlerList(t *testing.T) {
	router := eventRouter(&stubEventStore{event: springEvent()})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	var events []models.Event
	require.NoError(t, json.Unmarshal(resp.Data, &events))
	require.Len(t, events, 1)
	assert.Equal(t, "evt-1", events[0].ID)
}

func TestEventHandlerGetNotFound(t *testing.T) {
	router := eventRouter(&stubEventStore{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events/missing", nil))

	require.Equal(t, http.StatusNotFound, w.Code)
	var resp envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestEventHandlerListSlots(t *testing.T) {
	store := &stubEventStore{
		event: springEvent(),
		slots: []models.EventSlot{{ID: "slot-1", EventID: "evt-1", Capacity: 3, Active: true}},
	}
	router := eventRouter(store)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events/evt-1/slots", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	var slots []models.EventSlot
	require.NoError(t, json.Unmarshal(resp.Data, &slots))
	require.Len(t, slots, 1)
	assert.Equal(t, "slot-1", slots[0].ID)
}

func TestEventHandlerGetPhase(t *testing.T) {
	router := eventRouter(&stubEventStore{event: springEvent()})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events/evt-1/phase", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	var status service.PhaseStatus
	require.NoError(t, json.Unmarshal(resp.Data, &status))
	assert.Equal(t, models.PhaseOne, status.Phase)
	assert.Equal(t, 2, status.Limit)
}

func TestEventHandlerSetPhase(t *testing.T) {
	store := &stubEventStore{event: springEvent()}
	router := eventRouter(store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/events/evt-1/phase", strings.NewReader(`{"phase":0}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	var status service.PhaseStatus
	require.NoError(t, json.Unmarshal(resp.Data, &status))
	assert.Equal(t, models.PhaseClosed, status.Phase)
	assert.Zero(t, status.Limit)
	require.NotNil(t, store.override)
	assert.Equal(t, models.PhaseClosed, *store.override)
}

func TestEventHandlerSetPhaseClears(t *testing.T) {
	pinned := models.PhaseClosed
	store := &stubEventStore{event: springEvent(), override: &pinned}
	router := eventRouter(store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/events/evt-1/phase", strings.NewReader(`{"phase":null}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	var status service.PhaseStatus
	require.NoError(t, json.Unmarshal(resp.Data, &status))
	assert.Equal(t, models.PhaseOne, status.Phase)
	assert.Nil(t, store.override)
}

func TestEventHandlerSetPhaseRejectsOutOfRange(t *testing.T) {
	router := eventRouter(&stubEventStore{event: springEvent()})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/events/evt-1/phase", strings.NewReader(`{"phase":5}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
