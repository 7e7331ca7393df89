package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/recruit-booking-api/internal/models"
	"github.com/noah-isme/recruit-booking-api/internal/repository"
	appErrors "github.com/noah-isme/recruit-booking-api/pkg/errors"
)

type eventRepository interface {
	List(ctx context.Context) ([]models.Event, error)
	FindByID(ctx context.Context, id string) (*models.Event, error)
	SetPhaseOverride(ctx context.Context, id string, phase *int) error
}

type slotReader interface {
	ListByEvent(ctx context.Context, eventID string) ([]models.EventSlot, error)
}

type phaseCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// PhaseStatus is the UI-facing view of an event's booking phase.
type PhaseStatus struct {
	Phase   int    `json:"phase"`
	Limit   int    `json:"limit"`
	Message string `json:"message"`
}

// EventService serves event reads and the administrative phase override.
type EventService struct {
	repo   eventRepository
	slots  slotReader
	cache  phaseCache
	logger *zap.Logger
	ttl    time.Duration
	now    func() time.Time
}

// NewEventService constructs EventService.
func NewEventService(repo eventRepository, slots slotReader, cache phaseCache, logger *zap.Logger, cacheTTL time.Duration) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &EventService{
		repo:   repo,
		slots:  slots,
		cache:  cache,
		logger: logger,
		ttl:    cacheTTL,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// List returns all events.
func (s *EventService) List(ctx context.Context) ([]models.Event, error) {
	events, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	return events, nil
}

// Get returns a single event.
func (s *EventService) Get(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return event, nil
}

// ListSlots returns the active slots of an event.
func (s *EventService) ListSlots(ctx context.Context, eventID string) ([]models.EventSlot, error) {
	if _, err := s.Get(ctx, eventID); err != nil {
		return nil, err
	}
	slots, err := s.slots.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list slots")
	}
	return slots, nil
}

// GetCurrentPhase resolves the event's phase for UI rendering. Results are
// cached briefly; the cache is only an optimisation and never consulted by
// the booking transaction itself.
func (s *EventService) GetCurrentPhase(ctx context.Context, eventID string) (*PhaseStatus, error) {
	key := phaseCacheKey(eventID)
	if s.cache != nil {
		var cached PhaseStatus
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, repository.ErrCacheMiss) {
			s.logger.Warn("phase cache read failed", zap.String("event_id", eventID), zap.Error(err))
		}
	}

	event, err := s.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}

	state := event.PhaseAt(s.now())
	status := &PhaseStatus{Phase: state.Phase, Limit: state.Limit, Message: phaseMessage(state)}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, status, s.ttl); err != nil {
			s.logger.Warn("phase cache write failed", zap.String("event_id", eventID), zap.Error(err))
		}
	}
	return status, nil
}

// SetPhaseRequest is the admin override payload. A nil phase clears the
// override so the phase derives from the configured windows again.
type SetPhaseRequest struct {
	Phase *int `json:"phase"`
}

// SetPhase pins or clears the event's phase override and invalidates the
// cached phase.
func (s *EventService) SetPhase(ctx context.Context, eventID string, req SetPhaseRequest) (*PhaseStatus, error) {
	if req.Phase != nil && (*req.Phase < models.PhaseClosed || *req.Phase > models.PhaseTwo) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "phase must be 0, 1 or 2")
	}

	if err := s.repo.SetPhaseOverride(ctx, eventID, req.Phase); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set phase override")
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, phaseCacheKey(eventID)); err != nil {
			s.logger.Warn("phase cache invalidation failed", zap.String("event_id", eventID), zap.Error(err))
		}
	}

	event, err := s.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	state := event.PhaseAt(s.now())
	return &PhaseStatus{Phase: state.Phase, Limit: state.Limit, Message: phaseMessage(state)}, nil
}

func phaseCacheKey(eventID string) string {
	return "phase:" + eventID
}

func phaseMessage(state models.PhaseState) string {
	switch state.Phase {
	case models.PhaseClosed:
		return "booking is closed"
	default:
		return fmt.Sprintf("phase %d open, up to %d bookings per student", state.Phase, state.Limit)
	}
}
