package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/recruit-booking-api/internal/models"
	"github.com/noah-isme/recruit-booking-api/pkg/database"
	appErrors "github.com/noah-isme/recruit-booking-api/pkg/errors"
)

type bookingStore interface {
	CreateBooking(ctx context.Context, studentID, slotID string, now time.Time) (*models.Booking, error)
	CancelBooking(ctx context.Context, studentID, bookingID string, now time.Time) (*models.Booking, error)
	ListByStudent(ctx context.Context, studentID, eventID string) ([]models.BookingDetail, error)
}

type bookingMetrics interface {
	ObserveBooking(result string)
	ObserveCancellation(result string)
}

type bookingNotifier interface {
	BookingConfirmed(booking *models.Booking)
	BookingCancelled(booking *models.Booking)
}

// BookRequest is the booking creation payload.
type BookRequest struct {
	SlotID string `json:"slot_id" validate:"required"`
}

// BookingService is the allocation engine: it decides whether a booking or
// cancellation may proceed. All precondition checks and the eventual write
// happen inside one transaction owned by the store; the service's own job is
// validation, the bounded retry on write conflicts, and instrumentation.
type BookingService struct {
	store     bookingStore
	metrics   bookingMetrics
	notifier  bookingNotifier
	validator *validator.Validate
	logger    *zap.Logger
	retries   int
	retryable func(error) bool
	now       func() time.Time
}

// NewBookingService constructs BookingService. The notifier may be nil when
// no delivery channel is configured.
func NewBookingService(store bookingStore, metrics bookingMetrics, notifier bookingNotifier, validate *validator.Validate, logger *zap.Logger, retries int) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if retries < 1 {
		retries = 3
	}
	return &BookingService{
		store:     store,
		metrics:   metrics,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
		retries:   retries,
		retryable: database.IsSerializationFailure,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Book reserves one unit of slot capacity for the student. Typed precondition
// failures (BookingClosed, DuplicateBooking, QuotaExceeded, SlotFull) are
// terminal outcomes and returned as-is. Only detected write conflicts are
// retried, transparently and bounded, before surfacing the storage fault.
func (s *BookingService) Book(ctx context.Context, studentID string, req BookRequest) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}

	var lastErr error
	for attempt := 0; attempt < s.retries; attempt++ {
		booking, err := s.store.CreateBooking(ctx, studentID, req.SlotID, s.now())
		if err == nil {
			s.observeBooking("confirmed")
			if s.notifier != nil {
				s.notifier.BookingConfirmed(booking)
			}
			return booking, nil
		}
		if appErr := typedBookingError(err); appErr != nil {
			s.observeBooking(appErr.Code)
			return nil, err
		}
		if !s.retryable(err) {
			s.observeBooking(appErrors.ErrUnavailable.Code)
			return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "booking storage unavailable")
		}
		lastErr = err
		s.logger.Warn("booking write conflict, retrying",
			zap.String("slot_id", req.SlotID),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	s.observeBooking(appErrors.ErrUnavailable.Code)
	return nil, appErrors.Wrap(lastErr, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "booking conflict retries exhausted")
}

// Cancel releases the student's booking. Allowed in any phase; a
// cancellation can only reduce utilisation, so no quota is re-checked.
func (s *BookingService) Cancel(ctx context.Context, studentID, bookingID string) (*models.Booking, error) {
	if bookingID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "booking id is required")
	}

	var lastErr error
	for attempt := 0; attempt < s.retries; attempt++ {
		booking, err := s.store.CancelBooking(ctx, studentID, bookingID, s.now())
		if err == nil {
			s.observeCancellation("cancelled")
			if s.notifier != nil {
				s.notifier.BookingCancelled(booking)
			}
			return booking, nil
		}
		if appErr := typedBookingError(err); appErr != nil {
			s.observeCancellation(appErr.Code)
			return nil, err
		}
		if !s.retryable(err) {
			s.observeCancellation(appErrors.ErrUnavailable.Code)
			return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "booking storage unavailable")
		}
		lastErr = err
		s.logger.Warn("cancellation write conflict, retrying",
			zap.String("booking_id", bookingID),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	s.observeCancellation(appErrors.ErrUnavailable.Code)
	return nil, appErrors.Wrap(lastErr, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "cancellation conflict retries exhausted")
}

// ListOwn returns the student's bookings, optionally scoped to one event.
func (s *BookingService) ListOwn(ctx context.Context, studentID, eventID string) ([]models.BookingDetail, error) {
	bookings, err := s.store.ListByStudent(ctx, studentID, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}
	return bookings, nil
}

func (s *BookingService) observeBooking(result string) {
	if s.metrics != nil {
		s.metrics.ObserveBooking(result)
	}
}

func (s *BookingService) observeCancellation(result string) {
	if s.metrics != nil {
		s.metrics.ObserveCancellation(result)
	}
}

// typedBookingError returns the typed domain error carried by err, or nil if
// err is an untyped infrastructure failure.
func typedBookingError(err error) *appErrors.Error {
	for _, sentinel := range []*appErrors.Error{
		appErrors.ErrBookingClosed,
		appErrors.ErrDuplicateBooking,
		appErrors.ErrQuotaExceeded,
		appErrors.ErrSlotFull,
		appErrors.ErrNotFound,
		appErrors.ErrNotOwner,
		appErrors.ErrAlreadyCancelled,
	} {
		if appErrors.Is(err, sentinel) {
			return sentinel
		}
	}
	return nil
}
