package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/recruit-booking-api/internal/models"
	"github.com/noah-isme/recruit-booking-api/pkg/jobs"
)

// Notice kinds dispatched after booking mutations.
const (
	noticeBookingConfirmed = "booking.confirmed"
	noticeBookingCancelled = "booking.cancelled"
)

type bookingNotice struct {
	BookingID string
	StudentID string
	SlotID    string
	EventID   string
}

// NotificationService delivers booking notices off the request path. Notices
// are best-effort; a lost notice never affects the booking itself.
type NotificationService struct {
	queue  *jobs.Dispatcher
	logger *zap.Logger
}

// NewNotificationService constructs NotificationService.
func NewNotificationService(logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &NotificationService{logger: logger}
	n.queue = jobs.NewDispatcher("booking-notices", n.deliver, jobs.Config{
		Workers: 2,
		Logger:  logger,
	})
	return n
}

// Start launches the delivery workers.
func (n *NotificationService) Start(ctx context.Context) {
	n.queue.Start(ctx)
}

// Stop drains the delivery workers.
func (n *NotificationService) Stop() {
	n.queue.Stop()
}

// BookingConfirmed queues a confirmation notice.
func (n *NotificationService) BookingConfirmed(booking *models.Booking) {
	n.dispatch(noticeBookingConfirmed, booking)
}

// BookingCancelled queues a cancellation notice.
func (n *NotificationService) BookingCancelled(booking *models.Booking) {
	n.dispatch(noticeBookingCancelled, booking)
}

func (n *NotificationService) dispatch(kind string, booking *models.Booking) {
	err := n.queue.Dispatch(jobs.Task{
		ID:   booking.ID,
		Kind: kind,
		Payload: bookingNotice{
			BookingID: booking.ID,
			StudentID: booking.StudentID,
			SlotID:    booking.SlotID,
			EventID:   booking.EventID,
		},
	})
	if err != nil {
		n.logger.Warn("failed to queue booking notice",
			zap.String("kind", kind),
			zap.String("booking_id", booking.ID),
			zap.Error(err))
	}
}

// deliver is the delivery transport. Currently it writes a structured log
// line; a mail or webhook sender plugs in here.
func (n *NotificationService) deliver(ctx context.Context, task jobs.Task) error {
	notice, ok := task.Payload.(bookingNotice)
	if !ok {
		n.logger.Error("unexpected notice payload", zap.String("task_id", task.ID))
		return nil
	}
	n.logger.Info("booking notice delivered",
		zap.String("kind", task.Kind),
		zap.String("booking_id", notice.BookingID),
		zap.String("student_id", notice.StudentID),
		zap.String("event_id", notice.EventID))
	return nil
}
