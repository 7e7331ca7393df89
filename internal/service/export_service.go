package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/recruit-booking-api/internal/models"
	appErrors "github.com/noah-isme/recruit-booking-api/pkg/errors"
	"github.com/noah-isme/recruit-booking-api/pkg/export"
)

type rosterReader interface {
	ListRoster(ctx context.Context, eventID string) ([]models.RosterEntry, error)
}

type rosterEventFinder interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
}

// Roster export formats.
const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

// RosterExport is a rendered roster document ready for download.
type RosterExport struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders administrative exports of booking data.
type ExportService struct {
	bookings rosterReader
	events   rosterEventFinder
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
}

// NewExportService constructs ExportService.
func NewExportService(bookings rosterReader, events rosterEventFinder, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		bookings: bookings,
		events:   events,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

// Roster renders the event's confirmed bookings in the requested format. An
// empty format defaults to CSV.
func (s *ExportService) Roster(ctx context.Context, eventID, format string) (*RosterExport, error) {
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}

	roster, err := s.bookings.ListRoster(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	table := rosterTable(roster)

	var result RosterExport
	switch format {
	case FormatCSV:
		data, err := s.csv.Render(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
		}
		result = RosterExport{
			Filename:    fmt.Sprintf("roster-%s.csv", event.ID),
			ContentType: "text/csv",
			Data:        data,
		}
	case FormatPDF:
		data, err := s.pdf.Render(table, fmt.Sprintf("%s Interview Roster", event.Name))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
		}
		result = RosterExport{
			Filename:    fmt.Sprintf("roster-%s.pdf", event.ID),
			ContentType: "application/pdf",
			Data:        data,
		}
	}

	s.logger.Info("roster exported",
		zap.String("event_id", event.ID),
		zap.String("format", format),
		zap.Int("entries", len(roster)))
	return &result, nil
}

func rosterTable(roster []models.RosterEntry) export.Table {
	table := export.Table{
		Columns: []string{"booking_id", "student_name", "student_email", "company", "offer", "starts_at", "ends_at", "phase", "booked_at"},
	}
	for _, entry := range roster {
		table.Rows = append(table.Rows, []string{
			entry.BookingID,
			entry.StudentName,
			entry.StudentEmail,
			entry.CompanyName,
			entry.OfferTitle,
			entry.StartsAt.Format(time.RFC3339),
			entry.EndsAt.Format(time.RFC3339),
			fmt.Sprintf("%d", entry.BookingPhase),
			entry.CreatedAt.Format(time.RFC3339),
		})
	}
	return table
}
