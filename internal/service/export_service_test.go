package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/recruit-booking-api/internal/models"
	appErrors "github.com/noah-isme/recruit-booking-api/pkg/errors"
)

type stubRosterReader struct {
	entries []models.RosterEntry
}

func (s *stubRosterReader) ListRoster(ctx context.Context, eventID string) ([]models.RosterEntry, error) {
	return s.entries, nil
}

func rosterFixture() []models.RosterEntry {
	return []models.RosterEntry{
		{
			BookingID:    "bkg-1",
			StudentName:  "Ada Student",
			StudentEmail: "ada@example.com",
			CompanyName:  "Acme",
			OfferTitle:   "Backend Intern",
			StartsAt:     time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC),
			EndsAt:       time.Date(2026, 3, 20, 9, 30, 0, 0, time.UTC),
			BookingPhase: models.PhaseOne,
			CreatedAt:    time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC),
		},
	}
}

func TestExportServiceRosterCSV(t *testing.T) {
	svc := NewExportService(&stubRosterReader{entries: rosterFixture()}, &stubEventRepo{event: fairEvent(2, 4)}, nil)

	doc, err := svc.Roster(context.Background(), "evt-1", "csv")
	require.NoError(t, err)
	assert.Equal(t, "roster-evt-1.csv", doc.Filename)
	assert.Equal(t, "text/csv", doc.ContentType)

	lines := strings.Split(strings.TrimSpace(string(doc.Data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "booking_id,student_name,student_email,company,offer,starts_at,ends_at,phase,booked_at", lines[0])
	assert.Contains(t, lines[1], "bkg-1")
	assert.Contains(t, lines[1], "ada@example.com")
	assert.Contains(t, lines[1], "Acme")
	assert.Contains(t, lines[1], "2026-03-20T09:00:00Z")
}

func TestExportServiceRosterDefaultsToCSV(t *testing.T) {
	svc := NewExportService(&stubRosterReader{}, &stubEventRepo{event: fairEvent(2, 4)}, nil)

	doc, err := svc.Roster(context.Background(), "evt-1", "")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", doc.ContentType)
	// Header only when there are no confirmed bookings.
	assert.Equal(t, 1, len(strings.Split(strings.TrimSpace(string(doc.Data)), "\n")))
}

func TestExportServiceRosterPDF(t *testing.T) {
	svc := NewExportService(&stubRosterReader{entries: rosterFixture()}, &stubEventRepo{event: fairEvent(2, 4)}, nil)

	doc, err := svc.Roster(context.Background(), "evt-1", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "roster-evt-1.pdf", doc.Filename)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.True(t, strings.HasPrefix(string(doc.Data), "%PDF"))
}

func TestExportServiceRosterRejectsUnknownFormat(t *testing.T) {
	svc := NewExportService(&stubRosterReader{}, &stubEventRepo{event: fairEvent(2, 4)}, nil)

	_, err := svc.Roster(context.Background(), "evt-1", "xlsx")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestExportServiceRosterUnknownEvent(t *testing.T) {
	svc := NewExportService(&stubRosterReader{}, &stubEventRepo{}, nil)

	_, err := svc.Roster(context.Background(), "missing", "csv")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
