package listing

import (
	"time"

	"github.com/agenda-distribuida/events-web/internal/models"
)

// DisplayLayout is the en-US long form: month name, numeric day and year,
// 12-hour clock with seconds.
const DisplayLayout = "January 2, 2006, 3:04:05 PM"

// InvalidDate is shown for values that cannot be parsed.
const InvalidDate = "Invalid Date"

// Layouts the API and the creation form are known to produce. Values without
// a zone are read in the display location.
var inputLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Row is one rendered table row.
type Row struct {
	ID            models.ID
	Title         string
	Description   string
	DateTime      string
	Deadline      string
	Location      string
	Price         string
	AttendeeLimit int
	Remaining     int
	Reserved      bool
}

// FormatDateTime renders raw in loc using DisplayLayout.
func FormatDateTime(raw string, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range inputLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t.In(loc).Format(DisplayLayout)
		}
	}
	return InvalidDate
}

// RemainingTickets is the attendee limit minus the reservations made so far.
// Overbooked events go negative.
func RemainingTickets(ev models.Event) int {
	return ev.AttendeeLimit - len(ev.Reservations)
}

// IsReservedBy reports whether userID holds a reservation for ev. An empty
// userID (anonymous viewer) never matches.
func IsReservedBy(ev models.Event, userID string) bool {
	if userID == "" {
		return false
	}
	for _, r := range ev.Reservations {
		if string(r.ID) == userID {
			return true
		}
	}
	return false
}

// Rows prepares events for rendering from the point of view of userID.
func Rows(events []models.Event, userID string, loc *time.Location) []Row {
	rows := make([]Row, 0, len(events))
	for _, ev := range events {
		rows = append(rows, Row{
			ID:            ev.ID,
			Title:         ev.Title,
			Description:   ev.Description,
			DateTime:      FormatDateTime(ev.DateTime, loc),
			Deadline:      FormatDateTime(ev.Deadline, loc),
			Location:      ev.Location,
			Price:         string(ev.Price),
			AttendeeLimit: ev.AttendeeLimit,
			Remaining:     RemainingTickets(ev),
			Reserved:      IsReservedBy(ev, userID),
		})
	}
	return rows
}
