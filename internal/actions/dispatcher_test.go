package actions

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"go.uber.org/zap"

	"github.com/agenda-distribuida/events-web/internal/clients"
	"github.com/agenda-distribuida/events-web/internal/listing"
	"github.com/agenda-distribuida/events-web/internal/modal"
	"github.com/agenda-distribuida/events-web/internal/models"
)

type fakeMutator struct {
	reserveMsg string
	createMsg  string
	err        error
	reserved   []models.ID
	created    []models.EventDraft
}

func (f *fakeMutator) ReserveTicket(_ context.Context, id models.ID) (string, error) {
	f.reserved = append(f.reserved, id)
	return f.reserveMsg, f.err
}

func (f *fakeMutator) CreateEvent(_ context.Context, d models.EventDraft) (string, error) {
	f.created = append(f.created, d)
	return f.createMsg, f.err
}

type fakeRefresher struct {
	sessions []string
	err      error
}

func (f *fakeRefresher) Fetch(_ context.Context, sessionID string, page int) (listing.Snapshot, error) {
	f.sessions = append(f.sessions, sessionID)
	return listing.NewSnapshot(), f.err
}

func TestReserve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		err         error
		want        Alert
		wantRefresh bool
	}{
		{
			name:        "success",
			want:        Alert{Message: "Ticket reserved."},
			wantRefresh: true,
		},
		{
			name: "business rejection",
			err:  &clients.APIError{Status: http.StatusUnprocessableEntity, Message: "No tickets left."},
			want: Alert{Message: "No tickets left.", Error: true},
		},
		{
			name: "transport failure",
			err:  errors.New("dial tcp: connection refused"),
			want: Alert{Message: FallbackMessage, Error: true},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mut := &fakeMutator{reserveMsg: "Ticket reserved.", err: tt.err}
			events, own := &fakeRefresher{}, &fakeRefresher{}
			d := NewDispatcher(mut, events, own, zap.NewNop())

			got := d.Reserve(context.Background(), "sid", "42")
			if got != tt.want {
				t.Errorf("alert = %+v, want %+v", got, tt.want)
			}
			if len(mut.reserved) != 1 || mut.reserved[0] != "42" {
				t.Errorf("reserved = %v", mut.reserved)
			}
			if refreshed := len(events.sessions) == 1; refreshed != tt.wantRefresh {
				t.Errorf("refreshed = %v, want %v", refreshed, tt.wantRefresh)
			}
			if len(own.sessions) != 0 {
				t.Error("reserving must not refresh the own-events listing")
			}
		})
	}
}

func TestCreateSuccessClosesModalAndResetsDraft(t *testing.T) {
	t.Parallel()

	mut := &fakeMutator{createMsg: "Event created."}
	own := &fakeRefresher{}
	d := NewDispatcher(mut, &fakeRefresher{}, own, zap.NewNop())

	m := modal.New()
	m.Open()
	_ = m.SetField("title", "Go meetup")

	got := d.Create(context.Background(), "sid", m)
	if got != (Alert{Message: "Event created."}) {
		t.Errorf("alert = %+v", got)
	}
	if len(mut.created) != 1 || mut.created[0].Title != "Go meetup" {
		t.Errorf("created = %+v", mut.created)
	}
	if m.IsOpen() {
		t.Error("modal still open after success")
	}
	if m.Draft() != (models.EventDraft{}) {
		t.Errorf("draft not reset: %+v", m.Draft())
	}
	if len(own.sessions) != 1 || own.sessions[0] != "sid" {
		t.Errorf("own listing refreshes = %v", own.sessions)
	}
}

func TestCreateFailureKeepsModalAndShowsServerMessage(t *testing.T) {
	t.Parallel()

	const serverMsg = "The title field is required."
	mut := &fakeMutator{err: &clients.APIError{Status: http.StatusUnprocessableEntity, Message: serverMsg}}
	own := &fakeRefresher{}
	d := NewDispatcher(mut, &fakeRefresher{}, own, zap.NewNop())

	m := modal.New()
	m.Open()
	_ = m.SetField("location", "Berlin")

	got := d.Create(context.Background(), "sid", m)
	if got.Message != serverMsg || !got.Error {
		t.Errorf("alert = %+v, want error %q", got, serverMsg)
	}
	if !m.IsOpen() {
		t.Error("modal must stay open after a rejected submission")
	}
	if m.Draft().Location != "Berlin" {
		t.Errorf("draft changed: %+v", m.Draft())
	}
	if len(own.sessions) != 0 {
		t.Error("failed creation must not refetch")
	}
}

func TestRefreshFailureDoesNotChangeAlert(t *testing.T) {
	t.Parallel()

	mut := &fakeMutator{reserveMsg: "Ticket reserved."}
	events := &fakeRefresher{err: errors.New("redis down")}
	d := NewDispatcher(mut, events, &fakeRefresher{}, zap.NewNop())

	if got := d.Reserve(context.Background(), "sid", "1"); got != (Alert{Message: "Ticket reserved."}) {
		t.Errorf("alert = %+v", got)
	}
}
