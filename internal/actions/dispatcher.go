// Package actions runs the mutating calls behind the page buttons and turns
// their outcome into an alert for the user.
package actions

import (
	"context"

	"go.uber.org/zap"

	"github.com/agenda-distribuida/events-web/internal/clients"
	"github.com/agenda-distribuida/events-web/internal/listing"
	"github.com/agenda-distribuida/events-web/internal/modal"
	"github.com/agenda-distribuida/events-web/internal/models"
)

// FallbackMessage is shown when a request fails without a server message.
const FallbackMessage = "Something went wrong. Please try again."

// Mutator is the mutating half of the events API.
type Mutator interface {
	ReserveTicket(ctx context.Context, eventID models.ID) (string, error)
	CreateEvent(ctx context.Context, draft models.EventDraft) (string, error)
}

// Refresher refetches a listing after a mutation.
type Refresher interface {
	Fetch(ctx context.Context, sessionID string, page int) (listing.Snapshot, error)
}

// Alert is a message that must be acknowledged by the user.
type Alert struct {
	Message string `json:"message"`
	Error   bool   `json:"error"`
}

// Dispatcher runs reserve and create actions.
type Dispatcher struct {
	mutator    Mutator
	events     Refresher
	userEvents Refresher
	logger     *zap.Logger
}

// NewDispatcher wires the mutator to the two listings it invalidates.
func NewDispatcher(mutator Mutator, events, userEvents Refresher, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		mutator:    mutator,
		events:     events,
		userEvents: userEvents,
		logger:     logger.Named("actions"),
	}
}

// Reserve reserves a ticket for eventID. On success the public listing of
// sessionID is refetched so the button reflects the new reservation.
func (d *Dispatcher) Reserve(ctx context.Context, sessionID string, eventID models.ID) Alert {
	msg, err := d.mutator.ReserveTicket(ctx, eventID)
	if err != nil {
		return failure(err)
	}

	d.refresh(ctx, d.events, sessionID)
	return Alert{Message: msg}
}

// Create submits the draft held by m. Success closes m, resets its draft and
// refetches the own-events listing; failure leaves m untouched.
func (d *Dispatcher) Create(ctx context.Context, sessionID string, m *modal.Controller) Alert {
	msg, err := d.mutator.CreateEvent(ctx, m.Draft())
	m.Submitted(err)
	if err != nil {
		return failure(err)
	}

	d.refresh(ctx, d.userEvents, sessionID)
	return Alert{Message: msg}
}

func (d *Dispatcher) refresh(ctx context.Context, r Refresher, sessionID string) {
	if _, err := r.Fetch(ctx, sessionID, 0); err != nil {
		d.logger.Error("Failed to refresh listing after action", zap.Error(err))
	}
}

func failure(err error) Alert {
	if msg, ok := clients.ServerMessage(err); ok {
		return Alert{Message: msg, Error: true}
	}
	return Alert{Message: FallbackMessage, Error: true}
}
