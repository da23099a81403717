// Package listing fetches paginated event listings and keeps the page
// selection consistent with what the API reports.
package listing

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/agenda-distribuida/events-web/internal/clients"
	"github.com/agenda-distribuida/events-web/internal/models"
	"github.com/agenda-distribuida/events-web/internal/pagination"
	"github.com/agenda-distribuida/events-web/internal/state"
)

// maxRounds bounds the refetches a single Fetch performs after clamping.
const maxRounds = 3

// Source is the remote listing endpoint.
type Source interface {
	ListEvents(ctx context.Context, scope clients.Scope, page int) (*models.EventPage, error)
}

// Snapshot is the committed state of one listing in one session.
type Snapshot struct {
	Page   pagination.State `json:"page"`
	Events []models.Event   `json:"events"`
}

// NewSnapshot is the state of a listing that was never fetched.
func NewSnapshot() Snapshot {
	return Snapshot{Page: pagination.NewState(), Events: []models.Event{}}
}

// Controller fetches one listing (public or own events) for many sessions.
type Controller struct {
	source Source
	store  state.Store
	scope  clients.Scope
	name   string
	logger *zap.Logger
}

// NewController creates a controller for the listing at scope. name keys its
// state in store.
func NewController(source Source, store state.Store, scope clients.Scope, name string, logger *zap.Logger) *Controller {
	return &Controller{
		source: source,
		store:  store,
		scope:  scope,
		name:   name,
		logger: logger.Named("listing").With(zap.String("listing", name)),
	}
}

// Current returns the last committed snapshot of sessionID, or the unfetched
// snapshot when none is stored.
func (c *Controller) Current(ctx context.Context, sessionID string) (Snapshot, error) {
	snap, _, err := c.Stored(ctx, sessionID)
	return snap, err
}

// Stored is Current that also reports whether a snapshot was stored. ok is
// false for new sessions and for sessions whose state expired.
func (c *Controller) Stored(ctx context.Context, sessionID string) (snap Snapshot, ok bool, err error) {
	snap = NewSnapshot()
	err = c.store.Load(ctx, state.Key(sessionID, c.name), &snap)
	if errors.Is(err, state.ErrNotFound) {
		return NewSnapshot(), false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("load %s state: %w", c.name, err)
	}
	return snap, true, nil
}

// Fetch loads page for sessionID and commits the result. page <= 0 refetches
// the current page.
//
// A failed fetch is logged and the previous snapshot is returned unchanged.
// When a newer Fetch for the same session started meanwhile, the result is
// discarded and the newest committed snapshot is returned instead.
func (c *Controller) Fetch(ctx context.Context, sessionID string, page int) (Snapshot, error) {
	key := state.Key(sessionID, c.name)

	prev, err := c.Current(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}

	token, err := c.store.NextToken(ctx, key)
	if err != nil {
		return Snapshot{}, fmt.Errorf("issue %s fetch token: %w", c.name, err)
	}

	sel := prev.Page
	if page > 0 {
		sel = sel.Select(page)
	}

	var next Snapshot
	for round := 1; ; round++ {
		resp, err := c.source.ListEvents(ctx, c.scope, sel.CurrentPage)
		if err != nil {
			c.logger.Error("Error fetching events",
				zap.Int("page", sel.CurrentPage),
				zap.Error(err))
			return prev, nil
		}

		reconciled, refetch := sel.Reconcile(resp.LastPage)
		if refetch && round < maxRounds {
			c.logger.Debug("Page out of range, refetching",
				zap.Int("requested", sel.CurrentPage),
				zap.Int("last_page", resp.LastPage))
			sel = reconciled
			continue
		}

		events := resp.Data
		if events == nil {
			events = []models.Event{}
		}
		next = Snapshot{Page: reconciled, Events: events}
		break
	}

	committed, err := c.store.CommitIfLatest(ctx, key, token, next)
	if err != nil {
		return Snapshot{}, fmt.Errorf("commit %s state: %w", c.name, err)
	}
	if !committed {
		c.logger.Debug("Discarding stale listing response", zap.Uint64("token", uint64(token)))
		return c.Current(ctx, sessionID)
	}

	return next, nil
}
