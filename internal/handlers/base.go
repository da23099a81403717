package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agenda-distribuida/events-web/internal/actions"
	"github.com/agenda-distribuida/events-web/internal/listing"
	"github.com/agenda-distribuida/events-web/internal/models"
	"github.com/agenda-distribuida/events-web/internal/pagination"
	"github.com/agenda-distribuida/events-web/internal/state"
)

const (
	pageEvents     = "events"
	pageUserEvents = "user-events"

	errInternalServer = "Internal server error"
)

// pageView is the data every page template renders.
type pageView struct {
	Title     string
	CanCreate bool
	Rows      []listing.Row
	Buttons   []pagination.Button
	Alert     *actions.Alert
	Modal     *modalView
}

type modalView struct {
	Draft models.EventDraft
}

// flash carries the outcome of a POST to the page rendered after the redirect.
type flash struct {
	Alert *actions.Alert `json:"alert,omitempty"`
	// Fresh means the stored listing already reflects the action and the
	// page can be rendered without fetching again.
	Fresh bool `json:"fresh"`
}

// pageParam returns the requested page, or ok=false when none (or garbage) was given.
func pageParam(c *gin.Context) (page int, ok bool) {
	raw, present := c.GetQuery("page")
	if !present {
		return 0, false
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, false
	}
	return page, true
}

func flashKey(stateID, page string) string {
	return state.Key(stateID, page+":flash")
}

// popFlash returns the pending flash of page and clears it. Concurrent
// renders of the same page see it at most once.
func popFlash(ctx context.Context, store state.Store, stateID, page string) (flash, error) {
	var f flash
	err := store.Take(ctx, flashKey(stateID, page), &f)
	if errors.Is(err, state.ErrNotFound) {
		return flash{}, nil
	}
	if err != nil {
		return flash{}, err
	}
	return f, nil
}

func pushFlash(ctx context.Context, store state.Store, stateID, page string, f flash) error {
	return store.Save(ctx, flashKey(stateID, page), f)
}

// loadListing renders from the stored snapshot right after an action, and
// fetches otherwise or when nothing is stored for the session.
func loadListing(ctx context.Context, ctrl *listing.Controller, stateID string, f flash, page int, hasPage bool) (listing.Snapshot, error) {
	if f.Fresh && !hasPage {
		snap, ok, err := ctrl.Stored(ctx, stateID)
		if err != nil || ok {
			return snap, err
		}
	}
	return ctrl.Fetch(ctx, stateID, page)
}

func buildView(title string, snap listing.Snapshot, userID string, window int, loc *time.Location, f flash) pageView {
	return pageView{
		Title:   title,
		Rows:    listing.Rows(snap.Events, userID, loc),
		Buttons: snap.Page.Buttons(window),
		Alert:   f.Alert,
	}
}

func internalError(c *gin.Context, logger *zap.Logger, msg string, err error) {
	logger.Error(msg, zap.Error(err), zap.String("path", c.Request.URL.Path))
	c.String(http.StatusInternalServerError, errInternalServer)
}
