package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agenda-distribuida/events-web/internal/actions"
	"github.com/agenda-distribuida/events-web/internal/clients"
	"github.com/agenda-distribuida/events-web/internal/listing"
	"github.com/agenda-distribuida/events-web/internal/models"
	"github.com/agenda-distribuida/events-web/internal/session"
	"github.com/agenda-distribuida/events-web/internal/state"
)

// EventHandler serves the public event listing.
type EventHandler struct {
	listing    *listing.Controller
	dispatcher *actions.Dispatcher
	store      state.Store
	window     int
	loc        *time.Location
	logger     *zap.Logger
}

func NewEventHandler(ctrl *listing.Controller, dispatcher *actions.Dispatcher, store state.Store, window int, loc *time.Location, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		listing:    ctrl,
		dispatcher: dispatcher,
		store:      store,
		window:     window,
		loc:        loc,
		logger:     logger.Named("event_handler"),
	}
}

// ShowEvents renders GET /events[?page=N].
func (h *EventHandler) ShowEvents(c *gin.Context) {
	id := session.FromContext(c)
	ctx := clients.WithToken(c.Request.Context(), id.Token)

	f, err := popFlash(ctx, h.store, id.StateID(), pageEvents)
	if err != nil {
		internalError(c, h.logger, "Failed to load flash", err)
		return
	}

	page, hasPage := pageParam(c)
	snap, err := loadListing(ctx, h.listing, id.StateID(), f, page, hasPage)
	if err != nil {
		internalError(c, h.logger, "Failed to load events", err)
		return
	}

	c.HTML(http.StatusOK, "events", buildView("Events", snap, id.UserID, h.window, h.loc, f))
}

// ReserveTicket handles POST /events/:id/reserve.
func (h *EventHandler) ReserveTicket(c *gin.Context) {
	id := session.FromContext(c)
	ctx := clients.WithToken(c.Request.Context(), id.Token)
	eventID := models.ID(c.Param("id"))

	h.logger.Info("Reserve ticket requested",
		zap.String("event_id", string(eventID)),
		zap.String("user_id", id.UserID))

	alert := h.dispatcher.Reserve(ctx, id.StateID(), eventID)
	if err := pushFlash(ctx, h.store, id.StateID(), pageEvents, flash{Alert: &alert, Fresh: true}); err != nil {
		internalError(c, h.logger, "Failed to store flash", err)
		return
	}

	c.Redirect(http.StatusSeeOther, "/events")
}
