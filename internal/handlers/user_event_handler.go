package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agenda-distribuida/events-web/internal/actions"
	"github.com/agenda-distribuida/events-web/internal/clients"
	"github.com/agenda-distribuida/events-web/internal/listing"
	"github.com/agenda-distribuida/events-web/internal/modal"
	"github.com/agenda-distribuida/events-web/internal/models"
	"github.com/agenda-distribuida/events-web/internal/session"
	"github.com/agenda-distribuida/events-web/internal/state"
)

const userEventsPath = "/user/events"

// UserEventHandler serves the caller's own events and the creation modal.
type UserEventHandler struct {
	listing    *listing.Controller
	dispatcher *actions.Dispatcher
	store      state.Store
	window     int
	loc        *time.Location
	logger     *zap.Logger
}

func NewUserEventHandler(ctrl *listing.Controller, dispatcher *actions.Dispatcher, store state.Store, window int, loc *time.Location, logger *zap.Logger) *UserEventHandler {
	return &UserEventHandler{
		listing:    ctrl,
		dispatcher: dispatcher,
		store:      store,
		window:     window,
		loc:        loc,
		logger:     logger.Named("user_event_handler"),
	}
}

// ShowUserEvents renders GET /user/events[?page=N].
func (h *UserEventHandler) ShowUserEvents(c *gin.Context) {
	id := session.FromContext(c)
	ctx := clients.WithToken(c.Request.Context(), id.Token)

	f, err := popFlash(ctx, h.store, id.StateID(), pageUserEvents)
	if err != nil {
		internalError(c, h.logger, "Failed to load flash", err)
		return
	}

	m, err := h.loadModal(ctx, id.StateID())
	if err != nil {
		internalError(c, h.logger, "Failed to load modal", err)
		return
	}

	page, hasPage := pageParam(c)
	snap, err := loadListing(ctx, h.listing, id.StateID(), f, page, hasPage)
	if err != nil {
		internalError(c, h.logger, "Failed to load user events", err)
		return
	}

	view := buildView("My Events", snap, id.UserID, h.window, h.loc, f)
	view.CanCreate = true
	if m.IsOpen() {
		view.Modal = &modalView{Draft: m.Draft()}
	}

	c.HTML(http.StatusOK, "user_events", view)
}

// OpenModal handles POST /user/events/modal.
func (h *UserEventHandler) OpenModal(c *gin.Context) {
	h.updateModal(c, func(m *modal.Controller) {
		m.Open()
	})
}

// DismissModal handles POST /user/events/modal/dismiss. reason is cancel,
// escape or outside; outside interactions also carry the target clicked.
func (h *UserEventHandler) DismissModal(c *gin.Context) {
	reason := c.PostForm("reason")
	target := modal.ParseTarget(c.DefaultPostForm("target", string(modal.TargetOutside)))

	h.updateModal(c, func(m *modal.Controller) {
		if reason == "cancel" {
			m.Cancel()
			return
		}

		scope, ok := m.Scope()
		if !ok {
			return
		}
		switch reason {
		case "escape":
			scope.OnCancelKey(modal.KeyEscape)
		case "outside":
			scope.OnOutsideInteraction(target)
		}
	})
}

// CreateEvent handles POST /user/events with the creation form.
func (h *UserEventHandler) CreateEvent(c *gin.Context) {
	id := session.FromContext(c)
	ctx := clients.WithToken(c.Request.Context(), id.Token)

	var draft models.EventDraft
	if err := c.ShouldBind(&draft); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	m, err := h.loadModal(ctx, id.StateID())
	if err != nil {
		internalError(c, h.logger, "Failed to load modal", err)
		return
	}
	// The form may have been submitted from a page rendered before the modal
	// was dismissed elsewhere.
	m.Open()
	if err := m.SetDraft(draft); err != nil {
		internalError(c, h.logger, "Failed to set draft", err)
		return
	}

	alert := h.dispatcher.Create(ctx, id.StateID(), m)
	h.logger.Info("Event creation submitted",
		zap.String("user_id", id.UserID),
		zap.Bool("rejected", alert.Error))

	if err := h.saveModal(ctx, id.StateID(), m); err != nil {
		internalError(c, h.logger, "Failed to store modal", err)
		return
	}
	if err := pushFlash(ctx, h.store, id.StateID(), pageUserEvents, flash{Alert: &alert, Fresh: true}); err != nil {
		internalError(c, h.logger, "Failed to store flash", err)
		return
	}

	c.Redirect(http.StatusSeeOther, userEventsPath)
}

func (h *UserEventHandler) updateModal(c *gin.Context, apply func(*modal.Controller)) {
	id := session.FromContext(c)
	ctx := c.Request.Context()

	m, err := h.loadModal(ctx, id.StateID())
	if err != nil {
		internalError(c, h.logger, "Failed to load modal", err)
		return
	}

	apply(m)

	if err := h.saveModal(ctx, id.StateID(), m); err != nil {
		internalError(c, h.logger, "Failed to store modal", err)
		return
	}
	if err := pushFlash(ctx, h.store, id.StateID(), pageUserEvents, flash{Fresh: true}); err != nil {
		internalError(c, h.logger, "Failed to store flash", err)
		return
	}

	c.Redirect(http.StatusSeeOther, userEventsPath)
}

func modalKey(stateID string) string {
	return state.Key(stateID, pageUserEvents+":modal")
}

func (h *UserEventHandler) loadModal(ctx context.Context, stateID string) (*modal.Controller, error) {
	var snap modal.Snapshot
	err := h.store.Load(ctx, modalKey(stateID), &snap)
	if errors.Is(err, state.ErrNotFound) {
		return modal.New(), nil
	}
	if err != nil {
		return nil, err
	}
	return modal.Restore(snap), nil
}

func (h *UserEventHandler) saveModal(ctx context.Context, stateID string, m *modal.Controller) error {
	return h.store.Save(ctx, modalKey(stateID), m.Snapshot())
}
