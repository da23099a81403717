// Package modal models the event creation dialog: its visibility, the draft
// being edited and the interactions that dismiss it.
package modal

import (
	"errors"

	"github.com/agenda-distribuida/events-web/internal/models"
)

var (
	ErrModalClosed  = errors.New("modal is closed")
	ErrUnknownField = errors.New("unknown form field")
)

// KeyEscape is the key that dismisses an open modal.
const KeyEscape = "Escape"

// Status is the visibility of the modal.
type Status string

const (
	StatusClosed Status = "closed"
	StatusOpen   Status = "open"
)

// Target locates a pointer interaction relative to the modal.
type Target string

const (
	// TargetInside is anywhere within the modal's own content.
	TargetInside Target = "inside"
	// TargetOutside is anywhere else on the page.
	TargetOutside Target = "outside"
	// TargetTrigger is the "Create Event" button that opens the modal.
	TargetTrigger Target = "trigger"
)

// ParseTarget maps a form value to a Target. Unrecognised values are treated
// as inside so that they never dismiss the modal.
func ParseTarget(s string) Target {
	switch Target(s) {
	case TargetOutside, TargetTrigger:
		return Target(s)
	default:
		return TargetInside
	}
}

// InputScope receives the input that can dismiss the modal. It is only handed
// out while the modal is open.
type InputScope interface {
	// OnOutsideInteraction handles a pointer interaction at target and
	// reports whether it dismissed the modal.
	OnOutsideInteraction(target Target) bool
	// OnCancelKey handles a key press and reports whether it dismissed the modal.
	OnCancelKey(key string) bool
}

// Snapshot is the persisted form of a Controller.
type Snapshot struct {
	Status Status            `json:"status"`
	Draft  models.EventDraft `json:"draft"`
}

// Controller owns the creation modal of one session.
type Controller struct {
	status Status
	draft  models.EventDraft
}

// New returns a closed modal with an empty draft.
func New() *Controller {
	return &Controller{status: StatusClosed}
}

// Restore rebuilds a controller from a snapshot.
func Restore(s Snapshot) *Controller {
	c := New()
	if s.Status == StatusOpen {
		c.status = StatusOpen
	}
	c.draft = s.Draft
	return c
}

func (c *Controller) Snapshot() Snapshot {
	return Snapshot{Status: c.status, Draft: c.draft}
}

func (c *Controller) Status() Status { return c.status }

func (c *Controller) IsOpen() bool { return c.status == StatusOpen }

func (c *Controller) Draft() models.EventDraft { return c.draft }

// Open shows the modal. The draft is kept as it was.
func (c *Controller) Open() {
	c.status = StatusOpen
}

// Cancel closes the modal and discards the draft.
func (c *Controller) Cancel() {
	c.status = StatusClosed
	c.draft = models.EventDraft{}
}

// Scope returns the input scope of the open modal. ok is false while closed.
func (c *Controller) Scope() (scope InputScope, ok bool) {
	if !c.IsOpen() {
		return nil, false
	}
	return inputScope{c: c}, true
}

// SetField updates one draft field by its form name.
func (c *Controller) SetField(name, value string) error {
	if !c.IsOpen() {
		return ErrModalClosed
	}
	switch name {
	case "title":
		c.draft.Title = value
	case "description":
		c.draft.Description = value
	case "datetime":
		c.draft.DateTime = value
	case "deadline":
		c.draft.Deadline = value
	case "location":
		c.draft.Location = value
	case "price":
		c.draft.Price = value
	case "attendee_limit":
		c.draft.AttendeeLimit = value
	default:
		return ErrUnknownField
	}
	return nil
}

// SetDraft replaces the whole draft, as a submitted form does.
func (c *Controller) SetDraft(d models.EventDraft) error {
	if !c.IsOpen() {
		return ErrModalClosed
	}
	c.draft = d
	return nil
}

// Submitted records the outcome of submitting the draft. On success the modal
// closes and the draft starts over empty; on failure both stay as they are so
// the user can correct the input.
func (c *Controller) Submitted(err error) {
	if err != nil {
		return
	}
	c.status = StatusClosed
	c.draft = models.EventDraft{}
}

type inputScope struct {
	c *Controller
}

func (s inputScope) OnOutsideInteraction(target Target) bool {
	if !s.c.IsOpen() || target != TargetOutside {
		return false
	}
	s.c.status = StatusClosed
	return true
}

func (s inputScope) OnCancelKey(key string) bool {
	if !s.c.IsOpen() || key != KeyEscape {
		return false
	}
	s.c.status = StatusClosed
	return true
}
