package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is an identifier the API may send either as a JSON number or a string.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	s, err := scalarString(data)
	if err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(s)
	return nil
}

// Price is displayed exactly as the API sends it ("12.50" or 12.5).
type Price string

func (p *Price) UnmarshalJSON(data []byte) error {
	s, err := scalarString(data)
	if err != nil {
		return fmt.Errorf("price: %w", err)
	}
	*p = Price(s)
	return nil
}

// Reservation links a user to an event. ID is the reserving user's id.
type Reservation struct {
	ID ID `json:"id"`
}

// Event is owned by the remote API; it is only changed through mutation endpoints.
type Event struct {
	ID            ID            `json:"id"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	DateTime      string        `json:"datetime"`
	Deadline      string        `json:"deadline"`
	Location      string        `json:"location"`
	Price         Price         `json:"price"`
	AttendeeLimit int           `json:"attendee_limit"`
	Reservations  []Reservation `json:"reservations"`
}

// EventPage is one page of a paginated event listing.
type EventPage struct {
	Data     []Event `json:"data"`
	LastPage int     `json:"last_page"`
}

// EventDraft is the unsaved content of the creation form. Every field is kept
// as the raw string the user typed.
type EventDraft struct {
	Title         string `json:"title" form:"title"`
	Description   string `json:"description" form:"description"`
	DateTime      string `json:"datetime" form:"datetime"`
	Deadline      string `json:"deadline" form:"deadline"`
	Location      string `json:"location" form:"location"`
	Price         string `json:"price" form:"price"`
	AttendeeLimit string `json:"attendee_limit" form:"attendee_limit"`
}

// MessageResponse is the body of every mutation response, success or failure.
type MessageResponse struct {
	Message string `json:"message"`
}

func scalarString(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}
