package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/agenda-distribuida/events-web/internal/models"
)

// Scope selects which listing endpoint is queried.
type Scope string

const (
	// ScopePublic lists every event, with reservations.
	ScopePublic Scope = "/api/events"
	// ScopeOwn lists the events created by the caller.
	ScopeOwn Scope = "/api/user/events"
)

// APIError is a non-2xx answer from the events API. Message is the server's
// own explanation and is meant to be shown to the user verbatim.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("events API error: %d", e.Status)
	}
	return fmt.Sprintf("events API error: %d: %s", e.Status, e.Message)
}

// ServerMessage extracts the message an API rejection carried, if any.
func ServerMessage(err error) (string, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message, true
	}
	return "", false
}

type tokenKey struct{}

// WithToken attaches the caller's bearer token to ctx. Every request made with
// ctx is authenticated with it.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// EventsClient talks to the remote events API.
type EventsClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewEventsClient creates a client for baseURL. A zero timeout never times out.
func NewEventsClient(baseURL string, timeout time.Duration, logger *zap.Logger) *EventsClient {
	return &EventsClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger.Named("events_client"),
	}
}

// ListEvents fetches one page of the listing selected by scope.
func (c *EventsClient) ListEvents(ctx context.Context, scope Scope, page int) (*models.EventPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	endpoint := c.baseURL + string(scope) + "?" + q.Encode()

	var result models.EventPage
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &result); err != nil {
		c.logger.Error("Failed to list events",
			zap.String("scope", string(scope)),
			zap.Int("page", page),
			zap.Error(err))
		return nil, err
	}

	return &result, nil
}

// ReserveTicket reserves a ticket for the caller and returns the server's message.
func (c *EventsClient) ReserveTicket(ctx context.Context, eventID models.ID) (string, error) {
	endpoint := fmt.Sprintf("%s/api/events/%s/reserve", c.baseURL, url.PathEscape(string(eventID)))

	var result models.MessageResponse
	if err := c.do(ctx, http.MethodPost, endpoint, nil, &result); err != nil {
		c.logger.Warn("Ticket reservation rejected",
			zap.String("event_id", string(eventID)),
			zap.Error(err))
		return "", err
	}

	return result.Message, nil
}

// CreateEvent submits draft as a new event and returns the server's message.
func (c *EventsClient) CreateEvent(ctx context.Context, draft models.EventDraft) (string, error) {
	endpoint := c.baseURL + string(ScopePublic)

	var result models.MessageResponse
	if err := c.do(ctx, http.MethodPost, endpoint, draft, &result); err != nil {
		c.logger.Warn("Event creation rejected",
			zap.String("title", draft.Title),
			zap.Error(err))
		return "", err
	}

	return result.Message, nil
}

func (c *EventsClient) do(ctx context.Context, method, endpoint string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := tokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var msg models.MessageResponse
		if err := json.NewDecoder(resp.Body).Decode(&msg); err == nil {
			apiErr.Message = msg.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, endpoint, err)
	}
	return nil
}
