// Package state keeps per-session page state between requests.
package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/agenda-distribuida/events-web/internal/pagination"
)

// ErrNotFound is returned by Load when nothing is stored under the key.
var ErrNotFound = errors.New("state not found")

// Store persists JSON-encodable values per key and issues fetch tokens per key.
type Store interface {
	// Load decodes the value stored under key into dst.
	Load(ctx context.Context, key string, dst interface{}) error
	// Take is Load that also deletes the value, atomically. Of concurrent
	// callers only one receives it.
	Take(ctx context.Context, key string, dst interface{}) error
	// Save stores v under key unconditionally.
	Save(ctx context.Context, key string, v interface{}) error
	// NextToken issues a fetch token for key that supersedes all earlier ones.
	NextToken(ctx context.Context, key string) (pagination.Token, error)
	// CommitIfLatest stores v only if token is still the newest token for key.
	CommitIfLatest(ctx context.Context, key string, token pagination.Token, v interface{}) (bool, error)
}

// Key builds the storage key of one page of one session.
func Key(sessionID, page string) string {
	return fmt.Sprintf("events-web:%s:%s", sessionID, page)
}

func tokenKey(key string) string {
	return key + ":token"
}
