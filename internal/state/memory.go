package state

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/agenda-distribuida/events-web/internal/pagination"
)

// minSweepInterval bounds how often a write scans for expired keys.
const minSweepInterval = time.Second

// memoryEntry is everything kept under one key. The fetch sequencer lives and
// expires with the value it guards.
type memoryEntry struct {
	data    []byte
	seq     *pagination.Sequencer
	expires time.Time
}

// MemoryStore keeps state in process memory. Used when no Redis is configured
// and in tests.
type MemoryStore struct {
	mu        sync.Mutex
	ttl       time.Duration
	now       func() time.Time
	entries   map[string]*memoryEntry
	nextSweep time.Time
}

// NewMemoryStore creates a store whose keys expire ttl after their last write.
// A zero ttl never expires.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*memoryEntry),
	}
}

func (m *MemoryStore) Load(_ context.Context, key string, dst interface{}) error {
	m.mu.Lock()
	entry := m.live(key)
	var data []byte
	if entry != nil {
		data = entry.data
	}
	m.mu.Unlock()

	if data == nil {
		return ErrNotFound
	}
	return json.Unmarshal(data, dst)
}

func (m *MemoryStore) Take(_ context.Context, key string, dst interface{}) error {
	m.mu.Lock()
	entry := m.live(key)
	var data []byte
	if entry != nil {
		data = entry.data
		entry.data = nil
		if entry.seq == nil {
			delete(m.entries, key)
		}
	}
	m.mu.Unlock()

	if data == nil {
		return ErrNotFound
	}
	return json.Unmarshal(data, dst)
}

func (m *MemoryStore) Save(_ context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entry(key).data = data
	return nil
}

func (m *MemoryStore) NextToken(_ context.Context, key string) (pagination.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := m.entry(key)
	if entry.seq == nil {
		entry.seq = &pagination.Sequencer{}
	}
	return entry.seq.Next(), nil
}

func (m *MemoryStore) CommitIfLatest(_ context.Context, key string, token pagination.Token, v interface{}) (bool, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// An expired key took its sequencer with it, so tokens issued before
	// the expiry are stale.
	entry := m.live(key)
	if entry == nil || entry.seq == nil || !entry.seq.IsLatest(token) {
		return false, nil
	}
	m.entry(key).data = data
	return true, nil
}

// live returns the unexpired entry of key, dropping it if it expired.
// m.mu must be held.
func (m *MemoryStore) live(key string) *memoryEntry {
	entry, ok := m.entries[key]
	if !ok {
		return nil
	}
	if m.expired(entry, m.now()) {
		delete(m.entries, key)
		return nil
	}
	return entry
}

// entry returns the entry of key for writing and renews its expiry. m.mu must
// be held.
func (m *MemoryStore) entry(key string) *memoryEntry {
	now := m.now()
	m.sweep(now)

	entry := m.live(key)
	if entry == nil {
		entry = &memoryEntry{}
		m.entries[key] = entry
	}
	entry.expires = now.Add(m.ttl)
	return entry
}

// sweep drops every expired entry, at most once per ttl. m.mu must be held.
func (m *MemoryStore) sweep(now time.Time) {
	if m.ttl <= 0 || now.Before(m.nextSweep) {
		return
	}
	for key, entry := range m.entries {
		if m.expired(entry, now) {
			delete(m.entries, key)
		}
	}

	interval := m.ttl
	if interval < minSweepInterval {
		interval = minSweepInterval
	}
	m.nextSweep = now.Add(interval)
}

func (m *MemoryStore) expired(entry *memoryEntry, now time.Time) bool {
	return m.ttl > 0 && now.After(entry.expires)
}

// size is the number of keys held, expired or not.
func (m *MemoryStore) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
