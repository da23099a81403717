package pagination

import "sync"

// Token identifies one fetch. Tokens issued by a Sequencer strictly increase.
type Token uint64

// Sequencer hands out fetch tokens so that only the newest fetch of a listing
// may commit its response.
type Sequencer struct {
	mu     sync.Mutex
	latest Token
}

// Next issues a token that supersedes every token issued before it.
func (s *Sequencer) Next() Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest++
	return s.latest
}

// IsLatest reports whether t is still the newest token.
func (s *Sequencer) IsLatest(t Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return t == s.latest
}
