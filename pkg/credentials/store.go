package credentials

import (
	"sync"
)

// Pair holds the access credential and the renewal credential.
// Both values are opaque and passed through unmodified.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// IsZero reports whether neither token is set
func (p Pair) IsZero() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}

// Store holds the current credential pair in process memory.
// It is the single source of truth read by every outgoing request.
// Store never persists anything; persistence belongs to the session layer.
type Store struct {
	pair Pair
	mu   sync.RWMutex
}

// NewStore creates an empty credential store
func NewStore() *Store {
	return &Store{}
}

// SetAccess replaces the access credential
func (s *Store) SetAccess(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pair.AccessToken = token
}

// SetRefresh replaces the renewal credential
func (s *Store) SetRefresh(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pair.RefreshToken = token
}

// Set replaces both credentials at once
func (s *Store) Set(pair Pair) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pair = pair
}

// Current returns the latest credential pair
func (s *Store) Current() Pair {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.pair
}

// Clear drops both credentials
func (s *Store) Clear() {
	s.Set(Pair{})
}
