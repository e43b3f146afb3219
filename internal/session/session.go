// Package session holds the identity and tokens of one signed-in user on the
// client side. A Session is passed explicitly to whatever needs it.
package session

import (
	"sync"

	"github.com/ayo6706/trading-backoffice/internal/policy"
)

type Tokens struct {
	Access  string
	Refresh string
}

// Session is safe for concurrent use. The zero value is signed out.
type Session struct {
	mu       sync.RWMutex
	identity policy.Identity
	name     string
	tokens   Tokens
	active   bool
}

func New() *Session {
	return &Session{}
}

// Start records a successful login.
func (s *Session) Start(identity policy.Identity, name string, tokens Tokens) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = identity
	s.name = name
	s.tokens = tokens
	s.active = true
}

// Rotate swaps in a refreshed token pair, keeping the identity.
func (s *Session) Rotate(tokens Tokens) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		s.tokens = tokens
	}
}

func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = policy.Identity{}
	s.name = ""
	s.tokens = Tokens{}
	s.active = false
}

// Identity returns the signed-in identity and whether there is one.
func (s *Session) Identity() (policy.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity, s.active
}

func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *Session) Tokens() Tokens {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}
