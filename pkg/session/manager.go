// Package session implements token-based authentication: minting opaque
// session tokens, looking them up, validating them against expiry, and
// sweeping the dead ones. A map keyed by token, readers-writer locked,
// with the clock injected so tests can advance time deterministically.
package session

import (
	"strconv"
	"sync"
	"time"

	"github.com/moss-street/tradeserver/pkg/apperr"
	"github.com/moss-street/tradeserver/pkg/auth"
	"github.com/moss-street/tradeserver/pkg/core"
	"github.com/moss-street/tradeserver/pkg/util"
)

// DefaultTTL is the lifetime of a freshly minted session.
const DefaultTTL = 30 * time.Second

// Token is an opaque, byte-exact-comparable session identifier.
type Token string

// Session binds a token to the user who holds it and the window during
// which it is valid.
type Session struct {
	Token     Token
	User      *core.User
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsValid reports whether the session has not yet expired at now.
func (s Session) IsValid(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}

// Manager is the concurrent token -> Session mapping. Lookups (GetSession,
// and ValidateSession on a still-valid session) take the read lock;
// mutations (NewSession, Cleanup, and ValidateSession's removal of an
// expired session) take the write lock.
type Manager struct {
	mu       sync.RWMutex
	sessions map[Token]Session
	clock    util.Clock
	ttl      time.Duration
}

func NewManager(clock util.Clock) *Manager {
	return &Manager{
		sessions: make(map[Token]Session),
		clock:    clock,
		ttl:      DefaultTTL,
	}
}

// NewSession mints a token for user, derived by a slow one-way hash of
// (user_id, created_at): a low-cost bcrypt hash. bcrypt adds a random
// salt, so two mints from the same (user_id, created_at) give different
// tokens.
func (m *Manager) NewSession(user *core.User) (Session, error) {
	if user.ID == 0 {
		return Session{}, apperr.New(apperr.KindInvalidUser, "cannot mint a session for an unsaved user")
	}
	now := m.clock.Now()
	token, err := mintToken(user.ID, now)
	if err != nil {
		return Session{}, apperr.Wrap(apperr.KindInternal, err, "mint session token")
	}
	s := Session{
		Token:     token,
		User:      user,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	m.mu.Lock()
	m.sessions[token] = s
	m.mu.Unlock()
	return s, nil
}

// mintToken derives a session token from the user id and mint time via
// bcrypt at its minimum cost: fast enough to mint in milliseconds,
// slow/salted enough to resist trivial forgery.
func mintToken(userID int64, at time.Time) (Token, error) {
	input := strconv.FormatInt(userID, 10) + ":" + strconv.FormatInt(at.UnixNano(), 10)
	hashed, err := auth.HashLowCost(input)
	if err != nil {
		return "", err
	}
	return Token(hashed), nil
}

// GetSession is a membership lookup only; it does not check expiry.
func (m *Manager) GetSession(token Token) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[token]
	return s, ok
}

// ValidateSession returns the session's user iff the session is still
// valid at the current time. An invalid session is removed from the map
// as a side effect. Tolerates the token already being gone (a concurrent
// sweep or another validator may have removed it first) by simply
// returning not-ok.
func (m *Manager) ValidateSession(s Session) (*core.User, bool) {
	now := m.clock.Now()
	if !s.IsValid(now) {
		m.mu.Lock()
		delete(m.sessions, s.Token)
		m.mu.Unlock()
		return nil, false
	}

	m.mu.RLock()
	current, ok := m.sessions[s.Token]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return current.User, true
}

// Cleanup removes every session whose expiry has passed. Idempotent;
// intended to be run periodically (e.g. by a ticker in cmd/tradeserver).
func (m *Manager) Cleanup() {
	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for tok, s := range m.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(m.sessions, tok)
		}
	}
}

// Authenticate resolves a raw Authorization header value to a User,
// distinguishing three failure modes: missing header, unknown token,
// expired token.
func (m *Manager) Authenticate(rawToken string) (*core.User, error) {
	if rawToken == "" {
		return nil, apperr.New(apperr.KindUnauthenticated, "missing_auth")
	}
	s, ok := m.GetSession(Token(rawToken))
	if !ok {
		return nil, apperr.New(apperr.KindUnauthenticated, "invalid_token")
	}
	user, ok := m.ValidateSession(s)
	if !ok {
		return nil, apperr.New(apperr.KindUnauthenticated, "expired")
	}
	return user, nil
}
