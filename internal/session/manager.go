// Package session maps opaque cookie tokens to authenticated identities.
//
// A token is an HS256 JWT whose ID claim names an entry in a server-side
// table; the signature alone never authenticates, so logout takes effect
// immediately.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/bookshelf/internal/model"
)

// DefaultTTL is used when the manager is constructed with a non-positive TTL.
const DefaultTTL = 24 * time.Hour

// ErrNoSecret is returned by NewManager when the signing key is empty.
var ErrNoSecret = errors.New("session: empty signing key")

type entry struct {
	identity model.Identity
	expires  time.Time
}

// Manager issues, resolves and terminates sessions. Safe for concurrent use;
// all operations on the table are serialized by one mutex.
type Manager struct {
	mu      sync.Mutex
	entries map[string]entry

	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewManager constructs a Manager signing tokens with key.
func NewManager(key []byte, ttl time.Duration) (*Manager, error) {
	if len(key) == 0 {
		return nil, ErrNoSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		entries: make(map[string]entry),
		key:     key,
		ttl:     ttl,
		now:     time.Now,
	}, nil
}

// TTL returns the session lifetime.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Establish registers a session for id and returns its signed token.
func (m *Manager) Establish(id model.Identity) (string, time.Time, error) {
	if id.Anonymous() {
		return "", time.Time{}, errors.New("session: anonymous identity")
	}
	sid, err := uuid.NewV4()
	if err != nil {
		return "", time.Time{}, err
	}

	m.mu.Lock()
	now := m.now()
	exp := now.Add(m.ttl)
	m.sweepLocked(now)
	m.entries[sid.String()] = entry{identity: id, expires: exp}
	m.mu.Unlock()

	claims := jwt.RegisteredClaims{
		ID:        sid.String(),
		Subject:   id.UserID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		m.mu.Lock()
		delete(m.entries, sid.String())
		m.mu.Unlock()
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return signed, exp, nil
}

// Resolve returns the identity behind token. Anything invalid, unknown,
// terminated or expired resolves to anonymous.
func (m *Manager) Resolve(token string) (model.Identity, bool) {
	claims, ok := m.parse(token)
	if !ok {
		return model.Identity{}, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[claims.ID]
	if !ok {
		return model.Identity{}, false
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, claims.ID)
		return model.Identity{}, false
	}
	if e.identity.UserID.String() != claims.Subject {
		return model.Identity{}, false
	}
	return e.identity, true
}

// Terminate destroys the session behind token. Unknown or malformed tokens are ignored.
func (m *Manager) Terminate(token string) {
	claims, ok := m.parse(token)
	if !ok {
		return
	}
	m.mu.Lock()
	delete(m.entries, claims.ID)
	m.mu.Unlock()
}

// TerminateUser destroys every session of userID.
func (m *Manager) TerminateUser(userID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for sid, e := range m.entries {
		if e.identity.UserID == userID {
			delete(m.entries, sid)
		}
	}
}

// Sweep drops expired entries and returns how many were removed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked(m.now())
}

// Len returns the table size. Expired entries count until swept.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Manager) sweepLocked(now time.Time) int {
	n := 0
	for sid, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, sid)
			n++
		}
	}
	return n
}

// parse verifies signature and algorithm only. Expiry is judged by the table.
func (m *Manager) parse(token string) (*jwt.RegisteredClaims, bool) {
	if token == "" {
		return nil, false
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return m.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || claims.ID == "" {
		return nil, false
	}
	return claims, true
}
