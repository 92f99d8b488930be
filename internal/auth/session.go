package auth

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// SessionStore maps opaque bearer tokens to user IDs, in process memory.
//
// Tokens are unguessable random strings; possession alone grants access.
// There is no persistence: a restart logs everyone out. Expiry is enforced
// lazily on Resolve, with a configurable TTL counted from issue. A TTL of
// 0 disables expiry entirely.
//
// All three operations are called from concurrent request handlers, so the
// map is guarded by an RWMutex.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]session
	ttl      time.Duration
	now      func() time.Time // injectable clock for tests
}

type session struct {
	userID   string
	issuedAt time.Time
}

// NewSessionStore creates a SessionStore. ttl <= 0 means sessions never
// expire (they live until Revoke or process restart).
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Issue generates a new random token for userID and records the mapping.
// Tokens are 32 hex characters from crypto/rand; collisions are not a
// practical concern at that entropy, and a collision would only overwrite
// one stale session.
func (s *SessionStore) Issue(userID string) string {
	buf := make([]byte, 16)
	// rand.Read on the crypto source never fails on supported platforms.
	_, _ = rand.Read(buf)
	token := hex.EncodeToString(buf)

	s.mu.Lock()
	s.sessions[token] = session{userID: userID, issuedAt: s.now()}
	s.mu.Unlock()

	return token
}

// Resolve returns the user ID a token maps to. An unknown, revoked or
// expired token resolves as absent; expired entries are removed.
func (s *SessionStore) Resolve(token string) (string, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}

	if s.ttl > 0 && s.now().Sub(sess.issuedAt) > s.ttl {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return "", false
	}

	return sess.userID, true
}

// Revoke removes a token. Revoking an unknown token is a no-op.
func (s *SessionStore) Revoke(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}
