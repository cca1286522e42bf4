package authcore

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// sessionTokenBytes sizes the raw token before encoding; 32 bytes keeps the
// token unguessable without a signing scheme.
const sessionTokenBytes = 32

// MemoryIssuer mints opaque session tokens and tracks them in process. It
// owns Session storage exclusively.
type MemoryIssuer struct {
	mu       sync.RWMutex
	sessions map[string]Session
	now      func() time.Time
}

// IssuerOption customizes issuer construction.
type IssuerOption func(*MemoryIssuer)

// WithIssuerClock injects a custom clock (useful for tests).
func WithIssuerClock(clock func() time.Time) IssuerOption {
	return func(i *MemoryIssuer) {
		if clock != nil {
			i.now = clock
		}
	}
}

// NewMemoryIssuer returns an issuer with no live sessions.
func NewMemoryIssuer(opts ...IssuerOption) *MemoryIssuer {
	i := &MemoryIssuer{
		sessions: map[string]Session{},
		now:      time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(i)
		}
	}

	return i
}

var _ SessionIssuer = (*MemoryIssuer)(nil)

// Issue mints a token for userID. Tokens never collide across live sessions.
func (i *MemoryIssuer) Issue(userID uuid.UUID) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	for {
		token, err := randomToken()
		if err != nil {
			return "", err
		}
		if _, taken := i.sessions[token]; taken {
			continue
		}

		i.sessions[token] = Session{
			Token:    token,
			UserID:   userID,
			IssuedAt: i.now(),
		}
		return token, nil
	}
}

// Invalidate destroys the session. Unknown or already-invalidated tokens are
// not an error.
func (i *MemoryIssuer) Invalidate(token string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.sessions, token)
}

// Resolve maps a presented token back to its session.
func (i *MemoryIssuer) Resolve(token string) (Session, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	session, ok := i.sessions[token]
	return session, ok
}

// Len reports how many sessions are live.
func (i *MemoryIssuer) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.sessions)
}

func randomToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("authcore: token entropy unavailable: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
