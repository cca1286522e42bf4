package authcore

import (
	"context"
	"crypto/subtle"
	"hash/fnv"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// DefaultCodeTTL is the verification window measured from Put.
const DefaultCodeTTL = 10 * time.Minute

const codeStoreShards = 32

// entry is one pending verification attempt. At most one lives per email.
type entry struct {
	code      string
	purpose   Purpose
	payload   any
	createdAt time.Time
	expiresAt time.Time
}

type codeShard struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// CodeStore maps an email address to a single pending, TTL-bound, single-use
// verification attempt. Entries are sharded by email so Put and Verify are
// mutually exclusive per email without serializing unrelated addresses.
//
// Expiry is enforced lazily during Verify and Reissue; StartSweeper is only
// there to bound memory from abandoned requests and never changes the
// semantics callers observe.
type CodeStore struct {
	shards [codeStoreShards]codeShard
	ttl    time.Duration
	now    func() time.Time
	gen    CodeGenerator
	logger Logger
}

// CodeStoreOption customizes store construction.
type CodeStoreOption func(*CodeStore)

// WithStoreTTL overrides the verification window.
func WithStoreTTL(ttl time.Duration) CodeStoreOption {
	return func(s *CodeStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithStoreClock injects a custom clock (useful for tests).
func WithStoreClock(clock func() time.Time) CodeStoreOption {
	return func(s *CodeStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithStoreGenerator overrides the code generator.
func WithStoreGenerator(gen CodeGenerator) CodeStoreOption {
	return func(s *CodeStore) {
		if gen != nil {
			s.gen = gen
		}
	}
}

// WithStoreLogger overrides the logger used by the sweeper.
func WithStoreLogger(logger Logger) CodeStoreOption {
	return func(s *CodeStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewCodeStore returns an empty store with the default 10 minute window.
func NewCodeStore(opts ...CodeStoreOption) *CodeStore {
	s := &CodeStore{
		ttl:    DefaultCodeTTL,
		now:    time.Now,
		gen:    NewCodeGenerator(),
		logger: defLogger{},
	}

	for i := range s.shards {
		s.shards[i].entries = map[string]*entry{}
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

func (s *CodeStore) shard(email string) *codeShard {
	h := fnv.New32a()
	h.Write([]byte(email))
	return &s.shards[h.Sum32()%codeStoreShards]
}

// Put issues a fresh code for email, unconditionally replacing any existing
// entry regardless of its purpose. The returned code goes to the out-of-band
// delivery collaborator, never to the requesting caller.
func (s *CodeStore) Put(email string, purpose Purpose, payload any) (string, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return "", goerrors.New("email must not be empty", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}
	if !purpose.IsValid() {
		return "", goerrors.New("unknown verification purpose", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"purpose": purpose})
	}

	shard := s.shard(email)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	code := s.gen.Generate()
	now := s.now()
	shard.entries[email] = &entry{
		code:      code,
		purpose:   purpose,
		payload:   payload,
		createdAt: now,
		expiresAt: now.Add(s.ttl),
	}

	return code, nil
}

// Verify checks submitted against the pending entry for email.
//
// Failure modes, in order: ErrCodeNotFound when nothing is pending,
// ErrPurposeMismatch when the entry belongs to the other workflow,
// ErrCodeExpired when the window elapsed (the entry is deleted), and
// ErrCodeMismatch for a wrong code (the entry is retained for retry).
// On success the entry is consumed and its payload returned; a second call
// with the same code fails with ErrCodeNotFound.
func (s *CodeStore) Verify(email string, purpose Purpose, submitted string) (any, error) {
	email = NormalizeEmail(email)

	shard := s.shard(email)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	ent, ok := shard.entries[email]
	if !ok {
		return nil, ErrCodeNotFound
	}

	if ent.purpose != purpose {
		return nil, ErrPurposeMismatch
	}

	if s.now().After(ent.expiresAt) {
		delete(shard.entries, email)
		return nil, ErrCodeExpired
	}

	if subtle.ConstantTimeCompare([]byte(ent.code), []byte(submitted)) != 1 {
		return nil, ErrCodeMismatch
	}

	delete(shard.entries, email)
	return ent.payload, nil
}

// Reissue regenerates the code for an existing entry, keeping its payload and
// restarting the window. Resends go through here so the pending registration
// fields survive while the prior code is invalidated.
func (s *CodeStore) Reissue(email string, purpose Purpose) (string, error) {
	email = NormalizeEmail(email)

	shard := s.shard(email)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	ent, ok := shard.entries[email]
	if !ok {
		return "", ErrCodeNotFound
	}

	if ent.purpose != purpose {
		return "", ErrPurposeMismatch
	}

	if s.now().After(ent.expiresAt) {
		delete(shard.entries, email)
		return "", ErrCodeExpired
	}

	code := s.gen.Generate()
	now := s.now()
	ent.code = code
	ent.createdAt = now
	ent.expiresAt = now.Add(s.ttl)

	return code, nil
}

// Len reports how many entries are pending, expired ones included.
func (s *CodeStore) Len() int {
	total := 0
	for i := range s.shards {
		shard := &s.shards[i]
		shard.mu.Lock()
		total += len(shard.entries)
		shard.mu.Unlock()
	}
	return total
}

// Sweep drops every expired entry and reports how many were removed.
func (s *CodeStore) Sweep() int {
	now := s.now()
	removed := 0

	for i := range s.shards {
		shard := &s.shards[i]
		shard.mu.Lock()
		for email, ent := range shard.entries {
			if now.After(ent.expiresAt) {
				delete(shard.entries, email)
				removed++
			}
		}
		shard.mu.Unlock()
	}

	return removed
}

// StartSweeper runs Sweep every interval until ctx is cancelled.
func (s *CodeStore) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = s.ttl
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					s.logger.Debug("code store sweep removed %d expired entries", n)
				}
			}
		}
	}()
}
