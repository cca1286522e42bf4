package authcore_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/adminkit/authcore"
)

// manualClock is a hand-advanced time source shared by the stores under test.
type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func newManualClock(start time.Time) *manualClock {
	return &manualClock{t: start}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// sentCode is one delivery observed by the recording sender.
type sentCode struct {
	Email   string
	Purpose authcore.Purpose
	Code    string
}

// recordingSender captures out-of-band deliveries so tests can read the code
// the engine never hands to callers.
type recordingSender struct {
	ch chan sentCode
}

func newRecordingSender() *recordingSender {
	return &recordingSender{ch: make(chan sentCode, 16)}
}

func (s *recordingSender) SendCode(ctx context.Context, email string, purpose authcore.Purpose, code string) error {
	s.ch <- sentCode{Email: email, Purpose: purpose, Code: code}
	return nil
}

// wait blocks until the fire-and-forget dispatch lands.
func (s *recordingSender) wait(t *testing.T) sentCode {
	t.Helper()
	select {
	case c := <-s.ch:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for code delivery")
		return sentCode{}
	}
}

// stubGenerator hands out a fixed sequence of codes.
type stubGenerator struct {
	mu    sync.Mutex
	codes []string
	i     int
}

func (g *stubGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	code := g.codes[g.i%len(g.codes)]
	g.i++
	return code
}

// recordingSink collects emitted activity event types.
type recordingSink struct {
	mu     sync.Mutex
	events []authcore.ActivityEvent
}

func (s *recordingSink) Record(ctx context.Context, event authcore.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) types() []authcore.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]authcore.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

// MockActivitySink implements authcore.ActivitySink
type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event authcore.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// testService builds a fully in-memory engine with a cheap hasher, a manual
// clock, and a recording sender.
func testService(t *testing.T, clock *manualClock) (*authcore.Service, *authcore.MemoryDirectory, *authcore.CodeStore, *authcore.MemoryIssuer, *recordingSender) {
	t.Helper()

	users := authcore.NewMemoryDirectory(authcore.WithDirectoryClock(clock.Now))
	codes := authcore.NewCodeStore(authcore.WithStoreClock(clock.Now))
	sessions := authcore.NewMemoryIssuer(authcore.WithIssuerClock(clock.Now))
	sender := newRecordingSender()

	svc := authcore.NewService(users, codes, sessions).
		WithClock(clock.Now).
		WithHasher(authcore.NewBcryptHasher(bcrypt.MinCost)).
		WithSender(sender)

	return svc, users, codes, sessions, sender
}

func registrationFields(email string) authcore.RegistrationFields {
	return authcore.RegistrationFields{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     email,
		Password:  "correct-horse-battery",
	}
}
