package authcore

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTicketTTL bounds how long a confirmed reset may sit before the final
// password change.
const DefaultTicketTTL = 10 * time.Minute

// resetTicket marks an email whose reset code already passed verification.
// It is distinct from the code entry: the code is consumed when the ticket is
// granted, so a leaked code cannot be replayed after the legitimate holder
// completed the flow.
type resetTicket struct {
	id        uuid.UUID
	grantedAt time.Time
	expiresAt time.Time
}

type ticketStore struct {
	mu      sync.Mutex
	tickets map[string]resetTicket
	ttl     time.Duration
	now     func() time.Time
}

func newTicketStore(ttl time.Duration, now func() time.Time) *ticketStore {
	if ttl <= 0 {
		ttl = DefaultTicketTTL
	}
	if now == nil {
		now = time.Now
	}
	return &ticketStore{
		tickets: map[string]resetTicket{},
		ttl:     ttl,
		now:     now,
	}
}

// Grant records a verified ticket for email, replacing any prior one.
func (t *ticketStore) Grant(email string) {
	email = NormalizeEmail(email)

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.tickets[email] = resetTicket{
		id:        uuid.New(),
		grantedAt: now,
		expiresAt: now.Add(t.ttl),
	}
}

// Consume removes the live ticket for email. Missing and expired tickets both
// fail with ErrNotVerified; a ticket is never consumed twice.
func (t *ticketStore) Consume(email string) error {
	email = NormalizeEmail(email)

	t.mu.Lock()
	defer t.mu.Unlock()

	ticket, ok := t.tickets[email]
	if !ok {
		return ErrNotVerified
	}

	delete(t.tickets, email)

	if t.now().After(ticket.expiresAt) {
		return ErrNotVerified
	}

	return nil
}
