package authcore

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// MemoryDirectory is the in-process Directory implementation. It owns the
// UserRecord storage exclusively; swap in a persistent implementation of
// Directory without touching the engine.
type MemoryDirectory struct {
	mu      sync.RWMutex
	byEmail map[string]*User
	byID    map[uuid.UUID]*User

	deterministicIDs bool
	now              func() time.Time
}

// DirectoryOption customizes directory construction.
type DirectoryOption func(*MemoryDirectory)

// WithDeterministicIDs derives user IDs from the email address instead of
// drawing random UUIDs, so re-provisioning the same account yields the same
// identifier.
func WithDeterministicIDs() DirectoryOption {
	return func(d *MemoryDirectory) {
		d.deterministicIDs = true
	}
}

// WithDirectoryClock injects a custom clock (useful for tests).
func WithDirectoryClock(clock func() time.Time) DirectoryOption {
	return func(d *MemoryDirectory) {
		if clock != nil {
			d.now = clock
		}
	}
}

// NewMemoryDirectory returns an empty directory.
func NewMemoryDirectory(opts ...DirectoryOption) *MemoryDirectory {
	d := &MemoryDirectory{
		byEmail: map[string]*User{},
		byID:    map[uuid.UUID]*User{},
		now:     time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}

	return d
}

var _ Directory = (*MemoryDirectory)(nil)

// FindByEmail returns a copy of the record, or nil when absent.
func (d *MemoryDirectory) FindByEmail(ctx context.Context, email string) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	user, ok := d.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, nil
	}

	clone := *user
	return &clone, nil
}

// FindByID returns a copy of the record, or nil when absent.
func (d *MemoryDirectory) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	user, ok := d.byID[id]
	if !ok {
		return nil, nil
	}

	clone := *user
	return &clone, nil
}

// Insert adds the record, assigning an ID when none is set. The email-absent
// check and the write happen under one lock, so two concurrent inserts for
// the same address produce exactly one success and one ErrDuplicateEmail.
func (d *MemoryDirectory) Insert(ctx context.Context, record *User) (*User, error) {
	if record == nil {
		return nil, goerrors.New("record must not be nil", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	email := NormalizeEmail(record.Email)
	if email == "" {
		return nil, goerrors.New("email must not be empty", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.byEmail[email]; exists {
		return nil, ErrDuplicateEmail
	}

	clone := *record
	clone.Email = email
	if clone.ID == uuid.Nil {
		clone.ID = d.newID(email)
	}

	now := d.now()
	clone.CreatedAt = now
	clone.UpdatedAt = now

	d.byEmail[email] = &clone
	d.byID[clone.ID] = &clone

	out := clone
	return &out, nil
}

// UpdateCredential replaces the stored credential hash.
func (d *MemoryDirectory) UpdateCredential(ctx context.Context, id uuid.UUID, newHash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	user, ok := d.byID[id]
	if !ok {
		return ErrUserNotFound
	}

	user.CredentialHash = newHash
	user.UpdatedAt = d.now()
	return nil
}

// UpdateProfile applies the non-empty fields of update and returns a copy of
// the result.
func (d *MemoryDirectory) UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	user, ok := d.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}

	if update.FirstName != "" {
		user.FirstName = update.FirstName
	}
	if update.LastName != "" {
		user.LastName = update.LastName
	}
	if update.ProfilePicture != "" {
		user.ProfilePicture = update.ProfilePicture
	}
	user.UpdatedAt = d.now()

	clone := *user
	return &clone, nil
}

// SetActive flips the suspension flag. Suspended accounts keep their
// credential and sessions but fail login with ErrAccountSuspended.
func (d *MemoryDirectory) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	user, ok := d.byID[id]
	if !ok {
		return ErrUserNotFound
	}

	user.Active = active
	user.UpdatedAt = d.now()
	return nil
}

// Len reports how many accounts exist.
func (d *MemoryDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byEmail)
}

func (d *MemoryDirectory) newID(email string) uuid.UUID {
	if d.deterministicIDs {
		if id, err := hashid.NewUUID(email); err == nil {
			return id
		}
	}
	return uuid.New()
}
