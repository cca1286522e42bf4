package authcore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// CodeGenerator produces verification codes: 6 ASCII digits, each position
// drawn uniformly, leading zeros preserved.
type CodeGenerator interface {
	Generate() string
}

// Directory is the account store. FindByEmail and FindByID return nil without
// error when no record exists; Insert treats check-then-write as one atomic
// unit per email.
type Directory interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	Insert(ctx context.Context, record *User) (*User, error)
	UpdateCredential(ctx context.Context, id uuid.UUID, newHash string) error
	UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*User, error)
}

// SessionIssuer mints and invalidates opaque session tokens.
type SessionIssuer interface {
	Issue(userID uuid.UUID) (string, error)
	Invalidate(token string)
	Resolve(token string) (Session, bool)
}

// CodeSender delivers a verification code out-of-band. The engine dispatches
// fire-and-forget; a delivery failure is invisible to the state machine.
type CodeSender interface {
	SendCode(ctx context.Context, email string, purpose Purpose, code string) error
}

// Hasher turns a credential secret into its stored form and checks submitted
// secrets against it. The engine never inspects the stored form.
type Hasher interface {
	Hash(secret string) (string, error)
	Compare(secret, hash string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTHCORE "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTHCORE "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTHCORE "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTHCORE "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
