package authcore

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// User is the account record. CredentialHash never leaves the engine; hand
// callers the Public view instead.
type User struct {
	ID             uuid.UUID `json:"id,omitempty"`
	Email          string    `json:"email,omitempty"`
	FirstName      string    `json:"first_name,omitempty"`
	LastName       string    `json:"last_name,omitempty"`
	ProfilePicture string    `json:"profile_picture,omitempty"`
	CredentialHash string    `json:"-"`
	IsOwner        bool      `json:"is_owner,omitempty"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
}

// PublicUser is the credential-stripped view returned by Login and
// ConfirmRegistration.
type PublicUser struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	FirstName      string    `json:"first_name,omitempty"`
	LastName       string    `json:"last_name,omitempty"`
	ProfilePicture string    `json:"profile_picture,omitempty"`
	IsOwner        bool      `json:"is_owner,omitempty"`
	Active         bool      `json:"active"`
}

// Public strips the credential from the record.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:             u.ID,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		ProfilePicture: u.ProfilePicture,
		IsOwner:        u.IsOwner,
		Active:         u.Active,
	}
}

// ProfileUpdate carries partial profile mutations. Empty fields are left
// untouched.
type ProfileUpdate struct {
	FirstName      string `json:"first_name,omitempty"`
	LastName       string `json:"last_name,omitempty"`
	ProfilePicture string `json:"profile_picture,omitempty"`
}

// Purpose discriminates the two verification workflows. A code issued for one
// never satisfies a check for the other.
type Purpose string

const (
	PurposeRegistration  Purpose = "registration"
	PurposePasswordReset Purpose = "password_reset"
)

// IsValid checks the purpose is one of the two known workflows.
func (p Purpose) IsValid() bool {
	switch p {
	case PurposeRegistration, PurposePasswordReset:
		return true
	default:
		return false
	}
}

// FlowStage tags how far a verification workflow has progressed.
type FlowStage = string

const (
	// StageRequested is the accepted-but-unsent stage.
	StageRequested FlowStage = "requested"
	// StageCodeSent means a code was issued and handed to delivery.
	StageCodeSent FlowStage = "code-sent"
	// StageVerified means the code check passed.
	StageVerified FlowStage = "verified"
	// StageCompleted is the terminal success stage.
	StageCompleted FlowStage = "completed"
)

// FlowAck is the generic acknowledgment for request/resend/confirm steps.
// It never carries the code itself.
type FlowAck struct {
	Email string    `json:"email"`
	Stage FlowStage `json:"stage"`
}

// RegistrationFields is the payload accepted by RequestRegistration and held
// pending until the code is confirmed.
type RegistrationFields struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	ProfilePicture string `json:"profile_picture,omitempty"`
	IsOwner        bool   `json:"is_owner,omitempty"`
}

// Validate runs validation rules
func (r RegistrationFields) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration payload").
			WithCode(goerrors.CodeBadRequest)
	}
	return nil
}

// Session associates an opaque token with the user it was issued to.
type Session struct {
	Token    string    `json:"token"`
	UserID   uuid.UUID `json:"user_id"`
	IssuedAt time.Time `json:"issued_at"`
}

// NormalizeEmail is the canonical form used as the key in every store.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
