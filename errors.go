package authcore

import (
	goerrors "github.com/goliatone/go-errors"
)

// Stable text codes carried by every user-facing error. Callers key UI
// behavior off these, never off message text.
const (
	TextCodeInvalidCreds     = "INVALID_CREDENTIALS"
	TextCodeAccountSuspended = "ACCOUNT_SUSPENDED"
	TextCodeDuplicateEmail   = "DUPLICATE_EMAIL"
	TextCodeUserNotFound     = "USER_NOT_FOUND"
	TextCodeCodeNotFound     = "VERIFICATION_NOT_FOUND"
	TextCodePurposeMismatch  = "VERIFICATION_PURPOSE_MISMATCH"
	TextCodeCodeExpired      = "VERIFICATION_EXPIRED"
	TextCodeCodeMismatch     = "VERIFICATION_CODE_MISMATCH"
	TextCodeNotVerified      = "RESET_NOT_VERIFIED"
	TextCodeEmptySecret      = "EMPTY_PASSWORD"
)

// ErrInvalidCredentials is returned for both unknown accounts and wrong
// passwords. Login must not let a caller tell the two apart.
var ErrInvalidCredentials = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountSuspended is returned when the account exists and the password
// matches but the account has been deactivated.
var ErrAccountSuspended = goerrors.New("account is suspended", goerrors.CategoryAuthz).
	WithTextCode(TextCodeAccountSuspended).
	WithCode(goerrors.CodeForbidden)

// ErrDuplicateEmail is returned when a registration targets an email that
// already has an account.
var ErrDuplicateEmail = goerrors.New("an account with this email already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail).
	WithCode(goerrors.CodeConflict)

// ErrUserNotFound is returned by operations that require an existing account.
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrCodeNotFound is returned when no pending verification exists for the
// email, including after a code was already consumed.
var ErrCodeNotFound = goerrors.New("no pending verification for this email", goerrors.CategoryNotFound).
	WithTextCode(TextCodeCodeNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrPurposeMismatch is returned when the pending entry was issued for a
// different workflow, e.g. a registration code submitted to a password reset.
var ErrPurposeMismatch = goerrors.New("verification code was issued for a different purpose", goerrors.CategoryValidation).
	WithTextCode(TextCodePurposeMismatch).
	WithCode(goerrors.CodeBadRequest)

// ErrCodeExpired is returned once the entry outlived its window. The entry is
// removed as a side effect; retrying yields ErrCodeNotFound.
var ErrCodeExpired = goerrors.New("verification code has expired", goerrors.CategoryValidation).
	WithTextCode(TextCodeCodeExpired).
	WithCode(goerrors.CodeBadRequest)

// ErrCodeMismatch is returned for a wrong code. The entry is retained so the
// caller may retry until expiry.
var ErrCodeMismatch = goerrors.New("verification code does not match", goerrors.CategoryAuth).
	WithTextCode(TextCodeCodeMismatch).
	WithCode(goerrors.CodeUnauthorized)

// ErrNotVerified is returned by ResetPassword when no live verified ticket
// exists for the email.
var ErrNotVerified = goerrors.New("password reset has not been verified", goerrors.CategoryAuthz).
	WithTextCode(TextCodeNotVerified).
	WithCode(goerrors.CodeForbidden)

// ErrNoEmptySecret guards the hasher against empty inputs.
var ErrNoEmptySecret = goerrors.New("secret must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptySecret).
	WithCode(goerrors.CodeBadRequest)

// HasTextCode reports whether err carries the given stable text code.
func HasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}

	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}

	return richErr.TextCode == code
}

// IsInvalidCredentials checks for the enumeration-safe login failure.
func IsInvalidCredentials(err error) bool {
	return HasTextCode(err, TextCodeInvalidCreds)
}

// IsDuplicateEmail checks for registration conflicts, including the
// concurrent-insert race surfaced by ConfirmRegistration.
func IsDuplicateEmail(err error) bool {
	return HasTextCode(err, TextCodeDuplicateEmail)
}

// IsUserNotFound checks for operations that require an existing account.
func IsUserNotFound(err error) bool {
	return HasTextCode(err, TextCodeUserNotFound)
}

// IsCodeExpired checks for the expired-entry verification failure.
func IsCodeExpired(err error) bool {
	return HasTextCode(err, TextCodeCodeExpired)
}

// IsNotVerified checks for a reset attempted without a verified ticket.
func IsNotVerified(err error) bool {
	return HasTextCode(err, TextCodeNotVerified)
}
