package authcore

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	return hashPasswordCost(password, passwordHashCost())
}

func hashPasswordCost(password string, cost int) (string, error) {
	if password == "" {
		return "", ErrNoEmptySecret
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidCredentials
		}
		return err
	}
	return nil
}

// BcryptHasher is the production Hasher. The engine only sees the Hasher
// interface, so the work factor (or the algorithm) can change without
// touching any flow.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher clamps cost into bcrypt's supported range.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = passwordHashCost()
	}
	return &BcryptHasher{cost: cost}
}

var _ Hasher = (*BcryptHasher)(nil)

func (h *BcryptHasher) Hash(secret string) (string, error) {
	return hashPasswordCost(secret, h.cost)
}

func (h *BcryptHasher) Compare(secret, hash string) error {
	return ComparePasswordAndHash(secret, hash)
}
