package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the computational cost for password hashing
	BcryptCost = 12

	// MinPasswordLength is the shortest intake password HashPassword accepts
	MinPasswordLength = 12
)

// ErrPasswordTooShort is returned by HashPassword for short passwords
var ErrPasswordTooShort = errors.New("password must be at least 12 characters")

// HashPassword hashes a plaintext password using bcrypt with cost 12
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares a plaintext password against a bcrypt hash
// Returns nil if the password matches, an error otherwise
func VerifyPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
