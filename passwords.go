package warden

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost matches the work factor the rest of the system was tuned for.
const bcryptCost = 10

// HashPassword produces a salted one-way digest of plaintext.
func HashPassword(plaintext string) (string, error) {
	if plaintext == "" {
		return "", NewValidationError(ErrCodeEmptyInput, "password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether plaintext matches the stored hash.
func CheckPassword(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
