// Package users stores identities and implements registration, login and
// profile changes.
package users

import (
	"strings"
	"time"

	"github.com/s1natex/taskmanager-api/internal/apperr"
)

// MinPasswordLen is the shortest password accepted on register or update.
const MinPasswordLen = 6

// MaxPasswordBytes is the longest input bcrypt will hash.
const MaxPasswordBytes = 72

var (
	ErrNotFound           = apperr.New(apperr.KindNotFound, "User not found")
	ErrEmailConflict      = apperr.New(apperr.KindConflict, "Email already in use")
	ErrWeakPassword       = apperr.New(apperr.KindValidation, "Password must be at least 6 characters")
	ErrPasswordTooLong    = apperr.New(apperr.KindValidation, "Password must be at most 72 bytes")
	ErrInvalidEmail       = apperr.New(apperr.KindValidation, "Please provide a valid email")
	ErrNameRequired       = apperr.New(apperr.KindValidation, "Please provide a name")
	ErrInvalidCredentials = apperr.New(apperr.KindUnauthenticated, "Invalid email or password")
)

// User is a registered identity. PasswordHash never leaves the process.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
