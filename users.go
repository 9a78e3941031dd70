package warden

import (
	"context"
	"errors"
	"time"
)

// UserSource tags how an account was created.
type UserSource int

const (
	SourceLocal  UserSource = 1 // registered with email + password
	SourceGoogle UserSource = 2 // created through Google sign-in
)

// User is the durable identity record.
//
// Invariants: exactly one user per email; a SourceLocal user always has a
// non-empty PasswordHash, a SourceGoogle user always has an empty one and is
// never password-checked.
type User struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string
	Source       UserSource
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the snapshot of a user that is safe to put in a session or
// a response body. It never carries the password hash.
type PublicUser struct {
	ID       int64      `json:"id"`
	Email    string     `json:"email"`
	Username string     `json:"username"`
	Source   UserSource `json:"userSource"`
}

// Public returns the externally visible view of the user.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email, Username: u.Username, Source: u.Source}
}

// Store sentinel errors. Implementations must return these (possibly wrapped)
// so the service can map them to the right conflict paths.
var (
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken is returned by CreateUser when the email's unique
	// constraint is violated. Relying on the constraint rather than the
	// preceding lookup closes the concurrent-signup race.
	ErrEmailTaken = errors.New("email already taken")
)

// UserStore persists user records keyed by unique email.
type UserStore interface {
	// GetUserByEmail returns ErrUserNotFound if no user has the email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// GetUserByID returns ErrUserNotFound if the id does not exist.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// CreateUser assigns the ID and timestamps. Returns ErrEmailTaken when
	// another user already holds the email.
	CreateUser(ctx context.Context, user *User) (*User, error)

	// SaveUser updates an existing user record.
	SaveUser(ctx context.Context, user *User) error
}
