// Package domain contains the identity aggregates: users and their
// linked Google accounts.
package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyEmail = errors.New("email cannot be empty")
)

// User represents a user account.
type User struct {
	id        uuid.UUID
	email     string
	name      string
	createdAt time.Time
}

// NewUser creates a new user with the given email and display name.
func NewUser(email, name string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, ErrEmptyEmail
	}

	return &User{
		id:        uuid.New(),
		email:     email,
		name:      strings.TrimSpace(name),
		createdAt: time.Now().UTC(),
	}, nil
}

// RehydrateUser reconstructs a user from persisted state.
func RehydrateUser(id uuid.UUID, email, name string, createdAt time.Time) *User {
	return &User{
		id:        id,
		email:     email,
		name:      name,
		createdAt: createdAt,
	}
}

// Getters
func (u *User) ID() uuid.UUID        { return u.id }
func (u *User) Email() string        { return u.email }
func (u *User) Name() string         { return u.name }
func (u *User) CreatedAt() time.Time { return u.createdAt }
