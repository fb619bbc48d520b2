package user

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no user document exists for the id.
var ErrNotFound = errors.New("user not found")

// Repository defines the interface for user data access
type Repository interface {
	// Upsert creates the user on first login or refreshes profile fields and
	// lastLoginAt on subsequent logins.
	Upsert(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	List(ctx context.Context) ([]*User, error)
}
