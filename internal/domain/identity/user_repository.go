package identity

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository is the persistence port for local users.
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *User) error

	// Update updates an existing user
	Update(ctx context.Context, user *User) error

	// Delete deletes a user by ID
	Delete(ctx context.Context, id uuid.UUID) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)

	// FindByEmail finds a user by email (case-insensitive)
	FindByEmail(ctx context.Context, email string) (*User, error)

	// List returns users ordered by creation time
	List(ctx context.Context, offset, limit int) ([]*User, int64, error)
}
