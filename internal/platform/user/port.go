package user

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for user persistence operations
type Repository interface {
	// Create creates a new user with a zero wallet balance.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByIDs retrieves users for the given IDs; missing IDs are skipped.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*User, error)

	// Update updates a user's mutable profile fields
	Update(ctx context.Context, user *User) error

	// Exists checks if a user with the given email exists
	Exists(ctx context.Context, email string) (bool, error)
}
