// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/bookshelf/internal/model"
	"github.com/gofrs/uuid/v5"
)

// UserRepository provides access to registered accounts.
type UserRepository interface {
	// Create inserts a new user. Taken username or email yields errs.ErrAlreadyExists.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByIdentifier loads a user whose username or email equals identifier.
	GetByIdentifier(ctx context.Context, identifier string) (*model.User, error)
	// Delete removes a user and, by cascade, every book it owns.
	Delete(ctx context.Context, id uuid.UUID) error
}
