package repository

import (
	"context"

	"github.com/and161185/bookshelf/internal/model"
	"github.com/gofrs/uuid/v5"
)

// BookRepository provides access to catalog records.
type BookRepository interface {
	// Create inserts a book. A taken title yields errs.ErrAlreadyExists.
	Create(ctx context.Context, b *model.Book) error

	// List returns books matching the filter ordered by title.
	List(ctx context.Context, f model.BookFilter) ([]model.Book, error)

	// Get returns a single book by ID.
	Get(ctx context.Context, id uuid.UUID) (*model.Book, error)

	// Update replaces the editable fields of a book owned by ownerID.
	Update(ctx context.Context, b *model.Book) error

	// Delete removes a book owned by ownerID.
	Delete(ctx context.Context, id, ownerID uuid.UUID) error

	// DistinctAuthors returns each author exactly once.
	DistinctAuthors(ctx context.Context) ([]string, error)
}
