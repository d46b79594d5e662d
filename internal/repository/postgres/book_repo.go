package postgres

import (
	"context"
	"strconv"
	"strings"

	"github.com/and161185/bookshelf/internal/errs"
	"github.com/and161185/bookshelf/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// BookRepo implements BookRepository using PostgreSQL.
type BookRepo struct{ db *DB }

// NewBookRepo constructs a book repository.
func NewBookRepo(db *DB) *BookRepo { return &BookRepo{db: db} }

const bookSelect = `SELECT b.id, b.title, b.author, b.published_at, b.description, b.owner_id, u.username, b.created_at, b.updated_at FROM books b JOIN users u ON u.id = b.owner_id`

// Create inserts a book row and fills its timestamps.
func (r *BookRepo) Create(ctx context.Context, b *model.Book) error {
	const q = `
INSERT INTO books (id, title, author, published_at, description, owner_id)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING created_at, updated_at`
	err := r.db.Pool.QueryRow(ctx, q, b.ID, b.Title, b.Author, b.PublishedAt, b.Description, b.OwnerID).
		Scan(&b.CreatedAt, &b.UpdatedAt)
	switch {
	case isUniqueViolation(err):
		return errs.ErrAlreadyExists
	case isForeignKeyViolation(err):
		// owner vanished between authentication and insert
		return errs.ErrNotFound
	}
	return storeErr("insert book", err)
}

// List returns books matching every non-zero filter field.
func (r *BookRepo) List(ctx context.Context, f model.BookFilter) ([]model.Book, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.Author != "" {
		conds = append(conds, "b.author = "+arg(f.Author))
	}
	if f.Year != 0 {
		from, to := f.YearRange()
		conds = append(conds, "b.published_at >= "+arg(from), "b.published_at < "+arg(to))
	}
	if f.OwnerID != uuid.Nil {
		conds = append(conds, "b.owner_id = "+arg(f.OwnerID))
	}

	q := bookSelect
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY b.title"

	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, storeErr("list books", err)
	}
	defer rows.Close()

	out := []model.Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, storeErr("scan book", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list books", err)
	}
	return out, nil
}

// Get selects a single book by ID.
func (r *BookRepo) Get(ctx context.Context, id uuid.UUID) (*model.Book, error) {
	const q = bookSelect + ` WHERE b.id = $1`
	b, err := scanBook(r.db.Pool.QueryRow(ctx, q, id))
	if err != nil {
		return nil, storeErr("select book", err)
	}
	return &b, nil
}

// Update replaces title, author, publication date and description.
// The row must still belong to b.OwnerID; otherwise errs.ErrNotFound.
func (r *BookRepo) Update(ctx context.Context, b *model.Book) error {
	const q = `
UPDATE books
SET title = $3, author = $4, published_at = $5, description = $6, updated_at = now()
WHERE id = $1 AND owner_id = $2
RETURNING updated_at`
	err := r.db.Pool.QueryRow(ctx, q, b.ID, b.OwnerID, b.Title, b.Author, b.PublishedAt, b.Description).
		Scan(&b.UpdatedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return storeErr("update book", err)
}

// Delete removes a book row owned by ownerID.
func (r *BookRepo) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM books WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return storeErr("delete book", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// DistinctAuthors returns the sorted set of authors present in the catalog.
func (r *BookRepo) DistinctAuthors(ctx context.Context) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT DISTINCT author FROM books ORDER BY author`)
	if err != nil {
		return nil, storeErr("list authors", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, storeErr("scan author", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list authors", err)
	}
	return out, nil
}

func scanBook(row pgx.Row) (model.Book, error) {
	var b model.Book
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.PublishedAt, &b.Description,
		&b.OwnerID, &b.OwnerName, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}
