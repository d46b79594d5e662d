// Package memory is an in-process implementation of the repository interfaces.
// It mirrors the PostgreSQL constraints (unique username, email and title,
// cascade of owned books) and backs development runs without a database.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/bookshelf/internal/errs"
	"github.com/and161185/bookshelf/internal/model"
)

// Store holds users and books behind one lock so cascades are atomic.
type Store struct {
	mu    sync.RWMutex
	users map[uuid.UUID]model.User
	books map[uuid.UUID]model.Book
	now   func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users: make(map[uuid.UUID]model.User),
		books: make(map[uuid.UUID]model.Book),
		now:   time.Now,
	}
}

// Users returns the user repository view of the store.
func (s *Store) Users() *UserRepo { return &UserRepo{s: s} }

// Books returns the book repository view of the store.
func (s *Store) Books() *BookRepo { return &BookRepo{s: s} }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// UserRepo implements repository.UserRepository.
type UserRepo struct{ s *Store }

// Create inserts u unless its username or email is taken.
func (r *UserRepo) Create(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, ex := range r.s.users {
		if ex.Username == u.Username || ex.Email == u.Email {
			return errs.ErrAlreadyExists
		}
	}
	u.CreatedAt = r.s.now().UTC()
	r.s.users[u.ID] = *u
	return nil
}

// GetByID loads a user by ID.
func (r *UserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &u, nil
}

// GetByIdentifier loads a user by username or case-insensitive email.
func (r *UserRepo) GetByIdentifier(_ context.Context, identifier string) (*model.User, error) {
	email := strings.ToLower(identifier)
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.Username == identifier || u.Email == email {
			return &u, nil
		}
	}
	return nil, errs.ErrNotFound
}

// Delete removes a user and every book it owns.
func (r *UserRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return errs.ErrNotFound
	}
	delete(r.s.users, id)
	for bid, b := range r.s.books {
		if b.OwnerID == id {
			delete(r.s.books, bid)
		}
	}
	return nil
}

// BookRepo implements repository.BookRepository.
type BookRepo struct{ s *Store }

// Create inserts b unless its title is taken or its owner is unknown.
func (r *BookRepo) Create(_ context.Context, b *model.Book) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	owner, ok := r.s.users[b.OwnerID]
	if !ok {
		return errs.ErrNotFound
	}
	if r.titleTakenLocked(b.Title, uuid.Nil) {
		return errs.ErrAlreadyExists
	}
	now := r.s.now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	b.OwnerName = owner.Username
	r.s.books[b.ID] = *b
	return nil
}

// List returns matching books ordered by title.
func (r *BookRepo) List(_ context.Context, f model.BookFilter) ([]model.Book, error) {
	var from, to time.Time
	if f.Year != 0 {
		from, to = f.YearRange()
	}

	r.s.mu.RLock()
	out := []model.Book{}
	for _, b := range r.s.books {
		if f.Author != "" && b.Author != f.Author {
			continue
		}
		if f.Year != 0 && (b.PublishedAt.Before(from) || !b.PublishedAt.Before(to)) {
			continue
		}
		if f.OwnerID != uuid.Nil && b.OwnerID != f.OwnerID {
			continue
		}
		out = append(out, r.withOwnerLocked(b))
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

// Get loads a book by ID.
func (r *BookRepo) Get(_ context.Context, id uuid.UUID) (*model.Book, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.books[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	b = r.withOwnerLocked(b)
	return &b, nil
}

// Update replaces the editable fields if b.OwnerID still owns the record.
func (r *BookRepo) Update(_ context.Context, b *model.Book) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.books[b.ID]
	if !ok || cur.OwnerID != b.OwnerID {
		return errs.ErrNotFound
	}
	if r.titleTakenLocked(b.Title, b.ID) {
		return errs.ErrAlreadyExists
	}
	cur.Title, cur.Author, cur.PublishedAt, cur.Description = b.Title, b.Author, b.PublishedAt, b.Description
	cur.UpdatedAt = r.s.now().UTC()
	r.s.books[b.ID] = cur
	b.UpdatedAt = cur.UpdatedAt
	return nil
}

// Delete removes the book if ownerID owns it.
func (r *BookRepo) Delete(_ context.Context, id, ownerID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.books[id]
	if !ok || cur.OwnerID != ownerID {
		return errs.ErrNotFound
	}
	delete(r.s.books, id)
	return nil
}

// DistinctAuthors returns the sorted set of authors.
func (r *BookRepo) DistinctAuthors(context.Context) ([]string, error) {
	r.s.mu.RLock()
	seen := make(map[string]struct{})
	for _, b := range r.s.books {
		seen[b.Author] = struct{}{}
	}
	r.s.mu.RUnlock()

	out := make([]string, 0, len(seen))
	for a := range seen {
		out = append(out, a)
	}
	sort.Strings(out)
	return out, nil
}

func (r *BookRepo) titleTakenLocked(title string, except uuid.UUID) bool {
	for id, b := range r.s.books {
		if id != except && b.Title == title {
			return true
		}
	}
	return false
}

func (r *BookRepo) withOwnerLocked(b model.Book) model.Book {
	if u, ok := r.s.users[b.OwnerID]; ok {
		b.OwnerName = u.Username
	}
	return b
}
