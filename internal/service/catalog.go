package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/bookshelf/internal/authz"
	"github.com/and161185/bookshelf/internal/errs"
	"github.com/and161185/bookshelf/internal/model"
	"github.com/and161185/bookshelf/internal/repository"
)

const (
	maxTitleLen       = 256
	maxAuthorLen      = 256
	maxDescriptionLen = 4096
)

// CatalogService defines operations over catalog records.
type CatalogService interface {
	// Create stores a new book owned by the caller.
	Create(ctx context.Context, f model.BookFields, owner model.Identity) (*model.Book, error)
	// List returns books matching the filter.
	List(ctx context.Context, f model.BookFilter) ([]model.Book, error)
	// Get returns a book by its textual ID.
	Get(ctx context.Context, rawID string) (*model.Book, error)
	// Update replaces the editable fields of a book the requester owns.
	Update(ctx context.Context, rawID string, f model.BookFields, requester model.Identity) (*model.Book, error)
	// Delete removes a book the requester owns.
	Delete(ctx context.Context, rawID string, requester model.Identity) error
	// DistinctAuthors returns every author in the catalog once.
	DistinctAuthors(ctx context.Context) ([]string, error)
}

type CatalogServiceImpl struct {
	repo repository.BookRepository
	now  func() time.Time
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(repo repository.BookRepository) *CatalogServiceImpl {
	return &CatalogServiceImpl{repo: repo, now: time.Now}
}

// Create validates fields and inserts the book. A zero publication date means now.
func (s *CatalogServiceImpl) Create(ctx context.Context, f model.BookFields, owner model.Identity) (*model.Book, error) {
	if owner.Anonymous() {
		return nil, errs.ErrUnauthorized
	}
	f, err := normalizeFields(f)
	if err != nil {
		return nil, err
	}
	if f.PublishedAt.IsZero() {
		f.PublishedAt = s.now().UTC()
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	b := &model.Book{
		ID:          id,
		Title:       f.Title,
		Author:      f.Author,
		PublishedAt: f.PublishedAt,
		Description: f.Description,
		OwnerID:     owner.UserID,
		OwnerName:   owner.Username,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// List passes the filter through; a zero filter lists everything.
func (s *CatalogServiceImpl) List(ctx context.Context, f model.BookFilter) ([]model.Book, error) {
	f.Author = strings.TrimSpace(f.Author)
	return s.repo.List(ctx, f)
}

// Get rejects a malformed ID before touching the store.
func (s *CatalogServiceImpl) Get(ctx context.Context, rawID string) (*model.Book, error) {
	id, err := ParseID(rawID)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Update checks, in order: ID shape, existence, ownership, then field validity.
// A zero publication date keeps the stored one.
func (s *CatalogServiceImpl) Update(ctx context.Context, rawID string, f model.BookFields, requester model.Identity) (*model.Book, error) {
	b, err := s.Get(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if !authz.CanModify(requester, b) {
		return nil, errs.ErrForbidden
	}
	f, err = normalizeFields(f)
	if err != nil {
		return nil, err
	}
	if f.PublishedAt.IsZero() {
		f.PublishedAt = b.PublishedAt
	}

	b.Title, b.Author, b.PublishedAt, b.Description = f.Title, f.Author, f.PublishedAt, f.Description
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Delete checks ID shape, existence and ownership before removing the book.
func (s *CatalogServiceImpl) Delete(ctx context.Context, rawID string, requester model.Identity) error {
	b, err := s.Get(ctx, rawID)
	if err != nil {
		return err
	}
	if !authz.CanModify(requester, b) {
		return errs.ErrForbidden
	}
	return s.repo.Delete(ctx, b.ID, b.OwnerID)
}

// DistinctAuthors lists authors for the filter dropdown.
func (s *CatalogServiceImpl) DistinctAuthors(ctx context.Context) ([]string, error) {
	return s.repo.DistinctAuthors(ctx)
}

// ParseID parses a textual record ID.
func ParseID(raw string) (uuid.UUID, error) {
	id, err := uuid.FromString(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, errs.ErrInvalidID
	}
	return id, nil
}

// ParseYear parses a four-digit publication year filter. Empty input yields 0.
func ParseYear(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if len(raw) != 4 || strings.Trim(raw, "0123456789") != "" {
		return 0, errs.Invalid("publicationYear", "year must have four digits")
	}
	y, err := strconv.Atoi(raw)
	if err != nil || y < 1 {
		return 0, errs.Invalid("publicationYear", "year must have four digits")
	}
	return y, nil
}

var dateLayouts = []string{time.DateOnly, time.RFC3339, "2006"}

// MinPublishedYear is the earliest accepted publication year. Anything earlier
// could collide with the zero time, which means "no date given".
const MinPublishedYear = 1000

// ParsePublished parses a publication date given as YYYY-MM-DD, RFC 3339 or a bare year.
// Empty input yields the zero time.
func ParsePublished(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		if t = t.UTC(); t.Year() < MinPublishedYear {
			return time.Time{}, errs.Invalid("publicationYear", fmt.Sprintf("publication year must be %d or later", MinPublishedYear))
		}
		return t, nil
	}
	return time.Time{}, errs.Invalid("publicationYear", "publication date is not valid")
}

func normalizeFields(f model.BookFields) (model.BookFields, error) {
	f.Title = strings.TrimSpace(f.Title)
	f.Author = strings.TrimSpace(f.Author)
	f.Description = strings.TrimSpace(f.Description)

	switch {
	case f.Title == "":
		return f, errs.Invalid("title", "title is required")
	case utf8.RuneCountInString(f.Title) > maxTitleLen:
		return f, errs.Invalid("title", "title is too long")
	case f.Author == "":
		return f, errs.Invalid("author", "author is required")
	case utf8.RuneCountInString(f.Author) > maxAuthorLen:
		return f, errs.Invalid("author", "author is too long")
	case utf8.RuneCountInString(f.Description) > maxDescriptionLen:
		return f, errs.Invalid("description", "description is too long")
	}
	if !f.PublishedAt.IsZero() {
		f.PublishedAt = f.PublishedAt.UTC()
	}
	return f, nil
}
