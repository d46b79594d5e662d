// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// User represents a registered account. The password is never stored in plaintext.
type User struct {
	ID        uuid.UUID // PK
	Username  string    // unique
	Email     string    // unique
	PwdHash   []byte    // Argon2id(password, SaltAuth)
	SaltAuth  []byte    // per-user auth salt
	CreatedAt time.Time
}

// Identity is the resolved caller of a request. The zero value is anonymous.
type Identity struct {
	UserID   uuid.UUID
	Username string
}

// Anonymous reports whether no user is attached.
func (i Identity) Anonymous() bool { return i.UserID == uuid.Nil }

// IdentityOf returns the identity of an authenticated user.
func IdentityOf(u *User) Identity {
	return Identity{UserID: u.ID, Username: u.Username}
}

// Book is a single catalog record owned by the user who created it.
type Book struct {
	ID          uuid.UUID // PK
	Title       string    // globally unique
	Author      string
	PublishedAt time.Time
	Description string
	OwnerID     uuid.UUID // FK -> users.id
	OwnerName   string    // joined from users, read-only
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BookFields carries the user-editable attributes of a book.
// A zero PublishedAt means "now" on create.
type BookFields struct {
	Title       string
	Author      string
	PublishedAt time.Time
	Description string
}

// BookFilter narrows a catalog listing. Zero fields are ignored.
type BookFilter struct {
	Author  string
	Year    int
	OwnerID uuid.UUID
}

// YearRange returns the half-open UTC interval [from, to) covering the filter year.
func (f BookFilter) YearRange() (from, to time.Time) {
	from = time.Date(f.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(1, 0, 0)
}
