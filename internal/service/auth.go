// Package service contains application services for accounts and the book catalog.
package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"unicode/utf8"

	pkgcrypto "github.com/and161185/bookshelf/internal/crypto"
	"github.com/and161185/bookshelf/internal/errs"
	"github.com/and161185/bookshelf/internal/model"
	"github.com/and161185/bookshelf/internal/repository"
	"github.com/gofrs/uuid/v5"
)

const maxUsernameLen = 64

// AuthService defines account registration and credential checks.
type AuthService interface {
	// Register creates a new user with secure password hashing.
	Register(ctx context.Context, username, email, password string) (*model.User, error)
	// Authenticate resolves identifier (username or email) and password to an identity.
	Authenticate(ctx context.Context, identifier, password string) (model.Identity, error)
	// FindByIdentifier loads a user by username or email.
	FindByIdentifier(ctx context.Context, identifier string) (*model.User, error)
	// RemoveUser deletes an account together with its books.
	RemoveUser(ctx context.Context, identifier string) error
}

type AuthServiceImpl struct {
	users repository.UserRepository
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository) *AuthServiceImpl {
	return &AuthServiceImpl{users: users}
}

// Register validates input and stores a user with a per-user salt.
// A taken username or email yields errs.ErrAlreadyExists.
func (s *AuthServiceImpl) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	switch {
	case username == "":
		return nil, errs.Invalid("username", "username is required")
	case utf8.RuneCountInString(username) > maxUsernameLen:
		return nil, errs.Invalid("username", "username is too long")
	case strings.Contains(username, "@"):
		// keeps username and email lookups disjoint
		return nil, errs.Invalid("username", "username must not contain @")
	case email == "":
		return nil, errs.Invalid("email", "email is required")
	case !validEmail(email):
		return nil, errs.Invalid("email", "email is not valid")
	case password == "":
		return nil, errs.Invalid("password", "password is required")
	}

	uid, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	hash, salt, err := pkgcrypto.NewCredential(password)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		ID:       uid,
		Username: username,
		Email:    email,
		PwdHash:  hash,
		SaltAuth: salt,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate never tells an unknown identifier apart from a wrong password.
func (s *AuthServiceImpl) Authenticate(ctx context.Context, identifier, password string) (model.Identity, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return model.Identity{}, errs.ErrUnauthorized
	}

	u, err := s.users.GetByIdentifier(ctx, identifier)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		pkgcrypto.BurnHash(password)
		return model.Identity{}, errs.ErrUnauthorized
	case err != nil:
		return model.Identity{}, err
	}

	if !VerifyPassword(u, password) {
		return model.Identity{}, errs.ErrUnauthorized
	}
	return model.IdentityOf(u), nil
}

// FindByIdentifier loads a user by username or email.
func (s *AuthServiceImpl) FindByIdentifier(ctx context.Context, identifier string) (*model.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, errs.ErrNotFound
	}
	return s.users.GetByIdentifier(ctx, identifier)
}

// RemoveUser deletes the account named by identifier.
func (s *AuthServiceImpl) RemoveUser(ctx context.Context, identifier string) error {
	u, err := s.FindByIdentifier(ctx, identifier)
	if err != nil {
		return err
	}
	return s.users.Delete(ctx, u.ID)
}

// VerifyPassword compares password against the stored credential in constant time.
func VerifyPassword(u *model.User, password string) bool {
	if u == nil {
		return false
	}
	return pkgcrypto.VerifyPassword([]byte(password), u.SaltAuth, u.PwdHash)
}

func validEmail(s string) bool {
	a, err := mail.ParseAddress(s)
	return err == nil && a.Address == s && a.Name == ""
}
