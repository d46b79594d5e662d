package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/and161185/bookshelf/internal/errs"
	"github.com/and161185/bookshelf/internal/model"
	"github.com/and161185/bookshelf/internal/repository"
	"github.com/gofrs/uuid/v5"
)

type fakeUsers struct {
	byName map[string]*model.User

	createErr error
	getErr    error

	deleted []uuid.UUID
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.byName == nil {
		f.byName = map[string]*model.User{}
	}
	for _, ex := range f.byName {
		if ex.Username == u.Username || ex.Email == u.Email {
			return errs.ErrAlreadyExists
		}
	}
	cpy := *u
	f.byName[u.Username] = &cpy
	return nil
}
func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	for _, u := range f.byName {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}
func (f *fakeUsers) GetByIdentifier(_ context.Context, identifier string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byName {
		if u.Username == identifier || u.Email == strings.ToLower(identifier) {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}
func (f *fakeUsers) Delete(_ context.Context, id uuid.UUID) error {
	for name, u := range f.byName {
		if u.ID == id {
			delete(f.byName, name)
			f.deleted = append(f.deleted, id)
			return nil
		}
	}
	return errs.ErrNotFound
}

func TestAuth_Register_Validation(t *testing.T) {
	t.Parallel()
	s := NewAuthService(&fakeUsers{})
	ctx := context.Background()

	cases := []struct {
		name, user, email, pass, field string
	}{
		{"empty username", "", "a@example.com", "pw", "username"},
		{"blank username", "   ", "a@example.com", "pw", "username"},
		{"at in username", "a@b", "a@example.com", "pw", "username"},
		{"too long username", strings.Repeat("x", 65), "a@example.com", "pw", "username"},
		{"empty email", "alice", "", "pw", "email"},
		{"bad email", "alice", "not-an-email", "pw", "email"},
		{"display name email", "alice", "Alice <a@example.com>", "pw", "email"},
		{"empty password", "alice", "a@example.com", "", "password"},
	}
	for _, tc := range cases {
		_, err := s.Register(ctx, tc.user, tc.email, tc.pass)
		ve, ok := errs.IsValidation(err)
		if !ok {
			t.Fatalf("%s: want ValidationError, got %v", tc.name, err)
		}
		if ve.Field != tc.field {
			t.Fatalf("%s: field=%q, want %q", tc.name, ve.Field, tc.field)
		}
	}
}

func TestAuth_Register_DuplicateIdentity(t *testing.T) {
	t.Parallel()
	users := &fakeUsers{}
	s := NewAuthService(users)
	ctx := context.Background()

	u, err := s.Register(ctx, "alice", "Alice@Example.com", "pwd")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.ID == uuid.Nil || u.Email != "alice@example.com" {
		t.Fatalf("bad user: %+v", u)
	}
	if len(u.PwdHash) == 0 || len(u.SaltAuth) == 0 || string(u.PwdHash) == "pwd" {
		t.Fatalf("password must be stored hashed")
	}

	if _, err := s.Register(ctx, "alice", "other@example.com", "pwd2"); !errors.Is(err, errs.ErrAlreadyExists) {
		t.Fatalf("want ErrAlreadyExists on duplicate username, got %v", err)
	}
	if _, err := s.Register(ctx, "bob", "alice@example.com", "pwd2"); !errors.Is(err, errs.ErrAlreadyExists) {
		t.Fatalf("want ErrAlreadyExists on duplicate email, got %v", err)
	}
	if len(users.byName) != 1 {
		t.Fatalf("duplicate registration must not persist anything, have %d users", len(users.byName))
	}

	users.createErr = errors.New("boom")
	if _, err := s.Register(ctx, "carol", "carol@example.com", "pwd"); err == nil {
		t.Fatalf("want propagated repo error")
	}
}

func TestAuth_Authenticate_ByUsernameOrEmail(t *testing.T) {
	t.Parallel()
	s := NewAuthService(&fakeUsers{})
	ctx := context.Background()

	u, err := s.Register(ctx, "alice", "a@x.io", "pw1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	for _, ident := range []string{"alice", "a@x.io", "A@X.io"} {
		id, err := s.Authenticate(ctx, ident, "pw1")
		if err != nil {
			t.Fatalf("Authenticate(%q): %v", ident, err)
		}
		if id.UserID != u.ID || id.Username != "alice" {
			t.Fatalf("Authenticate(%q) identity mismatch: %+v", ident, id)
		}
	}
}

func TestAuth_Authenticate_FailuresIndistinguishable(t *testing.T) {
	t.Parallel()
	users := &fakeUsers{}
	s := NewAuthService(users)
	ctx := context.Background()

	if _, err := s.Register(ctx, "alice", "a@x.io", "pw1"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, wrongPw := s.Authenticate(ctx, "alice", "nope")
	_, unknown := s.Authenticate(ctx, "ghost", "pw1")
	_, empty := s.Authenticate(ctx, "", "")

	for _, err := range []error{wrongPw, unknown, empty} {
		if !errors.Is(err, errs.ErrUnauthorized) {
			t.Fatalf("want ErrUnauthorized, got %v", err)
		}
	}
	if wrongPw.Error() != unknown.Error() {
		t.Fatalf("messages differ: %q vs %q", wrongPw, unknown)
	}

	users.getErr = errs.ErrStoreUnavailable
	if _, err := s.Authenticate(ctx, "alice", "pw1"); !errors.Is(err, errs.ErrStoreUnavailable) {
		t.Fatalf("store failure must surface, got %v", err)
	}
}

func TestAuth_RemoveUser(t *testing.T) {
	t.Parallel()
	users := &fakeUsers{}
	s := NewAuthService(users)
	ctx := context.Background()

	u, err := s.Register(ctx, "alice", "a@x.io", "pw1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := s.RemoveUser(ctx, "a@x.io"); err != nil {
		t.Fatalf("RemoveUser: %v", err)
	}
	if len(users.deleted) != 1 || users.deleted[0] != u.ID {
		t.Fatalf("unexpected deletions: %v", users.deleted)
	}
	if err := s.RemoveUser(ctx, "alice"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound on second removal, got %v", err)
	}
}

func TestVerifyPassword_NilUser(t *testing.T) {
	t.Parallel()
	if VerifyPassword(nil, "x") {
		t.Fatalf("nil user must not verify")
	}
}
