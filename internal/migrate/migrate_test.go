package migrate

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/and161185/bookshelf/migrations"
)

func TestFiles_EmbeddedAndAnnotated(t *testing.T) {
	t.Parallel()

	names, err := Files()
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(names) == 0 {
		t.Fatalf("no embedded migrations")
	}
	for _, n := range names {
		b, err := fs.ReadFile(migrations.FS, n)
		if err != nil {
			t.Fatalf("read %s: %v", n, err)
		}
		s := string(b)
		if !strings.Contains(s, "-- +goose Up") || !strings.Contains(s, "-- +goose Down") {
			t.Fatalf("%s lacks goose annotations", n)
		}
	}
}

func TestInitMigration_CascadesOwnedBooks(t *testing.T) {
	t.Parallel()

	b, err := fs.ReadFile(migrations.FS, "00001_init.sql")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	s := string(b)
	for _, want := range []string{
		"REFERENCES users (id) ON DELETE CASCADE",
		"CREATE UNIQUE INDEX users_username_key",
		"CREATE UNIQUE INDEX users_email_key",
		"CREATE UNIQUE INDEX books_title_key",
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("init migration missing %q", want)
		}
	}
}
