// Command catalogctl administers a bookshelf database: migrations, accounts
// and catalog listings.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/and161185/bookshelf/internal/errs"
	"github.com/and161185/bookshelf/internal/migrate"
	"github.com/and161185/bookshelf/internal/model"
	"github.com/and161185/bookshelf/internal/repository"
	"github.com/and161185/bookshelf/internal/repository/postgres"
	"github.com/and161185/bookshelf/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// ---- test seams ----

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// openStore connects the repositories; tests swap in the in-memory store.
var openStore = func(ctx context.Context, dsn string) (repository.UserRepository, repository.BookRepository, func(), error) {
	db, err := postgres.New(ctx, dsn)
	if err != nil {
		return nil, nil, nil, err
	}
	return postgres.NewUserRepo(db), postgres.NewBookRepo(db), db.Close, nil
}

var (
	migrateUp     = migrate.Up
	migrateStatus = migrate.Status
)

// ---- output ----

type bookView struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	PublishedAt time.Time `json:"published_at"`
	Owner       string    `json:"owner"`
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `catalogctl
Usage:
  catalogctl [-dsn DSN] <cmd> [args]

Commands:
  version
  migrate                                     apply pending migrations
  status                                      print migration status
  files                                       list embedded migrations
  useradd  -u <username> -e <email> [-p <password>]   (prompts when -p is omitted)
  userdel  -u <username|email>                deletes the account and its books
  books    [-author A] [-year YYYY] [-owner <username|email>]
`)
}

// ---- main ----

// main dispatches subcommands against the configured database.
func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	gfs := flag.NewFlagSet("catalogctl", flag.ContinueOnError)
	gfs.SetOutput(stderr)
	dsn := gfs.String("dsn", os.Getenv("DATABASE_DSN"), "PostgreSQL DSN")
	gfs.Usage = func() { usage(stderr) }
	if err := gfs.Parse(args); err != nil {
		return 2
	}
	if gfs.NArg() < 1 {
		usage(stderr)
		return 2
	}
	cmd, rest := gfs.Arg(0), gfs.Args()[1:]

	var err error
	switch cmd {
	case "version":
		fmt.Fprintf(stdout, "catalogctl %s (%s)\n", version, buildDate)
	case "files":
		err = cmdFiles(stdout)
	case "migrate":
		if err = needDSN(*dsn); err == nil {
			err = migrateUp(ctx, *dsn)
		}
		if err == nil {
			fmt.Fprintln(stdout, "ok")
		}
	case "status":
		if err = needDSN(*dsn); err == nil {
			err = migrateStatus(ctx, *dsn)
		}
	case "useradd", "userdel", "books":
		err = withStore(ctx, *dsn, func(users repository.UserRepository, books repository.BookRepository) error {
			switch cmd {
			case "useradd":
				return cmdUserAdd(ctx, rest, users, stdout, stderr)
			case "userdel":
				return cmdUserDel(ctx, rest, users, stdout)
			default:
				return cmdBooks(ctx, rest, users, books, stdout)
			}
		})
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		usage(stderr)
		return 2
	}

	if err != nil {
		fail(stderr, err)
		return 1
	}
	return 0
}

func needDSN(dsn string) error {
	if dsn == "" {
		return errors.New("no database: pass -dsn or set DATABASE_DSN")
	}
	return nil
}

func withStore(ctx context.Context, dsn string, fn func(repository.UserRepository, repository.BookRepository) error) error {
	if err := needDSN(dsn); err != nil {
		return err
	}
	users, books, closeFn, err := openStore(ctx, dsn)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(users, books)
}

func cmdFiles(stdout io.Writer) error {
	names, err := migrate.Files()
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Fprintln(stdout, n)
	}
	return nil
}

func cmdUserAdd(ctx context.Context, args []string, users repository.UserRepository, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("useradd", flag.ContinueOnError)
	fs.SetOutput(stderr)
	u := fs.String("u", "", "username")
	e := fs.String("e", "", "email")
	p := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *u == "" || *e == "" {
		return errors.New("need -u and -e")
	}

	password := *p
	if password == "" {
		fmt.Fprint(stderr, "Password: ")
		raw, err := readPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(stderr)
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		password = string(raw)
	}

	created, err := service.NewAuthService(users).Register(ctx, *u, *e, password)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, created.ID.String())
	return nil
}

func cmdUserDel(ctx context.Context, args []string, users repository.UserRepository, stdout io.Writer) error {
	fs := flag.NewFlagSet("userdel", flag.ContinueOnError)
	u := fs.String("u", "", "username or email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *u == "" {
		return errors.New("need -u")
	}
	if err := service.NewAuthService(users).RemoveUser(ctx, *u); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "ok")
	return nil
}

func cmdBooks(ctx context.Context, args []string, users repository.UserRepository, books repository.BookRepository, stdout io.Writer) error {
	fs := flag.NewFlagSet("books", flag.ContinueOnError)
	author := fs.String("author", "", "exact author")
	year := fs.String("year", "", "publication year")
	owner := fs.String("owner", "", "owner username or email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	y, err := service.ParseYear(*year)
	if err != nil {
		return err
	}
	filter := model.BookFilter{Author: strings.TrimSpace(*author), Year: y}
	if *owner != "" {
		u, err := service.NewAuthService(users).FindByIdentifier(ctx, *owner)
		if err != nil {
			return err
		}
		filter.OwnerID = u.ID
	}

	list, err := service.NewCatalogService(books).List(ctx, filter)
	if err != nil {
		return err
	}
	out := make([]bookView, 0, len(list))
	for _, b := range list {
		out = append(out, bookView{
			ID:          b.ID.String(),
			Title:       b.Title,
			Author:      b.Author,
			PublishedAt: b.PublishedAt,
			Owner:       b.OwnerName,
		})
	}
	printJSON(stdout, out)
	return nil
}

// ---- helpers ----

func fail(stderr io.Writer, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		fmt.Fprintln(stderr, "not found")
	case errors.Is(err, errs.ErrAlreadyExists):
		fmt.Fprintln(stderr, "username or email already registered")
	default:
		fmt.Fprintln(stderr, err)
	}
}
