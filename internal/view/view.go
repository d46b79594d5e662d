// Package view renders the server-side HTML pages.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/and161185/bookshelf/internal/model"
)

//go:embed templates/*.html
var files embed.FS

// Page names understood by Render.
const (
	Home     = "home"
	Register = "register"
	Login    = "login"
	AddBook  = "addbook"
	Book     = "book"
	EditBook = "edit"
	MyBooks  = "my_books"
	Error    = "error"
)

var pages = []string{Home, Register, Login, AddBook, Book, EditBook, MyBooks, Error}

// Flash kinds.
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Kind    string `json:"k"`
	Message string `json:"m"`
}

// Filter echoes the listing query back into the form.
type Filter struct {
	Author string
	Year   string
}

// Page is the data passed to every template.
type Page struct {
	Title     string
	User      model.Identity
	Flashes   []Flash
	Error     string
	Status    int
	Books     []model.Book
	Book      *model.Book
	Authors   []string
	Filter    Filter
	CanModify bool
}

// Renderer holds one parsed template set per page.
type Renderer struct {
	sets map[string]*template.Template
}

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format(time.DateOnly)
	},
	// full precision so resubmitting an edit form keeps the stored instant
	"datetime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format(time.RFC3339Nano)
	},
	"year": func(t time.Time) int { return t.UTC().Year() },
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	r := &Renderer{sets: make(map[string]*template.Template, len(pages))}
	for _, p := range pages {
		t, err := template.New(p).Funcs(funcs).ParseFS(files, "templates/layout.html", "templates/"+p+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", p, err)
		}
		r.sets[p] = t
	}
	return r, nil
}

// Render executes page into w. Output is buffered so a failing template writes nothing.
func (r *Renderer) Render(w io.Writer, page string, data Page) error {
	t, ok := r.sets[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
