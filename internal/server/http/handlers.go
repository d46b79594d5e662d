package httpserver

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/and161185/bookshelf/internal/authz"
	"github.com/and161185/bookshelf/internal/errs"
	"github.com/and161185/bookshelf/internal/model"
	"github.com/and161185/bookshelf/internal/service"
	"github.com/and161185/bookshelf/internal/view"
)

// User-facing messages.
const (
	msgRegistered       = "Registration successful! You can now log in to your account."
	msgRegisterFailed   = "Registration failed"
	msgBadCredentials   = "Incorrect username or password"
	msgLoggedOut        = "You have been logged out"
	msgLoginToUpload    = "Please log in to upload books"
	msgLoginToBrowse    = "Please log in to see your books"
	msgUploaded         = "Book uploaded successfully"
	msgUpdated          = "Book details updated successfully"
	msgDeleted          = "Book deleted successfully"
	msgInvalidID        = "Invalid book ID"
	msgBookNotFound     = "Book not found"
	msgAccessDenied     = "Access denied"
	msgDuplicateTitle   = "A book with this title already exists"
	msgSessionForgotten = "Your account no longer exists, please log in again"
)

// Handler serves the catalog pages.
type Handler struct {
	auth     service.AuthService
	catalog  service.CatalogService
	sessions SessionStore
	pages    *view.Renderer
	log      *zap.Logger

	secureCookies bool
}

// NewHandler wires the page handlers.
func NewHandler(
	auth service.AuthService,
	catalog service.CatalogService,
	sessions SessionStore,
	pages *view.Renderer,
	log *zap.Logger,
	secureCookies bool,
) *Handler {
	return &Handler{
		auth:          auth,
		catalog:       catalog,
		sessions:      sessions,
		pages:         pages,
		log:           log,
		secureCookies: secureCookies,
	}
}

func (h *Handler) page(w http.ResponseWriter, r *http.Request, title string) view.Page {
	return view.Page{
		Title:   title,
		User:    IdentityFromCtx(r.Context()),
		Flashes: popFlashes(w, r),
	}
}

func (h *Handler) render(w http.ResponseWriter, status int, name string, data view.Page) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	// render before committing the status so a template failure can still become a 500
	var buf bytes.Buffer
	if err := h.pages.Render(&buf, name, data); err != nil {
		return err
	}
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func redirectWithFlash(w http.ResponseWriter, r *http.Request, kind, msg, to string) {
	addFlash(w, r, kind, msg)
	http.Redirect(w, r, to, http.StatusFound)
}

// home lists the catalog with optional author and year filters.
func (h *Handler) home(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	q := r.URL.Query()
	data := h.page(w, r, "Books")
	data.Filter = view.Filter{Author: q.Get("author"), Year: q.Get("publicationYear")}

	authors, err := h.catalog.DistinctAuthors(ctx)
	if err != nil {
		return err
	}
	data.Authors = authors

	year, err := service.ParseYear(data.Filter.Year)
	if ve, ok := errs.IsValidation(err); ok {
		data.Error = ve.Msg
		return h.render(w, http.StatusBadRequest, view.Home, data)
	}

	books, err := h.catalog.List(ctx, model.BookFilter{Author: data.Filter.Author, Year: year})
	if err != nil {
		return err
	}
	data.Books = books
	return h.render(w, http.StatusOK, view.Home, data)
}

func (h *Handler) registerForm(w http.ResponseWriter, r *http.Request) error {
	return h.render(w, http.StatusOK, view.Register, h.page(w, r, "Register"))
}

// register never reveals which of username or email was already taken.
func (h *Handler) register(w http.ResponseWriter, r *http.Request) error {
	_, err := h.auth.Register(r.Context(), r.PostFormValue("username"), r.PostFormValue("email"), r.PostFormValue("password"))
	if ve, ok := errs.IsValidation(err); ok {
		redirectWithFlash(w, r, view.FlashError, ve.Msg, "/register")
		return nil
	}
	switch {
	case errors.Is(err, errs.ErrAlreadyExists):
		redirectWithFlash(w, r, view.FlashError, msgRegisterFailed, "/register")
		return nil
	case err != nil:
		return err
	}
	redirectWithFlash(w, r, view.FlashSuccess, msgRegistered, "/")
	return nil
}

func (h *Handler) loginForm(w http.ResponseWriter, r *http.Request) error {
	if !IdentityFromCtx(r.Context()).Anonymous() {
		http.Redirect(w, r, "/", http.StatusFound)
		return nil
	}
	return h.render(w, http.StatusOK, view.Login, h.page(w, r, "Log in"))
}

// login replaces any existing session with a fresh one.
func (h *Handler) login(w http.ResponseWriter, r *http.Request) error {
	id, err := h.auth.Authenticate(r.Context(), r.PostFormValue("identifier"), r.PostFormValue("password"))
	switch {
	case errors.Is(err, errs.ErrUnauthorized):
		redirectWithFlash(w, r, view.FlashError, msgBadCredentials, "/login")
		return nil
	case err != nil:
		return err
	}

	if c, err := r.Cookie(sessionCookie); err == nil {
		h.sessions.Terminate(c.Value)
	}
	token, exp, err := h.sessions.Establish(id)
	if err != nil {
		return err
	}
	setSessionCookie(w, token, exp, h.secureCookies)
	http.Redirect(w, r, "/", http.StatusFound)
	return nil
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) error {
	h.endSession(w, r)
	redirectWithFlash(w, r, view.FlashSuccess, msgLoggedOut, "/login")
	return nil
}

func (h *Handler) addBookForm(w http.ResponseWriter, r *http.Request) error {
	return h.render(w, http.StatusOK, view.AddBook, h.page(w, r, "Add book"))
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) error {
	id := IdentityFromCtx(r.Context())
	if id.Anonymous() {
		redirectWithFlash(w, r, view.FlashError, msgLoginToUpload, "/login")
		return nil
	}

	fields, err := bookFields(r)
	if err == nil {
		_, err = h.catalog.Create(r.Context(), fields, id)
	}
	if ve, ok := errs.IsValidation(err); ok {
		redirectWithFlash(w, r, view.FlashError, ve.Msg, "/addbook")
		return nil
	}
	switch {
	case errors.Is(err, errs.ErrAlreadyExists):
		redirectWithFlash(w, r, view.FlashError, msgDuplicateTitle, "/addbook")
		return nil
	case errors.Is(err, errs.ErrNotFound):
		// the session outlived its account
		h.endSession(w, r)
		redirectWithFlash(w, r, view.FlashError, msgSessionForgotten, "/login")
		return nil
	case err != nil:
		return err
	}
	redirectWithFlash(w, r, view.FlashSuccess, msgUploaded, "/")
	return nil
}

// bookDetail renders one book; owners also get edit and delete controls.
func (h *Handler) bookDetail(w http.ResponseWriter, r *http.Request) error {
	b, err := h.catalog.Get(r.Context(), chi.URLParam(r, paramID))
	switch {
	case errors.Is(err, errs.ErrInvalidID):
		return NewHTTPError(http.StatusBadRequest, msgInvalidID, err)
	case errors.Is(err, errs.ErrNotFound):
		return NewHTTPError(http.StatusNotFound, msgBookNotFound, err)
	case err != nil:
		return err
	}
	data := h.page(w, r, b.Title)
	data.Book = b
	data.CanModify = authz.CanModify(data.User, b)
	return h.render(w, http.StatusOK, view.Book, data)
}

func (h *Handler) editForm(w http.ResponseWriter, r *http.Request) error {
	b, ok, err := h.ownedBook(w, r)
	if !ok || err != nil {
		return err
	}
	data := h.page(w, r, "Edit "+b.Title)
	data.Book = b
	data.CanModify = true
	return h.render(w, http.StatusOK, view.EditBook, data)
}

// edit reports ID, existence and ownership problems before any field error.
func (h *Handler) edit(w http.ResponseWriter, r *http.Request) error {
	rawID := chi.URLParam(r, paramID)
	id := IdentityFromCtx(r.Context())
	back := "/books/" + rawID + "/edit"

	fields, err := bookFields(r)
	if err != nil {
		if _, ok, gerr := h.ownedBook(w, r); !ok || gerr != nil {
			return gerr
		}
		ve, _ := errs.IsValidation(err)
		redirectWithFlash(w, r, view.FlashError, ve.Msg, back)
		return nil
	}

	b, err := h.catalog.Update(r.Context(), rawID, fields, id)
	if ve, ok := errs.IsValidation(err); ok {
		redirectWithFlash(w, r, view.FlashError, ve.Msg, back)
		return nil
	}
	switch {
	case h.guardFailed(w, r, err):
		return nil
	case errors.Is(err, errs.ErrAlreadyExists):
		redirectWithFlash(w, r, view.FlashError, msgDuplicateTitle, back)
		return nil
	case err != nil:
		return err
	}
	redirectWithFlash(w, r, view.FlashSuccess, msgUpdated, "/books/"+b.ID.String())
	return nil
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) error {
	err := h.catalog.Delete(r.Context(), chi.URLParam(r, paramID), IdentityFromCtx(r.Context()))
	switch {
	case h.guardFailed(w, r, err):
		return nil
	case err != nil:
		return err
	}
	redirectWithFlash(w, r, view.FlashSuccess, msgDeleted, "/")
	return nil
}

func (h *Handler) myBooks(w http.ResponseWriter, r *http.Request) error {
	id := IdentityFromCtx(r.Context())
	if id.Anonymous() {
		redirectWithFlash(w, r, view.FlashError, msgLoginToBrowse, "/login")
		return nil
	}
	books, err := h.catalog.List(r.Context(), model.BookFilter{OwnerID: id.UserID})
	if err != nil {
		return err
	}
	data := h.page(w, r, "My books")
	data.Books = books
	return h.render(w, http.StatusOK, view.MyBooks, data)
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// ownedBook loads the book named in the URL and checks the caller owns it.
// On a guard failure it has already redirected and returns ok=false.
func (h *Handler) ownedBook(w http.ResponseWriter, r *http.Request) (*model.Book, bool, error) {
	b, err := h.catalog.Get(r.Context(), chi.URLParam(r, paramID))
	if err == nil && !authz.CanModify(IdentityFromCtx(r.Context()), b) {
		err = errs.ErrForbidden
	}
	switch {
	case h.guardFailed(w, r, err):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}
	return b, true, nil
}

// guardFailed redirects home with a flash for ID, existence and ownership failures.
func (h *Handler) guardFailed(w http.ResponseWriter, r *http.Request, err error) bool {
	var msg string
	switch {
	case errors.Is(err, errs.ErrInvalidID):
		msg = msgInvalidID
	case errors.Is(err, errs.ErrNotFound):
		msg = msgBookNotFound
	case errors.Is(err, errs.ErrForbidden):
		msg = msgAccessDenied
	default:
		return false
	}
	redirectWithFlash(w, r, view.FlashError, msg, "/")
	return true
}

func (h *Handler) endSession(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		h.sessions.Terminate(c.Value)
	}
	clearSessionCookie(w)
}

func bookFields(r *http.Request) (model.BookFields, error) {
	published, err := service.ParsePublished(r.PostFormValue("publicationYear"))
	if err != nil {
		return model.BookFields{}, err
	}
	return model.BookFields{
		Title:       r.PostFormValue("title"),
		Author:      r.PostFormValue("author"),
		PublishedAt: published,
		Description: r.PostFormValue("description"),
	}, nil
}
