package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	booksBasePath = "/books"
	paramID       = "id"
)

// NewRouter builds the chi router with the middleware stack and every page route.
func NewRouter(h *Handler, timeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingHTTP(h.log))
	r.Use(RecoverHTTP(h.log))
	if timeout > 0 {
		r.Use(middleware.Timeout(timeout))
	}
	r.Use(Identify(h.sessions))

	wrap := func(fn AppHandler) http.HandlerFunc { return MakeHandler(h.log, h.pages, fn) }

	r.Get("/", wrap(h.home))
	r.Get("/register", wrap(h.registerForm))
	r.Post("/register", wrap(h.register))
	r.Get("/login", wrap(h.loginForm))
	r.Post("/login", wrap(h.login))
	r.Get("/logout", wrap(h.logout))
	r.Get("/addbook", wrap(h.addBookForm))
	r.Get("/my-books", wrap(h.myBooks))

	r.Route(booksBasePath, func(r chi.Router) {
		r.Post("/upload", wrap(h.upload))
		r.Get("/{"+paramID+"}", wrap(h.bookDetail))
		r.Get("/{"+paramID+"}/edit", wrap(h.editForm))
		r.Post("/{"+paramID+"}/edit", wrap(h.edit))
		r.Post("/{"+paramID+"}/delete", wrap(h.remove))
	})

	r.Get("/healthz", h.healthz)

	r.NotFound(wrap(func(http.ResponseWriter, *http.Request) error {
		return NewHTTPError(http.StatusNotFound, "Page not found", nil)
	}))
	return r
}
