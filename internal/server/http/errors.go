// Package httpserver exposes the catalog as server-rendered HTML over HTTP.
package httpserver

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/and161185/bookshelf/internal/errs"
	"github.com/and161185/bookshelf/internal/view"
)

// HTTPError is an error with an associated status code and a user-facing message.
type HTTPError struct {
	cause   error
	Code    int
	Message string
}

func (he *HTTPError) Error() string { return he.Message }

func (he *HTTPError) Unwrap() error { return he.cause }

// NewHTTPError wraps cause with a status code and public message.
func NewHTTPError(code int, message string, cause error) *HTTPError {
	return &HTTPError{cause: cause, Code: code, Message: message}
}

// AppHandler is a handler that reports failures by returning them.
type AppHandler func(w http.ResponseWriter, r *http.Request) error

// MakeHandler adapts an AppHandler to http.HandlerFunc. Returned errors are
// logged and rendered as an error page; store details never reach the client.
func MakeHandler(log *zap.Logger, pages *view.Renderer, handler AppHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := handler(w, r)
		if err == nil {
			return
		}

		code, msg := classify(err)
		fields := []zap.Field{
			zap.Int("code", code),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		}
		if code >= http.StatusInternalServerError {
			log.Error("request failed", fields...)
		} else {
			log.Warn("client error", fields...)
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(code)
		page := view.Page{
			Title:  http.StatusText(code),
			User:   IdentityFromCtx(r.Context()),
			Status: code,
			Error:  msg,
		}
		if rerr := pages.Render(w, view.Error, page); rerr != nil {
			log.Error("render error page", zap.Error(rerr))
			_, _ = w.Write([]byte(msg))
		}
	}
}

func classify(err error) (int, string) {
	var he *HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code, he.Message
	case errors.Is(err, errs.ErrInvalidID):
		return http.StatusBadRequest, "Invalid book ID"
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, "Book not found"
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden, "Access denied"
	}
	return http.StatusInternalServerError, "Internal Server Error"
}
