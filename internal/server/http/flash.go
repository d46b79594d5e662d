package httpserver

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/and161185/bookshelf/internal/view"
)

const (
	flashCookie = "bookshelf_flash"
	maxFlashes  = 5
)

// addFlash queues a message for the next rendered page. Messages already
// queued on this request (or carried in by the client) are kept.
func addFlash(w http.ResponseWriter, r *http.Request, kind, msg string) {
	queued := readFlashes(r)
	queued = append(queued, view.Flash{Kind: kind, Message: msg})
	if len(queued) > maxFlashes {
		queued = queued[len(queued)-maxFlashes:]
	}
	raw, err := json.Marshal(queued)
	if err != nil {
		return
	}
	c := &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	http.SetCookie(w, c)
	// later addFlash calls on the same request must see this one
	r.AddCookie(c)
}

// popFlashes returns pending messages and clears them on the client.
func popFlashes(w http.ResponseWriter, r *http.Request) []view.Flash {
	out := readFlashes(r)
	if len(out) > 0 {
		http.SetCookie(w, &http.Cookie{
			Name:     flashCookie,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return out
}

func readFlashes(r *http.Request) []view.Flash {
	var last *http.Cookie
	for _, c := range r.Cookies() {
		if c.Name == flashCookie {
			last = c
		}
	}
	if last == nil || last.Value == "" {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(last.Value)
	if err != nil {
		return nil
	}
	var out []view.Flash
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	if len(out) > maxFlashes {
		out = out[:maxFlashes]
	}
	return out
}
