package view

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/and161185/bookshelf/internal/model"
)

func TestNew_ParsesEveryPage(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	for _, p := range pages {
		var buf bytes.Buffer
		require.NoError(t, r.Render(&buf, p, Page{Book: &model.Book{}}), p)
		require.Contains(t, buf.String(), "<!DOCTYPE html>", p)
	}
}

func TestRender_UnknownPage(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.Error(t, r.Render(&buf, "nope", Page{}))
	require.Zero(t, buf.Len())
}

func TestRender_EscapesUserContent(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	var buf bytes.Buffer
	err = r.Render(&buf, Home, Page{
		Flashes: []Flash{{Kind: FlashError, Message: "<script>x</script>"}},
		Books: []model.Book{{
			ID:          uuid.Must(uuid.NewV4()),
			Title:       "<b>bold</b>",
			Author:      "A",
			PublishedAt: time.Date(1999, 5, 5, 0, 0, 0, 0, time.UTC),
		}},
	})
	require.NoError(t, err)
	out := buf.String()
	require.NotContains(t, out, "<script>x</script>")
	require.NotContains(t, out, "<b>bold</b>")
	require.Contains(t, out, "(1999)")
}

func TestRender_OwnerControlsOnlyWhenAllowed(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	b := &model.Book{ID: uuid.Must(uuid.NewV4()), Title: "T", Author: "A"}

	var owner, other bytes.Buffer
	require.NoError(t, r.Render(&owner, Book, Page{Book: b, CanModify: true}))
	require.NoError(t, r.Render(&other, Book, Page{Book: b}))

	editLink := "/books/" + b.ID.String() + "/edit"
	require.True(t, strings.Contains(owner.String(), editLink))
	require.False(t, strings.Contains(other.String(), editLink))
}

func TestRender_NavDependsOnIdentity(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	var anon, user bytes.Buffer
	require.NoError(t, r.Render(&anon, Login, Page{}))
	require.NoError(t, r.Render(&user, Home, Page{User: model.Identity{UserID: uuid.Must(uuid.NewV4()), Username: "alice"}}))

	require.Contains(t, anon.String(), `href="/login"`)
	require.NotContains(t, anon.String(), `href="/logout"`)
	require.Contains(t, user.String(), `href="/logout"`)
	require.Contains(t, user.String(), "alice")
}

func TestRender_EditFormKeepsFullTimestamp(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	b := &model.Book{
		ID:          uuid.Must(uuid.NewV4()),
		Title:       "T",
		Author:      "A",
		PublishedAt: time.Date(2021, 6, 1, 10, 11, 12, 123456789, time.UTC),
	}
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, EditBook, Page{Book: b, CanModify: true}))
	require.Contains(t, buf.String(), `value="2021-06-01T10:11:12.123456789Z"`)
}
