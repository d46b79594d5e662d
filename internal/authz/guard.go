// Package authz decides whether an identity may modify a catalog record.
package authz

import (
	"github.com/and161185/bookshelf/internal/model"
	"github.com/gofrs/uuid/v5"
)

// CanModify reports whether id owns b. Anonymous callers never do.
func CanModify(id model.Identity, b *model.Book) bool {
	if id.Anonymous() || b == nil || b.OwnerID == uuid.Nil {
		return false
	}
	return id.UserID == b.OwnerID
}
