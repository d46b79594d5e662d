package httpserver

import (
	"context"

	"github.com/and161185/bookshelf/internal/model"
)

type ctxKey string

const identityKey ctxKey = "bs.identity"

// WithIdentity stores the resolved caller in context.
func WithIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromCtx fetches the caller from context; anonymous when absent.
func IdentityFromCtx(ctx context.Context) model.Identity {
	id, _ := ctx.Value(identityKey).(model.Identity)
	return id
}
