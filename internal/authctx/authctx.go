// Package authctx carries a validated AuthContext through a
// context.Context. It exists for the transport layer sitting in front of
// this core: the key validator produces the AuthContext once per request,
// the transport threads it via With, and the handler recovers it via From
// before calling into the tide service. The tide service itself always
// takes the AuthContext as an explicit argument.
package authctx

import (
	"context"

	"github.com/tidecraft/tides-server/internal/model"
)

type contextKey struct{}

// With returns a copy of ctx carrying the given AuthContext.
func With(ctx context.Context, auth model.AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, auth)
}

// From retrieves the AuthContext from ctx. The boolean is false when no
// valid AuthContext is present.
func From(ctx context.Context) (model.AuthContext, bool) {
	auth, ok := ctx.Value(contextKey{}).(model.AuthContext)
	if !ok || !auth.Valid() {
		return model.AuthContext{}, false
	}
	return auth, true
}
