package schema

import (
	"context"

	"github.com/morgante/graph-auth/core"
)

type contextKey string

const ctxKeyRequestState contextKey = "graph_auth_request_state"

// RequestState is the per-request mutable state shared between the
// transport adapter and the resolvers: the authenticated viewer going in,
// and the session token coming out when a mutation establishes one.
type RequestState struct {
	Viewer       *core.User
	IPAddress    string
	UserAgent    string
	SessionToken string
}

// WithRequestState injects request state into the resolver context.
func WithRequestState(ctx context.Context, state *RequestState) context.Context {
	return context.WithValue(ctx, ctxKeyRequestState, state)
}

// StateFrom returns the request state, or an empty one for contexts built
// without a transport (tests, introspection).
func StateFrom(ctx context.Context) *RequestState {
	state, _ := ctx.Value(ctxKeyRequestState).(*RequestState)
	if state == nil {
		return &RequestState{}
	}
	return state
}

// ViewerFrom returns the authenticated viewer, or nil.
func ViewerFrom(ctx context.Context) *core.User {
	return StateFrom(ctx).Viewer
}
