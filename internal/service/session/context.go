package session

import "context"

type contextKey struct{}

// DefaultID is used when a request carries no session.
const DefaultID = "default"

// WithID returns a context carrying the session id.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IDFromContext returns the session id stored by WithID, or DefaultID.
func IDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(contextKey{}).(string); ok && id != "" {
		return id
	}
	return DefaultID
}
