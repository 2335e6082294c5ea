// Package contexthelpers stores request-scoped values in context.Context.
package contexthelpers

import (
	"context"
	"net/http"
)

// WithProfileID returns a context scoped to the given profile. Repositories read it with [ProfileID].
func WithProfileID(ctx context.Context, profileID int) context.Context {
	return context.WithValue(ctx, profileIDContextKey, profileID)
}

// SetProfileID scopes the request to the given profile.
func SetProfileID(r *http.Request, profileID int) *http.Request {
	return r.WithContext(WithProfileID(r.Context(), profileID))
}

// SetTraceID stores the trace id of the request.
func SetTraceID(r *http.Request, traceID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), traceIDContextKey, traceID))
}
