package contexthelpers

import (
	"context"
)

// ProfileID returns the id of the profile the request acts on or 0 when none is set.
func ProfileID(ctx context.Context) int {
	profileID, ok := ctx.Value(profileIDContextKey).(int)
	if !ok {
		return 0
	}
	return profileID
}

// TraceID returns the request trace id or an empty string.
func TraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(traceIDContextKey).(string)
	if !ok {
		return ""
	}
	return traceID
}
