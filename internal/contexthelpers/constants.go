package contexthelpers

type contextKey string

const (
	profileIDContextKey = contextKey("profileID")
	traceIDContextKey   = contextKey("traceID")
)
