// Package contextkeys defines the request-scoped context keys shared across
// packages, so that producers and consumers agree on one name and one value
// type per key.
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// PrincipalKey holds the *auth.Principal set by middleware.AuthMiddleware.
	// It is stored untyped so this package does not depend on auth.
	PrincipalKey Key = "principal"

	// RequestIDKey holds the request id string set by httputil.RequestIDMiddleware
	RequestIDKey Key = "request_id"

	// UserIDKey holds the authenticated user id as a string, for log enrichment
	UserIDKey Key = "user_id"

	// LoggerKey holds the request-scoped *observability.Logger
	LoggerKey Key = "logger"
)

// WithPrincipal stores the authenticated principal
func WithPrincipal(ctx context.Context, principal interface{}) context.Context {
	return context.WithValue(ctx, PrincipalKey, principal)
}

// Principal returns the stored principal, or nil
func Principal(ctx context.Context) interface{} {
	return ctx.Value(PrincipalKey)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// GetRequestID returns the request id, or "" outside a request
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, RequestIDKey)
}

// GetUserID returns the authenticated user id, or "" for anonymous requests
func GetUserID(ctx context.Context) string {
	return stringValue(ctx, UserIDKey)
}

func stringValue(ctx context.Context, key Key) string {
	s, _ := ctx.Value(key).(string)
	return s
}
