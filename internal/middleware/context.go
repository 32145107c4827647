package middleware

import (
	"context"
)

// viewerIDKey is the context key for the authenticated viewer's id.
type viewerIDKey struct{}

// errorCodeKey is the context key for error code.
type errorCodeKey struct{}

// SetViewerID stores the authenticated viewer's id in the context.
// Called by the auth middleware after validating the bearer token.
func SetViewerID(ctx context.Context, viewerID string) context.Context {
	return context.WithValue(ctx, viewerIDKey{}, viewerID)
}

// GetViewerID retrieves the viewer id from context. Returns empty string
// if not present.
func GetViewerID(ctx context.Context) string {
	if id, ok := ctx.Value(viewerIDKey{}).(string); ok {
		return id
	}
	return ""
}

// SetErrorCode stores an error code in the context for the logging
// middleware to pick up on 4xx/5xx responses.
func SetErrorCode(ctx context.Context, code string) context.Context {
	return context.WithValue(ctx, errorCodeKey{}, code)
}

// GetErrorCode retrieves the error code from context. Returns empty
// string if not present.
func GetErrorCode(ctx context.Context) string {
	if code, ok := ctx.Value(errorCodeKey{}).(string); ok {
		return code
	}
	return ""
}
