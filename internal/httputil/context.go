package httputil

import (
	"context"
	"net/http"
)

// contextKey is unexported so request-scoped values set here cannot collide
// with keys from other packages.
type contextKey string

const userIDKey contextKey = "auth.user_id"

// WithUserID returns a request whose context carries the authenticated
// user's id. The auth middleware sets it; handlers read it with GetUserID.
func WithUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userIDKey, userID))
}

// GetUserID returns the authenticated user's id, or "" when the request
// carries none.
func GetUserID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}
