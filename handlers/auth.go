package handlers

import (
	"net/http"
	"strings"

	"movieverse/models"
	"movieverse/services/users"
)

// TokenVerifier validates a bearer token and returns the account it names.
type TokenVerifier interface {
	VerifyToken(token string) (models.User, error)
}

var _ TokenVerifier = (*users.Service)(nil)

// RequireAuth wraps a handler so it only runs for requests carrying a
// valid "Authorization: Bearer" token.
func RequireAuth(verifier TokenVerifier, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			writeFailure(w, http.StatusUnauthorized, "authorization token required")
			return
		}
		if _, err := verifier.VerifyToken(token); err != nil {
			writeFailure(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next(w, r)
	}
}
