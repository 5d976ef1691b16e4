package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/nijaru/yt-digest/models"
)

// TokenValidator resolves a bearer token to the user it belongs to.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*models.User, error)
}

// Auth rejects requests without a valid bearer token and stores the user in
// the context.
func Auth(v TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, r, http.StatusUnauthorized, "Missing authorization token")
				return
			}

			user, err := v.ValidateToken(r.Context(), token)
			if err != nil || user == nil {
				GetLogger(r.Context()).WithError(err).Warn("Token validation failed")
				writeError(w, r, http.StatusUnauthorized, "Invalid authentication credentials")
				return
			}

			ctx := context.WithValue(r.Context(), UserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserKey).(*models.User)
	return user, ok && user != nil
}

// WithUser is used by tests and internal callers that authenticate by other
// means.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}
