package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"chathub/internal/auth"
	"chathub/internal/models"
)

type contextKey string

const userKey contextKey = "user"

// BearerToken extracts the credential from the Authorization header, or
// from the token query parameter as the websocket handshake fallback.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return r.URL.Query().Get("token")
}

// Authenticate verifies the bearer credential on every request and stashes
// the resolved user in the request context.
func Authenticate(verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := verifier.Verify(r.Context(), BearerToken(r))
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrUnauthenticated):
					http.Error(w, "Access token required", http.StatusUnauthorized)
				case errors.Is(err, auth.ErrInvalidCredential):
					http.Error(w, "Invalid token", http.StatusUnauthorized)
				case errors.Is(err, auth.ErrAccountInactive):
					http.Error(w, "Account is deactivated", http.StatusUnauthorized)
				default:
					log.Printf("[AUTH] Verification failed: %v", err)
					http.Error(w, "Authentication failed", http.StatusInternalServerError)
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser stashes a resolved user in the context, as Authenticate does for
// every verified request.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFrom returns the authenticated user stored by Authenticate.
func UserFrom(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey).(*models.User)
	return user, ok
}
