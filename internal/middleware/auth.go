package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tasknest/tasknest/internal/ctxkeys"
	"github.com/tasknest/tasknest/internal/handler"
	"github.com/tasknest/tasknest/internal/service"
)

// RequireAuth resolves the bearer token on every protected request and puts
// the verified user into the request context. The failure message tells the
// caller whether the token was absent, expired, or invalid, but a token for
// a deleted user fails exactly like an invalid identity would downstream:
// deletion revokes outstanding tokens.
func RequireAuth(authService *service.AuthService) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)

			user, err := authService.Authenticate(token)
			if err != nil {
				switch {
				case errors.Is(err, service.ErrMissingToken):
					handler.RespondError(w, http.StatusUnauthorized, "No token provided")
				case errors.Is(err, service.ErrTokenExpired):
					handler.RespondError(w, http.StatusUnauthorized, "Token expired")
				case errors.Is(err, service.ErrUserRevoked):
					handler.RespondError(w, http.StatusUnauthorized, "User no longer exists")
				case errors.Is(err, service.ErrInvalidToken):
					handler.RespondError(w, http.StatusUnauthorized, "Invalid token")
				default:
					slog.Error("authentication failed", "error", err, "path", r.URL.Path)
					handler.RespondError(w, http.StatusInternalServerError, "Server error")
				}
				return
			}

			ctx := ctxkeys.WithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		}
	}
}

// bearerToken extracts the credential from the Authorization header. A bare
// token without the Bearer prefix is accepted too.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	token, found := strings.CutPrefix(header, "Bearer ")
	if found {
		return strings.TrimSpace(token)
	}

	return strings.TrimSpace(header)
}
