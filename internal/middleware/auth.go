// internal/middleware/auth.go
package middleware

import (
	"net/http"
	"strings"

	"github.com/DrawzeoBarrela/pix-pocket-brasil/pkg/auth"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/pkg/response"

	"go.uber.org/zap"
)

type AuthMiddleware struct {
	verifier  *auth.Verifier
	adminRole string
	logger    *zap.Logger
}

func NewAuthMiddleware(verifier *auth.Verifier, adminRole string, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier:  verifier,
		adminRole: adminRole,
		logger:    logger,
	}
}

func extractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	if cookie, err := r.Cookie("token"); err == nil {
		return cookie.Value
	}
	return ""
}

// RequireAuth accepts any valid token and stores its claims on the request context.
func (am *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			response.Error(w, http.StatusUnauthorized, "No token provided", nil)
			return
		}

		claims, err := am.verifier.ParseAndValidate(token)
		if err != nil {
			am.logger.Debug("rejected token", zap.String("path", r.URL.Path), zap.Error(err))
			response.Error(w, http.StatusUnauthorized, "Invalid or expired token", nil)
			return
		}

		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}

// RequireAdmin is RequireAuth plus the configured admin role.
func (am *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return am.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, _ := GetRole(r.Context())
		if role != am.adminRole {
			userID, _ := GetUserID(r.Context())
			am.logger.Warn("admin route denied",
				zap.String("user_id", userID),
				zap.String("role", role),
				zap.String("path", r.URL.Path))
			response.Error(w, http.StatusForbidden, "Forbidden", nil)
			return
		}
		next.ServeHTTP(w, r)
	}))
}
