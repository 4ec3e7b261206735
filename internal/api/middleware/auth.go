package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/lamitie/server/internal/api/problem"
	"github.com/lamitie/server/internal/auth"
)

type contextKeyAuth string

const adminClaimsKey contextKeyAuth = "adminClaims"

// JWTAuth validates Bearer tokens on admin API routes and requires the
// admin role.
func JWTAuth(manager *auth.JWTManager, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if manager == nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", problem.ErrUnauthorized, env)
				return
			}

			authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
			if authHeader == "" {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Missing authorization header", problem.ErrUnauthorized, env)
				return
			}

			token, err := auth.TokenFromHeader(authHeader)
			if err != nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Invalid authorization format", err, env)
				return
			}

			claims, err := manager.Validate(token)
			if err != nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Invalid token", err, env)
				return
			}

			if claims.Role != auth.RoleAdmin {
				problem.Write(w, r, http.StatusForbidden, problem.TypeUnauthorized, "Insufficient permissions", nil, env)
				return
			}

			ctx := contextWithAdminClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func contextWithAdminClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, adminClaimsKey, claims)
}

func AdminClaims(r *http.Request) *auth.Claims {
	if r == nil {
		return nil
	}
	if claims, ok := r.Context().Value(adminClaimsKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}
