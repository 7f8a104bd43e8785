package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/leadintake/internal/apierr"
)

type contextKey string

const adminClaimsKey contextKey = "adminClaims"

// Roles allowed through AdminJWT.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
)

// AdminClaims are the claims carried by an admin token.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AdminJWT requires an HS256-signed bearer token whose role claim is admin or
// editor. Without a secret every request is rejected.
func AdminJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				apierr.WriteError(w, apierr.Unauthorized("Admin access is not configured"))
				return
			}
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				apierr.WriteError(w, apierr.Unauthorized("Missing bearer token"))
				return
			}
			claims := &AdminClaims{}
			token, err := jwt.ParseWithClaims(strings.TrimPrefix(auth, "Bearer "), claims, func(token *jwt.Token) (any, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
			if err != nil || !token.Valid {
				apierr.WriteError(w, apierr.Unauthorized("Invalid or expired token"))
				return
			}
			if claims.Role != RoleAdmin && claims.Role != RoleEditor {
				apierr.WriteError(w, apierr.Forbidden("Insufficient role"))
				return
			}
			ctx := context.WithValue(r.Context(), adminClaimsKey, *claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminClaimsFromContext returns admin JWT claims if present.
func AdminClaimsFromContext(ctx context.Context) (AdminClaims, bool) {
	claims, ok := ctx.Value(adminClaimsKey).(AdminClaims)
	return claims, ok
}
