// Package middleware provides HTTP middleware for the Seaward token API.
package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const userKey contextKey = "seaward.user"

// TrustedUserHeader carries the authenticated user when Seaward runs
// behind an authenticating proxy (Mode "header").
const TrustedUserHeader = "X-Seaward-User"

// AuthConfig selects how the authenticated user is established.
type AuthConfig struct {
	// Mode is "jwt" (validate a Bearer token) or "header" (trust the
	// X-Seaward-User header set by a fronting proxy).
	Mode string

	// JWTSecret is the HS256 signing secret for Mode "jwt".
	JWTSecret string
}

// CurrentUser returns the authenticated user stored by Authenticate,
// or "".
func CurrentUser(r *http.Request) string {
	user, _ := r.Context().Value(userKey).(string)
	return user
}

// WithUser returns a request context carrying the given user. Exposed for
// handler tests.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// Authenticate resolves the caller's identity per the configured mode and
// stores it in the request context. Requests without a resolvable
// identity are rejected with 401; the registry itself never sees them.
func Authenticate(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := resolveUser(cfg, r)
			if err != nil {
				unauthorized(w, err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// unauthorized writes an RFC 7807 problem response. Kept local so the
// middleware package does not depend on the handlers package.
func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":   "about:blank",
		"title":  "Unauthorized",
		"status": http.StatusUnauthorized,
		"detail": detail,
	})
}

func resolveUser(cfg AuthConfig, r *http.Request) (string, error) {
	switch cfg.Mode {
	case "header":
		user := r.Header.Get(TrustedUserHeader)
		if user == "" {
			return "", fmt.Errorf("missing %s header", TrustedUserHeader)
		}
		return user, nil
	case "jwt", "":
		return resolveJWTUser(cfg.JWTSecret, r)
	default:
		return "", fmt.Errorf("unsupported auth mode %q", cfg.Mode)
	}
}

func resolveJWTUser(secret string, r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return "", fmt.Errorf("missing bearer token")
	}

	claims := jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid bearer token")
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("bearer token has no subject")
	}
	return claims.Subject, nil
}
