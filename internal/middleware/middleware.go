package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/dispatchly/fleet-backend/internal/utils"
)

var ErrUnknownToken = errors.New("unknown API token")

// TokenResolver maps a bearer token to a role.
type TokenResolver interface {
	ResolveToken(token string) (string, error)
}

// StaticTokens resolves the admin and dispatcher tokens from config. Empty
// tokens never match.
type StaticTokens struct {
	Admin      string
	Dispatcher string
}

func (s StaticTokens) ResolveToken(token string) (string, error) {
	switch {
	case token == "":
		return "", ErrUnknownToken
	case s.Admin != "" && subtle.ConstantTimeCompare([]byte(token), []byte(s.Admin)) == 1:
		return utils.RoleAdmin, nil
	case s.Dispatcher != "" && subtle.ConstantTimeCompare([]byte(token), []byte(s.Dispatcher)) == 1:
		return utils.RoleDispatcher, nil
	}
	return "", ErrUnknownToken
}

// TokenMiddleware authenticates "Authorization: Bearer <token>" and stores
// the resolved role in the request context.
func TokenMiddleware(resolver TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				http.Error(w, "Missing bearer token", http.StatusUnauthorized)
				return
			}

			role, err := resolver.ResolveToken(strings.TrimSpace(token))
			if err != nil {
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(utils.WithRole(r.Context(), role)))
		})
	}
}

// RoleMiddleware lets the request through only when the context role is one
// of roles. It must run after TokenMiddleware.
func RoleMiddleware(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := utils.GetRoleFromContext(r.Context())
			if !ok {
				http.Error(w, "Unauthorized: missing role in context", http.StatusUnauthorized)
				return
			}
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "Forbidden: "+strings.Join(roles, " or ")+" access required", http.StatusForbidden)
		})
	}
}

// CORSMiddleware echoes the origin back only if it is on the allow-list.
func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if _, ok := allowed[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods",
					"GET, POST, PUT, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers",
					"Content-Type, Authorization")
			}

			w.Header().Set("Access-Control-Expose-Headers", "Retry-After, Cache-Control")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
