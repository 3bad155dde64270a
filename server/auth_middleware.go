package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/crec-session/oauth2"
	"github.com/jrsteele09/crec-session/token"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyClaims stores parsed token claims
const ContextKeyClaims ContextKey = "claims"

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// ClaimsFromContext returns the claims stored by RequireAuth.
func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(ContextKeyClaims).(*token.Claims)
	return claims, ok
}

// RequireAuth is middleware that validates a Bearer access token. Every failure
// is a 401, which the portal clients treat as the end of the session.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="crec"`)
				writeJSONError(w, oauth2.ErrorInvalidToken, "Missing or malformed Authorization header", http.StatusUnauthorized)
				return
			}

			claims, err := s.auth.Authenticate(raw)
			if err != nil {
				s.logger.Debug().Err(err).Msg("bearer token rejected")
				w.Header().Set("WWW-Authenticate", `Bearer realm="crec", error="invalid_token"`)
				writeJSONError(w, oauth2.ErrorInvalidToken, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			next(w, r.WithContext(context.WithValue(r.Context(), ContextKeyClaims, claims)))
		}
	}
}

// RequirePermission rejects tokens without permission with a 403. It must run
// after RequireAuth.
func (s *Server) RequirePermission(permission string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok || claims.Kind != token.KindUser || !hasPermission(claims, permission) {
				writeJSONError(w, oauth2.ErrorInsufficientScope, "Missing permission "+permission, http.StatusForbidden)
				return
			}
			next(w, r)
		}
	}
}

// RequireMember rejects anything but FabLab member tokens with a 403.
func (s *Server) RequireMember() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok || claims.Kind != token.KindMember {
				writeJSONError(w, oauth2.ErrorInsufficientScope, "FabLab member token required", http.StatusForbidden)
				return
			}
			next(w, r)
		}
	}
}

func hasPermission(claims *token.Claims, permission string) bool {
	for _, p := range claims.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}
