package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jrsteele09/crec-session/auth"
	errs "github.com/jrsteele09/crec-session/internal/errors"
	"github.com/jrsteele09/crec-session/oauth2"
)

const contentTypeJSON = "application/json; charset=utf-8"

// WellKnownOpenIDConfig serves the OIDC discovery document
func (s *Server) WellKnownOpenIDConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		baseURL := issuerURL(r)

		resp := map[string]any{
			"issuer":                                baseURL,
			"token_endpoint":                        baseURL + RouteOAuth2Token,
			"userinfo_endpoint":                     baseURL + RouteUserInfo,
			"revocation_endpoint":                   baseURL + RouteOAuth2Revoke,
			"response_types_supported":              []string{"token"},
			"subject_types_supported":               []string{"public"},
			"id_token_signing_alg_values_supported": []string{"HS256"},
			"grant_types_supported": []string{
				string(oauth2.PasswordGrant),
				string(oauth2.RefreshTokenGrant),
			},
			"token_endpoint_auth_methods_supported": []string{"none", "client_secret_post"},
			"claims_supported":                      []string{"sub", "email", "email_verified", "name", "role", "permissions"},
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		w.Header().Set("Cache-Control", "public, max-age=3600")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// Token exchanges admin credentials or a refresh token for tokens
func (s *Server) Token() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, oauth2.ErrorInvalidRequest, "Failed to parse form data", http.StatusBadRequest)
			return
		}

		req, err := oauth2.ParseTokenRequest(r.PostForm)
		if errors.Is(err, oauth2.ErrUnsupportedGrantType) {
			writeJSONError(w, oauth2.ErrorUnsupportedGrantType, "Supported grants are password and refresh_token", http.StatusBadRequest)
			return
		}
		if err != nil {
			writeJSONError(w, oauth2.ErrorInvalidRequest, err.Error(), http.StatusBadRequest)
			return
		}

		var tokens *auth.TokenSet
		if req.GrantType == oauth2.PasswordGrant {
			_, tokens, err = s.auth.Login(req.Username, req.Password)
		} else {
			tokens, err = s.auth.Refresh(req.RefreshToken)
		}
		if err != nil {
			s.writeGrantError(w, err)
			return
		}

		resp := oauth2.TokenResponse{
			AccessToken:  tokens.AccessToken,
			TokenType:    oauth2.TokenType,
			ExpiresIn:    tokens.ExpiresIn(s.auth.Now()),
			RefreshToken: tokens.RefreshToken,
			Scope:        req.Scope,
		}
		w.Header().Set("Content-Type", contentTypeJSON)
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (s *Server) writeGrantError(w http.ResponseWriter, err error) {
	if errs.Is(err, errs.ErrInvalidCredentials) || errs.Is(err, errs.ErrInvalidRefreshToken) || errs.Is(err, errs.ErrRefreshTokenExpired) {
		s.logger.Info().Err(err).Msg("grant refused")
		writeJSONError(w, oauth2.ErrorInvalidGrant, "Invalid credentials", http.StatusBadRequest)
		return
	}
	s.logger.Error().Err(err).Msg("token endpoint")
	writeJSONError(w, oauth2.ErrorServerError, "Internal error", http.StatusInternalServerError)
}

// Revoke drops a refresh token (RFC 7009: unknown tokens still succeed)
func (s *Server) Revoke() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, oauth2.ErrorInvalidRequest, "Failed to parse form data", http.StatusBadRequest)
			return
		}
		token := r.PostFormValue("token")
		if token == "" {
			writeJSONError(w, oauth2.ErrorInvalidRequest, "token parameter is required", http.StatusBadRequest)
			return
		}
		if err := s.auth.Revoke(token); err != nil {
			writeJSONError(w, oauth2.ErrorServerError, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// UserInfo returns the OIDC claims of the admin user behind the bearer token
func (s *Server) UserInfo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, _ := bearerToken(r)
		userInfo, err := s.auth.UserInfo(raw)
		if err != nil {
			writeJSONError(w, oauth2.ErrorInvalidToken, "Token does not belong to a user", http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		_ = json.NewEncoder(w).Encode(userInfo)
	}
}

func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(oauth2.ErrorResponse{
		Error:            errorCode,
		ErrorDescription: description,
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}
