package server

import (
	"net/http"
	"strings"

	errs "github.com/jrsteele09/crec-session/internal/errors"
	"github.com/jrsteele09/crec-session/members"
	"github.com/jrsteele09/crec-session/oauth2"
)

// VerifyRequest is the body of POST /api/fablab/verify.
type VerifyRequest struct {
	AccessKey string `json:"accessKey"`
}

// VerifyResponse is the FabLab verify result: a member access token and the
// member profile. Members get no refresh token.
type VerifyResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresIn   int             `json:"expires_in"`
	Member      *members.Member `json:"member"`
}

type Course struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Capacity int    `json:"capacity"`
}

type Equipment struct {
	ID          string                   `json:"id"`
	Name        string                   `json:"name"`
	MinimumTier members.SubscriptionTier `json:"minimumTier"`
	Reservable  bool                     `json:"reservable"`
}

type catalog struct {
	courses   []Course
	equipment []Equipment
}

func defaultCatalog() catalog {
	return catalog{
		courses: []Course{
			{ID: "course-101", Title: "Introduction to Renewable Energy", Capacity: 24},
			{ID: "course-204", Title: "Solar Installation Fundamentals", Capacity: 16},
			{ID: "course-310", Title: "Battery Storage Systems", Capacity: 12},
		},
		equipment: []Equipment{
			{ID: "eq-laser-01", Name: "Laser cutter", MinimumTier: members.TierMaker},
			{ID: "eq-3dp-02", Name: "3D printer", MinimumTier: members.TierBasic},
			{ID: "eq-cnc-03", Name: "CNC router", MinimumTier: members.TierPro},
		},
	}
}

var tierRank = map[members.SubscriptionTier]int{
	members.TierBasic: 1,
	members.TierMaker: 2,
	members.TierPro:   3,
}

func (s *Server) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "app": s.config.GetAppName()})
	}
}

func (s *Server) NoContent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}

// FabLabVerify checks a member access key
func (s *Server) FabLabVerify() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req VerifyRequest
		if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.AccessKey) == "" {
			writeJSONError(w, oauth2.ErrorInvalidRequest, "accessKey is required", http.StatusBadRequest)
			return
		}

		member, tokens, err := s.auth.VerifyAccessKey(req.AccessKey)
		if err != nil {
			if errs.Is(err, errs.ErrInvalidCredentials) {
				writeJSONError(w, oauth2.ErrorInvalidGrant, "Unknown access key", http.StatusUnauthorized)
				return
			}
			s.logger.Error().Err(err).Msg("fablab verify")
			writeJSONError(w, oauth2.ErrorServerError, "Internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, VerifyResponse{
			AccessToken: tokens.AccessToken,
			TokenType:   oauth2.TokenType,
			ExpiresIn:   tokens.ExpiresIn(s.auth.Now()),
			Member:      member,
		})
	}
}

// FabLabEquipment lists equipment, flagged reservable for the calling member
func (s *Server) FabLabEquipment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := ClaimsFromContext(r.Context())
		member, err := s.auth.Member(claims.Subject)
		if err != nil {
			writeJSONError(w, oauth2.ErrorInvalidToken, "Unknown member", http.StatusUnauthorized)
			return
		}

		canReserve := member.CanReserve(s.auth.Now())
		items := make([]Equipment, 0, len(s.catalog.equipment))
		for _, e := range s.catalog.equipment {
			e.Reservable = canReserve && tierRank[member.Tier] >= tierRank[e.MinimumTier]
			items = append(items, e)
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func (s *Server) AdminCourses() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.catalog.courses)
	}
}
