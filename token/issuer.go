package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	errs "github.com/jrsteele09/crec-session/internal/errors"
	"github.com/pkg/errors"
)

// Subject kinds carried in the "kind" claim.
const (
	KindUser   = "user"
	KindMember = "member"
)

// Claims are the claims of a portal access token.
type Claims struct {
	Kind        string   `json:"kind"`
	Role        string   `json:"role,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// Subject is what an access token is minted for.
type Subject struct {
	ID          string
	Kind        string
	Role        string
	Permissions []string
}

// Issuer mints and parses portal access tokens. Clients treat the result as an
// opaque string; only the backend parses it.
type Issuer struct {
	signer   Signer
	issuer   string
	audience string
	nowFunc  func() time.Time
}

type IssuerOption func(*Issuer)

func WithNowFunc(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowFunc = now
	}
}

func WithAudience(audience string) IssuerOption {
	return func(i *Issuer) {
		i.audience = audience
	}
}

func NewIssuer(signer Signer, issuer string, options ...IssuerOption) *Issuer {
	i := &Issuer{
		signer:   signer,
		issuer:   issuer,
		audience: "crec-portal",
		nowFunc:  time.Now,
	}
	for _, opt := range options {
		opt(i)
	}
	return i
}

// Issue mints an access token for subject valid for ttl and returns its expiry.
func (i *Issuer) Issue(subject Subject, ttl time.Duration) (string, time.Time, error) {
	now := i.nowFunc()
	exp := now.Add(ttl)
	claims := Claims{
		Kind:        subject.Kind,
		Role:        subject.Role,
		Permissions: subject.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   subject.ID,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.New().String(),
		},
	}
	signed, err := i.signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "[Issuer.Issue] sign")
	}
	return signed, exp, nil
}

// Parse verifies raw and returns its claims. Expired or malformed tokens yield
// ErrInvalidToken.
func (i *Issuer) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{i.signer.GetSigningMethod().Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithAudience(i.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.nowFunc),
	)
	if _, err := parser.ParseWithClaims(raw, claims, i.signer.GetVerificationKey); err != nil {
		return nil, errs.Wrapf(errs.ErrInvalidToken, "[Issuer.Parse] %v", err)
	}
	return claims, nil
}
