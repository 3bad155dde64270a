package identity

import (
	"time"

	"github.com/jrsteele09/crec-session/auth"
	"github.com/jrsteele09/crec-session/internal/config"
	fakememberrepo "github.com/jrsteele09/crec-session/members/repofake"
	"github.com/jrsteele09/crec-session/token"
	refreshrepofake "github.com/jrsteele09/crec-session/token/refresh/repofake"
	fakeuserrepo "github.com/jrsteele09/crec-session/users/repofake"
)

// NewService builds a credential service over in-memory, seeded directories.
// Tokens are signed with the configured secret and issued under the base URL.
// A nil nowFunc means time.Now.
func NewService(cfg config.Config, nowFunc func() time.Time) (*auth.Service, error) {
	if nowFunc == nil {
		nowFunc = time.Now
	}
	repos := auth.Repos{
		Users:         fakeuserrepo.NewFakeUserRepo(),
		Members:       fakememberrepo.NewFakeMemberRepo(),
		RefreshTokens: refreshrepofake.NewFakeRefreshTokenRepo(),
	}
	if err := Seed(repos, nowFunc()); err != nil {
		return nil, err
	}

	issuer := token.NewIssuer(token.NewHMACSigner(cfg.GetTokenSecret()), cfg.GetBaseURL(), token.WithNowFunc(nowFunc))
	return auth.NewService(repos, issuer, cfg, auth.WithNowTime(nowFunc)), nil
}
