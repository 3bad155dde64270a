package portal

import (
	"time"

	"github.com/jrsteele09/crec-session/internal/config"
	"github.com/jrsteele09/crec-session/members"
	"github.com/jrsteele09/crec-session/session"
	"github.com/jrsteele09/crec-session/users"
)

const (
	AdminLoginRoute  = "/admin/login"
	FabLabLoginRoute = "/fablab/verify"
	FabLabKeyPrefix  = "fablab_"
)

// AdminPolicy is the back-office session: refreshable, unprefixed keys.
func AdminPolicy(cfg config.PolicyConfig) session.Policy[*users.User] {
	return session.Policy[*users.User]{
		Name:              "admin",
		SessionTimeout:    cfg.GetAdminSessionTimeout(),
		InactivityTimeout: cfg.GetAdminInactivityTimeout(),
		CheckInterval:     cfg.GetSessionCheckInterval(),
		LoginRoute:        AdminLoginRoute,
		AllowRefresh:      true,
		RefreshAhead:      cfg.GetAdminRefreshAhead(),
		Capability: func(u *users.User, _ time.Time) bool {
			return u.IsAdmin() || len(u.Permissions) > 0
		},
	}
}

// FabLabPolicy is the member session. Members cannot refresh; they verify again.
func FabLabPolicy(cfg config.PolicyConfig) session.Policy[*members.Member] {
	return session.Policy[*members.Member]{
		Name:              "fablab",
		SessionTimeout:    cfg.GetFabLabSessionTimeout(),
		InactivityTimeout: cfg.GetFabLabInactivityTimeout(),
		CheckInterval:     cfg.GetSessionCheckInterval(),
		KeyPrefix:         FabLabKeyPrefix,
		LoginRoute:        FabLabLoginRoute,
		Capability: func(m *members.Member, now time.Time) bool {
			return m.CanReserve(now)
		},
	}
}
