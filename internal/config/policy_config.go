package config

import (
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// PolicyConfig exposes the timeouts of the admin and FabLab session instances.
type PolicyConfig interface {
	GetAdminSessionTimeout() time.Duration
	GetAdminInactivityTimeout() time.Duration
	GetAdminRefreshAhead() time.Duration
	GetFabLabSessionTimeout() time.Duration
	GetFabLabInactivityTimeout() time.Duration
	GetSessionCheckInterval() time.Duration
}

const (
	defaultAdminSessionTimeout     = 30 * time.Minute
	defaultAdminInactivityTimeout  = 15 * time.Minute
	defaultAdminRefreshAhead       = 5 * time.Minute
	defaultFabLabSessionTimeout    = 15 * time.Minute
	defaultFabLabInactivityTimeout = 10 * time.Minute
	defaultCheckInterval           = time.Minute
)

// Duration decodes TOML strings such as "15m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	if parsed <= 0 {
		return errors.Errorf("duration %q must be positive", text)
	}
	d.Duration = parsed
	return nil
}

type policyFile struct {
	SessionTimeout    Duration `toml:"session_timeout"`
	InactivityTimeout Duration `toml:"inactivity_timeout"`
	RefreshAhead      Duration `toml:"refresh_ahead"`
}

// Policies is the decoded policy file. Zero values fall back to defaults.
//
//	[admin]
//	session_timeout = "30m"
//	inactivity_timeout = "15m"
//	refresh_ahead = "5m"
//
//	[fablab]
//	session_timeout = "15m"
//	inactivity_timeout = "10m"
//
//	[monitor]
//	check_interval = "1m"
type Policies struct {
	Admin   policyFile `toml:"admin"`
	FabLab  policyFile `toml:"fablab"`
	Monitor struct {
		CheckInterval Duration `toml:"check_interval"`
	} `toml:"monitor"`
}

var _ PolicyConfig = Policies{}

// LoadPolicies decodes the TOML policy file at path. An empty path yields defaults.
func LoadPolicies(path string) (Policies, error) {
	var p Policies
	if path == "" {
		return p, nil
	}
	if _, err := toml.DecodeFile(path, &p); err != nil {
		return Policies{}, errors.Wrapf(err, "[LoadPolicies] decode %s", path)
	}
	return p, nil
}

func orDefault(d Duration, def time.Duration) time.Duration {
	if d.Duration > 0 {
		return d.Duration
	}
	return def
}

func (p Policies) GetAdminSessionTimeout() time.Duration {
	return GetDuration("ADMIN_SESSION_TIMEOUT", orDefault(p.Admin.SessionTimeout, defaultAdminSessionTimeout))
}

func (p Policies) GetAdminInactivityTimeout() time.Duration {
	return GetDuration("ADMIN_INACTIVITY_TIMEOUT", orDefault(p.Admin.InactivityTimeout, defaultAdminInactivityTimeout))
}

func (p Policies) GetAdminRefreshAhead() time.Duration {
	return GetDuration("ADMIN_REFRESH_AHEAD", orDefault(p.Admin.RefreshAhead, defaultAdminRefreshAhead))
}

func (p Policies) GetFabLabSessionTimeout() time.Duration {
	return GetDuration("FABLAB_SESSION_TIMEOUT", orDefault(p.FabLab.SessionTimeout, defaultFabLabSessionTimeout))
}

func (p Policies) GetFabLabInactivityTimeout() time.Duration {
	return GetDuration("FABLAB_INACTIVITY_TIMEOUT", orDefault(p.FabLab.InactivityTimeout, defaultFabLabInactivityTimeout))
}

func (p Policies) GetSessionCheckInterval() time.Duration {
	return GetDuration("SESSION_CHECK_INTERVAL", orDefault(p.Monitor.CheckInterval, defaultCheckInterval))
}
