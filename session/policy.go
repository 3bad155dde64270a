package session

import (
	"time"

	"github.com/pkg/errors"
)

// Policy is everything that differs between session instances.
type Policy[P Principal] struct {
	Name              string
	SessionTimeout    time.Duration // absolute lifetime of an access token
	InactivityTimeout time.Duration // maximum gap between interactions
	CheckInterval     time.Duration // activity monitor tick
	KeyPrefix         string        // storage key prefix
	LoginRoute        string        // where logout navigates to
	AllowRefresh      bool
	RefreshAhead      time.Duration // refresh proactively when expiry is this close; 0 disables

	// Capability is the actor-specific "allowed to act" check on top of
	// authentication. Nil means authenticated is enough.
	Capability func(profile P, now time.Time) bool
}

func (p Policy[P]) validate() error {
	switch {
	case p.Name == "":
		return errors.New("[Policy] name is required")
	case p.SessionTimeout <= 0:
		return errors.Errorf("[Policy %s] session timeout must be positive", p.Name)
	case p.InactivityTimeout <= 0:
		return errors.Errorf("[Policy %s] inactivity timeout must be positive", p.Name)
	case p.CheckInterval <= 0:
		return errors.Errorf("[Policy %s] check interval must be positive", p.Name)
	case p.LoginRoute == "":
		return errors.Errorf("[Policy %s] login route is required", p.Name)
	case p.RefreshAhead < 0 || p.RefreshAhead >= p.SessionTimeout:
		return errors.Errorf("[Policy %s] refresh ahead must be within the session timeout", p.Name)
	}
	return nil
}
