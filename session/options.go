package session

import (
	"time"

	"github.com/jrsteele09/crec-session/activity"
	"github.com/rs/zerolog"
)

type options struct {
	navigator Navigator
	source    activity.Source
	logger    *zerolog.Logger
	nowFunc   func() time.Time
}

// Option configures a Manager.
type Option func(*options)

// WithNavigator sets where logout redirects go. Defaults to logging the route.
func WithNavigator(n Navigator) Option {
	return func(o *options) {
		o.navigator = n
	}
}

// WithActivitySource sets the interaction signal source the monitor listens to.
func WithActivitySource(source activity.Source) Option {
	return func(o *options) {
		o.source = source
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &logger
	}
}

// WithNowFunc sets the clock (primarily for testing)
func WithNowFunc(now func() time.Time) Option {
	return func(o *options) {
		o.nowFunc = now
	}
}
