package session

import "github.com/rs/zerolog"

// Navigator performs the hard navigation to the login route after logout.
type Navigator interface {
	Navigate(route string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(route string)

func (f NavigatorFunc) Navigate(route string) {
	f(route)
}

type logNavigator struct {
	logger zerolog.Logger
}

func (n logNavigator) Navigate(route string) {
	n.logger.Info().Str("route", route).Msg("redirecting to login")
}
