// Package remote holds identity providers that talk to the portal backend over
// HTTP: OAuth2 password and refresh grants for admins, discovered through the
// backend's OpenID configuration, and the FabLab verify endpoint for members.
package remote

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	errs "github.com/jrsteele09/crec-session/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultTimeout = 15 * time.Second

type options struct {
	httpClient *http.Client
	logger     zerolog.Logger
}

type Option func(*options)

// WithHTTPClient sets the client used for every backend call.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func newOptions(opts []Option) options {
	o := options{
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     log.Logger,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func trimBaseURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/")
}

// transportError classifies a failed round trip as a timeout or a network error.
func transportError(err error, where string) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errs.As(err, &netErr) && netErr.Timeout()) {
		return errors.Wrap(errs.Wrapf(errs.ErrTimeout, "%v", err), where)
	}
	return errors.Wrap(errs.Wrapf(errs.ErrNetwork, "%v", err), where)
}

// rejected reports whether status means the backend refused the credential.
func rejected(status int) bool {
	return status == http.StatusBadRequest || status == http.StatusUnauthorized || status == http.StatusForbidden
}
