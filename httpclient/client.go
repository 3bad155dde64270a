// Package httpclient attaches the session's access token to outbound requests and
// turns an authorization failure into a logout of the bound session.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	errs "github.com/jrsteele09/crec-session/internal/errors"
	"github.com/jrsteele09/crec-session/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultTimeout = 30 * time.Second

// TokenSource is the session a client is bound to.
type TokenSource interface {
	Credential() session.Credential
	ExpireCredential(c session.Credential) bool
	RecordActivity()
}

// StatusError is a non-2xx response other than 401.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client is an HTTP client bound to one session.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
	logger     zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithBaseURL sets the prefix for relative paths.
func WithBaseURL(baseURL string) Option {
	return func(client *Client) {
		client.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(client *Client) {
		client.logger = logger
	}
}

func New(tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		tokens:     tokens,
		logger:     log.With().Str("component", "httpclient").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends req with the current access token and counts the call as activity of
// the bound session. A 401 logs the bound session out and returns ErrAuthExpired. Transport failures return ErrTimeout or ErrNetwork
// and leave the session alone. Other statuses are returned to the caller as is.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	cred := c.tokens.Credential()
	if cred.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cred.Token)
		c.tokens.RecordActivity()
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportErr(err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		if cred.Token == "" {
			return nil, errors.Wrap(errs.ErrAuthExpired, "[Client.Do] request sent without a session")
		}
		if c.tokens.ExpireCredential(cred) {
			c.logger.Info().Str("url", req.URL.Redacted()).Msg("credential rejected, session logged out")
		}
		return nil, errors.Wrap(errs.ErrAuthExpired, "[Client.Do]")
	}
	return resp, nil
}

func transportErr(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errs.As(err, &netErr) && netErr.Timeout()) {
		return errors.Wrap(errs.Wrapf(errs.ErrTimeout, "%v", err), "[Client.Do]")
	}
	return errors.Wrap(errs.Wrapf(errs.ErrNetwork, "%v", err), "[Client.Do]")
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

func (c *Client) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Get]")
	}
	return c.Do(req)
}

func (c *Client) PostJSON(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.PostJSON] encoding body")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "[Client.PostJSON]")
	}
	req.Header.Set("Content-Type", "application/json")
	return c.Do(req)
}

// GetJSON fetches path and decodes a 2xx JSON body into out. Any other status is
// a *StatusError.
func (c *Client) GetJSON(ctx context.Context, path string, out interface{}) error {
	resp, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(errs.Wrapf(errs.ErrNetwork, "%v", err), "[Client.GetJSON] decoding response")
	}
	return nil
}
