package server

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/jrsteele09/crec-session/oauth2"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// loginLimiter throttles credential checks per client address.
type loginLimiter struct {
	perMinute int
	clients   map[string]*clientLimiter
	lock      sync.Mutex
}

func newLoginLimiter(perMinute int) *loginLimiter {
	return &loginLimiter{perMinute: perMinute, clients: make(map[string]*clientLimiter)}
}

func (l *loginLimiter) allow(client string, now time.Time) bool {
	if l.perMinute <= 0 {
		return true
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	c, ok := l.clients[client]
	if !ok {
		// Burst of the whole minute's allowance, refilled evenly.
		c = &clientLimiter{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.perMinute)}
		l.clients[client] = c
	}
	c.lastSeen = now

	// Drop limiters of clients that went quiet
	for key, other := range l.clients {
		if now.Sub(other.lastSeen) > limiterIdleTTL {
			delete(l.clients, key)
		}
	}
	return c.limiter.AllowN(now, 1)
}

func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimitLogins answers 429 once a client exceeds the configured number of
// credential checks per minute.
func (s *Server) RateLimitLogins(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.logins.allow(clientAddress(r), time.Now()) {
			s.logger.Warn().Str("client", clientAddress(r)).Str("path", r.URL.Path).Msg("login rate limit exceeded")
			w.Header().Set("Retry-After", strconv.Itoa(60/max(1, s.logins.perMinute)+1))
			writeJSONError(w, oauth2.ErrorSlowDown, "Too many attempts, try again shortly", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}
