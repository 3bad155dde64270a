package activity

import (
	"net/http"
	"time"
)

// Middleware publishes a Request signal for every inbound request before the
// wrapped handler runs, so no handler can suppress it.
func Middleware(p Publisher) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			p.Publish(Signal{Kind: Request, At: time.Now()})
			next(w, r)
		}
	}
}
