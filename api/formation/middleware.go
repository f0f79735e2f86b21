package formation

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	coremon "github.com/kilianp07/rakeform/core/monitoring"
	"github.com/kilianp07/rakeform/infra/logger"
)

// RateLimit rejects requests beyond a token bucket of burst tokens refilled
// at perSecond with 429. A non-positive rate disables the limit.
func RateLimit(perSecond float64, burst int, next http.Handler) http.Handler {
	if perSecond <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	lim := rate.NewLimiter(rate.Limit(perSecond), burst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !lim.Allow() {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Recover turns a handler panic into a 500 and reports it to the error monitor.
func Recover(log logger.Logger, next http.Handler) http.Handler {
	if log == nil {
		log = logger.NopLogger{}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				err := fmt.Errorf("panic serving %s %s: %v", r.Method, r.URL.Path, v)
				log.Errorf("%v", err)
				coremon.CaptureException(err, map[string]string{"module": "api", "path": r.URL.Path})
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// RequireToken rejects requests without "Authorization: Bearer <token>" with
// 401. The token is compared in constant time. An empty token disables the
// check.
func RequireToken(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	want := []byte(token)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
