// Package api implements the notes REST API using chi.
package api

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"sync"

	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

// Recover converts a panic in a downstream handler into the standard
// 500 envelope.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			slog.Error("panic recovered",
				slog.String("path", r.URL.Path),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())))
			writeFailure(w, http.StatusInternalServerError, msgInternal, []string{fmt.Sprint(rec)})
		}()
		next.ServeHTTP(w, r)
	})
}

// RateLimiter keeps one token bucket per client address.
type RateLimiter struct {
	rps      rate.Limit
	burst    int
	limiters sync.Map // map[string]*rate.Limiter
	metrics  *Metrics
}

// NewRateLimiter allows rps requests per second per client with the given
// burst. metrics may be nil.
func NewRateLimiter(rps float64, burst int, metrics *Metrics) *RateLimiter {
	return &RateLimiter{rps: rate.Limit(rps), burst: burst, metrics: metrics}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if v, ok := rl.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}
	v, _ := rl.limiters.LoadOrStore(key, rate.NewLimiter(rl.rps, rl.burst))
	return v.(*rate.Limiter)
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.limiter(clientKey(r)).Allow() {
			if rl.metrics != nil {
				rl.metrics.rateLimited.Inc()
			}
			w.Header().Set("Retry-After", "1")
			writeFailure(w, http.StatusTooManyRequests, "Too Many Requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey uses the host part of RemoteAddr, which middleware.RealIP has
// already replaced when a proxy header is present.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		return r.RemoteAddr
	}
	return host
}
