package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdle = 3 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type limiterStore struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	r        rate.Limit
	b        int
}

func newLimiterStore(r float64, b int) *limiterStore {
	return &limiterStore{
		limiters: make(map[string]*clientLimiter),
		r:        rate.Limit(r),
		b:        b,
	}
}

func (ls *limiterStore) get(ip string, now time.Time) *rate.Limiter {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if v, ok := ls.limiters[ip]; ok {
		v.lastSeen = now
		return v.limiter
	}
	// evict idle clients lazily instead of running a sweeper goroutine
	for k, v := range ls.limiters {
		if now.Sub(v.lastSeen) > limiterIdle {
			delete(ls.limiters, k)
		}
	}
	l := rate.NewLimiter(ls.r, ls.b)
	ls.limiters[ip] = &clientLimiter{limiter: l, lastSeen: now}
	return l
}

// RateLimit limits each client IP to rps requests per second with the given
// burst. A non-positive rps disables limiting. Clients are keyed on the
// connection address; forwarding headers are used only when trustProxy is
// set, since any client can send them.
func RateLimit(rps float64, burst int, trustProxy bool) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst < 1 {
		burst = 1
	}
	store := newLimiterStore(rps, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !store.get(clientIP(r, trustProxy), time.Now()).Allow() {
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP is the host part of RemoteAddr, or the first forwarded address
// when trustProxy is set and a proxy supplied one.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := forwardedFor(r); fwd != "" {
			return fwd
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func forwardedFor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	return r.Header.Get("X-Real-IP")
}
