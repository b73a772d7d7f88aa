package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleLimiterTTL is how long an unused client limiter is kept.
const idleLimiterTTL = 10 * time.Minute

type clientLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// limiterSet hands out one token bucket per client key.
type limiterSet struct {
	mu      sync.Mutex
	every   rate.Limit
	burst   int
	clients map[string]*clientLimiter
	swept   time.Time
}

func (s *limiterSet) get(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.Sub(s.swept) > idleLimiterTTL {
		for k, c := range s.clients {
			if now.Sub(c.lastSeen) > idleLimiterTTL {
				delete(s.clients, k)
			}
		}
		s.swept = now
	}
	c, ok := s.clients[key]
	if !ok {
		c = &clientLimiter{lim: rate.NewLimiter(s.every, s.burst)}
		s.clients[key] = c
	}
	c.lastSeen = now
	return c.lim
}

// RateLimit allows limit requests per window and client as a token bucket
// that refills continuously. Authenticated callers are keyed by user id,
// everyone else by IP. A limit below one disables the middleware.
func RateLimit(limit int, per time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limit < 1 || per <= 0 {
			return next
		}
		set := &limiterSet{
			every:   rate.Every(per / time.Duration(limit)),
			burst:   limit,
			clients: make(map[string]*clientLimiter),
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := UserIDFromContext(r.Context())
			if key == "" {
				key = "ip:" + ClientIP(r)
			}
			now := time.Now()
			res := set.get(key, now).ReserveN(now, 1)
			if delay := res.DelayFrom(now); delay > 0 {
				res.CancelAt(now)
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
