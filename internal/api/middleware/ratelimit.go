package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/kotoba-api/internal/api/shared"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per authenticated learner. Buckets
// idle longer than idleTTL are dropped on the next sweep.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time

	mu        sync.Mutex
	limiters  map[uuid.UUID]*learnerLimiter
	lastSweep time.Time
}

type learnerLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows each learner requestsPerSecond with the given burst.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:    rate.Limit(requestsPerSecond),
		burst:    burst,
		idleTTL:  10 * time.Minute,
		now:      time.Now,
		limiters: make(map[uuid.UUID]*learnerLimiter),
	}
}

// Allow reports whether learnerID may make a request now.
func (l *RateLimiter) Allow(learnerID uuid.UUID) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.idleTTL {
		for id, ll := range l.limiters {
			if now.Sub(ll.lastSeen) > l.idleTTL {
				delete(l.limiters, id)
			}
		}
		l.lastSweep = now
	}

	ll, ok := l.limiters[learnerID]
	if !ok {
		ll = &learnerLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[learnerID] = ll
	}
	ll.lastSeen = now
	return ll.limiter.AllowN(now, 1)
}

// Limit is middleware rejecting over-budget learners with 429. It must run
// after AuthMiddleware; unauthenticated requests pass through.
func (l *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		learnerID, ok := shared.LearnerIDFromContext(r.Context())
		if ok && !l.Allow(learnerID) {
			w.Header().Set("Retry-After", "1")
			shared.RespondWithErrorAndLog(w, r, http.StatusTooManyRequests, "Too many requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
