package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PREETHAM1590/waste-wise/internal/lib/apperr"
	"github.com/PREETHAM1590/waste-wise/internal/lib/jwt"
	"golang.org/x/time/rate"
)

type ctxKey string

const userIDKey ctxKey = "uid"

func userIDFrom(ctx context.Context) string {
	uid, _ := ctx.Value(userIDKey).(string)
	return uid
}

func (s *APIServer) authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenHeader := r.Header.Get("Authorization")
		if tokenHeader == "" {
			s.writeError(w, r, apperr.ErrUnauthorized)
			return
		}

		parts := strings.Split(tokenHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			s.writeError(w, r, apperr.ErrUnauthorized)
			return
		}

		uid, err := jwt.ParseToken(parts[1], s.jwtSecret)
		if err != nil {
			s.writeError(w, r, apperr.ErrUnauthorized)
			return
		}

		r = r.WithContext(context.WithValue(r.Context(), userIDKey, uid))
		next(w, r)
	}
}

const adminTokenHeader = "X-Admin-Token"

// requireOperator admits requests carrying the configured admin token. With
// no token configured every request is refused.
func (s *APIServer) requireOperator(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		want := s.config.Auth.AdminToken
		got := r.Header.Get(adminTokenHeader)
		if want == "" || subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
			s.writeError(w, r, apperr.ErrUnauthorized)
			return
		}

		next(w, r)
	}
}

// rateLimiter keeps one token bucket per authenticated user, falling back
// to the remote address. Buckets idle for longer than idleTTL are dropped;
// by then they have refilled, so a fresh one behaves the same.
type rateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	rate      rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const minLimiterIdleTTL = 10 * time.Minute

// newRateLimiter returns nil, meaning unlimited, for a non-positive rate.
func newRateLimiter(perSecond float64, burst int) *rateLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}

	refill := time.Duration(float64(burst) / perSecond * float64(time.Second))
	return &rateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(perSecond),
		burst:    burst,
		idleTTL:  max(minLimiterIdleTTL, refill),
		now:      time.Now,
	}
}

func (rl *rateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.idleTTL {
		rl.sweepLocked(now)
	}

	e, ok := rl.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = e
	}
	e.lastSeen = now

	return e.limiter
}

func (rl *rateLimiter) sweepLocked(now time.Time) {
	for key, e := range rl.limiters {
		if now.Sub(e.lastSeen) >= rl.idleTTL {
			delete(rl.limiters, key)
		}
	}
	rl.lastSweep = now
}

func (rl *rateLimiter) limit(next http.HandlerFunc) http.HandlerFunc {
	if rl == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		key := userIDFrom(r.Context())
		if key == "" {
			key = r.RemoteAddr
		}

		if !rl.get(key).Allow() {
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate_limited", Message: "too many scans, slow down"})
			return
		}

		next(w, r)
	}
}
