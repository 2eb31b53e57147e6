package httpapi

import (
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// RateLimit configures the per-client token bucket. A zero RPS disables
// limiting.
type RateLimit struct {
	RPS   float64
	Burst int
}

// RateLimitFromEnv reads RATE_LIMIT_RPS and RATE_LIMIT_BURST, falling
// back to 5 rps with a burst of 20. RATE_LIMIT_ENABLED=false disables it.
func RateLimitFromEnv() RateLimit {
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED"))); v == "0" || v == "false" || v == "no" {
		return RateLimit{}
	}
	rl := RateLimit{RPS: 5, Burst: 20}
	if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			rl.RPS = f
		}
	}
	if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_BURST")); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			rl.Burst = i
		}
	}
	return rl
}

// limiterEntry holds a rate limiter and the last time it was seen.
type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterStore maps client keys to limiters. Stale entries are swept
// while handling requests, at most once per sweepEvery.
type limiterStore struct {
	mu         sync.Mutex
	entries    map[string]*limiterEntry
	staleAfter time.Duration
	sweepEvery time.Duration
	lastSweep  time.Time
	now        func() time.Time
}

func newLimiterStore(staleAfter time.Duration) *limiterStore {
	return &limiterStore{
		entries:    make(map[string]*limiterEntry),
		staleAfter: staleAfter,
		sweepEvery: time.Minute,
		now:        time.Now,
	}
}

func (s *limiterStore) getOrCreate(key string, r rate.Limit, burst int) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= s.sweepEvery {
		s.sweepLocked(now)
	}
	if e, ok := s.entries[key]; ok {
		e.lastSeen = now
		return e.limiter
	}
	lim := rate.NewLimiter(r, burst)
	s.entries[key] = &limiterEntry{limiter: lim, lastSeen: now}
	return lim
}

func (s *limiterStore) sweepLocked(now time.Time) {
	cutoff := now.Add(-s.staleAfter)
	for k, e := range s.entries {
		if e.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
	s.lastSweep = now
}

func (s *limiterStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// rateLimitMiddleware applies per-IP token bucket limiting. /health is
// never limited.
func rateLimitMiddleware(rl RateLimit) gin.HandlerFunc {
	if rl.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	burst := max(rl.Burst, 1)
	store := newLimiterStore(10 * time.Minute)

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions || c.Request.URL.Path == "/health" {
			c.Next()
			return
		}
		lim := store.getOrCreate("ip:"+c.ClientIP(), rate.Limit(rl.RPS), burst)
		if !lim.Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, failure(ErrorCodeRateLimited, "Too many requests"))
			return
		}
		c.Next()
	}
}

// requestIDMiddleware propagates X-Request-ID or assigns a new one.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-ID", reqID)
		c.Set("request_id", reqID)
		c.Next()
	}
}

// accessLogMiddleware writes one structured line per request.
func accessLogMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"request_id", c.GetString("request_id"),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			"size", c.Writer.Size(),
		}
		if errs := c.Errors.String(); errs != "" {
			attrs = append(attrs, "error", errs)
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("request", attrs...)
		case c.Writer.Status() >= http.StatusBadRequest:
			logger.Warn("request", attrs...)
		default:
			logger.Info("request", attrs...)
		}
	}
}
