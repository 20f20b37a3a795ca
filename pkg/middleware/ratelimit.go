package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/platinummonkey/checklist/pkg/auth"
	"github.com/platinummonkey/checklist/pkg/config"
	"github.com/platinummonkey/checklist/pkg/httputil"
	"github.com/platinummonkey/checklist/pkg/observability"
)

// Rate limiter backend names reported to a Recorder
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// maxBuckets bounds the number of callers the in-memory limiter tracks
const maxBuckets = 100_000

// RateLimitConfig defines rate limiting configuration
type RateLimitConfig struct {
	// RequestsPerWindow is the max requests allowed in the time window
	RequestsPerWindow int
	// WindowDuration is the time window for rate limiting
	WindowDuration time.Duration
	// BurstSize allows temporary bursts above the rate
	BurstSize int
}

// DefaultRateLimitConfig returns default rate limit settings
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 100,
		WindowDuration:    time.Minute,
		BurstSize:         10,
	}
}

// Decision is the outcome of one rate limit check
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAfter time.Duration
}

// Limiter decides whether the caller identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
	Backend() string
}

// Recorder receives rejected requests
type Recorder interface {
	RecordRateLimited(backend string)
}

// RateLimiter implements in-memory rate limiting using a token bucket per key.
// Idle buckets expire from an LRU after two windows.
type RateLimiter struct {
	config  *RateLimitConfig
	buckets *expirable.LRU[string, *bucket]
	mu      sync.Mutex
	now     func() time.Time
}

type bucket struct {
	tokens     float64
	lastUpdate time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(config *RateLimitConfig) *RateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}

	return &RateLimiter{
		config:  config,
		buckets: expirable.NewLRU[string, *bucket](maxBuckets, nil, 2*config.WindowDuration),
		now:     time.Now,
	}
}

func (rl *RateLimiter) capacity() float64 {
	return float64(rl.config.RequestsPerWindow + rl.config.BurstSize)
}

// tokens per second
func (rl *RateLimiter) rate() float64 {
	return float64(rl.config.RequestsPerWindow) / rl.config.WindowDuration.Seconds()
}

// Allow takes one token from the bucket for key
func (rl *RateLimiter) Allow(_ context.Context, key string) (Decision, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets.Get(key)
	if !ok {
		b = &bucket{tokens: rl.capacity(), lastUpdate: now}
	}

	// Refill tokens based on elapsed time
	elapsed := now.Sub(b.lastUpdate).Seconds()
	if elapsed > 0 {
		b.tokens = math.Min(rl.capacity(), b.tokens+elapsed*rl.rate())
		b.lastUpdate = now
	}

	d := Decision{Limit: rl.config.RequestsPerWindow}
	if b.tokens >= 1 {
		b.tokens--
		d.Allowed = true
		d.ResetAfter = rl.after(rl.capacity() - b.tokens)
	} else {
		d.ResetAfter = rl.after(1 - b.tokens)
	}
	d.Remaining = int(b.tokens)

	// Re-adding refreshes the expiry
	rl.buckets.Add(key, b)
	return d, nil
}

func (rl *RateLimiter) after(tokens float64) time.Duration {
	return time.Duration(tokens / rl.rate() * float64(time.Second))
}

// Remaining returns the number of whole tokens left for a key
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets.Peek(key)
	if !ok {
		return int(rl.capacity())
	}
	return int(b.tokens)
}

// Len returns the number of tracked keys
func (rl *RateLimiter) Len() int {
	return rl.buckets.Len()
}

// Backend implements Limiter
func (rl *RateLimiter) Backend() string {
	return BackendMemory
}

// RateLimitMiddleware provides HTTP rate limiting. Callers with a principal
// are limited per user id, everyone else per client IP.
type RateLimitMiddleware struct {
	userLimiter      Limiter
	anonymousLimiter Limiter
	failOpen         bool
	recorder         Recorder
	logger           *observability.Logger
}

// NewRateLimitMiddleware creates a new rate limit middleware
func NewRateLimitMiddleware(userLimiter, anonymousLimiter Limiter, failOpen bool, logger *observability.Logger) *RateLimitMiddleware {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &RateLimitMiddleware{
		userLimiter:      userLimiter,
		anonymousLimiter: anonymousLimiter,
		failOpen:         failOpen,
		logger:           logger.WithField("component", "ratelimit"),
	}
}

// NewRateLimitMiddlewareFromConfig builds Redis-backed limiters when
// redisClient is set and in-memory limiters otherwise
func NewRateLimitMiddlewareFromConfig(cfg config.RateLimitConfig, redisClient *redis.Client, logger *observability.Logger) *RateLimitMiddleware {
	userCfg := &RateLimitConfig{
		RequestsPerWindow: cfg.RequestsPerWindow,
		WindowDuration:    cfg.Window,
		BurstSize:         cfg.Burst,
	}
	anonCfg := &RateLimitConfig{
		RequestsPerWindow: cfg.AnonymousRequestsPerWindow,
		WindowDuration:    cfg.Window,
		BurstSize:         cfg.Burst,
	}

	if redisClient != nil {
		return NewRateLimitMiddleware(
			NewDistributedRateLimiter(redisClient, userCfg, "ratelimit:user"),
			NewDistributedRateLimiter(redisClient, anonCfg, "ratelimit:anon"),
			cfg.FailOpen,
			logger,
		)
	}
	return NewRateLimitMiddleware(NewRateLimiter(userCfg), NewRateLimiter(anonCfg), cfg.FailOpen, logger)
}

// WithRecorder sets the recorder that counts rejected requests
func (m *RateLimitMiddleware) WithRecorder(r Recorder) *RateLimitMiddleware {
	m.recorder = r
	return m
}

// Handler wraps an HTTP handler with rate limiting
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var key string
		var limiter Limiter
		if p := GetPrincipal(r); p != nil {
			key = "user:" + p.UserID.String()
			limiter = m.userLimiter
		} else {
			key = "ip:" + auth.ClientIP(r)
			limiter = m.anonymousLimiter
		}

		d, err := limiter.Allow(ctx, key)
		if err != nil {
			log := observability.FromContextOr(ctx, m.logger).WithError(err).WithField("backend", limiter.Backend())
			if m.failOpen {
				log.Warn("Rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}
			log.Error("Rate limiter unavailable, rejecting request")
			httputil.WriteServiceUnavailable(w, "rate limiter unavailable")
			return
		}

		setRateLimitHeaders(w, d)
		if !d.Allowed {
			if m.recorder != nil {
				m.recorder.RecordRateLimited(limiter.Backend())
			}
			w.Header().Set("X-RateLimit-Remaining", "0")
			httputil.WriteTooManyRequests(w, "rate limit exceeded", d.ResetAfter)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func setRateLimitHeaders(w http.ResponseWriter, d Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(d.ResetAfter).Unix(), 10))
}
