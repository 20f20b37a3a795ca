// Package middleware provides HTTP middleware for bearer token authentication
// and rate limiting.
//
// AuthMiddleware validates "Authorization: Bearer <token>" with an
// auth.TokenValidator and stores the resulting *auth.Principal in the request
// context. In optional mode requests without the header pass through and
// RequireAuthenticated guards the routes that need a caller:
//
//	authn := middleware.NewAuthMiddleware(issuer, true, logger)
//	router.Use(authn.Handler)
//	protected.Use(middleware.RequireAuthenticated)
//
// RateLimitMiddleware throttles callers per user id when authenticated and per
// client IP otherwise. Two Limiter backends exist: RateLimiter keeps token
// buckets in an expirable LRU, DistributedRateLimiter counts fixed windows in
// Redis so that limits hold across instances.
//
//	limits := middleware.NewRateLimitMiddlewareFromConfig(cfg.RateLimit, redisClient, logger)
//	router.Use(limits.Handler)
//
// When Redis is unreachable the middleware either lets requests through or
// answers 503, depending on RateLimitConfig.FailOpen.
package middleware
