package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/platinummonkey/checklist/pkg/auth"
	"github.com/platinummonkey/checklist/pkg/contextkeys"
	"github.com/platinummonkey/checklist/pkg/httputil"
	"github.com/platinummonkey/checklist/pkg/observability"
)

// AuthMiddleware provides bearer token authentication
type AuthMiddleware struct {
	validator auth.TokenValidator
	optional  bool // If true, allow requests without auth
	logger    *observability.Logger
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(validator auth.TokenValidator, optional bool, logger *observability.Logger) *AuthMiddleware {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &AuthMiddleware{
		validator: validator,
		optional:  optional,
		logger:    logger,
	}
}

// Handler wraps an HTTP handler with authentication. A request that presents
// a token is rejected when the token does not validate, even in optional mode.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Format: "Bearer <token>"
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteUnauthorized(w, "missing authorization header")
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			httputil.WriteUnauthorized(w, "invalid authorization header format")
			return
		}

		principal, err := m.validator.Validate(token)
		if err != nil {
			observability.FromContextOr(r.Context(), m.logger).
				WithError(err).
				Debug("Rejected bearer token")
			httputil.WriteUnauthorized(w, "invalid or expired token")
			return
		}

		observability.AnnotateSpanUser(r.Context(), principal.UserID.String())
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

// RequireAuthenticated rejects requests that carry no principal. It is meant
// to run behind an optional AuthMiddleware.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetPrincipal(r) == nil {
			httputil.WriteUnauthorized(w, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithPrincipal stores the authenticated caller in ctx
func WithPrincipal(ctx context.Context, p *auth.Principal) context.Context {
	ctx = contextkeys.WithPrincipal(ctx, p)
	return contextkeys.WithUserID(ctx, p.UserID.String())
}

// PrincipalFromContext returns the authenticated caller, or nil
func PrincipalFromContext(ctx context.Context) *auth.Principal {
	p, _ := contextkeys.Principal(ctx).(*auth.Principal)
	return p
}

// GetPrincipal extracts the authenticated caller from the request
func GetPrincipal(r *http.Request) *auth.Principal {
	return PrincipalFromContext(r.Context())
}
