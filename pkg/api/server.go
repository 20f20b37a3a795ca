package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/checklist/pkg/auth"
	"github.com/platinummonkey/checklist/pkg/checklists"
	"github.com/platinummonkey/checklist/pkg/httputil"
	"github.com/platinummonkey/checklist/pkg/middleware"
	"github.com/platinummonkey/checklist/pkg/observability"
	"github.com/platinummonkey/checklist/pkg/users"
)

// DefaultMaxBodyBytes caps request bodies
const DefaultMaxBodyBytes = 1 << 20

// Server represents our API server
type Server struct {
	router       *mux.Router
	handler      http.Handler
	login        *auth.LoginService
	users        *users.Service
	checklists   *checklists.Service
	authn        *middleware.AuthMiddleware
	limits       *middleware.RateLimitMiddleware
	metrics      *observability.Metrics
	audit        *auth.AuditLogger
	logger       *observability.Logger
	maxBodyBytes int64
}

// Option configures optional server components
type Option func(*Server)

// WithRateLimit throttles every /api/v1 request
func WithRateLimit(limits *middleware.RateLimitMiddleware) Option {
	return func(s *Server) { s.limits = limits }
}

// WithMetrics records per-route request metrics
func WithMetrics(metrics *observability.Metrics) Option {
	return func(s *Server) { s.metrics = metrics }
}

// WithMaxBodyBytes overrides DefaultMaxBodyBytes
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) { s.maxBodyBytes = n }
}

// NewServer creates a new API server
func NewServer(
	login *auth.LoginService,
	userService *users.Service,
	checklistService *checklists.Service,
	validator auth.TokenValidator,
	logger *observability.Logger,
	opts ...Option,
) *Server {
	if logger == nil {
		logger = observability.NewNopLogger()
	}

	s := &Server{
		router:       mux.NewRouter(),
		login:        login,
		users:        userService,
		checklists:   checklistService,
		authn:        middleware.NewAuthMiddleware(validator, true, logger),
		audit:        auth.NewAuditLogger(logger),
		logger:       logger,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	s.handler = httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.logger),
		httputil.RecoveryMiddleware(s.logger),
		httputil.ContentTypeMiddleware,
		httputil.MaxBytesMiddleware(s.maxBodyBytes),
	)(s.router)
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFound(w, "not found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	s.router.Use(observability.TraceRouteMiddleware)
	if s.metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(s.metrics))
	}

	v1 := s.router.PathPrefix("/api/v1").Subrouter()
	v1.Use(s.authn.Handler)
	if s.limits != nil {
		v1.Use(s.limits.Handler)
	}

	// Anonymous routes
	v1.HandleFunc("/login", s.handleLogin).Methods("POST")
	v1.HandleFunc("/users/register", s.handleRegister).Methods("POST")

	protected := v1.NewRoute().Subrouter()
	protected.Use(middleware.RequireAuthenticated)

	// User routes
	protected.HandleFunc("/users", s.handleListUsers).Methods("GET")
	protected.HandleFunc("/users/{id}", s.handleGetUser).Methods("GET")
	protected.HandleFunc("/users/{id}", s.handleUpdateUser).Methods("PUT")
	protected.HandleFunc("/users/{id}", s.handleDeleteUser).Methods("DELETE")

	// Role routes
	protected.HandleFunc("/users/{id}/roles", s.handleGetRoles).Methods("GET")
	protected.HandleFunc("/users/{id}/roles/{role}", s.handleGrantRole).Methods("PUT")
	protected.HandleFunc("/users/{id}/roles/{role}", s.handleRevokeRole).Methods("DELETE")

	// Checklist routes
	protected.HandleFunc("/checklists", s.handleListChecklists).Methods("GET")
	protected.HandleFunc("/checklists", s.handleCreateChecklist).Methods("POST")
	protected.HandleFunc("/checklists/{id}", s.handleGetChecklist).Methods("GET")
	protected.HandleFunc("/checklists/{id}", s.handleUpdateChecklist).Methods("PUT")
	protected.HandleFunc("/checklists/{id}", s.handleDeleteChecklist).Methods("DELETE")
	protected.HandleFunc("/checklists/{id}/complete", s.handleCompleteChecklist).Methods("POST")
}

// Router exposes the underlying router
func (s *Server) Router() *mux.Router {
	return s.router
}

// Handler returns the router wrapped in the request-scoped middleware chain
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
