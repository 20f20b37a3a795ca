package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/checklist/pkg/auth"
	"github.com/platinummonkey/checklist/pkg/checklists"
	"github.com/platinummonkey/checklist/pkg/middleware"
	"github.com/platinummonkey/checklist/pkg/observability"
	"github.com/platinummonkey/checklist/pkg/storage"
	"github.com/platinummonkey/checklist/pkg/storage/sqlstore"
	"github.com/platinummonkey/checklist/pkg/users"
)

const testPassword = "correct horse battery"

type testEnv struct {
	server *Server
	store  *sqlstore.Store
	issuer *auth.TokenIssuer
	logs   *bytes.Buffer
}

// newTestEnv wires the full stack over a migrated in-memory SQLite database
func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	logs := &bytes.Buffer{}
	logger := observability.NewLogger(observability.DebugLevel, logs)

	store, err := sqlstore.Open(context.Background(), storage.Config{
		Driver:         storage.DriverSQLite,
		DSN:            "file::memory:?_foreign_keys=on",
		MaxConns:       1,
		MinConns:       1,
		Timeout:        5 * time.Second,
		MigrateOnStart: true,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	issuer, err := auth.NewTokenIssuer(auth.TokenConfig{
		SigningKey: []byte("0123456789abcdef0123456789abcdef"),
		Issuer:     "checklist-test",
		Audience:   "checklist-test",
	})
	require.NoError(t, err)

	hasher := auth.NewPasswordHasher(4)
	policy := auth.NewAccessPolicy(auth.RoleAdmin)
	authenticator, err := auth.NewAuthenticator(store, hasher, logger)
	require.NoError(t, err)

	server := NewServer(
		auth.NewLoginService(authenticator, store, issuer, logger),
		users.NewService(store, hasher, policy, logger),
		checklists.NewService(store, policy, logger),
		issuer,
		logger,
		opts...,
	)

	return &testEnv{server: server, store: store, issuer: issuer, logs: logs}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.server.ServeHTTP(w, req)
	return w
}

// register creates an account through the API and returns it
func (e *testEnv) register(t *testing.T, email, last string) *users.UserResponse {
	t.Helper()

	w := e.do(t, "POST", "/api/v1/users/register", "", users.RegistrationRequest{
		FirstName:   "Test",
		LastName:    last,
		PhoneNumber: "5551234",
		Email:       email,
		Password:    testPassword,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var user users.UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	return &user
}

// login exchanges credentials for a token through the API
func (e *testEnv) login(t *testing.T, email string) string {
	t.Helper()

	w := e.do(t, "POST", "/api/v1/login", "", LoginRequest{UserName: email, Password: testPassword})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

// registerAdmin creates an account holding Admin and returns its token
func (e *testEnv) registerAdmin(t *testing.T, email string) (*users.UserResponse, string) {
	t.Helper()

	user := e.register(t, email, "Admin")
	require.NoError(t, e.store.GrantRole(context.Background(), user.ID, auth.RoleAdmin))
	return user, e.login(t, email)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	msg, _ := body["error"].(string)
	return msg
}

func TestRoutesRegistered(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		method string
		path   string
	}{
		{"POST", "/api/v1/login"},
		{"POST", "/api/v1/users/register"},
		{"GET", "/api/v1/users"},
		{"GET", "/api/v1/users/123"},
		{"PUT", "/api/v1/users/123"},
		{"DELETE", "/api/v1/users/123"},
		{"GET", "/api/v1/users/123/roles"},
		{"PUT", "/api/v1/users/123/roles/Admin"},
		{"DELETE", "/api/v1/users/123/roles/Admin"},
		{"GET", "/api/v1/checklists"},
		{"POST", "/api/v1/checklists"},
		{"GET", "/api/v1/checklists/123"},
		{"PUT", "/api/v1/checklists/123"},
		{"DELETE", "/api/v1/checklists/123"},
		{"POST", "/api/v1/checklists/123/complete"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			var match mux.RouteMatch
			assert.True(t, env.server.Router().Match(req, &match), "Route %s %s should be registered", tt.method, tt.path)
		})
	}
}

func TestServer_NotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "GET", "/api/v1/nothing-here", "", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not found", decodeError(t, w))
}

func TestServer_ProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	paths := []struct {
		method string
		path   string
	}{
		{"GET", "/api/v1/users"},
		{"GET", "/api/v1/users/6f1c1b1e-8d4e-4f4b-9f57-0d9b8f9f7c11"},
		{"GET", "/api/v1/checklists"},
		{"POST", "/api/v1/checklists/6f1c1b1e-8d4e-4f4b-9f57-0d9b8f9f7c11/complete"},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			w := env.do(t, p.method, p.path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "authentication required", decodeError(t, w))
		})
	}
}

func TestServer_InvalidTokenRejected(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "GET", "/api/v1/checklists", "not-a-token", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid or expired token", decodeError(t, w))
}

func TestServer_RequestIDAndMetrics(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	env := newTestEnv(t, WithMetrics(metrics))

	w := env.do(t, "POST", "/api/v1/login", "", LoginRequest{UserName: "nobody@example.com", Password: "x"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/login", "401")))
}

func TestServer_RateLimit(t *testing.T) {
	limiter := middleware.NewRateLimiter(&middleware.RateLimitConfig{
		RequestsPerWindow: 2,
		WindowDuration:    time.Minute,
	})
	limits := middleware.NewRateLimitMiddleware(limiter, limiter, true, nil)
	env := newTestEnv(t, WithRateLimit(limits))

	for i := 0; i < 2; i++ {
		w := env.do(t, "POST", "/api/v1/login", "", LoginRequest{UserName: "nobody@example.com", Password: "x"})
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}

	w := env.do(t, "POST", "/api/v1/login", "", LoginRequest{UserName: "nobody@example.com", Password: "x"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestServer_RejectsNonJSONBody(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("POST", "/api/v1/login", bytes.NewBufferString("userName=a"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.server.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
