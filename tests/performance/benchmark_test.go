package performance

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/platinummonkey/checklist/pkg/auth"
	"github.com/platinummonkey/checklist/pkg/checklists"
	"github.com/platinummonkey/checklist/pkg/middleware"
	"github.com/platinummonkey/checklist/pkg/observability"
	"github.com/platinummonkey/checklist/pkg/storage"
	"github.com/platinummonkey/checklist/pkg/storage/sqlstore"
	"github.com/platinummonkey/checklist/pkg/users"
)

const benchPassword = "correct horse battery"

func openStore(b *testing.B) *sqlstore.Store {
	b.Helper()

	store, err := sqlstore.Open(context.Background(), storage.Config{
		Driver:         storage.DriverSQLite,
		DSN:            "file::memory:?_foreign_keys=on",
		MaxConns:       1,
		MinConns:       1,
		Timeout:        5 * time.Second,
		MigrateOnStart: true,
	}, observability.NewNopLogger())
	if err != nil {
		b.Fatalf("Could not open store: %v", err)
	}
	b.Cleanup(func() { store.Close() })
	return store
}

func newIssuer(b *testing.B) *auth.TokenIssuer {
	b.Helper()

	issuer, err := auth.NewTokenIssuer(auth.TokenConfig{
		SigningKey: []byte("0123456789abcdef0123456789abcdef"),
		Issuer:     "checklist-bench",
		Audience:   "checklist-bench",
	})
	if err != nil {
		b.Fatalf("Could not create issuer: %v", err)
	}
	return issuer
}

// BenchmarkLogin measures a full credential check and token mint at the
// lowest bcrypt cost
func BenchmarkLogin(b *testing.B) {
	store := openStore(b)
	logger := observability.NewNopLogger()
	hasher := auth.NewPasswordHasher(4)
	ctx := context.Background()

	_, err := users.NewService(store, hasher, auth.NewAccessPolicy(auth.RoleAdmin), logger).
		Register(ctx, users.RegistrationRequest{
			FirstName:   "Bench",
			LastName:    "User",
			PhoneNumber: "5550000",
			Email:       "bench@example.com",
			Password:    benchPassword,
		})
	if err != nil {
		b.Fatalf("Failed to register: %v", err)
	}

	authenticator, err := auth.NewAuthenticator(store, hasher, logger)
	if err != nil {
		b.Fatal(err)
	}
	login := auth.NewLoginService(authenticator, store, newIssuer(b), logger)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := login.Login(ctx, "bench@example.com", benchPassword); err != nil {
			b.Errorf("Login failed: %v", err)
		}
	}
}

// BenchmarkTokenValidate measures bearer token validation on every request
func BenchmarkTokenValidate(b *testing.B) {
	issuer := newIssuer(b)
	user := &auth.User{ID: auth.NewUserID(), Email: "bench@example.com"}
	token, err := issuer.Issue(user, []auth.Role{auth.RoleUser})
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := issuer.Validate(token); err != nil {
			b.Errorf("Validate failed: %v", err)
		}
	}
}

// BenchmarkChecklistList measures a paginated listing over a populated table
func BenchmarkChecklistList(b *testing.B) {
	store := openStore(b)
	ctx := context.Background()

	hasher := auth.NewPasswordHasher(4)
	owner, err := users.NewService(store, hasher, auth.NewAccessPolicy(auth.RoleAdmin), nil).
		Register(ctx, users.RegistrationRequest{
			FirstName:   "Bench",
			LastName:    "Owner",
			PhoneNumber: "5550001",
			Email:       "owner@example.com",
			Password:    benchPassword,
		})
	if err != nil {
		b.Fatalf("Failed to register: %v", err)
	}

	service := checklists.NewService(store, auth.NewAccessPolicy(auth.RoleAdmin), nil)
	principal := &auth.Principal{UserID: owner.ID, Roles: []auth.Role{auth.RoleUser}}
	for i := 0; i < 200; i++ {
		_, err := service.Create(ctx, principal, checklists.Request{
			Title:       fmt.Sprintf("task-%d", i),
			Description: "benchmark",
			Status:      "Open",
			Priority:    "Low",
			AssignedTo:  "Bench",
			Comments:    "none",
			DueDate:     time.Now().Add(time.Hour),
		})
		if err != nil {
			b.Fatalf("Failed to create checklist: %v", err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := service.List(ctx, principal, nil, 1+i%10, 20); err != nil {
			b.Errorf("List failed: %v", err)
		}
	}
}

// BenchmarkRateLimiterParallel measures the in-memory limiter under contention
func BenchmarkRateLimiterParallel(b *testing.B) {
	limiter := middleware.NewRateLimiter(&middleware.RateLimitConfig{
		RequestsPerWindow: 1_000_000,
		WindowDuration:    time.Minute,
		BurstSize:         100,
	})
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if _, err := limiter.Allow(ctx, fmt.Sprintf("ip:10.0.0.%d", i%64)); err != nil {
				b.Errorf("Allow failed: %v", err)
			}
			i++
		}
	})
}
