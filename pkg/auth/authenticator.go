package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/platinummonkey/checklist/pkg/observability"
)

// Login attempt outcomes reported to a Recorder
const (
	LoginSuccess     = "success"
	LoginUnknownUser = "unknown_user"
	LoginBadPassword = "bad_password"
	LoginError       = "error"
)

// CredentialStore looks up accounts by login name.
// GetUserByEmail must return ErrNotFound when no account matches.
type CredentialStore interface {
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}

// Recorder receives authentication and authorization outcomes
type Recorder interface {
	RecordLoginAttempt(result string)
	RecordAccessDecision(action string, allowed bool)
	RecordTokenIssued()
}

type nopRecorder struct{}

func (nopRecorder) RecordLoginAttempt(string)         {}
func (nopRecorder) RecordAccessDecision(string, bool) {}
func (nopRecorder) RecordTokenIssued()                {}

// NormalizeEmail folds an email address into the form used for lookups and
// uniqueness: trimmed, NFKC normalized and case folded.
func NormalizeEmail(email string) string {
	return cases.Fold().String(norm.NFKC.String(strings.TrimSpace(email)))
}

// Authenticator verifies a login name and password against the credential store
type Authenticator struct {
	store     CredentialStore
	hasher    *PasswordHasher
	recorder  Recorder
	logger    *observability.Logger
	dummyHash string
}

// NewAuthenticator creates a new authenticator
func NewAuthenticator(store CredentialStore, hasher *PasswordHasher, logger *observability.Logger) (*Authenticator, error) {
	if logger == nil {
		logger = observability.NewNopLogger()
	}

	// Compared against when the login name is unknown so that both failure
	// paths cost one bcrypt verification.
	dummy, _, err := hasher.Hash("checklist-unknown-account")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare authenticator: %w", err)
	}

	return &Authenticator{
		store:     store,
		hasher:    hasher,
		recorder:  nopRecorder{},
		logger:    logger,
		dummyHash: dummy,
	}, nil
}

// WithRecorder sets the recorder that receives login outcomes
func (a *Authenticator) WithRecorder(r Recorder) *Authenticator {
	if r != nil {
		a.recorder = r
	}
	return a
}

// Authenticate returns the account for loginName if password matches.
// Unknown accounts and wrong passwords both yield ErrInvalidCredentials; store
// failures are returned wrapped.
func (a *Authenticator) Authenticate(ctx context.Context, loginName, password string) (*User, error) {
	user, err := a.store.GetUserByEmail(ctx, loginName)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			a.hasher.Verify(password, a.dummyHash)
			a.recorder.RecordLoginAttempt(LoginUnknownUser)
			a.logger.Debug("Login rejected: unknown account")
			return nil, ErrInvalidCredentials
		}
		a.recorder.RecordLoginAttempt(LoginError)
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !a.hasher.Verify(password, user.HashedPassword) {
		a.recorder.RecordLoginAttempt(LoginBadPassword)
		a.logger.WithField("user_id", user.ID.String()).Debug("Login rejected: bad password")
		return nil, ErrInvalidCredentials
	}

	a.recorder.RecordLoginAttempt(LoginSuccess)
	return user, nil
}
