package auth

import (
	"context"
	"fmt"

	"github.com/platinummonkey/checklist/pkg/observability"
)

// TokenMinter issues a signed token for an authenticated user
type TokenMinter interface {
	Issue(user *User, roles []Role) (string, error)
}

// LoginService exchanges credentials for a token
type LoginService struct {
	authenticator *Authenticator
	roles         RoleResolver
	tokens        TokenMinter
	recorder      Recorder
	logger        *observability.Logger
}

// NewLoginService creates a new login service
func NewLoginService(authenticator *Authenticator, roles RoleResolver, tokens TokenMinter, logger *observability.Logger) *LoginService {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &LoginService{
		authenticator: authenticator,
		roles:         roles,
		tokens:        tokens,
		recorder:      nopRecorder{},
		logger:        logger,
	}
}

// WithRecorder sets the recorder that receives token issuance events
func (s *LoginService) WithRecorder(r Recorder) *LoginService {
	if r != nil {
		s.recorder = r
	}
	return s
}

// Login authenticates the caller, resolves their current roles and issues a token.
// No token is minted unless authentication succeeds.
func (s *LoginService) Login(ctx context.Context, loginName, password string) (string, error) {
	user, err := s.authenticator.Authenticate(ctx, loginName, password)
	if err != nil {
		return "", err
	}

	roles, err := s.roles.RolesOf(ctx, user.ID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve roles: %w", err)
	}

	token, err := s.tokens.Issue(user, roles)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	s.recorder.RecordTokenIssued()
	s.logger.WithFields(map[string]interface{}{
		"user_id": user.ID.String(),
		"roles":   RoleNames(roles),
	}).Info("User logged in")

	return token, nil
}
