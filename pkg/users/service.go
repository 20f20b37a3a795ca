package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/platinummonkey/checklist/pkg/auth"
	"github.com/platinummonkey/checklist/pkg/observability"
	"github.com/platinummonkey/checklist/pkg/validation"
)

// Repository is the persistence the user service needs
type Repository interface {
	GetUserByEmail(ctx context.Context, email string) (*auth.User, error)
	GetUser(ctx context.Context, id auth.UserID) (*auth.User, error)
	ListUsers(ctx context.Context, offset, limit int) ([]auth.User, error)
	CreateUser(ctx context.Context, user *auth.User, roles []auth.Role) error
	UpdateUser(ctx context.Context, user *auth.User) error
	DeleteUser(ctx context.Context, id auth.UserID) error
	RolesOf(ctx context.Context, id auth.UserID) ([]auth.Role, error)
	GrantRole(ctx context.Context, id auth.UserID, role auth.Role) error
	RevokeRole(ctx context.Context, id auth.UserID, role auth.Role) error
}

// Service implements account registration, profile management, and role
// administration. Every operation on an existing account consults the
// access policy before touching the repository.
type Service struct {
	repo   Repository
	hasher *auth.PasswordHasher
	policy *auth.AccessPolicy
	logger *observability.Logger
}

// NewService creates a user service
func NewService(repo Repository, hasher *auth.PasswordHasher, policy *auth.AccessPolicy, logger *observability.Logger) *Service {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Service{
		repo:   repo,
		hasher: hasher,
		policy: policy,
		logger: logger.WithField("component", "users"),
	}
}

// Register creates an account holding the User role
func (s *Service) Register(ctx context.Context, req RegistrationRequest) (*UserResponse, error) {
	return s.register(ctx, req, []auth.Role{auth.RoleUser})
}

// RegisterAdmin creates an account holding both the User and Admin roles in
// a single store write. It backs the admin tool and is not reachable over HTTP.
func (s *Service) RegisterAdmin(ctx context.Context, req RegistrationRequest) (*UserResponse, error) {
	return s.register(ctx, req, []auth.Role{auth.RoleUser, auth.RoleAdmin})
}

func (s *Service) register(ctx context.Context, req RegistrationRequest, roles []auth.Role) (*UserResponse, error) {
	if err := validateRegistration(req); err != nil {
		return nil, err
	}

	logger := observability.FromContextOr(ctx, s.logger)

	if _, err := s.repo.GetUserByEmail(ctx, req.Email); err == nil {
		logger.Debug("Registration rejected: email already registered")
		return nil, fmt.Errorf("email %q: %w", req.Email, auth.ErrUserAlreadyExists)
	} else if !errors.Is(err, auth.ErrNotFound) {
		return nil, err
	}

	hash, salt, err := s.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: password: %v", auth.ErrValidation, err)
		}
		return nil, err
	}

	user := &auth.User{
		ID:             auth.NewUserID(),
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		PhoneNumber:    req.PhoneNumber,
		Email:          req.Email,
		HashedPassword: hash,
		Salt:           salt,
	}
	if err := s.repo.CreateUser(ctx, user, roles); err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"user_id": user.ID.String(),
		"roles":   auth.RoleNames(roles),
	}).Info("User registered")
	return NewUserResponse(user), nil
}

// Get returns an account visible to p
func (s *Service) Get(ctx context.Context, p *auth.Principal, id auth.UserID) (*UserResponse, error) {
	if err := s.policy.Evaluate(p, id).Err(); err != nil {
		return nil, err
	}

	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewUserResponse(user), nil
}

// List returns one page of accounts ordered by last name
func (s *Service) List(ctx context.Context, p *auth.Principal, page, pageSize int) ([]*UserResponse, error) {
	if err := s.policy.CanListUsers(p).Err(); err != nil {
		return nil, err
	}

	offset, limit, err := validation.Page(page, pageSize)
	if err != nil {
		return nil, err
	}

	users, err := s.repo.ListUsers(ctx, offset, limit)
	if err != nil {
		return nil, err
	}

	out := make([]*UserResponse, 0, len(users))
	for i := range users {
		out = append(out, NewUserResponse(&users[i]))
	}
	return out, nil
}

// Update applies the set fields of req to an account
func (s *Service) Update(ctx context.Context, p *auth.Principal, id auth.UserID, req UpdateRequest) (*UserResponse, error) {
	if err := s.policy.Evaluate(p, id).Err(); err != nil {
		return nil, err
	}
	if err := validateUpdate(req); err != nil {
		return nil, err
	}

	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil && auth.NormalizeEmail(*req.Email) != auth.NormalizeEmail(user.Email) {
		if _, err := s.repo.GetUserByEmail(ctx, *req.Email); err == nil {
			return nil, fmt.Errorf("email %q: %w", *req.Email, auth.ErrUserAlreadyExists)
		} else if !errors.Is(err, auth.ErrNotFound) {
			return nil, err
		}
	}

	applyUpdate(user, req)

	if req.Password != nil {
		hash, salt, err := s.hasher.Hash(*req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrPasswordTooLong) {
				return nil, fmt.Errorf("%w: password: %v", auth.ErrValidation, err)
			}
			return nil, err
		}
		user.HashedPassword = hash
		user.Salt = salt
	}

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	observability.FromContextOr(ctx, s.logger).WithField("user_id", id.String()).Info("User updated")
	return NewUserResponse(user), nil
}

// Delete removes an account with its roles and checklists and returns the
// account as it was
func (s *Service) Delete(ctx context.Context, p *auth.Principal, id auth.UserID) (*UserResponse, error) {
	if err := s.policy.Evaluate(p, id).Err(); err != nil {
		return nil, err
	}

	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return nil, err
	}

	observability.FromContextOr(ctx, s.logger).WithField("user_id", id.String()).Info("User deleted")
	return NewUserResponse(user), nil
}

// Roles lists the roles held by an account
func (s *Service) Roles(ctx context.Context, p *auth.Principal, id auth.UserID) (*RolesResponse, error) {
	if err := s.policy.Evaluate(p, id).Err(); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetUser(ctx, id); err != nil {
		return nil, err
	}
	roles, err := s.repo.RolesOf(ctx, id)
	if err != nil {
		return nil, err
	}
	return &RolesResponse{UserID: id, Roles: auth.RoleNames(roles)}, nil
}

// GrantRole gives an account a role. Admin only.
func (s *Service) GrantRole(ctx context.Context, p *auth.Principal, id auth.UserID, role auth.Role) (*RolesResponse, error) {
	if err := s.policy.RequireAdmin(p).Err(); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", auth.ErrValidation, role)
	}

	if err := s.repo.GrantRole(ctx, id, role); err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id": id.String(),
		"role":    role.String(),
		"by":      p.UserID.String(),
	}).Info("Role granted")
	return s.rolesOf(ctx, id)
}

// RevokeRole removes a role from an account. Admin only. The User role cannot
// be revoked.
func (s *Service) RevokeRole(ctx context.Context, p *auth.Principal, id auth.UserID, role auth.Role) (*RolesResponse, error) {
	if err := s.policy.RequireAdmin(p).Err(); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", auth.ErrValidation, role)
	}
	if role == auth.RoleUser {
		return nil, fmt.Errorf("%w: the %s role cannot be revoked", auth.ErrValidation, auth.RoleUser)
	}

	if err := s.repo.RevokeRole(ctx, id, role); err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id": id.String(),
		"role":    role.String(),
		"by":      p.UserID.String(),
	}).Info("Role revoked")
	return s.rolesOf(ctx, id)
}

func (s *Service) rolesOf(ctx context.Context, id auth.UserID) (*RolesResponse, error) {
	roles, err := s.repo.RolesOf(ctx, id)
	if err != nil {
		return nil, err
	}
	return &RolesResponse{UserID: id, Roles: auth.RoleNames(roles)}, nil
}

func validateRegistration(req RegistrationRequest) error {
	return validation.NewValidator().
		RequiredMaxLen("firstName", req.FirstName, MaxNameLength).
		RequiredMaxLen("lastName", req.LastName, MaxNameLength).
		RequiredMaxLen("phoneNumber", req.PhoneNumber, MaxPhoneLength).
		RequiredMaxLen("email", req.Email, MaxEmailLength).
		Email("email", req.Email).
		Required("password", req.Password).
		Err()
}

func validateUpdate(req UpdateRequest) error {
	v := validation.NewValidator()
	if req.FirstName != nil {
		v.RequiredMaxLen("firstName", *req.FirstName, MaxNameLength)
	}
	if req.LastName != nil {
		v.RequiredMaxLen("lastName", *req.LastName, MaxNameLength)
	}
	if req.PhoneNumber != nil {
		v.RequiredMaxLen("phoneNumber", *req.PhoneNumber, MaxPhoneLength)
	}
	if req.Email != nil {
		v.RequiredMaxLen("email", *req.Email, MaxEmailLength).Email("email", *req.Email)
	}
	if req.Password != nil {
		v.Required("password", *req.Password)
	}
	return v.Err()
}

func applyUpdate(user *auth.User, req UpdateRequest) {
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.PhoneNumber != nil {
		user.PhoneNumber = *req.PhoneNumber
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
}
