package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/platinummonkey/checklist/pkg/auth"
	"github.com/platinummonkey/checklist/pkg/observability"
)

const userColumns = `id, first_name, last_name, phone_number, email, hashed_password, salt, created_at, updated_at`

// UserStore persists accounts and their role grants
type UserStore struct {
	conn   *ConnectionManager
	logger *observability.Logger
	now    func() time.Time
}

// NewUserStore creates a user store on top of conn
func NewUserStore(conn *ConnectionManager, logger *observability.Logger) *UserStore {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &UserStore{
		conn:   conn,
		logger: logger.WithField("component", "user_store"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// GetUserByEmail looks up an account by email, ignoring case
func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	db := s.conn.Primary()
	query := db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE email_normalized = ?`)

	var user auth.User
	if err := db.GetContext(ctx, &user, query, auth.NormalizeEmail(email)); err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

// GetUser loads an account by id
func (s *UserStore) GetUser(ctx context.Context, id auth.UserID) (*auth.User, error) {
	db := s.conn.Primary()
	query := db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)

	var user auth.User
	if err := db.GetContext(ctx, &user, query, id); err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

// ListUsers returns one page of accounts ordered by last name. Reads go to a replica.
func (s *UserStore) ListUsers(ctx context.Context, offset, limit int) ([]auth.User, error) {
	db := s.conn.Replica()
	query := db.Rebind(`SELECT ` + userColumns + ` FROM users
		ORDER BY last_name, first_name, id
		LIMIT ? OFFSET ?`)

	users := make([]auth.User, 0, limit)
	if err := db.SelectContext(ctx, &users, query, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// CountUsers returns the number of registered accounts
func (s *UserStore) CountUsers(ctx context.Context) (int, error) {
	db := s.conn.Replica()
	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// CreateUser inserts the account together with its initial roles in one
// transaction. A duplicate email yields auth.ErrUserAlreadyExists.
func (s *UserStore) CreateUser(ctx context.Context, user *auth.User, roles []auth.Role) error {
	if user == nil {
		return auth.ErrNilUser
	}
	now := s.now()
	if user.ID.IsZero() {
		user.ID = auth.NewUserID()
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		query := tx.Rebind(`INSERT INTO users (id, first_name, last_name, phone_number, email,
			email_normalized, hashed_password, salt, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		_, err := tx.ExecContext(ctx, query,
			user.ID, user.FirstName, user.LastName, user.PhoneNumber, user.Email,
			auth.NormalizeEmail(user.Email), user.HashedPassword, user.Salt,
			user.CreatedAt, user.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("email %q: %w", user.Email, auth.ErrUserAlreadyExists)
			}
			return fmt.Errorf("failed to insert user: %w", err)
		}

		for _, role := range auth.NormalizeRoles(roles) {
			if err := insertRole(ctx, tx, user.ID, role, now); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateUser overwrites the profile and credential columns of an account
func (s *UserStore) UpdateUser(ctx context.Context, user *auth.User) error {
	if user == nil {
		return auth.ErrNilUser
	}
	user.UpdatedAt = s.now()

	db := s.conn.Primary()
	query := db.Rebind(`UPDATE users SET first_name = ?, last_name = ?, phone_number = ?,
		email = ?, email_normalized = ?, hashed_password = ?, salt = ?, updated_at = ?
		WHERE id = ?`)
	result, err := db.ExecContext(ctx, query,
		user.FirstName, user.LastName, user.PhoneNumber, user.Email,
		auth.NormalizeEmail(user.Email), user.HashedPassword, user.Salt, user.UpdatedAt,
		user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("email %q: %w", user.Email, auth.ErrUserAlreadyExists)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return requireRow(result, "user")
}

// DeleteUser removes an account with its role grants and checklists
func (s *UserStore) DeleteUser(ctx context.Context, id auth.UserID) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, table := range []string{"checklists", "user_roles"} {
			if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM `+table+` WHERE user_id = ?`), id); err != nil {
				return fmt.Errorf("failed to delete %s: %w", table, err)
			}
		}
		result, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM users WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return requireRow(result, "user")
	})
}

// RolesOf returns the roles held by a user. Unknown role names in the store
// are skipped.
func (s *UserStore) RolesOf(ctx context.Context, id auth.UserID) ([]auth.Role, error) {
	db := s.conn.Primary()
	query := db.Rebind(`SELECT role_name FROM user_roles WHERE user_id = ? ORDER BY role_name`)

	var names []string
	if err := db.SelectContext(ctx, &names, query, id); err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}

	roles := make([]auth.Role, 0, len(names))
	for _, name := range names {
		role := auth.Role(name)
		if !role.Valid() {
			s.logger.WithFields(map[string]interface{}{
				"user_id": id.String(),
				"role":    name,
			}).Warn("Ignoring unknown role")
			continue
		}
		roles = append(roles, role)
	}
	return roles, nil
}

// GrantRole gives a role to a user. Granting a held role is a no-op.
func (s *UserStore) GrantRole(ctx context.Context, id auth.UserID, role auth.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", auth.ErrValidation, role)
	}
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := userExists(ctx, tx, id); err != nil {
			return err
		}

		var held int
		query := tx.Rebind(`SELECT COUNT(*) FROM user_roles WHERE user_id = ? AND role_name = ?`)
		if err := tx.GetContext(ctx, &held, query, id, string(role)); err != nil {
			return fmt.Errorf("failed to check role: %w", err)
		}
		if held > 0 {
			return nil
		}
		return insertRole(ctx, tx, id, role, s.now())
	})
}

// RevokeRole removes a role from a user. Revoking a role that is not held is a no-op.
func (s *UserStore) RevokeRole(ctx context.Context, id auth.UserID, role auth.Role) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := userExists(ctx, tx, id); err != nil {
			return err
		}
		query := tx.Rebind(`DELETE FROM user_roles WHERE user_id = ? AND role_name = ?`)
		if _, err := tx.ExecContext(ctx, query, id, string(role)); err != nil {
			return fmt.Errorf("failed to revoke role: %w", err)
		}
		return nil
	})
}

func insertRole(ctx context.Context, tx *sqlx.Tx, id auth.UserID, role auth.Role, now time.Time) error {
	query := tx.Rebind(`INSERT INTO user_roles (role_name, user_id, created_at, updated_at) VALUES (?, ?, ?, ?)`)
	if _, err := tx.ExecContext(ctx, query, string(role), id, now, now); err != nil {
		return fmt.Errorf("failed to grant role %s: %w", role, err)
	}
	return nil
}

func userExists(ctx context.Context, tx *sqlx.Tx, id auth.UserID) error {
	var n int
	if err := tx.GetContext(ctx, &n, tx.Rebind(`SELECT COUNT(*) FROM users WHERE id = ?`), id); err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user: %w", auth.ErrNotFound)
	}
	return nil
}

func (s *UserStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return withTx(ctx, s.conn.Primary(), fn)
}
