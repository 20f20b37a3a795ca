package auth

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserID identifies a user account
type UserID uuid.UUID

// NilUserID is the zero user id
var NilUserID UserID

// NewUserID generates a random user id
func NewUserID() UserID {
	return UserID(uuid.New())
}

// ParseUserID parses the canonical string form of a user id
func ParseUserID(s string) (UserID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return NilUserID, fmt.Errorf("invalid user id %q: %w", s, err)
	}
	return UserID(id), nil
}

func (id UserID) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether the id is unset
func (id UserID) IsZero() bool {
	return id == NilUserID
}

// MarshalText implements encoding.TextMarshaler
func (id UserID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := ParseUserID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Value implements driver.Valuer
func (id UserID) Value() (driver.Value, error) {
	return id.String(), nil
}

// Scan implements sql.Scanner
func (id *UserID) Scan(src interface{}) error {
	var u uuid.UUID
	if err := u.Scan(src); err != nil {
		return err
	}
	*id = UserID(u)
	return nil
}

// Role is one of the closed set of account roles
type Role string

const (
	RoleAdmin Role = "Admin" // Full access to every account and checklist
	RoleUser  Role = "User"  // Access to own account and checklists
)

// AllRoles returns every known role
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleUser}
}

// ParseRole maps a wire string to a known role. Matching ignores case and
// always returns the canonical spelling.
func ParseRole(s string) (Role, error) {
	s = strings.TrimSpace(s)
	for _, r := range AllRoles() {
		if strings.EqualFold(s, string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrValidation, s)
}

func (r Role) String() string {
	return string(r)
}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User represents a registered account
type User struct {
	ID             UserID    `json:"id" db:"id"`
	FirstName      string    `json:"firstName" db:"first_name"`
	LastName       string    `json:"lastName" db:"last_name"`
	PhoneNumber    string    `json:"phoneNumber" db:"phone_number"`
	Email          string    `json:"email" db:"email"`
	HashedPassword string    `json:"-" db:"hashed_password"` // Never expose hash
	Salt           string    `json:"-" db:"salt"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// Principal is the authenticated caller reconstructed from a validated token
type Principal struct {
	UserID    UserID
	UserName  string
	Roles     []Role
	ExpiresAt time.Time
}

// HasRole checks if the principal holds a role
func (p *Principal) HasRole(role Role) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin checks if the principal holds the Admin role
func (p *Principal) IsAdmin() bool {
	return p.HasRole(RoleAdmin)
}

// RoleNames converts roles to their wire strings
func RoleNames(roles []Role) []string {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, string(r))
	}
	return names
}
