package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenLifetime is how long an issued token stays valid
const DefaultTokenLifetime = 240 * time.Minute

// TokenConfig holds the signing parameters shared by issuance and validation
type TokenConfig struct {
	SigningKey []byte
	Issuer     string
	Audience   string
	Lifetime   time.Duration
}

// Claims is the token payload
type Claims struct {
	UserID   string   `json:"UserId"`
	UserName string   `json:"UserName"`
	Roles    []string `json:"role"`
	jwt.RegisteredClaims
}

// TokenValidator turns a bearer token into a Principal
type TokenValidator interface {
	Validate(tokenString string) (*Principal, error)
}

// TokenIssuer signs and validates HS256 tokens
type TokenIssuer struct {
	cfg TokenConfig
	now func() time.Time
}

// NewTokenIssuer creates a token issuer. The config is copied and never changes afterwards.
func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	if len(cfg.SigningKey) == 0 {
		return nil, errors.New("token signing key is required")
	}
	if cfg.Issuer == "" {
		return nil, errors.New("token issuer is required")
	}
	if cfg.Audience == "" {
		return nil, errors.New("token audience is required")
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = DefaultTokenLifetime
	}

	key := make([]byte, len(cfg.SigningKey))
	copy(key, cfg.SigningKey)
	cfg.SigningKey = key

	return &TokenIssuer{cfg: cfg, now: time.Now}, nil
}

// WithClock replaces the time source, for tests
func (ti *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	ti.now = now
	return ti
}

// Lifetime returns the configured token lifetime
func (ti *TokenIssuer) Lifetime() time.Duration {
	return ti.cfg.Lifetime
}

// Issue signs a token for user carrying one role claim per role
func (ti *TokenIssuer) Issue(user *User, roles []Role) (string, error) {
	if user == nil {
		return "", ErrNilUser
	}

	issuedAt := ti.now().UTC().Truncate(time.Second)
	claims := Claims{
		UserID:   user.ID.String(),
		UserName: user.Email,
		Roles:    RoleNames(NormalizeRoles(roles)),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    ti.cfg.Issuer,
			Audience:  jwt.ClaimStrings{ti.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ti.cfg.Lifetime)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.cfg.SigningKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate checks the signature, algorithm, issuer, audience and expiry of
// tokenString. Every failure wraps ErrInvalidToken.
func (ti *TokenIssuer) Validate(tokenString string) (*Principal, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return ti.cfg.SigningKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(ti.cfg.Issuer),
		jwt.WithAudience(ti.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ti.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := ParseUserID(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	if claims.UserID != "" && claims.UserID != claims.Subject {
		return nil, fmt.Errorf("%w: subject mismatch", ErrInvalidToken)
	}

	roles := make([]Role, 0, len(claims.Roles))
	for _, name := range claims.Roles {
		role := Role(name)
		if !role.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, name)
		}
		roles = append(roles, role)
	}

	return &Principal{
		UserID:    userID,
		UserName:  claims.UserName,
		Roles:     roles,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
