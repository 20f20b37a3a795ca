package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest password bcrypt can digest without truncation
const MaxPasswordBytes = 72

// DefaultBcryptCost is the work factor used when none is configured
const DefaultBcryptCost = bcrypt.DefaultCost

// bcrypt's own base64 alphabet, used to render salts in bcrypt format
var bcryptEncoding = base64.NewEncoding("./ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789").WithPadding(base64.NoPadding)

// PasswordHasher hashes and verifies passwords with bcrypt
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher creates a hasher. Costs outside bcrypt's range fall back to
// bcrypt.DefaultCost (too low) or bcrypt.MaxCost (too high).
func NewPasswordHasher(cost int) *PasswordHasher {
	switch {
	case cost < bcrypt.MinCost:
		cost = bcrypt.DefaultCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &PasswordHasher{cost: cost}
}

// Cost returns the bcrypt work factor
func (h *PasswordHasher) Cost() int {
	return h.cost
}

// Hash derives a bcrypt hash for plaintext and a per-user salt string to be
// stored alongside it. The hash embeds its own salt, so Verify only needs the hash.
func (h *PasswordHasher) Hash(plaintext string) (hash, salt string, err error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", "", ErrPasswordTooLong
	}

	salt, err = h.GenerateSalt()
	if err != nil {
		return "", "", err
	}

	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(b), salt, nil
}

// GenerateSalt returns a random salt in bcrypt's "$2a$<cost>$<22 chars>" form
func (h *PasswordHasher) GenerateSalt() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return fmt.Sprintf("$2a$%02d$%s", h.cost, bcryptEncoding.EncodeToString(raw)), nil
}

// Verify reports whether plaintext matches hash. A malformed hash never matches.
func (h *PasswordHasher) Verify(plaintext, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
