package validation

import (
	"fmt"
	"math"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/platinummonkey/checklist/pkg/auth"
)

// Pagination bounds shared by every list endpoint
const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 50
)

// Rule names reported in ValidationError.Rule
const (
	RuleRequired = "required"
	RuleMaxLen   = "max_length"
	RuleEmail    = "email"
	RuleRange    = "range"
)

// ValidationError describes one rejected field
type ValidationError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validator accumulates field errors for a single request
type Validator struct {
	errors []*ValidationError
}

// NewValidator creates an empty validator
func NewValidator() *Validator {
	return &Validator{errors: make([]*ValidationError, 0)}
}

func (v *Validator) add(field, rule, message string) {
	v.errors = append(v.errors, &ValidationError{Field: field, Rule: rule, Message: message})
}

// Required rejects an empty or whitespace-only value
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.add(field, RuleRequired, "is required")
	}
	return v
}

// MaxLen rejects values longer than max characters
func (v *Validator) MaxLen(field, value string, max int) *Validator {
	if utf8.RuneCountInString(value) > max {
		v.add(field, RuleMaxLen, fmt.Sprintf("must be at most %d characters", max))
	}
	return v
}

// RequiredMaxLen combines Required and MaxLen
func (v *Validator) RequiredMaxLen(field, value string, max int) *Validator {
	v.Required(field, value)
	return v.MaxLen(field, value, max)
}

// Email rejects values that are not a bare address
func (v *Validator) Email(field, value string) *Validator {
	if value == "" {
		return v
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		v.add(field, RuleEmail, "must be a valid email address")
	}
	return v
}

// RequiredTime rejects the zero time
func (v *Validator) RequiredTime(field string, value time.Time) *Validator {
	if value.IsZero() {
		v.add(field, RuleRequired, "is required")
	}
	return v
}

// Range rejects values outside [min, max]
func (v *Validator) Range(field string, value, min, max int) *Validator {
	if value < min || value > max {
		v.add(field, RuleRange, fmt.Sprintf("must be between %d and %d", min, max))
	}
	return v
}

// Check records a custom failure when ok is false
func (v *Validator) Check(ok bool, field, rule, message string) *Validator {
	if !ok {
		v.add(field, rule, message)
	}
	return v
}

// Errors returns the accumulated field errors
func (v *Validator) Errors() []*ValidationError {
	return v.errors
}

// Valid reports whether no rule failed
func (v *Validator) Valid() bool {
	return len(v.errors) == 0
}

// Err returns nil when valid, otherwise an error wrapping auth.ErrValidation
// that lists every failed field
func (v *Validator) Err() error {
	if v.Valid() {
		return nil
	}
	return &Error{Fields: v.errors}
}

// Error is returned by Validator.Err
type Error struct {
	Fields []*ValidationError
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Error())
	}
	return fmt.Sprintf("%s: %s", auth.ErrValidation, strings.Join(msgs, "; "))
}

// Unwrap lets errors.Is match auth.ErrValidation
func (e *Error) Unwrap() error {
	return auth.ErrValidation
}

// Page converts 1-based page parameters into an offset and limit, rejecting
// page < 1, page sizes outside [1, MaxPageSize] and pages whose offset would
// not fit in an int
func Page(page, pageSize int) (offset, limit int, err error) {
	v := NewValidator().
		Check(page >= 1, "page", RuleRange, "must be at least 1").
		Range("pageSize", pageSize, 1, MaxPageSize)
	if v.Valid() {
		v.Check(page-1 <= math.MaxInt/pageSize, "page", RuleRange, "is too large")
	}
	if err := v.Err(); err != nil {
		return 0, 0, err
	}
	return (page - 1) * pageSize, pageSize, nil
}
