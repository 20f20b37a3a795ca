package validation

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/checklist/pkg/auth"
)

func TestValidator_Rules(t *testing.T) {
	tests := []struct {
		name     string
		run      func(v *Validator)
		wantRule string
	}{
		{name: "required ok", run: func(v *Validator) { v.Required("f", "x") }},
		{name: "required blank", run: func(v *Validator) { v.Required("f", "  ") }, wantRule: RuleRequired},
		{name: "max len ok", run: func(v *Validator) { v.MaxLen("f", "abc", 3) }},
		{name: "max len counts runes", run: func(v *Validator) { v.MaxLen("f", "äöü", 3) }},
		{name: "max len exceeded", run: func(v *Validator) { v.MaxLen("f", "abcd", 3) }, wantRule: RuleMaxLen},
		{name: "email ok", run: func(v *Validator) { v.Email("f", "a@b.co") }},
		{name: "email empty skipped", run: func(v *Validator) { v.Email("f", "") }},
		{name: "email invalid", run: func(v *Validator) { v.Email("f", "not-an-email") }, wantRule: RuleEmail},
		{name: "email display name rejected", run: func(v *Validator) { v.Email("f", "Ann <a@b.co>") }, wantRule: RuleEmail},
		{name: "time set", run: func(v *Validator) { v.RequiredTime("f", time.Now()) }},
		{name: "time zero", run: func(v *Validator) { v.RequiredTime("f", time.Time{}) }, wantRule: RuleRequired},
		{name: "range ok", run: func(v *Validator) { v.Range("f", 5, 1, 10) }},
		{name: "range low", run: func(v *Validator) { v.Range("f", 0, 1, 10) }, wantRule: RuleRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			tt.run(v)
			if tt.wantRule == "" {
				assert.True(t, v.Valid())
				assert.NoError(t, v.Err())
				return
			}
			require.Len(t, v.Errors(), 1)
			assert.Equal(t, tt.wantRule, v.Errors()[0].Rule)
			assert.Equal(t, "f", v.Errors()[0].Field)
		})
	}
}

func TestValidator_ErrWrapsValidation(t *testing.T) {
	err := NewValidator().
		RequiredMaxLen("firstName", "", 100).
		RequiredMaxLen("lastName", strings.Repeat("x", 101), 100).
		Err()

	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrValidation)
	assert.Contains(t, err.Error(), "firstName: is required")
	assert.Contains(t, err.Error(), "lastName: must be at most 100 characters")

	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Fields, 2)
}

func TestPage(t *testing.T) {
	tests := []struct {
		name       string
		page, size int
		wantOffset int
		wantErr    bool
	}{
		{name: "first page", page: 1, size: 10, wantOffset: 0},
		{name: "third page", page: 3, size: 20, wantOffset: 40},
		{name: "max size", page: 1, size: MaxPageSize, wantOffset: 0},
		{name: "page zero", page: 0, size: 10, wantErr: true},
		{name: "size zero", page: 1, size: 0, wantErr: true},
		{name: "size too large", page: 1, size: MaxPageSize + 1, wantErr: true},
		{name: "offset overflows", page: math.MaxInt, size: MaxPageSize, wantErr: true},
		{name: "last representable page", page: math.MaxInt/MaxPageSize + 1, size: MaxPageSize, wantOffset: math.MaxInt / MaxPageSize * MaxPageSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offset, limit, err := Page(tt.page, tt.size)
			if tt.wantErr {
				assert.ErrorIs(t, err, auth.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOffset, offset)
			assert.Equal(t, tt.size, limit)
		})
	}
}
