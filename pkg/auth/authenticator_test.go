package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeCredentialStore struct {
	users   map[string]*User
	err     error
	lookups int
}

func (f *fakeCredentialStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	f.lookups++
	if f.err != nil {
		return nil, f.err
	}
	if u, ok := f.users[NormalizeEmail(email)]; ok {
		return u, nil
	}
	return nil, ErrNotFound
}

func newFakeStoreWithUser(t *testing.T, hasher *PasswordHasher, email, password string) (*fakeCredentialStore, *User) {
	t.Helper()
	hash, salt, err := hasher.Hash(password)
	require.NoError(t, err)
	u := &User{ID: NewUserID(), Email: email, HashedPassword: hash, Salt: salt}
	return &fakeCredentialStore{users: map[string]*User{NormalizeEmail(email): u}}, u
}

func TestAuthenticator_Authenticate(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)
	store, user := newFakeStoreWithUser(t, hasher, "alice@example.com", "p4ssword")
	counter := newDecisionCounter()

	a, err := NewAuthenticator(store, hasher, nil)
	require.NoError(t, err)
	a.WithRecorder(counter)

	t.Run("success", func(t *testing.T) {
		got, err := a.Authenticate(context.Background(), "alice@example.com", "p4ssword")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("email case ignored", func(t *testing.T) {
		got, err := a.Authenticate(context.Background(), "Alice@Example.com", "p4ssword")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		got, err := a.Authenticate(context.Background(), "alice@example.com", "nope")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Nil(t, got)
	})

	t.Run("unknown user", func(t *testing.T) {
		got, err := a.Authenticate(context.Background(), "bob@example.com", "p4ssword")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Nil(t, got)
	})

	t.Run("failures are indistinguishable", func(t *testing.T) {
		_, errUnknown := a.Authenticate(context.Background(), "bob@example.com", "x")
		_, errWrong := a.Authenticate(context.Background(), "alice@example.com", "x")
		assert.Equal(t, errUnknown.Error(), errWrong.Error())
	})

	assert.Equal(t, 2, counter.logins[LoginSuccess])
	assert.Equal(t, 2, counter.logins[LoginBadPassword])
	assert.Equal(t, 2, counter.logins[LoginUnknownUser])
}

func TestAuthenticator_StoreFailure(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)
	storeErr := errors.New("connection refused")
	store := &fakeCredentialStore{err: storeErr}

	a, err := NewAuthenticator(store, hasher, nil)
	require.NoError(t, err)

	got, err := a.Authenticate(context.Background(), "alice@example.com", "x")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, storeErr)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}
