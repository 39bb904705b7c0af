package auth

import (
	"context"
	"testing"
	"time"

	"chathub/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-signing-key")

type fakeUserLookup struct {
	users map[uuid.UUID]*models.User
	err   error
}

func (f *fakeUserLookup) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	user, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

func lookupFor(users ...*models.User) *fakeUserLookup {
	byID := make(map[uuid.UUID]*models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return &fakeUserLookup{users: byID}
}

func TestVerifyResolvesActiveUser(t *testing.T) {
	user := &models.User{ID: uuid.New(), Username: "alice", IsActive: true}
	v := NewVerifier(testSecret, lookupFor(user))

	token, err := SignToken(testSecret, user.ID, time.Hour)
	require.NoError(t, err)

	got, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "alice", got.Username)
}

func TestVerifyEmptyToken(t *testing.T) {
	v := NewVerifier(testSecret, lookupFor())

	_, err := v.Verify(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestVerifyGarbageToken(t *testing.T) {
	v := NewVerifier(testSecret, lookupFor())

	_, err := v.Verify(context.Background(), "not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestVerifyWrongSecret(t *testing.T) {
	user := &models.User{ID: uuid.New(), Username: "alice", IsActive: true}
	v := NewVerifier(testSecret, lookupFor(user))

	token, err := SignToken([]byte("some-other-key"), user.ID, time.Hour)
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestVerifyExpiredToken(t *testing.T) {
	user := &models.User{ID: uuid.New(), Username: "alice", IsActive: true}
	v := NewVerifier(testSecret, lookupFor(user))

	token, err := SignToken(testSecret, user.ID, -time.Minute)
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestVerifyUnknownUser(t *testing.T) {
	v := NewVerifier(testSecret, lookupFor())

	token, err := SignToken(testSecret, uuid.New(), time.Hour)
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidCredential, "valid token for a vanished user must be rejected")
}

func TestVerifyInactiveUser(t *testing.T) {
	user := &models.User{ID: uuid.New(), Username: "alice", IsActive: false}
	v := NewVerifier(testSecret, lookupFor(user))

	token, err := SignToken(testSecret, user.ID, time.Hour)
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestVerifyLookupFailurePropagates(t *testing.T) {
	lookup := &fakeUserLookup{err: context.DeadlineExceeded}
	v := NewVerifier(testSecret, lookup)

	token, err := SignToken(testSecret, uuid.New(), time.Hour)
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), token)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredential, "infrastructure failures are not credential failures")
}
