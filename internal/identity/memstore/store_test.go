package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auth-gateway/internal/domain"
	"auth-gateway/internal/identity"
)

func TestStore_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	store := New("secret")

	created, err := store.Create(ctx, domain.NewAccount{UID: "kakao:1", Email: "A@Example.com", DisplayName: "A"})
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", created.Email)

	byID, err := store.FindByID(ctx, "kakao:1")
	require.NoError(t, err)
	assert.Equal(t, "A", byID.DisplayName)

	byEmail, err := store.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "kakao:1", byEmail.UID)

	_, err = store.FindByID(ctx, "kakao:2")
	assert.True(t, identity.IsNotFound(err))
}

func TestStore_GeneratedUID(t *testing.T) {
	store := New("secret")
	created, err := store.Create(context.Background(), domain.NewAccount{Email: "b@example.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.UID)
}

func TestStore_CreateCollision(t *testing.T) {
	ctx := context.Background()
	store := New("secret")
	store.Seed(domain.Account{UID: "u1", Email: "a@example.com"})

	_, err := store.Create(ctx, domain.NewAccount{UID: "u1"})
	assert.True(t, identity.IsAlreadyExists(err))

	_, err = store.Create(ctx, domain.NewAccount{UID: "u2", Email: "a@example.com"})
	assert.True(t, identity.IsAlreadyExists(err))
	assert.Equal(t, 1, store.Len())
}

func TestStore_Update(t *testing.T) {
	ctx := context.Background()
	store := New("secret")
	store.Seed(domain.Account{UID: "u1", DisplayName: "old"})

	name := "new"
	updated, err := store.Update(ctx, "u1", domain.AccountUpdate{DisplayName: &name})
	require.NoError(t, err)
	assert.Equal(t, "new", updated.DisplayName)

	_, err = store.Update(ctx, "missing", domain.AccountUpdate{DisplayName: &name})
	assert.True(t, identity.IsNotFound(err))
}

func TestStore_MintAndParseToken(t *testing.T) {
	store := New("secret")
	token, err := store.MintToken(context.Background(), "google:7")
	require.NoError(t, err)

	uid, err := store.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "google:7", uid)

	_, err = New("other").ParseToken(token)
	assert.Error(t, err)
}

func TestStore_InjectedFailure(t *testing.T) {
	store := New("secret")
	boom := errors.New("unavailable")
	store.Fail["FindByID"] = boom

	_, err := store.FindByID(context.Background(), "u1")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, store.Calls().FindByID)
}
