package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auth-gateway/internal/identity/memstore"
)

func TestIssuer_Issue(t *testing.T) {
	store := memstore.New("secret")
	issuer := NewIssuer(store)

	token, err := issuer.Issue(context.Background(), "kakao:42")
	require.NoError(t, err)

	uid, err := store.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "kakao:42", uid)
}

func TestIssuer_PropagatesFailure(t *testing.T) {
	store := memstore.New("secret")
	boom := errors.New("signer unavailable")
	store.Fail["MintToken"] = boom

	_, err := NewIssuer(store).Issue(context.Background(), "u1")
	assert.ErrorIs(t, err, boom)
}

func TestIssuer_EmptyUID(t *testing.T) {
	store := memstore.New("secret")
	_, err := NewIssuer(store).Issue(context.Background(), "")
	assert.Error(t, err)
	assert.Equal(t, 0, store.Calls().MintToken)
}
