// Package session mints the credential clients exchange with the identity
// provider after a successful login.
package session

import (
	"context"
	"fmt"

	"auth-gateway/internal/identity"
)

// Issuer delegates token minting to the identity store
type Issuer struct {
	store identity.Store
}

// NewIssuer creates an issuer backed by store
func NewIssuer(store identity.Store) *Issuer {
	return &Issuer{store: store}
}

// Issue mints a custom token for uid. Failures are returned, never swallowed.
func (i *Issuer) Issue(ctx context.Context, uid string) (string, error) {
	if uid == "" {
		return "", fmt.Errorf("issue credential: empty uid")
	}
	token, err := i.store.MintToken(ctx, uid)
	if err != nil {
		return "", fmt.Errorf("issue credential: %w", err)
	}
	return token, nil
}
