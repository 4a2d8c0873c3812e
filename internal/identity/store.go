// Package identity defines the port to the managed identity provider that
// holds canonical accounts.
package identity

import (
	"context"
	"errors"

	"auth-gateway/internal/domain"
)

var (
	// ErrNotFound is returned when no account matches a lookup
	ErrNotFound = errors.New("identity: account not found")
	// ErrAlreadyExists is returned when a create collides on uid or email
	ErrAlreadyExists = errors.New("identity: account already exists")
)

// Store is the capability set the gateway needs from the identity provider.
// Implementations translate provider codes into ErrNotFound and
// ErrAlreadyExists; every other failure is returned as is.
type Store interface {
	FindByID(ctx context.Context, uid string) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	Create(ctx context.Context, account domain.NewAccount) (*domain.Account, error)
	Update(ctx context.Context, uid string, update domain.AccountUpdate) (*domain.Account, error)
	MintToken(ctx context.Context, uid string) (string, error)
	// Ping performs a cheap read used by startup and health checks.
	Ping(ctx context.Context) error
}

// IsNotFound reports whether err means the account does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists reports whether err is a uid or email collision
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}
