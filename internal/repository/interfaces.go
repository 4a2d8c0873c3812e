package repository

import (
	"context"

	"auth-gateway/internal/domain"
)

// ProfileRepository stores the application profile document kept next to
// each account
type ProfileRepository interface {
	// Upsert writes the insert-only defaults when the document is new and
	// merges the always-updated fields otherwise. Existing settings are kept.
	Upsert(ctx context.Context, profile *domain.Profile) error

	// Ping performs a cheap read to prove the store is reachable
	Ping(ctx context.Context) error

	// MarkStartup records that an instance came up. Called once at boot.
	MarkStartup(ctx context.Context) error

	// Name identifies the backend in health output
	Name() string
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Profile ProfileRepository
}

// noopProfileRepository is used when PROFILE_STORE=none
type noopProfileRepository struct{}

// NewNoopProfileRepository returns a repository that stores nothing
func NewNoopProfileRepository() ProfileRepository {
	return noopProfileRepository{}
}

func (noopProfileRepository) Upsert(ctx context.Context, profile *domain.Profile) error { return nil }
func (noopProfileRepository) Ping(ctx context.Context) error                            { return nil }
func (noopProfileRepository) MarkStartup(ctx context.Context) error                     { return nil }
func (noopProfileRepository) Name() string                                              { return "none" }
