package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"auth-gateway/internal/domain"
)

// dbtx is the subset of *pgxpool.Pool the repository uses
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// profileRepository keeps profile documents in a jsonb column
type profileRepository struct {
	db dbtx
}

// NewProfileRepository creates a Postgres-backed profile repository
func NewProfileRepository(db dbtx) ProfileRepository {
	return &profileRepository{
		db: db,
	}
}

// Upsert inserts the full document or merges the top-level fields into the
// existing one with jsonb concatenation
func (r *profileRepository) Upsert(ctx context.Context, profile *domain.Profile) error {
	query := `
		INSERT INTO user_profiles (uid, doc, created_at, updated_at)
		VALUES ($1, $2::jsonb, $4, $4)
		ON CONFLICT (uid) DO UPDATE SET
			doc = user_profiles.doc || $3::jsonb,
			updated_at = $4
	`

	insertDoc, err := json.Marshal(profile.InsertFields())
	if err != nil {
		return fmt.Errorf("failed to encode profile document: %w", err)
	}
	mergeDoc, err := json.Marshal(profile.MergeFields())
	if err != nil {
		return fmt.Errorf("failed to encode profile merge fields: %w", err)
	}

	if _, err := r.db.Exec(ctx, query, profile.UID, string(insertDoc), string(mergeDoc), profile.UpdatedAt); err != nil {
		return fmt.Errorf("failed to upsert user profile: %w", err)
	}

	return nil
}

// Ping checks the table is reachable
func (r *profileRepository) Ping(ctx context.Context) error {
	var one int
	if err := r.db.QueryRow(ctx, `SELECT 1 FROM user_profiles LIMIT 1`).Scan(&one); err != nil && err != pgx.ErrNoRows {
		return fmt.Errorf("failed to query user_profiles: %w", err)
	}
	return nil
}

// MarkStartup only checks the table; the schema is owned by cmd/migrate
func (r *profileRepository) MarkStartup(ctx context.Context) error {
	return r.Ping(ctx)
}

func (r *profileRepository) Name() string { return "postgres" }
