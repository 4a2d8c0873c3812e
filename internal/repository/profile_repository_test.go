package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auth-gateway/internal/domain"
)

type fakeRow struct{ err error }

func (r fakeRow) Scan(dest ...any) error { return r.err }

type fakeDB struct {
	sql    string
	args   []any
	err    error
	rowErr error
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql = sql
	f.args = args
	return pgconn.NewCommandTag("INSERT 0 1"), f.err
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.sql = sql
	return fakeRow{err: f.rowErr}
}

func TestProfileRepository_Upsert(t *testing.T) {
	db := &fakeDB{}
	repo := NewProfileRepository(db)
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	profile := domain.NewProfile(domain.ProfileInput{
		UID:      "kakao:42",
		Email:    "m@kakao.com",
		Nickname: "민지",
		Provider: domain.ProviderKakao,
	}, now)

	require.NoError(t, repo.Upsert(context.Background(), profile))
	assert.Contains(t, db.sql, "ON CONFLICT (uid) DO UPDATE")
	assert.Contains(t, db.sql, "user_profiles.doc || $3::jsonb")
	require.Len(t, db.args, 4)
	assert.Equal(t, "kakao:42", db.args[0])
	assert.Equal(t, now, db.args[3])

	var insertDoc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(db.args[1].(string)), &insertDoc))
	assert.Equal(t, "user", insertDoc["role"])
	assert.Equal(t, "민지", insertDoc["nickname"])
	assert.Equal(t, float64(45), insertDoc["measurement"].(map[string]interface{})["teeHeight"])

	var mergeDoc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(db.args[2].(string)), &mergeDoc))
	assert.Equal(t, "m@kakao.com", mergeDoc["email"])
	assert.NotContains(t, mergeDoc, "settings")
	assert.NotContains(t, mergeDoc, "role")
}

func TestProfileRepository_UpsertError(t *testing.T) {
	db := &fakeDB{err: errors.New("connection reset")}
	err := NewProfileRepository(db).Upsert(context.Background(), domain.NewProfile(domain.ProfileInput{UID: "u1"}, time.Now()))
	assert.ErrorContains(t, err, "connection reset")
}

func TestProfileRepository_Ping(t *testing.T) {
	assert.NoError(t, NewProfileRepository(&fakeDB{rowErr: pgx.ErrNoRows}).Ping(context.Background()))
	assert.Error(t, NewProfileRepository(&fakeDB{rowErr: errors.New("relation does not exist")}).Ping(context.Background()))

	db := &fakeDB{rowErr: pgx.ErrNoRows}
	require.NoError(t, NewProfileRepository(db).MarkStartup(context.Background()))
	assert.Contains(t, db.sql, "SELECT 1 FROM user_profiles")
	assert.Nil(t, db.args)
}

func TestNoopProfileRepository(t *testing.T) {
	repo := NewNoopProfileRepository()
	assert.NoError(t, repo.Upsert(context.Background(), &domain.Profile{UID: "u1"}))
	assert.NoError(t, repo.Ping(context.Background()))
	assert.NoError(t, repo.MarkStartup(context.Background()))
	assert.Equal(t, "none", repo.Name())
}
