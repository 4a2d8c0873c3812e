package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected file %s", name)
		}
	}
	assert.Equal(t, ups, downs)
}

func TestProfilesMigrationCreatesTable(t *testing.T) {
	b, err := fs.ReadFile(migrationsFS, "migrations/000001_user_profiles.up.sql")
	require.NoError(t, err)
	sql := string(b)
	assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS user_profiles")
	assert.Contains(t, sql, "doc        JSONB")
}

func TestNewMigrator_BadURL(t *testing.T) {
	_, err := NewMigrator("not-a-url")
	assert.Error(t, err)
}
