// AngelaMos | 2026
// database_test.go

package core

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propertyxchange/backend/internal/migrations"
)

func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return &Database{DB: sqlx.NewDb(db, "pgx")}, mock
}

func TestMigrate_RunsFromEmbeddedRoot(t *testing.T) {
	database, _ := newMockDatabase(t)

	var gotDir string
	var gotDB *sql.DB
	orig := gooseUp
	gooseUp = func(_ context.Context, db *sql.DB, dir string) error {
		gotDB = db
		gotDir = dir
		return nil
	}
	t.Cleanup(func() { gooseUp = orig })

	require.NoError(t, database.Migrate(context.Background(), migrations.FS))
	assert.Equal(t, ".", gotDir)
	assert.Same(t, database.DB.DB, gotDB)
}

func TestMigrate_WrapsFailure(t *testing.T) {
	database, _ := newMockDatabase(t)

	boom := errors.New("boom")
	orig := gooseUp
	gooseUp = func(context.Context, *sql.DB, string) error { return boom }
	t.Cleanup(func() { gooseUp = orig })

	err := database.Migrate(context.Background(), fstest.MapFS{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "run migrations")
}

func TestMigrations_EmbedUsersTable(t *testing.T) {
	names, err := fs.Glob(migrations.FS, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)

	body, err := fs.ReadFile(migrations.FS, names[0])
	require.NoError(t, err)
	assert.Contains(t, string(body), "+goose Up")
	assert.Contains(t, string(body), "CREATE TABLE")
}

func TestDatabasePing(t *testing.T) {
	database, mock := newMockDatabase(t)

	mock.ExpectPing()
	require.NoError(t, database.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("down"))
	assert.Error(t, database.Ping(context.Background()))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJitteredDuration(t *testing.T) {
	assert.Equal(t, time.Duration(0), jitteredDuration(0))

	base := 70 * time.Minute
	for range 50 {
		d := jitteredDuration(base)
		assert.GreaterOrEqual(t, d, base)
		assert.LessOrEqual(t, d, base+base/7)
	}
}
