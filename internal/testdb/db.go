// Package testdb provides helpers for integration tests against a real
// PostgreSQL database. Tests using it are skipped unless
// KOTOBA_TEST_DATABASE_URL is set.
package testdb

import (
	"context"
	"database/sql"
	"net/url"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/phrazzld/kotoba-api/internal/platform/postgres"
	"github.com/stretchr/testify/require"
)

// DatabaseURLEnv names the variable holding the test database URL.
const DatabaseURLEnv = "KOTOBA_TEST_DATABASE_URL"

// TestTimeout bounds setup statements.
const TestTimeout = 10 * time.Second

// GetTestDatabaseURL returns the configured test database URL, or "".
func GetTestDatabaseURL() string {
	return os.Getenv(DatabaseURLEnv)
}

// ShouldSkipDatabaseTest reports whether no test database is configured.
func ShouldSkipDatabaseTest() bool {
	return GetTestDatabaseURL() == ""
}

// GetTestDBWithT opens the test database, applies every migration and
// registers cleanup. The test is skipped when no database is configured.
func GetTestDBWithT(t *testing.T) *sql.DB {
	t.Helper()
	if ShouldSkipDatabaseTest() {
		t.Skipf("%s not set, skipping database integration test", DatabaseURLEnv)
	}

	db, err := sql.Open("pgx", GetTestDatabaseURL())
	require.NoError(t, err, "open test database %s", MaskDatabaseURL(GetTestDatabaseURL()))
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	require.NoError(t, db.PingContext(ctx), "ping test database %s", MaskDatabaseURL(GetTestDatabaseURL()))
	require.NoError(t, postgres.RunMigrations(ctx, db, "up", nil), "apply migrations")

	return db
}

// WithTx runs fn inside a transaction that is always rolled back, so each
// test sees a clean schema.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err, "begin test transaction")
	defer func() {
		_ = tx.Rollback()
	}()

	fn(t, tx)
}

// MaskDatabaseURL hides the password of a database URL for test output.
func MaskDatabaseURL(dbURL string) string {
	u, err := url.Parse(dbURL)
	if err != nil {
		return "invalid-url"
	}
	return u.Redacted()
}
