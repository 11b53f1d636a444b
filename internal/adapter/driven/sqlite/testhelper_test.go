package sqlite

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

// setupTestDB opens a migrated in-memory report database private to the
// calling test.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := openDB(context.Background(), memoryDSN(url.PathEscape(t.Name())), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, RunMigrations(db.Writer))
	return db
}
