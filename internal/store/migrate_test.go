package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("CREATE TABLE a (x);\n\nCREATE TABLE b (y);\n;")
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (x)", stmts[0])
	assert.Equal(t, "CREATE TABLE b (y)", stmts[1])
}

func TestSplitStatements_Empty(t *testing.T) {
	assert.Empty(t, splitStatements("  \n ; ; \n"))
}

// Reopening an already-migrated store re-runs every migration script. The
// duplicate-column failures that produces must be tolerated without blocking
// startup or losing data.
func TestReopen_ReplaysMigrationsLeniently(t *testing.T) {
	s, path := setupTestStore(t)

	_, err := s.Execute(
		`INSERT INTO loans (book_id, borrower, contact, due_date) VALUES (1, 'Ada', 'ada@example.com', '2030-01-01')`)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	var borrower string
	found, err := reopened.QueryOne(&borrower, `SELECT borrower FROM loans WHERE book_id = 1`)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Ada", borrower)
}

func TestReopen_MigrationObjectsPresent(t *testing.T) {
	s, path := setupTestStore(t)
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	var count int64
	_, err = reopened.QueryOne(&count,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = 'idx_loans_due_date'`)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
