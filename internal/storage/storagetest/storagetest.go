// Package storagetest provides test databases seeded with fixtures and a
// contract suite every storage.Storage implementation has to pass.
//
// It is only imported from _test.go files.
package storagetest

import (
	"database/sql"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/go-testfixtures/testfixtures/v3"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/student-records/internal/storage/sqlite"
	"github.com/aanand-mishra/student-records/internal/types"
)

// FixtureCount is the number of rows in testdata/fixtures/students.yml.
const FixtureCount = 14

// FixtureFile returns the absolute path of the students fixture file,
// independent of the calling test's working directory.
func FixtureFile() string {
	_, file, _, _ := runtime.Caller(0)

	return filepath.Join(filepath.Dir(file), "testdata", "fixtures", "students.yml")
}

// LoadFixtures replaces the content of the students table with the fixtures.
func LoadFixtures(t *testing.T, db *sql.DB, dialect string) {
	t.Helper()

	fixtures, err := testfixtures.New(
		testfixtures.Database(db),
		testfixtures.Dialect(dialect),
		testfixtures.Files(FixtureFile()),
	)
	require.NoError(t, err)
	require.NoError(t, fixtures.Load())
}

// NewSQLite creates a migrated SQLite database in a temporary directory,
// loads the fixtures, and closes it when the test ends.
func NewSQLite(t *testing.T) *sqlite.SQLite {
	t.Helper()

	// testfixtures refuses to touch a database whose name does not contain "test".
	db, err := sqlite.New(filepath.Join(t.TempDir(), "students_test.db"))
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })

	LoadFixtures(t, db.DB, "sqlite")

	return db
}

// IDs returns the identities of students in order. Unsaved students are skipped.
func IDs(students []types.Student) []int64 {
	ids := make([]int64, 0, len(students))

	for _, s := range students {
		if s.ID != nil {
			ids = append(ids, *s.ID)
		}
	}

	return ids
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
