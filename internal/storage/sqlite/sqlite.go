// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface using Go's standard database/sql package.
//
// SQLite stores everything in a single file on disk. There is no
// network and no separate server process, which makes it the default
// backend for local runs and for the test suite.
//
// The blank import below registers the sqlite3 driver with database/sql.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/aanand-mishra/student-records/internal/storage"
	"github.com/aanand-mishra/student-records/internal/types"

	// Blank import: side-effect only (registers the "sqlite3" driver).
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrations embed.FS

var (
	ErrConnectionFailed = errors.New("sqlite: connection failed")
	ErrMigrationFailed  = errors.New("sqlite: migration failed")
)

// busyTimeoutMillis is how long a connection waits for a lock held by
// another connection before failing with SQLITE_BUSY.
const busyTimeoutMillis = 5000

var _ storage.Storage = (*SQLite)(nil)

// SQLite is the concrete implementation of storage.Storage.
//
// It holds two *sql.DB pools on the same file. DB serves ReadWrite and
// begins every transaction with BEGIN IMMEDIATE, so a writer takes the
// write lock up front and concurrent writers queue on the busy timeout.
// A deferred transaction that reads first and then writes would instead
// fail with "database is locked" on the lock upgrade. The reader pool
// serves ReadOnly with plain deferred transactions.
type SQLite struct {
	DB     *sql.DB
	reader *sql.DB
}

// New opens the SQLite database at path, migrates the students table up
// to the latest version, and returns a ready-to-use *SQLite. path may
// carry its own driver parameters after a '?'.
func New(path string) (*SQLite, error) {
	writer, err := open(path, "immediate")
	if err != nil {
		return nil, err
	}

	if err := migrateUp(writer); err != nil {
		_ = writer.Close()
		return nil, err
	}

	reader, err := open(path, "deferred")
	if err != nil {
		_ = writer.Close()
		return nil, err
	}

	return &SQLite{DB: writer, reader: reader}, nil
}

func open(path, txlock string) (*sql.DB, error) {
	// sql.Open does NOT open a real connection yet. It only validates
	// the driver name and data source name (DSN).
	db, err := sql.Open("sqlite3", dsn(path, url.Values{
		"_busy_timeout": {strconv.Itoa(busyTimeoutMillis)},
		"_txlock":       {txlock},
	}))
	if err != nil {
		return nil, fmt.Errorf("%w: open db: %v", ErrConnectionFailed, err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping db: %v", ErrConnectionFailed, err)
	}

	return db, nil
}

// dsn appends params to path, keeping any query string path already has.
func dsn(path string, params url.Values) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}

	return path + sep + params.Encode()
}

// migrateUp applies the embedded migrations. Running it against an
// up-to-date schema is a no-op, so it is safe on every startup.
func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("%w: could not create migration file driver: %v", ErrMigrationFailed, err)
	}

	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("%w: could not get database driver: %v", ErrMigrationFailed, err)
	}

	// m.Close is never called: it would close db, which the caller owns.
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("%w: could not create new migration instance: %v", ErrMigrationFailed, err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%w: could not migrate up: %v", ErrMigrationFailed, err)
	}

	return nil
}

// ReadOnly runs fn in a read-only transaction on the reader pool.
func (s *SQLite) ReadOnly(ctx context.Context, fn func(q storage.Queries) error) error {
	return withTx(ctx, s.reader, &sql.TxOptions{ReadOnly: true}, fn)
}

// ReadWrite runs fn in an immediate transaction on the writer pool.
func (s *SQLite) ReadWrite(ctx context.Context, fn func(q storage.Queries) error) error {
	return withTx(ctx, s.DB, &sql.TxOptions{}, fn)
}

func withTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(q storage.Queries) error) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("sqlite: begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&queries{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}

		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit transaction: %w", err)
	}

	return nil
}

// Ping checks that the database file can be reached.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.reader.PingContext(ctx)
}

// Close closes both connection pools.
func (s *SQLite) Close() error {
	return errors.Join(s.DB.Close(), s.reader.Close())
}

// Columns are listed explicitly, so a new column never changes what the
// scanner sees.
const (
	listAllQuery = `
		SELECT id, name, email, gender, age
		FROM students`

	filterByAgeAndGenderQuery = `
		SELECT id, name, email, gender, age
		FROM students
		WHERE age = ? AND gender = ?`

	filterByGenderAndAgeGreaterThanQuery = `
		SELECT id, name, email, gender, age
		FROM students
		WHERE age > ? AND gender = ?`

	findByIDQuery = `
		SELECT id, name, email, gender, age
		FROM students
		WHERE id = ?`

	insertQuery = `
		INSERT INTO students (name, email, gender, age)
		VALUES (?, ?, ?, ?)`

	updateQuery = `
		UPDATE students
		SET name = ?, email = ?, gender = ?, age = ?
		WHERE id = ?`

	deleteQuery = `DELETE FROM students WHERE id = ?`
)

// queries implements storage.Queries on top of one transaction.
//
// Placeholders (?) are sent to the database separately from the SQL text,
// so values are always treated as data and never as SQL syntax.
type queries struct {
	tx *sql.Tx
}

func (q *queries) ListAll(ctx context.Context) ([]types.Student, error) {
	return q.selectStudents(ctx, listAllQuery)
}

func (q *queries) FilterByAgeAndGender(ctx context.Context, age int, gender string) ([]types.Student, error) {
	return q.selectStudents(ctx, filterByAgeAndGenderQuery, age, gender)
}

func (q *queries) FilterByGenderAndAgeGreaterThan(ctx context.Context, age int, gender string) ([]types.Student, error) {
	return q.selectStudents(ctx, filterByGenderAndAgeGreaterThanQuery, age, gender)
}

func (q *queries) selectStudents(ctx context.Context, query string, args ...any) ([]types.Student, error) {
	// Pre-allocate an empty (non-nil) slice, so callers encoding the
	// result to JSON send [] instead of null.
	students := make([]types.Student, 0)

	if err := sqlscan.Select(ctx, q.tx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("sqlite: select students: %w", err)
	}

	return students, nil
}

func (q *queries) FindByID(ctx context.Context, id int64) (types.Student, bool, error) {
	var student types.Student

	if err := sqlscan.Get(ctx, q.tx, &student, findByIDQuery, id); err != nil {
		if sqlscan.NotFound(err) {
			return types.Student{}, false, nil
		}

		return types.Student{}, false, fmt.Errorf("sqlite: find student %d: %w", id, err)
	}

	return student, true, nil
}

func (q *queries) Insert(ctx context.Context, student types.Student) (int64, error) {
	return q.exec(ctx, "insert", insertQuery, student.Name, student.Email, student.Gender, student.Age)
}

func (q *queries) Update(ctx context.Context, student types.Student) (int64, error) {
	// A nil ID binds as NULL, and `id = NULL` matches nothing.
	return q.exec(ctx, "update", updateQuery, student.Name, student.Email, student.Gender, student.Age, student.ID)
}

func (q *queries) Delete(ctx context.Context, id int64) (int64, error) {
	return q.exec(ctx, "delete", deleteQuery, id)
}

func (q *queries) exec(ctx context.Context, op string, query string, args ...any) (int64, error) {
	result, err := q.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("sqlite: %s student: %w", op, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: %s student: rows affected: %w", op, err)
	}

	return n, nil
}
