// Package storage defines the contract every database backend satisfies.
//
// The contract has two halves:
//
//   - Queries is the closed set of query intents (list, two filters,
//     fetch-by-id, insert, update, delete). Each intent maps to exactly
//     one parameterized statement in a backend; nothing is assembled
//     from untrusted input.
//
//   - Storage hands out transactional scopes. Callers never touch a
//     connection directly: they get a Queries bound to a transaction
//     that is read-only or read-write.
//
// Backends live in the sqlite and postgres sub-packages.
package storage

import (
	"context"

	"github.com/aanand-mishra/student-records/internal/types"
)

// Queries is the query layer. It owns no business rules: absence is a
// normal outcome (empty slice, ok == false, 0 rows affected) and datastore
// errors are passed through.
type Queries interface {
	// ListAll returns every student. No ordering is promised.
	ListAll(ctx context.Context) ([]types.Student, error)

	// FilterByAgeAndGender returns students whose age and gender both
	// match exactly.
	FilterByAgeAndGender(ctx context.Context, age int, gender string) ([]types.Student, error)

	// FilterByGenderAndAgeGreaterThan returns students with exactly the
	// given gender and an age strictly greater than age.
	FilterByGenderAndAgeGreaterThan(ctx context.Context, age int, gender string) ([]types.Student, error)

	// FindByID returns the student with the given id. ok is false when
	// there is no such row; that is not an error.
	FindByID(ctx context.Context, id int64) (student types.Student, ok bool, err error)

	// Insert writes a new row. student.ID is ignored, the datastore
	// assigns the identity. Returns the number of rows written.
	Insert(ctx context.Context, student types.Student) (int64, error)

	// Update overwrites every mutable column of the row identified by
	// student.ID. It does not check existence: a missing row (or a nil
	// ID) yields 0 rows affected.
	Update(ctx context.Context, student types.Student) (int64, error)

	// Delete removes the row with the given id and returns the number
	// of rows removed.
	Delete(ctx context.Context, id int64) (int64, error)
}

// Storage opens transactional scopes over the connection pool.
//
// fn runs inside the transaction. If fn returns nil the transaction is
// committed, otherwise (or if fn panics) it is rolled back and the error
// from fn is returned unchanged, so sentinel errors survive the scope.
type Storage interface {
	// ReadOnly runs fn in a read-only transaction.
	ReadOnly(ctx context.Context, fn func(q Queries) error) error

	// ReadWrite runs fn in a read-write transaction.
	ReadWrite(ctx context.Context, fn func(q Queries) error) error

	// Ping checks that the datastore is reachable.
	Ping(ctx context.Context) error

	// Close releases the connection pool.
	Close() error
}
