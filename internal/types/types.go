// Package types holds all shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles:
// handlers, service, and storage can all import types without depending
// on each other.
package types

// Student represents one row of the students table.
//
// Struct tags serve three purposes:
//
//  1. json:"..."     how the field appears in request/response bodies.
//  2. db:"..."       the column the row scanner maps into the field.
//  3. validate:"..." rules checked by go-playground/validator on input.
//
// ID is a pointer: nil means "unsaved", non-nil means "persisted".
// It has no validate tag because the identity is never taken from a payload.
type Student struct {
	ID     *int64 `json:"id"     db:"id"`
	Name   string `json:"name"   db:"name"   validate:"required"`
	Email  string `json:"email"  db:"email"  validate:"required,email"`
	Gender string `json:"gender" db:"gender" validate:"required"`
	Age    int    `json:"age"    db:"age"    validate:"gte=0"`
}

// WithID returns a copy of s carrying the given identity.
func (s Student) WithID(id int64) Student {
	s.ID = &id
	return s
}

// Persisted reports whether s carries a datastore-assigned identity.
func (s Student) Persisted() bool {
	return s.ID != nil
}
