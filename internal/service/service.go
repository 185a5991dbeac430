// Package service wraps every storage access in a transaction and guards
// update and delete with an existence check.
//
// Reads run in read-only transactions. Writes run in read-write
// transactions that commit atomically or roll back completely. Update
// and delete first look the row up inside the same transaction and stop
// with ErrNotFound when it is gone, without touching the table.
//
// The check and the write are not atomic against a concurrent writer:
// if another transaction deletes the row in between, the write affects
// 0 rows. That shows up only in the rows_affected log entry and metric.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aanand-mishra/student-records/internal/metrics"
	"github.com/aanand-mishra/student-records/internal/storage"
	"github.com/aanand-mishra/student-records/internal/types"
)

// ErrNotFound is returned by UpdateStudent and DeleteStudent when no
// student has the requested id. Check for it with errors.Is.
var ErrNotFound = errors.New("student not found")

// Service is safe for concurrent use.
type Service struct {
	store   storage.Storage
	log     *slog.Logger
	metrics *metrics.Metrics
}

// New returns a Service on top of store. m may be nil.
func New(store storage.Storage, log *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{store: store, log: log, metrics: m}
}

// FindAllStudents returns every student.
func (s *Service) FindAllStudents(ctx context.Context) ([]types.Student, error) {
	var students []types.Student

	err := s.store.ReadOnly(ctx, func(q storage.Queries) error {
		var err error
		students, err = q.ListAll(ctx)

		return err
	})
	if err != nil {
		return nil, fmt.Errorf("find all students: %w", err)
	}

	return students, nil
}

// FilterByAgeAndGender returns the students matching both age and gender.
func (s *Service) FilterByAgeAndGender(ctx context.Context, age int, gender string) ([]types.Student, error) {
	var students []types.Student

	err := s.store.ReadOnly(ctx, func(q storage.Queries) error {
		var err error
		students, err = q.FilterByAgeAndGender(ctx, age, gender)

		return err
	})
	if err != nil {
		return nil, fmt.Errorf("filter students by age and gender: %w", err)
	}

	return students, nil
}

// FilterByGenderAndAgeGreaterThan returns the students of gender older than age.
func (s *Service) FilterByGenderAndAgeGreaterThan(ctx context.Context, age int, gender string) ([]types.Student, error) {
	var students []types.Student

	err := s.store.ReadOnly(ctx, func(q storage.Queries) error {
		var err error
		students, err = q.FilterByGenderAndAgeGreaterThan(ctx, age, gender)

		return err
	})
	if err != nil {
		return nil, fmt.Errorf("filter students by gender and minimum age: %w", err)
	}

	return students, nil
}

// FindStudentByID returns the student with id. ok is false if there is none.
func (s *Service) FindStudentByID(ctx context.Context, id int64) (types.Student, bool, error) {
	var (
		student types.Student
		ok      bool
	)

	err := s.store.ReadOnly(ctx, func(q storage.Queries) error {
		var err error
		student, ok, err = q.FindByID(ctx, id)

		return err
	})
	if err != nil {
		return types.Student{}, false, fmt.Errorf("find student %d: %w", id, err)
	}

	return student, ok, nil
}

// InsertStudent stores a new student. Any ID on student is ignored.
// The generated id is not returned; list or filter to find the record.
func (s *Service) InsertStudent(ctx context.Context, student types.Student) error {
	var n int64

	err := s.store.ReadWrite(ctx, func(q storage.Queries) error {
		var err error
		n, err = q.Insert(ctx, student)

		return err
	})
	if err != nil {
		return fmt.Errorf("insert student: %w", err)
	}

	s.affected(ctx, metrics.OpInsert, n)

	return nil
}

// UpdateStudent replaces every field of the student with id by the
// fields of student. The id always comes from the id argument, an ID
// carried by student is ignored.
func (s *Service) UpdateStudent(ctx context.Context, student types.Student, id int64) error {
	var n int64

	err := s.store.ReadWrite(ctx, func(q storage.Queries) error {
		_, ok, err := q.FindByID(ctx, id)
		if err != nil {
			return err
		}

		if !ok {
			return fmt.Errorf("%w: no student to update with id %d", ErrNotFound, id)
		}

		n, err = q.Update(ctx, student.WithID(id))

		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}

		return fmt.Errorf("update student %d: %w", id, err)
	}

	s.affected(ctx, metrics.OpUpdate, n)

	return nil
}

// DeleteStudent removes the student with id.
func (s *Service) DeleteStudent(ctx context.Context, id int64) error {
	var n int64

	err := s.store.ReadWrite(ctx, func(q storage.Queries) error {
		_, ok, err := q.FindByID(ctx, id)
		if err != nil {
			return err
		}

		if !ok {
			return fmt.Errorf("%w: no student to delete with id %d", ErrNotFound, id)
		}

		n, err = q.Delete(ctx, id)

		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}

		return fmt.Errorf("delete student %d: %w", id, err)
	}

	s.affected(ctx, metrics.OpDelete, n)

	return nil
}

// Ping reports whether the datastore is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) affected(ctx context.Context, op string, n int64) {
	s.log.InfoContext(ctx, "affected rows after "+op, slog.String("operation", op), slog.Int64("rows_affected", n))
	s.metrics.RowsAffected(op, n)
}
