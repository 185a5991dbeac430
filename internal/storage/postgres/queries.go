package postgres

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"github.com/aanand-mishra/student-records/internal/types"
)

const (
	listAllQuery = `
		SELECT s.id, s.name, s.email, s.gender, s.age
		FROM students AS s`

	filterByAgeAndGenderQuery = `
		SELECT s.id, s.name, s.email, s.gender, s.age
		FROM students AS s
		WHERE s.age = $1 AND s.gender = $2`

	filterByGenderAndAgeGreaterThanQuery = `
		SELECT s.id, s.name, s.email, s.gender, s.age
		FROM students AS s
		WHERE s.age > $1 AND s.gender = $2`

	findByIDQuery = `
		SELECT s.id, s.name, s.email, s.gender, s.age
		FROM students AS s
		WHERE s.id = $1`

	insertQuery = `
		INSERT INTO students (name, email, gender, age)
		VALUES ($1, $2, $3, $4)`

	updateQuery = `
		UPDATE students
		SET name = $1, email = $2, gender = $3, age = $4
		WHERE id = $5`

	deleteQuery = `DELETE FROM students WHERE id = $1`
)

// queries implements storage.Queries on top of one pgx transaction.
type queries struct {
	tx pgx.Tx
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
	students := make([]types.Student, 0)

	if err := pgxscan.Select(ctx, q.tx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("postgres: select students: %w", err)
	}

	return students, nil
}

func (q *queries) FindByID(ctx context.Context, id int64) (types.Student, bool, error) {
	var student types.Student

	if err := pgxscan.Get(ctx, q.tx, &student, findByIDQuery, id); err != nil {
		if pgxscan.NotFound(err) {
			return types.Student{}, false, nil
		}

		return types.Student{}, false, fmt.Errorf("postgres: find student %d: %w", id, err)
	}

	return student, true, nil
}

func (q *queries) Insert(ctx context.Context, student types.Student) (int64, error) {
	tag, err := q.tx.Exec(ctx, insertQuery, student.Name, student.Email, student.Gender, student.Age)
	if err != nil {
		return 0, fmt.Errorf("postgres: insert student: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (q *queries) Update(ctx context.Context, student types.Student) (int64, error) {
	tag, err := q.tx.Exec(ctx, updateQuery, student.Name, student.Email, student.Gender, student.Age, student.ID)
	if err != nil {
		return 0, fmt.Errorf("postgres: update student: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (q *queries) Delete(ctx context.Context, id int64) (int64, error) {
	tag, err := q.tx.Exec(ctx, deleteQuery, id)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete student: %w", err)
	}

	return tag.RowsAffected(), nil
}
