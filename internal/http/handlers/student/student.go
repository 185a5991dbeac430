// Package student contains the HTTP handlers of the student resource.
//
// HANDLER PATTERN: factory closures.
// ────────────────────────────────────────────────────────────
// The router expects func(http.ResponseWriter, *http.Request), which has
// no room for dependencies. Each exported function here is a factory: it
// receives the Service and a logger once at startup and returns the
// handler that runs on every request.
//
//	mux.HandleFunc("GET /api/v1/students", student.List(svc, log))
//
// Handlers only decode, call the Service, and encode. No business rules
// live here.
package student

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/student-records/internal/http/middleware"
	"github.com/aanand-mishra/student-records/internal/service"
	"github.com/aanand-mishra/student-records/internal/types"
	"github.com/aanand-mishra/student-records/internal/utils/response"
)

// Service is what the handlers need from service.Service.
type Service interface {
	FindAllStudents(ctx context.Context) ([]types.Student, error)
	FilterByAgeAndGender(ctx context.Context, age int, gender string) ([]types.Student, error)
	FilterByGenderAndAgeGreaterThan(ctx context.Context, age int, gender string) ([]types.Student, error)
	FindStudentByID(ctx context.Context, id int64) (types.Student, bool, error)
	InsertStudent(ctx context.Context, student types.Student) error
	UpdateStudent(ctx context.Context, student types.Student, id int64) error
	DeleteStudent(ctx context.Context, id int64) error
}

var (
	errEmptyBody = errors.New("request body is empty")
	errInvalidID = errors.New("invalid id: must be an integer")
	errNoStudent = errors.New("student not found")
)

// validate is safe for concurrent use and caches struct metadata.
var validate = validator.New()

// ─────────────────────────────────────────────────────────────────────────────
// List handles GET /api/v1/students
//
// Success response (200 OK), [] when there are no students:
//
//	[ { "id": 1, "name": "Juan Pérez", "email": "juan@gmail.com", "gender": "Masculino", "age": 30 } ]
//
// ─────────────────────────────────────────────────────────────────────────────
func List(svc Service, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := middleware.Logger(r.Context(), log)
		log.Info("listing students")

		students, err := svc.FindAllStudents(r.Context())
		if err != nil {
			internalError(w, log, "error listing students", err)
			return
		}

		_ = response.WriteJSON(w, http.StatusOK, students)
	}
}

// FilterByAgeAndGender handles
// GET /api/v1/students/with-age-and-gender?age=32&gender=Masculino
//
// Returns the students whose age and gender both match. 400 when a query
// parameter is missing or age is not an integer.
func FilterByAgeAndGender(svc Service, log *slog.Logger) http.HandlerFunc {
	return filter(log, "filtering students by age and gender", svc.FilterByAgeAndGender)
}

// FilterByGenderAndAgeGreaterThan handles
// GET /api/v1/students/with-gender-and-age-greater-than?age=30&gender=Femenino
//
// Returns the students of the given gender strictly older than age.
func FilterByGenderAndAgeGreaterThan(svc Service, log *slog.Logger) http.HandlerFunc {
	return filter(log, "filtering students by gender and minimum age", svc.FilterByGenderAndAgeGreaterThan)
}

func filter(
	log *slog.Logger,
	msg string,
	find func(ctx context.Context, age int, gender string) ([]types.Student, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := middleware.Logger(r.Context(), log)

		age, gender, err := ageAndGender(r)
		if err != nil {
			_ = response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		log.Info(msg, slog.Int("age", age), slog.String("gender", gender))

		students, err := find(r.Context(), age, gender)
		if err != nil {
			internalError(w, log, "error filtering students", err)
			return
		}

		_ = response.WriteJSON(w, http.StatusOK, students)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetByID handles GET /api/v1/students/{id}
//
// Error responses:
//
//	400 Bad Request  id is not a valid integer
//	404 Not Found    no student with that id
//	500 Internal     database error
//
// ─────────────────────────────────────────────────────────────────────────────
func GetByID(svc Service, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := middleware.Logger(r.Context(), log)

		id, err := pathID(r)
		if err != nil {
			_ = response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		log.Info("getting a student", slog.Int64("id", id))

		student, ok, err := svc.FindStudentByID(r.Context(), id)
		if err != nil {
			internalError(w, log, "error getting student", err)
			return
		}

		if !ok {
			_ = response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errNoStudent))
			return
		}

		_ = response.WriteJSON(w, http.StatusOK, student)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /api/v1/students
//
// Request body (JSON), any "id" is ignored:
//
//	{ "name": "Ana", "email": "ana@x.com", "gender": "F", "age": 28 }
//
// Success response: 201 Created with an empty body. The generated id is
// not returned.
// ─────────────────────────────────────────────────────────────────────────────
func New(svc Service, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := middleware.Logger(r.Context(), log)
		log.Info("creating a student")

		student, ok := decodeStudent(w, r)
		if !ok {
			return
		}

		student.ID = nil

		if err := svc.InsertStudent(r.Context(), student); err != nil {
			internalError(w, log, "error creating student", err)
			return
		}

		response.Empty(w, http.StatusCreated)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles PUT /api/v1/students/{id}
// Replaces ALL fields of an existing student. The id in the path wins
// over any id in the body.
//
// Success response: 200 OK with an empty body.
// 404 Not Found when no student has that id.
// ─────────────────────────────────────────────────────────────────────────────
func Update(svc Service, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := middleware.Logger(r.Context(), log)

		id, err := pathID(r)
		if err != nil {
			_ = response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		log.Info("updating a student", slog.Int64("id", id))

		student, ok := decodeStudent(w, r)
		if !ok {
			return
		}

		if err := svc.UpdateStudent(r.Context(), student, id); err != nil {
			mutationError(w, log, "error updating student", err)
			return
		}

		response.Empty(w, http.StatusOK)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete handles DELETE /api/v1/students/{id}
//
// Success response: 204 No Content.
// 404 Not Found when no student has that id.
// ─────────────────────────────────────────────────────────────────────────────
func Delete(svc Service, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := middleware.Logger(r.Context(), log)

		id, err := pathID(r)
		if err != nil {
			_ = response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		log.Info("deleting a student", slog.Int64("id", id))

		if err := svc.DeleteStudent(r.Context(), id); err != nil {
			mutationError(w, log, "error deleting student", err)
			return
		}

		response.Empty(w, http.StatusNoContent)
	}
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, errInvalidID
	}

	return id, nil
}

func ageAndGender(r *http.Request) (int, string, error) {
	q := r.URL.Query()

	rawAge, gender := q.Get("age"), q.Get("gender")
	if rawAge == "" || gender == "" {
		return 0, "", errors.New("query parameters age and gender are required")
	}

	age, err := strconv.Atoi(rawAge)
	if err != nil {
		return 0, "", errors.New("invalid age: must be an integer")
	}

	return age, gender, nil
}

// decodeStudent reads and validates the JSON body. On failure it writes
// the 400 response itself and returns false.
func decodeStudent(w http.ResponseWriter, r *http.Request) (types.Student, bool) {
	var student types.Student

	err := json.NewDecoder(r.Body).Decode(&student)
	if errors.Is(err, io.EOF) {
		_ = response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errEmptyBody))
		return types.Student{}, false
	}

	if err != nil {
		_ = response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		return types.Student{}, false
	}

	if err := validate.Struct(student); err != nil {
		var validateErrs validator.ValidationErrors
		if errors.As(err, &validateErrs) {
			_ = response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(validateErrs))
			return types.Student{}, false
		}

		_ = response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))

		return types.Student{}, false
	}

	return student, true
}

// mutationError maps service.ErrNotFound to 404, anything else to 500.
func mutationError(w http.ResponseWriter, log *slog.Logger, msg string, err error) {
	if errors.Is(err, service.ErrNotFound) {
		log.Warn(msg, slog.String("error", err.Error()))
		_ = response.WriteJSON(w, http.StatusNotFound, response.GeneralError(err))

		return
	}

	internalError(w, log, msg, err)
}

func internalError(w http.ResponseWriter, log *slog.Logger, msg string, err error) {
	log.Error(msg, slog.String("error", err.Error()))
	_ = response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
}
