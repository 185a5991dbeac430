package student_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aanand-mishra/student-records/internal/http/handlers/student"
	"github.com/aanand-mishra/student-records/internal/logger"
	"github.com/aanand-mishra/student-records/internal/service"
	"github.com/aanand-mishra/student-records/internal/types"
)

var errDatabase = errors.New("database is down")

// failingService fails every call with err.
type failingService struct {
	err error
}

func (s failingService) FindAllStudents(context.Context) ([]types.Student, error) { return nil, s.err }

func (s failingService) FilterByAgeAndGender(context.Context, int, string) ([]types.Student, error) {
	return nil, s.err
}

func (s failingService) FilterByGenderAndAgeGreaterThan(context.Context, int, string) ([]types.Student, error) {
	return nil, s.err
}

func (s failingService) FindStudentByID(context.Context, int64) (types.Student, bool, error) {
	return types.Student{}, false, s.err
}

func (s failingService) InsertStudent(context.Context, types.Student) error { return s.err }

func (s failingService) UpdateStudent(context.Context, types.Student, int64) error { return s.err }

func (s failingService) DeleteStudent(context.Context, int64) error { return s.err }

func serve(h http.HandlerFunc, pattern, method, target, body string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.Handle(pattern, h)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))

	return rec
}

func TestHandlers_DatastoreFailure(t *testing.T) {
	t.Parallel()

	svc := failingService{err: errDatabase}
	log := logger.New(logger.EnvDev, "error", io.Discard)
	payload := `{"name":"Ana","email":"ana@x.com","gender":"F","age":28}`

	tests := map[string]struct {
		h       http.HandlerFunc
		pattern string
		method  string
		target  string
		body    string
	}{
		"list":   {student.List(svc, log), "GET /s", http.MethodGet, "/s", ""},
		"filter": {student.FilterByAgeAndGender(svc, log), "GET /s", http.MethodGet, "/s?age=1&gender=F", ""},
		"filter greater": {
			student.FilterByGenderAndAgeGreaterThan(svc, log), "GET /s", http.MethodGet, "/s?age=1&gender=F", "",
		},
		"get":    {student.GetByID(svc, log), "GET /s/{id}", http.MethodGet, "/s/1", ""},
		"create": {student.New(svc, log), "POST /s", http.MethodPost, "/s", payload},
		"update": {student.Update(svc, log), "PUT /s/{id}", http.MethodPut, "/s/1", payload},
		"delete": {student.Delete(svc, log), "DELETE /s/{id}", http.MethodDelete, "/s/1", ""},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			rec := serve(tt.h, tt.pattern, tt.method, tt.target, tt.body)

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.JSONEq(t, `{"status":"error","error":"database is down"}`, rec.Body.String())
		})
	}
}

func TestHandlers_NotFound(t *testing.T) {
	t.Parallel()

	svc := failingService{err: fmt.Errorf("%w: no student to delete with id 1", service.ErrNotFound)}
	log := logger.New(logger.EnvDev, "error", io.Discard)

	rec := serve(student.Delete(svc, log), "DELETE /s/{id}", http.MethodDelete, "/s/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(student.Update(svc, log), "PUT /s/{id}", http.MethodPut, "/s/1",
		`{"name":"Ana","email":"ana@x.com","gender":"F","age":28}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
