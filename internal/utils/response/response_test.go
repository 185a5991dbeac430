package response_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/student-records/internal/types"
	"github.com/aanand-mishra/student-records/internal/utils/response"
)

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	err := response.WriteJSON(rec, http.StatusTeapot, response.GeneralError(errors.New("some-error")))

	assert.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"error","error":"some-error"}`, rec.Body.String())
}

func TestOK(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	require.NoError(t, response.WriteJSON(rec, http.StatusOK, response.OK()))

	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestValidationError(t *testing.T) {
	t.Parallel()

	err := validator.New().Struct(types.Student{Email: "not-an-email", Age: -1})

	var errs validator.ValidationErrors
	require.True(t, errors.As(err, &errs))

	assert.Equal(t, response.Response{
		Status: response.StatusError,
		Error: "field Name is required, field Email must be a valid email address, " +
			"field Gender is required, field Age must be 0 or greater",
	}, response.ValidationError(errs))
}
