package sqlite

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	t.Parallel()

	params := url.Values{"_busy_timeout": {"5000"}, "_txlock": {"immediate"}}

	tests := []struct {
		name string
		path string
		want string
	}{
		{"plain path", "students.db", "students.db?_busy_timeout=5000&_txlock=immediate"},
		{"path with parameters", "file:students.db?cache=shared", "file:students.db?cache=shared&_busy_timeout=5000&_txlock=immediate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, dsn(tt.path, params))
		})
	}
}
