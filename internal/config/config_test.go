package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/student-records/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	t.Run("sqlite with defaults", func(t *testing.T) {
		path := writeConfig(t, `
env: dev
storage:
  driver: sqlite
  path: storage/storage.db
http_server:
  address: localhost:8082
`)

		cfg, err := config.Load(path)
		require.NoError(t, err)

		assert.Equal(t, "dev", cfg.Env)
		assert.Equal(t, config.DriverSQLite, cfg.Storage.Driver)
		assert.Equal(t, "storage/storage.db", cfg.Storage.Path)
		assert.Equal(t, "localhost:8082", cfg.Addr)
		assert.Equal(t, 10*time.Second, cfg.ReadTimeout)
		assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	})

	t.Run("postgres", func(t *testing.T) {
		path := writeConfig(t, `
env: prod
log_level: warn
storage:
  driver: postgres
  postgres:
    host: db
    port: 6543
    user: app
    password: "s3cr#t"
    database: students
    max_conns: 4
http_server:
  address: :8080
  shutdown_timeout: 30s
`)

		cfg, err := config.Load(path)
		require.NoError(t, err)

		assert.Equal(t, "warn", cfg.LogLevel)
		assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
		assert.Equal(t,
			"postgres://app:s3cr%23t@db:6543/students?pool_max_conns=4&sslmode=disable",
			cfg.Storage.Postgres.URL(),
		)
	})

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv("HTTP_SERVER_ADDR", "0.0.0.0:9000")

		path := writeConfig(t, `
env: dev
storage:
  path: students.db
http_server:
  address: localhost:8082
`)

		cfg, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
		assert.Equal(t, config.DriverSQLite, cfg.Storage.Driver, "driver defaults to sqlite")
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := config.Load("")
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("unknown driver", func(t *testing.T) {
		path := writeConfig(t, `
env: dev
storage:
  driver: mysql
http_server:
  address: localhost:8082
`)

		_, err := config.Load(path)
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("sqlite without path", func(t *testing.T) {
		path := writeConfig(t, `
env: dev
storage:
  driver: sqlite
http_server:
  address: localhost:8082
`)

		_, err := config.Load(path)
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})
}

func TestPath(t *testing.T) {
	t.Run("flag", func(t *testing.T) {
		t.Setenv("CONFIG_PATH", "")
		assert.Equal(t, "from-flag.yaml", config.Path("from-flag.yaml"))
	})

	t.Run("env wins", func(t *testing.T) {
		t.Setenv("CONFIG_PATH", "from-env.yaml")
		assert.Equal(t, "from-env.yaml", config.Path("from-flag.yaml"))
	})
}
