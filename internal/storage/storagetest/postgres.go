//go:build integration

package storagetest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/jackc/pgx/v5"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/student-records/internal/config"
	"github.com/aanand-mishra/student-records/internal/logger"
	"github.com/aanand-mishra/student-records/internal/storage/postgres"
)

var ErrDockerFailure = errors.New("docker failure")

const dockerTimeout = 120

// PostgresServer is a throwaway PostgreSQL running in docker. Every test
// gets its own database on it, so tests can run in parallel.
type PostgresServer struct {
	Admin config.Postgres

	pool     *dockertest.Pool
	resource *dockertest.Resource
}

// StartPostgres starts a postgres container and waits until it accepts
// connections. The pipeline running the tests needs access to a docker socket.
func StartPostgres() (*PostgresServer, error) {
	admin := config.Postgres{
		Host:     "localhost",
		User:     "students",
		Password: "secret",
		Database: "postgres",
		SSLMode:  "disable",
		MaxConns: 4,
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, fmt.Errorf("%w: could not create new pool: %v", ErrDockerFailure, err)
	}

	if err := pool.Client.Ping(); err != nil {
		return nil, fmt.Errorf("%w: could not connect to docker: %v", ErrDockerFailure, err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "15.2-alpine",
		Env: []string{
			"POSTGRES_USER=" + admin.User,
			"POSTGRES_PASSWORD=" + admin.Password,
			"listen_addresses = '*'",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return nil, fmt.Errorf("%w: could not start resource: %v", ErrDockerFailure, err)
	}

	_ = resource.Expire(dockerTimeout)

	admin.Port, _ = strconv.Atoi(resource.GetPort("5432/tcp"))

	pool.MaxWait = dockerTimeout * time.Second
	err = pool.Retry(func() error {
		conn, err := pgx.Connect(context.Background(), admin.URL())
		if err != nil {
			return err
		}

		return conn.Close(context.Background())
	})
	if err != nil {
		_ = pool.Purge(resource)
		return nil, fmt.Errorf("%w: postgres did not come up: %v", ErrDockerFailure, err)
	}

	return &PostgresServer{Admin: admin, pool: pool, resource: resource}, nil
}

// Close removes the container.
func (s *PostgresServer) Close() error {
	if err := s.pool.Purge(s.resource); err != nil {
		return fmt.Errorf("%w: could not purge resource: %v", ErrDockerFailure, err)
	}

	return nil
}

// NewDatabase creates a fresh database, migrates it, loads the fixtures
// and connects to it. The connection is closed when the test ends.
func (s *PostgresServer) NewDatabase(t *testing.T) *postgres.Postgres {
	t.Helper()

	ctx := context.Background()

	// testfixtures refuses to touch a database whose name does not contain "test".
	cfg := s.Admin
	cfg.Database = "students_" + strings.ToLower(gofakeit.LetterN(10)) + "_test"

	conn, err := pgx.Connect(ctx, s.Admin.URL())
	require.NoError(t, err)

	_, err = conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{cfg.Database}.Sanitize())
	require.NoError(t, err)
	require.NoError(t, conn.Close(ctx))

	pg, err := postgres.ConnectAndMigrate(ctx, cfg, logger.New("test", "error", io.Discard))
	require.NoError(t, err)

	t.Cleanup(func() { _ = pg.Close() })

	LoadFixtures(t, pg.DB, "postgres")

	return pg
}
