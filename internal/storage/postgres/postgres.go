// Package postgres provides a PostgreSQL-backed implementation of the
// storage.Storage interface on top of a pgx connection pool.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/aanand-mishra/student-records/internal/config"
	"github.com/aanand-mishra/student-records/internal/storage"
)

//go:embed migrations/*.sql
var migrations embed.FS

var (
	ErrConnectionFailed = errors.New("postgres: connection failed")
	ErrMigrationFailed  = errors.New("postgres: migration failed")
)

var _ storage.Storage = (*Postgres)(nil)

// Postgres wraps a pgx connection pool.
type Postgres struct {
	Pool *pgxpool.Pool

	// DB is a database/sql handle on the same connection config, kept
	// around for migrations and test fixtures.
	DB *sql.DB
}

// Connect creates the pool and waits for the database to accept
// connections, retrying with exponential backoff until cfg.ConnectTimeout
// has passed. Statements are traced to log at debug level.
func Connect(ctx context.Context, cfg config.Postgres, log *slog.Logger) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("%w: could not parse config: %v", ErrConnectionFailed, err)
	}

	poolCfg.ConnConfig.RuntimeParams["application_name"] = "students-api"
	poolCfg.ConnConfig.Tracer = &queryTracer{log: log}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: could not create pool: %v", ErrConnectionFailed, err)
	}

	retry := backoff.NewExponentialBackOff()
	if cfg.ConnectTimeout > 0 {
		retry.MaxElapsedTime = cfg.ConnectTimeout
	}

	err = backoff.RetryNotify(
		func() error { return pool.Ping(ctx) },
		backoff.WithContext(retry, ctx),
		func(err error, next time.Duration) {
			log.Warn("database not ready, retrying",
				slog.String("host", cfg.Host),
				slog.Duration("next_attempt_in", next),
				slog.String("error", err.Error()))
		},
	)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: could not ping db: %v", ErrConnectionFailed, err)
	}

	// Offer database/sql on the same config for libraries that need it.
	db := stdlib.OpenDB(*poolCfg.ConnConfig)

	log.Info("database connection established",
		slog.String("host", cfg.Host),
		slog.Int("port", cfg.Port),
		slog.String("database", cfg.Database))

	return &Postgres{Pool: pool, DB: db}, nil
}

// ConnectAndMigrate connects and runs all embedded migrations, so the
// schema is on the latest version before the first query.
func ConnectAndMigrate(ctx context.Context, cfg config.Postgres, log *slog.Logger) (*Postgres, error) {
	pg, err := Connect(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	if err := migrateUp(pg.DB, cfg.Database); err != nil {
		_ = pg.Close()
		return nil, err
	}

	return pg, nil
}

func migrateUp(db *sql.DB, dbName string) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("%w: could not create migration file driver: %v", ErrMigrationFailed, err)
	}

	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("%w: could not get database driver: %v", ErrMigrationFailed, err)
	}

	m, err := migrate.NewWithInstance("iofs", src, dbName, driver)
	if err != nil {
		return fmt.Errorf("%w: could not create new migration instance: %v", ErrMigrationFailed, err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%w: could not migrate up: %v", ErrMigrationFailed, err)
	}

	return nil
}

// ReadOnly runs fn in a transaction opened with READ ONLY access mode,
// so the server rejects any write attempted inside it.
func (p *Postgres) ReadOnly(ctx context.Context, fn func(q storage.Queries) error) error {
	return p.withTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly}, fn)
}

// ReadWrite runs fn in a READ WRITE transaction.
func (p *Postgres) ReadWrite(ctx context.Context, fn func(q storage.Queries) error) error {
	return p.withTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadWrite}, fn)
}

func (p *Postgres) withTx(ctx context.Context, opts pgx.TxOptions, fn func(q storage.Queries) error) error {
	tx, err := p.Pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("postgres: begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
	}()

	if err := fn(&queries{tx: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}

		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit transaction: %w", err)
	}

	return nil
}

// Ping checks if the database is reachable.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.Pool.Ping(ctx)
}

// Close closes both handles. Call this during graceful shutdown.
func (p *Postgres) Close() error {
	p.Pool.Close()

	return p.DB.Close()
}
