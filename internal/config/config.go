// Package config handles loading and parsing application configuration.
// The config file path comes from (in priority order):
//  1. An environment variable:  CONFIG_PATH=/path/to/config.yaml
//  2. A command-line flag:      --config=/path/to/config.yaml
//
// Every value in the file can be overridden by the environment variable
// named in its env:"..." tag.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Storage drivers understood by Load.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config is the root configuration structure.
//
// env-required:"true" means the app refuses to start if that value is
// missing.
type Config struct {
	// Env controls log format and default verbosity.
	// Valid values: "dev", "staging", "prod"
	Env string `yaml:"env" env:"ENV" env-required:"true"`

	// LogLevel overrides the env's default level: debug, info, warn, error.
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	Storage Storage `yaml:"storage"`

	HTTPServer `yaml:"http_server"`
}

// Storage selects and configures the database backend.
type Storage struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"sqlite"`

	// Path is the filesystem path to the SQLite .db file.
	Path string `yaml:"path" env:"STORAGE_PATH"`

	Postgres Postgres `yaml:"postgres"`
}

// Postgres holds the connection settings used when Driver is "postgres".
type Postgres struct {
	Host           string        `yaml:"host"            env:"POSTGRES_HOST"     env-default:"localhost"`
	Port           int           `yaml:"port"            env:"POSTGRES_PORT"     env-default:"5432"`
	User           string        `yaml:"user"            env:"POSTGRES_USER"     env-default:"postgres"`
	Password       string        `yaml:"password"        env:"POSTGRES_PASSWORD"`
	Database       string        `yaml:"database"        env:"POSTGRES_DB"       env-default:"students"`
	SSLMode        string        `yaml:"ssl_mode"        env:"POSTGRES_SSLMODE"  env-default:"disable"`
	MaxConns       int           `yaml:"max_conns"       env:"POSTGRES_MAX_CONNS" env-default:"10"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"POSTGRES_CONNECT_TIMEOUT" env-default:"30s"`
}

// URL returns the pgx connection string for p.
func (p Postgres) URL() string {
	maxConns := p.MaxConns
	if maxConns == 0 { // prevent error: pool_max_conns too small
		maxConns = 10
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.User, p.Password),
		Host:   net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:   "/" + p.Database,
	}

	q := url.Values{}
	q.Set("sslmode", p.SSLMode)
	q.Set("pool_max_conns", strconv.Itoa(maxConns))
	u.RawQuery = q.Encode()

	return u.String()
}

// HTTPServer holds settings specific to the HTTP server.
// Nested under http_server: in the YAML file.
type HTTPServer struct {
	// Addr is the TCP address the server listens on, e.g. "localhost:8082".
	Addr string `yaml:"address" env:"HTTP_SERVER_ADDR" env-required:"true"`

	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"HTTP_SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"HTTP_SERVER_WRITE_TIMEOUT"    env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"HTTP_SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SERVER_SHUTDOWN_TIMEOUT" env-default:"5s"`
}

// Path resolves the config file location: CONFIG_PATH wins over flagValue.
func Path(flagValue string) string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}

	return flagValue
}

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: config path is not set: use --config flag or CONFIG_PATH env var", ErrInvalidConfig)
	}

	// Give a clear message rather than a cryptic "open: no such file" later.
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: config file does not exist: %s", ErrInvalidConfig, path)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("%w: cannot read config: %v", ErrInvalidConfig, err)
	}

	switch cfg.Storage.Driver {
	case DriverSQLite:
		if cfg.Storage.Path == "" {
			return nil, fmt.Errorf("%w: storage.path is required for the sqlite driver", ErrInvalidConfig)
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfig, cfg.Storage.Driver)
	}

	return &cfg, nil
}
