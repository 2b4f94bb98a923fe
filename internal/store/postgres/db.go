package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const (
	dbStatementTimeoutDefaultMS = 30000
	dbStatementTimeoutMaxMS     = 3_600_000

	defaultConnMaxIdleTime = 2 * time.Minute
	pingTimeout            = 10 * time.Second

	// DefaultQueryTimeout is applied to individual non-transactional queries
	// to prevent runaway SQL from holding connections indefinitely.
	DefaultQueryTimeout = 30 * time.Second

	// LongQueryTimeout bounds migrations.
	LongQueryTimeout = 5 * time.Minute
)

// withTimeout returns a child context that will be cancelled after d.
// Callers must defer the returned CancelFunc.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d)
}

type DB struct {
	*sql.DB
}

type Config struct {
	URL                string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    time.Duration
	ConnMaxIdleTime    time.Duration
	StatementTimeoutMS int
}

func New(cfg Config) (*DB, error) {
	timeoutMS, err := statementTimeout(cfg.StatementTimeoutMS)
	if err != nil {
		return nil, err
	}
	dsn, err := withStatementTimeout(cfg.URL, timeoutMS)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	if cfg.ConnMaxIdleTime <= 0 {
		cfg.ConnMaxIdleTime = defaultConnMaxIdleTime
	}
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := withTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return &DB{db}, nil
}

// statementTimeout maps 0 to the default; the value is in milliseconds.
func statementTimeout(ms int) (int, error) {
	if ms == 0 {
		return dbStatementTimeoutDefaultMS, nil
	}
	if ms < 0 || ms > dbStatementTimeoutMaxMS {
		return 0, fmt.Errorf("statement timeout %dms out of range (0, %d]", ms, dbStatementTimeoutMaxMS)
	}
	return ms, nil
}

// withStatementTimeout sets statement_timeout through the libpq options
// parameter so every pooled connection carries it. Both URL and keyword/value
// DSNs are accepted.
func withStatementTimeout(dsn string, timeoutMS int) (string, error) {
	opt := "-c statement_timeout=" + strconv.Itoa(timeoutMS)
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		if strings.Contains(dsn, "options=") {
			return "", errors.New("keyword dsn with options is not supported, use a postgres:// url")
		}
		return strings.TrimSpace(dsn + " options='" + opt + "'"), nil
	}

	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse db url: %w", err)
	}
	q := u.Query()
	if existing := q.Get("options"); existing != "" {
		opt = existing + " " + opt
	}
	q.Set("options", opt)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}

// RunMigrations applies the embedded migrations. A dirty schema is forced
// back one version and retried.
func (db *DB) RunMigrations(logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	driver, err := migratepg.WithInstance(db.DB, &migratepg.Config{
		StatementTimeout: LongQueryTimeout,
	})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}

	before, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		logger.Info("database schema empty, applying migrations")
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case dirty:
		logger.Warn("database schema dirty, forcing previous version", "version", before)
		if err := m.Force(int(before) - 1); err != nil {
			return fmt.Errorf("force version %d: %w", int(before)-1, err)
		}
	}

	start := time.Now()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	after, _, err := m.Version()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	logger.Info("migrations completed", "from", before, "to", after, "elapsed", time.Since(start).String())
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique_violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
