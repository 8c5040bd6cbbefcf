package stores

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"

	"github.com/verdant-dev/verdant/pkg/engine"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements engine.StatusCache using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	return &SQLiteStore{
		path: cfg.Path,
	}, nil
}

// Init opens the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Get returns the cached status for the given key. A missing row, or a row
// persisted under a different config hash, is a cache miss and returns nil.
func (s *SQLiteStore) Get(ctx context.Context, project, environment, provider, configHash string) (*engine.ProviderStatus, error) {
	query := `
		SELECT provider, environment, config_hash, ready, outputs, log, cached_at
		FROM provider_statuses
		WHERE project = ? AND environment = ? AND provider = ? AND config_hash = ?
	`

	var (
		status  engine.ProviderStatus
		ready   int
		outputs sql.NullString
		log     sql.NullString
	)

	err := s.db.QueryRowContext(ctx, query, project, environment, provider, configHash).Scan(
		&status.Provider,
		&status.Environment,
		&status.ConfigHash,
		&ready,
		&outputs,
		&log,
		&status.CachedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get provider status: %w", err)
	}

	status.Ready = ready != 0
	status.Log = log.String

	if outputs.Valid && outputs.String != "" {
		if err := json.Unmarshal([]byte(outputs.String), &status.Outputs); err != nil {
			return nil, fmt.Errorf("failed to decode provider outputs: %w", err)
		}
	}

	return &status, nil
}

// Put persists a provider status, replacing any previous status for the same
// (project, environment, provider).
func (s *SQLiteStore) Put(ctx context.Context, project string, status *engine.ProviderStatus) error {
	var outputs []byte
	if status.Outputs != nil {
		var err error
		outputs, err = json.Marshal(status.Outputs)
		if err != nil {
			return fmt.Errorf("failed to encode provider outputs: %w", err)
		}
	}

	query := `
		INSERT INTO provider_statuses (project, environment, provider, config_hash, ready, outputs, log, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (project, environment, provider) DO UPDATE SET
			config_hash = excluded.config_hash,
			ready = excluded.ready,
			outputs = excluded.outputs,
			log = excluded.log,
			cached_at = excluded.cached_at
	`

	ready := 0
	if status.Ready {
		ready = 1
	}

	_, err := s.db.ExecContext(ctx, query,
		project,
		status.Environment,
		status.Provider,
		status.ConfigHash,
		ready,
		string(outputs),
		status.Log,
		status.CachedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to put provider status: %w", err)
	}

	return nil
}

// Invalidate removes all cached statuses for a project environment.
func (s *SQLiteStore) Invalidate(ctx context.Context, project, environment string) error {
	query := `DELETE FROM provider_statuses WHERE project = ? AND environment = ?`

	if _, err := s.db.ExecContext(ctx, query, project, environment); err != nil {
		return fmt.Errorf("failed to invalidate provider statuses: %w", err)
	}

	return nil
}

// ListStatuses returns every cached status for a project environment,
// regardless of config hash. Used by status listings.
func (s *SQLiteStore) ListStatuses(ctx context.Context, project, environment string) ([]*engine.ProviderStatus, error) {
	query := `
		SELECT provider, environment, config_hash, ready, outputs, log, cached_at
		FROM provider_statuses
		WHERE project = ? AND environment = ?
		ORDER BY provider
	`

	rows, err := s.db.QueryContext(ctx, query, project, environment)
	if err != nil {
		return nil, fmt.Errorf("failed to list provider statuses: %w", err)
	}
	defer rows.Close()

	var statuses []*engine.ProviderStatus
	for rows.Next() {
		var (
			status  engine.ProviderStatus
			ready   int
			outputs sql.NullString
			log     sql.NullString
		)
		if err := rows.Scan(
			&status.Provider,
			&status.Environment,
			&status.ConfigHash,
			&ready,
			&outputs,
			&log,
			&status.CachedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan provider status: %w", err)
		}

		status.Ready = ready != 0
		status.Log = log.String
		if outputs.Valid && outputs.String != "" {
			if err := json.Unmarshal([]byte(outputs.String), &status.Outputs); err != nil {
				return nil, fmt.Errorf("failed to decode provider outputs: %w", err)
			}
		}

		statuses = append(statuses, &status)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate provider statuses: %w", err)
	}

	return statuses, nil
}
