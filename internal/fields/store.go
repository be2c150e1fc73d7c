package fields

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/resilience"
)

// PostgresStore persists the field map in PostgreSQL.
//
// It uses a `search_fields` table:
//
//	CREATE TABLE search_fields (
//	    name       TEXT PRIMARY KEY,
//	    raw_suffix TEXT NOT NULL DEFAULT '',
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type PostgresStore struct {
	db     *postgres.Client
	retry  resilience.RetryConfig
	logger *slog.Logger
}

func NewPostgresStore(db *postgres.Client) *PostgresStore {
	return &PostgresStore{
		db: db,
		retry: resilience.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Retryable:    retryable,
		},
		logger: slog.Default().With("component", "field-store"),
	}
}

const schema = `CREATE TABLE IF NOT EXISTS search_fields (
	name       TEXT PRIMARY KEY,
	raw_suffix TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating search_fields table: %w", err)
	}
	return nil
}

// Load reads the whole field map, retrying transient failures.
func (s *PostgresStore) Load(ctx context.Context) (Map, error) {
	var m Map
	err := resilience.Retry(ctx, "load-fields", s.retry, func() error {
		var err error
		m, err = s.load(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("field map loaded", "fields", len(m))
	return m, nil
}

func (s *PostgresStore) load(ctx context.Context) (Map, error) {
	rows, err := s.db.DB.QueryContext(ctx, `SELECT name, raw_suffix FROM search_fields ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying search_fields: %w", err)
	}
	defer rows.Close()

	m := make(Map)
	for rows.Next() {
		var name, suffix string
		if err := rows.Scan(&name, &suffix); err != nil {
			return nil, fmt.Errorf("scanning search_fields row: %w", err)
		}
		m[name] = suffix
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search_fields: %w", err)
	}
	return m, nil
}

// Replace swaps the stored field map for m in one transaction.
func (s *PostgresStore) Replace(ctx context.Context, m Map) error {
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM search_fields`); err != nil {
			return fmt.Errorf("clearing search_fields: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, pq.CopyIn("search_fields", "name", "raw_suffix"))
		if err != nil {
			return fmt.Errorf("preparing copy: %w", err)
		}
		defer stmt.Close()
		for _, name := range m.Names() {
			if _, err := stmt.ExecContext(ctx, name, m[name]); err != nil {
				return fmt.Errorf("copying field %s: %w", name, err)
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			return fmt.Errorf("flushing copy: %w", err)
		}
		return nil
	})
}

// retryable treats SQL errors raised by the server, other than connection
// and resource classes, as permanent.
func retryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return true
	}
	switch pqErr.Code.Class() {
	case "08", "53", "57":
		return true
	default:
		return false
	}
}
