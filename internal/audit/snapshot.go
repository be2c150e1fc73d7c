package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/postgres"
)

// SnapshotStore persists compile statistics in PostgreSQL.
//
// It uses a `compile_stats_snapshots` table:
//
//	CREATE TABLE compile_stats_snapshots (
//	    id          BIGSERIAL PRIMARY KEY,
//	    data        JSONB NOT NULL,
//	    captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type SnapshotStore struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewSnapshotStore(db *postgres.Client) *SnapshotStore {
	return &SnapshotStore{
		db:     db,
		logger: slog.Default().With("component", "stats-store"),
	}
}

const snapshotSchema = `CREATE TABLE IF NOT EXISTS compile_stats_snapshots (
	id          BIGSERIAL PRIMARY KEY,
	data        JSONB NOT NULL,
	captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

func (s *SnapshotStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, snapshotSchema); err != nil {
		return fmt.Errorf("creating compile_stats_snapshots: %w", err)
	}
	return nil
}

// SaveSnapshot stores one Stats value.
func (s *SnapshotStore) SaveSnapshot(ctx context.Context, stats Stats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}
	_, err = s.db.DB.ExecContext(ctx,
		`INSERT INTO compile_stats_snapshots (data, captured_at) VALUES ($1, $2)`,
		data, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving stats snapshot: %w", err)
	}
	s.logger.Debug("stats snapshot saved", "total_compiles", stats.TotalCompiles, "rejected", stats.Rejected)
	return nil
}

// LatestSnapshot loads the newest snapshot, or nil when none exists.
func (s *SnapshotStore) LatestSnapshot(ctx context.Context) (*Stats, error) {
	var data []byte
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT data FROM compile_stats_snapshots ORDER BY captured_at DESC LIMIT 1`,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest snapshot: %w", err)
	}

	var stats Stats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return &stats, nil
}

type SnapshotSaver interface {
	SaveSnapshot(ctx context.Context, stats Stats) error
}

// RunSnapshots saves the aggregator's stats every interval until ctx is
// done, then saves a final snapshot. Ticks with no new compiles are skipped.
func RunSnapshots(ctx context.Context, saver SnapshotSaver, agg *Aggregator, interval time.Duration) {
	log := logger.WithComponent("stats-snapshots")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var saved int64 = -1
	save := func(ctx context.Context) {
		stats := agg.Stats()
		if stats.TotalCompiles == saved {
			return
		}
		if err := saver.SaveSnapshot(ctx, stats); err != nil {
			log.Error("stats snapshot failed", "error", err)
			return
		}
		saved = stats.TotalCompiles
	}

	for {
		select {
		case <-ticker.C:
			save(ctx)
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			save(shutdownCtx)
			cancel()
			return
		}
	}
}
