package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/synapsed-labs/swarmkit/trust"
)

// trustSchema is exactly the layout §6 specifies: one row per worker,
// capability_scores a serialized map. No cross-row invariants, so no
// foreign keys or triggers are needed.
const trustSchema = `
CREATE TABLE IF NOT EXISTS trust (
	worker_id         TEXT PRIMARY KEY,
	score             REAL NOT NULL,
	fulfilled         INTEGER NOT NULL,
	broken            INTEGER NOT NULL,
	expired           INTEGER NOT NULL,
	updated_at        INTEGER NOT NULL,
	capability_scores BLOB
);`

// SQLiteTrustStore is the §6 reference TrustStore: a pure-Go SQLite
// database (modernc.org/sqlite, no cgo) with exactly the schema the
// spec names.
type SQLiteTrustStore struct {
	db *sql.DB
}

// NewSQLiteTrustStore opens (creating if absent) a SQLite database at
// path and ensures the trust table exists.
func NewSQLiteTrustStore(path string) (*SQLiteTrustStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite trust store %s: %w", path, err)
	}
	if _, err := db.Exec(trustSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create trust table: %w", err)
	}
	return &SQLiteTrustStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteTrustStore) Close() error { return s.db.Close() }

func (s *SQLiteTrustStore) GetAll(ctx context.Context) (map[string]*trust.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT worker_id, score, fulfilled, broken, expired, updated_at, capability_scores FROM trust`)
	if err != nil {
		return nil, fmt.Errorf("query trust rows: %w", err)
	}
	defer rows.Close()

	out := map[string]*trust.Record{}
	for rows.Next() {
		var (
			workerID               string
			score                  float64
			fulfilled, broken, exp int
			updatedAtUnix          int64
			capBlob                []byte
		)
		if err := rows.Scan(&workerID, &score, &fulfilled, &broken, &exp, &updatedAtUnix, &capBlob); err != nil {
			return nil, fmt.Errorf("scan trust row: %w", err)
		}
		r := trust.NewRecord(workerID)
		r.Capabilities[""].Score = score
		r.Capabilities[""].Fulfilled = fulfilled
		r.Capabilities[""].Broken = broken
		r.Capabilities[""].Expired = exp
		r.Capabilities[""].UpdatedAt = time.Unix(updatedAtUnix, 0).UTC()

		if len(capBlob) > 0 {
			var caps map[string]*trust.CapabilityBucket
			if err := json.Unmarshal(capBlob, &caps); err != nil {
				return nil, fmt.Errorf("decode capability_scores for %s: %w", workerID, err)
			}
			for k, v := range caps {
				r.Capabilities[k] = v
			}
		}
		out[workerID] = r
	}
	return out, rows.Err()
}

func (s *SQLiteTrustStore) UpsertBatch(ctx context.Context, updates []*trust.Record) error {
	if len(updates) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin trust upsert transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trust (worker_id, score, fulfilled, broken, expired, updated_at, capability_scores)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(worker_id) DO UPDATE SET
			score=excluded.score, fulfilled=excluded.fulfilled, broken=excluded.broken,
			expired=excluded.expired, updated_at=excluded.updated_at, capability_scores=excluded.capability_scores`)
	if err != nil {
		return fmt.Errorf("prepare trust upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range updates {
		agg := r.Capabilities[""]
		named := make(map[string]*trust.CapabilityBucket, len(r.Capabilities))
		for k, v := range r.Capabilities {
			if k != "" {
				named[k] = v
			}
		}
		capBlob, err := json.Marshal(named)
		if err != nil {
			return fmt.Errorf("encode capability_scores for %s: %w", r.WorkerID, err)
		}
		if _, err := stmt.ExecContext(ctx, r.WorkerID, agg.Score, agg.Fulfilled, agg.Broken, agg.Expired,
			agg.UpdatedAt.Unix(), capBlob); err != nil {
			return fmt.Errorf("upsert trust row %s: %w", r.WorkerID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteTrustStore) Flush(context.Context) error { return nil }
