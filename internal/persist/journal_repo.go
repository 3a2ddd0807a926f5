package persist

import (
	"context"
	"fmt"
	"time"
)

// Journal entry kinds.
const (
	KindConnected    = "connected"
	KindDisconnected = "disconnected"
	KindDebugToggle  = "debug_toggle"
)

// JournalEntry is one connection lifecycle row.
type JournalEntry struct {
	ConnID     string
	Kind       string
	RemoteAddr string
	DebugMode  bool // requested mode, debug_toggle rows only
	OccurredAt time.Time
}

type JournalRepo struct {
	db *DB
}

func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db}
}

// WriteBatch inserts entries in a single transaction.
func (r *JournalRepo) WriteBatch(ctx context.Context, entries []JournalEntry) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		if _, err := tx.Exec(ctx,
			`INSERT INTO connection_journal (conn_id, kind, remote_addr, debug_mode, occurred_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			e.ConnID, e.Kind, e.RemoteAddr, e.DebugMode, e.OccurredAt,
		); err != nil {
			return fmt.Errorf("journal insert: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// CountSince returns how many rows were written at or after t.
func (r *JournalRepo) CountSince(ctx context.Context, t time.Time) (int64, error) {
	var n int64
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM connection_journal WHERE occurred_at >= $1`, t,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("journal count: %w", err)
	}
	return n, nil
}
