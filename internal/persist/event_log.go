package persist

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// EventRow is one kernel event in the append-only event log.
type EventRow struct {
	Run      string
	Tick     uint64
	Kind     string // "collided", "left_grid", "disposed"
	SourceID uint64
	TargetID uint64
	Axis     int16
	X, Y     int32
}

type EventLogRepo struct {
	db *DB
}

func NewEventLogRepo(db *DB) *EventLogRepo {
	return &EventLogRepo{db: db}
}

// WriteEvents atomically writes a batch of events in a single transaction.
func (r *EventLogRepo) WriteEvents(ctx context.Context, entries []EventRow) error {
	return r.db.InTx(ctx, func(tx pgx.Tx) error {
		for _, e := range entries {
			if _, err := tx.Exec(ctx,
				`INSERT INTO event_log (run, tick, kind, source_id, target_id, axis, x, y)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				e.Run, int64(e.Tick), e.Kind, int64(e.SourceID), int64(e.TargetID), e.Axis, e.X, e.Y,
			); err != nil {
				return fmt.Errorf("event log insert: %w", err)
			}
		}
		return nil
	})
}
