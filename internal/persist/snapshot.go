package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/l1jgo/simkernel/internal/world"
)

// ObjectRow is one object in a snapshot.
type ObjectRow struct {
	EntityID uint64
	ParentID uint64
	Kind     int16
	Name     string
	Layer    int32
	X, Y     float64
	VX, VY   float64
	Mass     float64
}

// Snapshot is the state of every rooted object at one tick.
type Snapshot struct {
	Run     string
	Tick    uint64
	Objects []ObjectRow
}

// Capture builds a snapshot of the kernel's rooted graph in preorder. The
// root itself is not included.
func Capture(k *world.Kernel, run string) *Snapshot {
	flat := k.Root().Flatten(false)
	s := &Snapshot{Run: run, Tick: k.Tick(), Objects: make([]ObjectRow, 0, len(flat))}
	for _, o := range flat {
		row := ObjectRow{
			EntityID: uint64(o.ID()),
			Kind:     int16(o.Kind()),
			Name:     o.Name(),
			Layer:    int32(o.Layer()),
		}
		if p := o.Parent(); p != nil {
			row.ParentID = uint64(p.ID())
		}
		pos := o.Position()
		row.X, row.Y = pos.X, pos.Y
		if o.Phys != nil {
			row.VX, row.VY = o.Phys.Current.Velocity.X, o.Phys.Current.Velocity.Y
			row.Mass = o.Phys.Current.Mass
		}
		s.Objects = append(s.Objects, row)
	}
	return s
}

var snapshotColumns = []string{
	"snapshot_id", "entity_id", "parent_id", "kind", "name", "layer", "x", "y", "vx", "vy", "mass", "seq",
}

// copyRows lays the objects out in snapshotColumns order.
func (s *Snapshot) copyRows(snapshotID int64) [][]any {
	rows := make([][]any, len(s.Objects))
	for i, o := range s.Objects {
		rows[i] = []any{
			snapshotID, int64(o.EntityID), int64(o.ParentID), o.Kind, o.Name, o.Layer,
			o.X, o.Y, o.VX, o.VY, o.Mass, int32(i),
		}
	}
	return rows
}

// ErrNoSnapshot is returned when a run has no stored snapshot.
var ErrNoSnapshot = errors.New("no snapshot")

type SnapshotRepo struct {
	db *DB
}

func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// SaveSnapshot writes the header and bulk-copies the objects in a single
// transaction. Returns the snapshot id.
func (r *SnapshotRepo) SaveSnapshot(ctx context.Context, s *Snapshot) (int64, error) {
	var id int64
	err := r.db.InTx(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO snapshots (run, tick, object_count) VALUES ($1, $2, $3) RETURNING id`,
			s.Run, int64(s.Tick), len(s.Objects),
		).Scan(&id); err != nil {
			return fmt.Errorf("snapshot insert: %w", err)
		}
		if len(s.Objects) == 0 {
			return nil
		}
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"snapshot_objects"},
			snapshotColumns,
			pgx.CopyFromRows(s.copyRows(id)),
		); err != nil {
			return fmt.Errorf("snapshot copy: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// LoadLatest returns the newest snapshot of a run.
func (r *SnapshotRepo) LoadLatest(ctx context.Context, run string) (*Snapshot, error) {
	var (
		id   int64
		tick int64
	)
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, tick FROM snapshots WHERE run = $1 ORDER BY tick DESC, id DESC LIMIT 1`, run,
	).Scan(&id, &tick)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w for run %q", ErrNoSnapshot, run)
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot latest: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx,
		`SELECT entity_id, parent_id, kind, name, layer, x, y, vx, vy, mass
		 FROM snapshot_objects WHERE snapshot_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("snapshot objects: %w", err)
	}
	defer rows.Close()

	s := &Snapshot{Run: run, Tick: uint64(tick)}
	for rows.Next() {
		var (
			o                ObjectRow
			entityID, parent int64
		)
		if err := rows.Scan(&entityID, &parent, &o.Kind, &o.Name, &o.Layer,
			&o.X, &o.Y, &o.VX, &o.VY, &o.Mass); err != nil {
			return nil, fmt.Errorf("scan snapshot object: %w", err)
		}
		o.EntityID, o.ParentID = uint64(entityID), uint64(parent)
		s.Objects = append(s.Objects, o)
	}
	return s, rows.Err()
}

// Prune keeps the newest keep snapshots of a run and deletes the rest.
func (r *SnapshotRepo) Prune(ctx context.Context, run string, keep int) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM snapshots WHERE run = $1 AND id NOT IN (
		     SELECT id FROM snapshots WHERE run = $1 ORDER BY tick DESC, id DESC LIMIT $2)`,
		run, keep,
	)
	if err != nil {
		return 0, fmt.Errorf("snapshot prune: %w", err)
	}
	return tag.RowsAffected(), nil
}
