package system

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/simkernel/internal/core/event"
	coresys "github.com/l1jgo/simkernel/internal/core/system"
	"github.com/l1jgo/simkernel/internal/persist"
	"github.com/l1jgo/simkernel/internal/world"
)

// SnapshotStore persists kernel snapshots.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, s *persist.Snapshot) (int64, error)
	Prune(ctx context.Context, run string, keep int) (int64, error)
}

// EventStore persists batches of kernel events.
type EventStore interface {
	WriteEvents(ctx context.Context, entries []persist.EventRow) error
}

// PersistenceSystem periodically snapshots the rooted graph and flushes the
// events collected since the last save. Phase 5 (Persist).
type PersistenceSystem struct {
	kernel    *world.Kernel
	snapshots SnapshotStore
	events    EventStore
	run       string
	log       *zap.Logger
	tickCount uint64
	interval  uint64 // save every N ticks
	keep      int    // snapshots retained per run, 0 = all
	pending   []persist.EventRow
}

// NewPersistenceSystem subscribes to the kernel bus so collisions, grid exits
// and disposals reach the event log. Either store may be nil.
func NewPersistenceSystem(k *world.Kernel, snapshots SnapshotStore, events EventStore, run string, intervalTicks uint64, log *zap.Logger) *PersistenceSystem {
	s := &PersistenceSystem{
		kernel:    k,
		snapshots: snapshots,
		events:    events,
		run:       run,
		log:       log,
		interval:  intervalTicks,
	}
	if events != nil {
		bus := k.Bus()
		event.Subscribe(bus, func(ev event.Collided) {
			s.pending = append(s.pending, persist.EventRow{
				Run: run, Tick: ev.Tick, Kind: "collided",
				SourceID: uint64(ev.Source), TargetID: uint64(ev.Target), Axis: int16(ev.Axis),
			})
		})
		event.Subscribe(bus, func(ev event.LeftGrid) {
			s.pending = append(s.pending, persist.EventRow{
				Run: run, Tick: ev.Tick, Kind: "left_grid",
				SourceID: uint64(ev.EntityID), X: int32(ev.X), Y: int32(ev.Y),
			})
		})
		event.Subscribe(bus, func(ev event.Disposed) {
			s.pending = append(s.pending, persist.EventRow{
				Run: run, Tick: ev.Tick, Kind: "disposed", SourceID: uint64(ev.EntityID),
			})
		})
	}
	return s
}

// KeepSnapshots prunes older snapshots of the run after each save.
func (s *PersistenceSystem) KeepSnapshots(n int) { s.keep = n }

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.SaveNow()
}

// Pending returns the number of buffered event rows.
func (s *PersistenceSystem) Pending() int { return len(s.pending) }

// Flush delivers the events still waiting on the bus, which the dispatch
// phase would only hand out on the next tick, then saves. Used on shutdown.
func (s *PersistenceSystem) Flush() {
	bus := s.kernel.Bus()
	bus.SwapBuffers()
	bus.DispatchAll()
	s.SaveNow()
}

// SaveNow writes a snapshot and flushes the event buffer immediately.
// Called for graceful shutdown as well.
func (s *PersistenceSystem) SaveNow() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.snapshots != nil {
		snap := persist.Capture(s.kernel, s.run)
		if _, err := s.snapshots.SaveSnapshot(ctx, snap); err != nil {
			s.log.Error("快照存檔失敗", zap.Uint64("tick", snap.Tick), zap.Error(err))
		} else {
			s.log.Debug("快照存檔完成", zap.Uint64("tick", snap.Tick), zap.Int("objects", len(snap.Objects)))
			if s.keep > 0 {
				if _, err := s.snapshots.Prune(ctx, s.run, s.keep); err != nil {
					s.log.Warn("舊快照清理失敗", zap.Error(err))
				}
			}
		}
	}

	if s.events != nil && len(s.pending) > 0 {
		if err := s.events.WriteEvents(ctx, s.pending); err != nil {
			s.log.Error("事件日誌寫入失敗", zap.Int("dropped", len(s.pending)), zap.Error(err))
		}
		clear(s.pending)
		s.pending = s.pending[:0]
	}
}
