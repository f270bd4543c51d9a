package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/l1jgo/simkernel/internal/core/system"
	"github.com/l1jgo/simkernel/internal/world"
)

// CleanupSystem flushes the deferred disposal queue at tick end and keeps a
// running count of objects returned to the pool.
type CleanupSystem struct {
	kernel   *world.Kernel
	log      *zap.Logger
	disposed uint64
}

func NewCleanupSystem(k *world.Kernel, log *zap.Logger) *CleanupSystem {
	return &CleanupSystem{kernel: k, log: log}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	n := s.kernel.FlushDestroyed()
	if n == 0 {
		return
	}
	s.disposed += uint64(n)
	pool := s.kernel.Pool()
	s.log.Debug("回收物件",
		zap.Uint64("tick", s.kernel.Tick()),
		zap.Int("count", n),
		zap.Int("free_particles", pool.Free(world.KindParticle)),
		zap.Int("free_bodies", pool.Free(world.KindBody)),
	)
}

// Disposed returns how many objects the system has flushed so far.
func (s *CleanupSystem) Disposed() uint64 { return s.disposed }
