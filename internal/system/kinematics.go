package system

import (
	"time"

	coresys "github.com/l1jgo/simkernel/internal/core/system"
	"github.com/l1jgo/simkernel/internal/world"
)

// KinematicsSystem advances every rooted object one tick: flatten, sync,
// advance, diff, grid transfer with collision checks, and pipeline input.
// Phase 1 (Update).
type KinematicsSystem struct {
	kernel *world.Kernel
}

func NewKinematicsSystem(k *world.Kernel) *KinematicsSystem {
	return &KinematicsSystem{kernel: k}
}

func (s *KinematicsSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *KinematicsSystem) Update(_ time.Duration) {
	s.kernel.Update()
}
