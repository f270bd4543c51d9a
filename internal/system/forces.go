package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/l1jgo/simkernel/internal/core/system"
	"github.com/l1jgo/simkernel/internal/pipeline"
	"github.com/l1jgo/simkernel/internal/world"
)

// ForceSubmitSystem hands this tick's input batch to the pipeline. While a
// batch is still outstanding the new one is skipped, never queued.
// Phase 2 (Submit).
type ForceSubmitSystem struct {
	kernel *world.Kernel
	disp   *pipeline.Dispatcher
}

func NewForceSubmitSystem(k *world.Kernel, d *pipeline.Dispatcher) *ForceSubmitSystem {
	return &ForceSubmitSystem{kernel: k, disp: d}
}

func (s *ForceSubmitSystem) Phase() coresys.Phase { return coresys.PhaseSubmit }

func (s *ForceSubmitSystem) Update(_ time.Duration) {
	in := s.kernel.Inputs()
	if len(in) == 0 {
		return
	}
	if s.disp.Submit(s.kernel.Tick(), in, s.kernel.DT()) {
		s.kernel.SwapInputs()
	}
}

// ForceApplySystem applies a finished pipeline batch, if any, to the bodies
// that are still alive. Phase 4 (PostUpdate).
type ForceApplySystem struct {
	kernel *world.Kernel
	disp   *pipeline.Dispatcher
	log    *zap.Logger
}

func NewForceApplySystem(k *world.Kernel, d *pipeline.Dispatcher, log *zap.Logger) *ForceApplySystem {
	return &ForceApplySystem{kernel: k, disp: d, log: log}
}

func (s *ForceApplySystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *ForceApplySystem) Update(_ time.Duration) {
	job := s.disp.Poll()
	if job == nil || job.Err != nil {
		return
	}
	applied := s.kernel.ApplyResults(job.Results, job.Kind)
	if applied < len(job.Results) {
		s.log.Debug("丟棄過期力場結果",
			zap.Uint64("submitted", job.Tick),
			zap.Uint64("tick", s.kernel.Tick()),
			zap.Int("dropped", len(job.Results)-applied))
	}
}
