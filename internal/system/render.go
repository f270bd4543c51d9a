package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/l1jgo/simkernel/internal/core/system"
	"github.com/l1jgo/simkernel/internal/world"
)

// Renderer draws a frame. The kernel only promises that every object's
// state is final for the tick when Render is called.
type Renderer interface {
	Render(k *world.Kernel)
}

// LogRenderer is the headless renderer: it logs a one-line summary every
// Every ticks.
type LogRenderer struct {
	Log   *zap.Logger
	Every uint64
}

func (r *LogRenderer) Render(k *world.Kernel) {
	if r.Every == 0 || k.Tick()%r.Every != 0 {
		return
	}
	r.Log.Debug("frame",
		zap.Uint64("tick", k.Tick()),
		zap.Int("objects", k.Len()),
		zap.Int("pending_destroy", k.PendingDestruction()))
}

// RenderSystem hands the finished tick to the renderer. Phase 3 (Render).
type RenderSystem struct {
	kernel   *world.Kernel
	renderer Renderer
}

func NewRenderSystem(k *world.Kernel, r Renderer) *RenderSystem {
	return &RenderSystem{kernel: k, renderer: r}
}

func (s *RenderSystem) Phase() coresys.Phase { return coresys.PhaseRender }

func (s *RenderSystem) Update(_ time.Duration) {
	s.renderer.Render(s.kernel)
}
