package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhasePreUpdate  Phase = iota // 0: deliver last tick's events
	PhaseUpdate                  // 1: flatten, advance, grid transfer + collisions
	PhaseSubmit                  // 2: hand the input batch to the force pipeline
	PhaseRender                  // 3: external renderer
	PhasePostUpdate              // 4: apply finished pipeline results
	PhasePersist                 // 5: tick snapshots
	PhaseCleanup                 // 6: destroy queued entities
	phaseCount
)

var phaseNames = [phaseCount]string{
	"pre_update", "update", "submit", "render", "post_update", "persist", "cleanup",
}

func (p Phase) String() string {
	if p < 0 || p >= phaseCount {
		return "unknown"
	}
	return phaseNames[p]
}

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
