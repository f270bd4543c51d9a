package system

import (
	"sort"
	"time"
)

// TickStats reports how the last ticks fit the tick budget.
type TickStats struct {
	Ticks     uint64
	Overruns  uint64 // ticks that took longer than dt
	Last      time.Duration
	Max       time.Duration
	LastPhase [phaseCount]time.Duration // per-phase time of the last tick
}

// Runner executes systems in phase order each tick. Systems sharing a phase
// run in registration order.
type Runner struct {
	systems []System
	sorted  bool
	stats   TickStats
	now     func() time.Time
}

func NewRunner() *Runner {
	return &Runner{
		systems: make([]System, 0, 16),
		now:     time.Now,
	}
}

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.sorted = false
}

// Tick runs every system once and reports whether the tick fit in dt.
func (r *Runner) Tick(dt time.Duration) bool {
	r.ensureSorted()
	clear(r.stats.LastPhase[:])

	start := r.now()
	mark := start
	for _, s := range r.systems {
		s.Update(dt)
		t := r.now()
		if p := s.Phase(); p >= 0 && p < phaseCount {
			r.stats.LastPhase[p] += t.Sub(mark)
		}
		mark = t
	}

	elapsed := mark.Sub(start)
	r.stats.Ticks++
	r.stats.Last = elapsed
	r.stats.Max = max(r.stats.Max, elapsed)
	if elapsed > dt {
		r.stats.Overruns++
		return false
	}
	return true
}

// TickPhase runs only the systems registered for phase. It does not touch
// the tick statistics.
func (r *Runner) TickPhase(phase Phase, dt time.Duration) {
	r.ensureSorted()
	for _, s := range r.systems {
		if s.Phase() == phase {
			s.Update(dt)
		}
	}
}

func (r *Runner) Stats() TickStats { return r.stats }

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].Phase() < r.systems[j].Phase()
		})
		r.sorted = true
	}
}
