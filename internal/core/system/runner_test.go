package system

import (
	"testing"
	"time"
)

type recordingSystem struct {
	name  string
	phase Phase
	log   *[]string
}

func (s *recordingSystem) Phase() Phase { return s.phase }

func (s *recordingSystem) Update(time.Duration) {
	*s.log = append(*s.log, s.name)
}

func TestRunnerOrdersByPhaseThenRegistration(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(&recordingSystem{name: "cleanup", phase: PhaseCleanup, log: &log})
	r.Register(&recordingSystem{name: "update-a", phase: PhaseUpdate, log: &log})
	r.Register(&recordingSystem{name: "events", phase: PhasePreUpdate, log: &log})
	r.Register(&recordingSystem{name: "update-b", phase: PhaseUpdate, log: &log})
	r.Register(&recordingSystem{name: "apply", phase: PhasePostUpdate, log: &log})
	r.Register(&recordingSystem{name: "submit", phase: PhaseSubmit, log: &log})

	r.Tick(50 * time.Millisecond)

	want := []string{"events", "update-a", "update-b", "submit", "apply", "cleanup"}
	if len(log) != len(want) {
		t.Fatalf("expected %v, got %v", want, log)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, log)
		}
	}
}

func TestRunnerTickPhase(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(&recordingSystem{name: "update", phase: PhaseUpdate, log: &log})
	r.Register(&recordingSystem{name: "render", phase: PhaseRender, log: &log})

	r.TickPhase(PhaseRender, time.Millisecond)
	if len(log) != 1 || log[0] != "render" {
		t.Fatalf("expected only render to run, got %v", log)
	}
}

type sleepSystem struct {
	phase Phase
	cost  time.Duration
	clock *time.Time
}

func (s *sleepSystem) Phase() Phase { return s.phase }

func (s *sleepSystem) Update(time.Duration) { *s.clock = s.clock.Add(s.cost) }

func TestRunnerTickStats(t *testing.T) {
	clock := time.Unix(0, 0)
	r := NewRunner()
	r.now = func() time.Time { return clock }
	r.Register(&sleepSystem{phase: PhaseRender, cost: 3 * time.Millisecond, clock: &clock})
	r.Register(&sleepSystem{phase: PhaseUpdate, cost: 5 * time.Millisecond, clock: &clock})
	r.Register(&sleepSystem{phase: PhaseUpdate, cost: 1 * time.Millisecond, clock: &clock})

	if !r.Tick(10 * time.Millisecond) {
		t.Fatalf("9ms tick must fit a 10ms budget")
	}
	st := r.Stats()
	if st.Last != 9*time.Millisecond || st.LastPhase[PhaseUpdate] != 6*time.Millisecond || st.LastPhase[PhaseRender] != 3*time.Millisecond {
		t.Fatalf("unexpected stats %+v", st)
	}

	if r.Tick(5 * time.Millisecond) {
		t.Fatalf("9ms tick must overrun a 5ms budget")
	}
	st = r.Stats()
	if st.Ticks != 2 || st.Overruns != 1 || st.Max != 9*time.Millisecond {
		t.Fatalf("unexpected stats %+v", st)
	}

	r.TickPhase(PhaseRender, time.Millisecond)
	if r.Stats().Ticks != 2 {
		t.Fatalf("TickPhase must not count as a tick")
	}
}

func TestPhaseString(t *testing.T) {
	if PhasePersist.String() != "persist" || Phase(99).String() != "unknown" {
		t.Fatalf("unexpected names %q %q", PhasePersist, Phase(99))
	}
}
