package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/simkernel/internal/core/ecs"
	"github.com/l1jgo/simkernel/internal/scripting"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestGravityPullsBodiesTogether(t *testing.T) {
	g := &Gravity{G: 1, Workers: 2}
	in := []Input{
		{ID: ecs.NewEntityID(0, 1), Mass: 1, X: 0, Y: 0},
		{ID: ecs.NewEntityID(1, 1), Mass: 1, X: 2, Y: 0},
	}
	out, err := g.Compute(context.Background(), in, 1)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if out[0].ID != in[0].ID || out[1].ID != in[1].ID {
		t.Fatalf("rows must keep input ids")
	}
	// |a| = G*m/d^2 = 0.25
	if !near(out[0].DeltaVX, 0.25) || !near(out[1].DeltaVX, -0.25) {
		t.Fatalf("expected +-0.25, got %v and %v", out[0].DeltaVX, out[1].DeltaVX)
	}
	if out[0].DeltaVY != 0 || out[1].DeltaVY != 0 {
		t.Fatalf("expected no vertical pull")
	}
}

func TestGravityChunksMatchSerial(t *testing.T) {
	in := make([]Input, 37)
	for i := range in {
		in[i] = Input{ID: ecs.NewEntityID(uint32(i), 1), Mass: float64(i%5 + 1), X: float64(i * 3 % 11), Y: float64(i * 7 % 13)}
	}
	serial, err := (&Gravity{G: 2, Softening: 0.1, Workers: 1}).Compute(context.Background(), in, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	parallel, err := (&Gravity{G: 2, Softening: 0.1, Workers: 8}).Compute(context.Background(), in, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	for i := range serial {
		if serial[i] != parallel[i] {
			t.Fatalf("row %d differs: %+v vs %+v", i, serial[i], parallel[i])
		}
	}
}

func TestGravityCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Gravity{G: 1}).Compute(ctx, make([]Input, 4), 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestScriptKeepsRowIDs(t *testing.T) {
	e, err := scripting.NewEngineSource(`
function compute_forces(bodies, dt)
  local out = {}
  for i, b in ipairs(bodies) do out[i] = { dvx = b.x * dt, dvy = 0 } end
  return out
end`, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	s := &Script{Engine: e}
	in := []Input{{ID: ecs.NewEntityID(4, 2), X: 3}, {ID: ecs.NewEntityID(9, 1), X: -2}}
	out, err := s.Compute(context.Background(), in, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if out[0].ID != in[0].ID || out[1].ID != in[1].ID {
		t.Fatalf("ids not carried over: %+v", out)
	}
	if out[0].DeltaVX != 1.5 || out[1].DeltaVX != -1 {
		t.Fatalf("unexpected deltas: %+v", out)
	}
}

type blocking struct {
	release chan struct{}
}

func (b *blocking) Kind() Kind { return KindGravity }

func (b *blocking) Compute(ctx context.Context, in []Input, dt float64) ([]Result, error) {
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	out := make([]Result, len(in))
	for i := range in {
		out[i].ID = in[i].ID
	}
	return out, nil
}

func waitJob(t *testing.T, d *Dispatcher) *Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if job := d.Poll(); job != nil {
			return job
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("job did not finish")
	return nil
}

func TestDispatcherSkipsWhileBusy(t *testing.T) {
	p := &blocking{release: make(chan struct{})}
	d := NewDispatcher(p, zap.NewNop())
	defer d.Close()

	if !d.Submit(1, []Input{{ID: ecs.NewEntityID(0, 1)}}, 1) {
		t.Fatalf("first submit must start")
	}
	if d.Submit(2, nil, 1) {
		t.Fatalf("submit while busy must be skipped")
	}
	if d.Skipped() != 1 {
		t.Fatalf("expected 1 skipped, got %d", d.Skipped())
	}
	if d.Poll() != nil {
		t.Fatalf("no job should be ready yet")
	}

	close(p.release)
	job := waitJob(t, d)
	if job.Tick != 1 || len(job.Results) != 1 || job.Err != nil {
		t.Fatalf("unexpected job %+v", job)
	}
	if d.Poll() != nil {
		t.Fatalf("a job must be handed out only once")
	}
	if !d.Submit(3, nil, 1) {
		t.Fatalf("submit after poll must start")
	}
	waitJob(t, d)
}

func TestDispatcherReportsErrors(t *testing.T) {
	e, err := scripting.NewEngineSource(`x = 1`, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	d := NewDispatcher(&Script{Engine: e}, zap.NewNop())
	defer d.Close()
	d.Submit(7, []Input{{}}, 1)
	job := waitJob(t, d)
	if !errors.Is(job.Err, scripting.ErrNoForceLaw) {
		t.Fatalf("expected ErrNoForceLaw, got %v", job.Err)
	}
	if job.Kind != KindScript {
		t.Fatalf("expected script kind, got %v", job.Kind)
	}
}
