package pipeline

import (
	"context"

	"github.com/l1jgo/simkernel/internal/scripting"
)

// Script runs a user-defined force law from the Lua engine.
type Script struct {
	Engine *scripting.Engine
}

func (s *Script) Kind() Kind { return KindScript }

func (s *Script) Compute(ctx context.Context, in []Input, dt float64) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bodies := make([]scripting.Body, len(in))
	for i, r := range in {
		bodies[i] = scripting.Body{Mass: r.Mass, X: r.X, Y: r.Y}
	}
	forces, err := s.Engine.ComputeForces(bodies, dt)
	if err != nil {
		return nil, err
	}
	out := make([]Result, len(in))
	for i, f := range forces {
		out[i] = Result{ID: in[i].ID, DeltaVX: f.DVX, DeltaVY: f.DVY, ForceX: f.FX, ForceY: f.FY}
	}
	return out, nil
}
