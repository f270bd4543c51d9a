package pipeline

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/l1jgo/simkernel/internal/physics"
)

// Gravity is the built-in pairwise force law: every body pulls every other
// body under a softened inverse-square law. Rows are split into contiguous
// chunks and evaluated in parallel.
type Gravity struct {
	G         float64
	Softening float64
	Workers   int // <= 0 uses GOMAXPROCS
}

func (g *Gravity) Kind() Kind { return KindGravity }

func (g *Gravity) Compute(ctx context.Context, in []Input, dt float64) ([]Result, error) {
	out := make([]Result, len(in))
	if len(in) == 0 {
		return out, nil
	}

	workers := g.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	chunk := (len(in) + workers - 1) / workers

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for lo := 0; lo < len(in); lo += chunk {
		lo, hi := lo, min(lo+chunk, len(in))
		eg.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				out[i] = g.row(in, i, dt)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *Gravity) row(in []Input, i int, dt float64) Result {
	a := in[i]
	var ax, ay float64
	for j := range in {
		if j == i || in[j].Mass == 0 {
			continue
		}
		b := in[j]
		dx, dy := physics.Softened(g.G, a.X, a.Y, b.X, b.Y, b.Mass, g.Softening)
		ax += dx
		ay += dy
	}
	return Result{
		ID:      a.ID,
		DeltaVX: ax * dt,
		DeltaVY: ay * dt,
		ForceX:  ax * a.Mass,
		ForceY:  ay * a.Mass,
	}
}
