package world

import (
	"math/rand"

	"go.uber.org/zap"

	"github.com/l1jgo/simkernel/internal/core/ecs"
	"github.com/l1jgo/simkernel/internal/core/event"
	"github.com/l1jgo/simkernel/internal/physics"
)

// Resolver decides whether a cell transition is blocked and applies the
// velocity response. The rng is seeded per kernel so runs are reproducible.
type Resolver struct {
	k   *Kernel
	cfg CollisionConfig
	rng *rand.Rand
}

func newResolver(k *Kernel, cfg CollisionConfig, seed int64) *Resolver {
	return &Resolver{k: k, cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

func (r *Resolver) Config() CollisionConfig { return r.cfg }

// occupied reports whether cell i is in bounds, is not the mover's own cell
// and holds at least one object.
func (r *Resolver) occupied(o *Object, i int) bool {
	return i >= 0 && i != o.Kin.cell && r.k.grid.cells[i].Len() > 0
}

func (r *Resolver) firstIn(i int) *Object {
	return r.k.obj(r.k.grid.cells[i].objects[0])
}

// Axes tests the cells a move from the previous to the current floored
// position would cross. It returns the rejected axes and the cell holding
// the blocking object, or AxisNone and -1.
func (r *Resolver) Axes(o *Object) (event.Axis, int) {
	g := r.k.grid
	kin := o.Kin
	px, py := kin.Previous.Position.Floor()
	cx, cy := kin.Current.Position.Floor()

	h := g.cellIndex(cx, py)
	v := g.cellIndex(px, cy)
	d := g.cellIndex(cx, cy)
	hOcc, vOcc := r.occupied(o, h), r.occupied(o, v)

	switch {
	case hOcc && vOcc:
		if r.occupied(o, d) {
			return event.AxisBoth, d
		}
		return event.AxisBoth, h
	case hOcc:
		return event.AxisHorizontal, h
	case vOcc:
		return event.AxisVertical, v
	case r.occupied(o, d):
		// Diagonal step between two free cells into an occupied one.
		return event.AxisBoth, d
	}
	return event.AxisNone, -1
}

// check runs the axis test for o and, on a hit, the collision response.
// Reports whether any axis was rejected.
func (r *Resolver) check(o *Object) bool {
	axis, cell := r.Axes(o)
	if axis == event.AxisNone {
		return false
	}
	r.collide(o, r.firstIn(cell), axis)
	return true
}

func (r *Resolver) collide(o, target *Object, axis event.Axis) {
	if o.hooks.OnCollided != nil {
		o.hooks.OnCollided(o, target)
	} else {
		r.Respond(o, target)
	}
	if o.disposed {
		return
	}

	if p := o.Phys; p != nil {
		v := &p.Current.Velocity
		switch axis {
		case event.AxisBoth:
			v.X *= r.cfg.StrongDamping
			v.Y *= r.cfg.StrongDamping
		case event.AxisHorizontal:
			v.X *= r.cfg.StrongDamping
			v.Y *= r.cfg.ModerateDamping
		case event.AxisVertical:
			v.X *= r.cfg.ModerateDamping
			v.Y *= r.cfg.StrongDamping
		}
		p.refresh(r.k.dt)
	}

	kin := o.Kin
	if axis&event.AxisHorizontal != 0 {
		kin.Current.Position.X = kin.Previous.Position.X
	}
	if axis&event.AxisVertical != 0 {
		kin.Current.Position.Y = kin.Previous.Position.Y
	}
	kin.Update()

	tid := ecs.InvalidID
	if target != nil {
		tid = target.id
	}
	event.Emit(r.k.bus, event.Collided{Source: o.id, Target: tid, Axis: axis, Tick: r.k.tick})

	if r.cfg.DuplicateOnCollision {
		r.duplicate(o)
	}
}

// Respond is the default collision response. An immovable or massless target
// reflects the source; otherwise both bodies exchange velocity per axis as a
// 1D elastic collision, damped and jittered.
func (r *Resolver) Respond(source, target *Object) {
	sp := source.Phys
	if sp == nil {
		return
	}
	s := &sp.Current
	damp := r.cfg.ExchangeDamping

	if target == nil || target.Phys == nil || target.Kin.Unmovable || target.Phys.Current.Mass <= 0 {
		dir := source.Kin.Current.Direction
		s.Velocity.X = physics.Reflect(s.Velocity.X, dir.X) * damp
		s.Velocity.Y = physics.Reflect(s.Velocity.Y, dir.Y) * damp
		sp.refresh(r.k.dt)
		return
	}

	tp := target.Phys
	t := &tp.Current
	sx, tx := physics.ElasticExchange(s.Mass, s.Velocity.X, t.Mass, t.Velocity.X)
	sy, ty := physics.ElasticExchange(s.Mass, s.Velocity.Y, t.Mass, t.Velocity.Y)
	s.Velocity = Vec2{X: sx*damp + r.jitter(), Y: sy*damp + r.jitter()}
	t.Velocity = Vec2{X: tx*damp + r.jitter(), Y: ty*damp + r.jitter()}
	sp.refresh(r.k.dt)
	tp.refresh(r.k.dt)
}

func (r *Resolver) jitter() float64 {
	if r.cfg.Jitter == 0 {
		return 0
	}
	return (r.rng.Float64()*2 - 1) * r.cfg.Jitter
}

// duplicate clones o at its previous position under the same parent.
func (r *Resolver) duplicate(o *Object) {
	prev := o.Kin.Previous.Position
	opts := []Option{
		WithPosition(prev.X, prev.Y),
		WithLayer(o.ownLayer),
		WithCollision(o.Kin.CanCollide, o.Kin.Unmovable),
	}
	if p := o.Phys; p != nil {
		opts = append(opts, WithMass(p.Current.Mass), WithVelocity(p.Current.Velocity.X, p.Current.Velocity.Y))
	}
	if _, err := r.k.Spawn(o.kind, o.Parent(), opts...); err != nil {
		r.k.log.Debug("collision duplicate failed", zap.Error(err))
	}
}
