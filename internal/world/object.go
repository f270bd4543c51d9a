package world

import (
	"github.com/l1jgo/simkernel/internal/core/ecs"
	"github.com/l1jgo/simkernel/internal/pipeline"
)

// Object is the unit of simulation. Every object is a scene graph node;
// spatial and physical state are optional components chosen by its Kind.
// Accessed only from the simulation loop goroutine, no locks.
type Object struct {
	id          ecs.EntityID
	kind        Kind
	name        string
	kernel      *Kernel
	pool        *Pool // pool that built the object, kept across reuse
	initialized bool
	disposed    bool
	started     bool

	// Scene graph links, resolved through the owning kernel's slot table.
	parent        ecs.EntityID
	prev          ecs.EntityID
	next          ecs.EntityID
	first         ecs.EntityID
	last          ecs.EntityID
	index         int
	graphDirty    bool
	childrenDirty bool
	flat          []*Object
	flatSelf      bool

	ownLayer int  // layer this node declares (0 = inherit)
	layer    int  // effective layer, inherited through the graph
	rooted   bool // reachable from the kernel root

	Kin  *Kinematics // nil unless the kind is spatial
	Phys *Physics    // nil unless the kind is physical

	hooks Hooks
}

// Hooks are per-object callbacks. Nil hooks fall back to the kernel defaults.
type Hooks struct {
	OnInit func(o *Object)
	// OnUpdate runs every tick after the previous state was synced and
	// physical motion applied, before the movement diff.
	OnUpdate func(o *Object, dt float64)
	// OnCollided replaces Resolver.Respond for collisions this object causes.
	OnCollided func(source, target *Object)
	// OnOutsideGrid replaces the default detach-and-dispose policy.
	OnOutsideGrid func(o *Object, g *Grid)
}

// Option configures an object at creation time, before initialization.
type Option func(o *Object)

func WithName(name string) Option {
	return func(o *Object) { o.name = name }
}

func WithLayer(layer int) Option {
	return func(o *Object) {
		o.ownLayer = layer
		o.layer = layer
	}
}

func WithPosition(x, y float64) Option {
	return func(o *Object) {
		if o.Kin != nil {
			o.Kin.Current.Position = Vec2{X: x, Y: y}
		}
	}
}

func WithVelocity(vx, vy float64) Option {
	return func(o *Object) {
		if o.Phys != nil {
			o.Phys.Current.Velocity = Vec2{X: vx, Y: vy}
		}
	}
}

func WithMass(mass float64) Option {
	return func(o *Object) {
		if o.Phys != nil {
			o.Phys.Current.Mass = mass
		}
	}
}

func WithCollision(canCollide, unmovable bool) Option {
	return func(o *Object) {
		if o.Kin != nil {
			o.Kin.CanCollide = canCollide
			o.Kin.Unmovable = unmovable
		}
	}
}

// WithHistory retains the last n positions of the object (0 = off).
func WithHistory(n int) Option {
	return func(o *Object) {
		if o.Kin != nil {
			o.Kin.HistoryMax = n
		}
	}
}

func WithHooks(h Hooks) Option {
	return func(o *Object) { o.hooks = h }
}

func (o *Object) ID() ecs.EntityID  { return o.id }
func (o *Object) Kind() Kind        { return o.kind }
func (o *Object) Name() string      { return o.name }
func (o *Object) Kernel() *Kernel   { return o.kernel }
func (o *Object) Initialized() bool { return o.initialized }
func (o *Object) Disposed() bool    { return o.disposed }
func (o *Object) Started() bool     { return o.started }
func (o *Object) Layer() int        { return o.layer }
func (o *Object) Rooted() bool      { return o.rooted }

// Init runs the initialization hook once per acquisition. Calling it again,
// directly or through a cycle of objects initializing each other, is a no-op.
func (o *Object) Init() {
	if o.initialized || o.disposed {
		return
	}
	o.initialized = true
	if k := o.kernel; k != nil {
		if o.Kin != nil && o.Kin.HistoryMax > 0 {
			k.history.Set(o.id, newHistory(o.Kin.HistoryMax))
		}
		if o.Phys != nil {
			o.Phys.refresh(k.dt)
		}
	}
	if o.hooks.OnInit != nil {
		o.hooks.OnInit(o)
	}
}

// Position returns the current position, or the zero vector for non-spatial objects.
func (o *Object) Position() Vec2 {
	if o.Kin == nil {
		return Vec2{}
	}
	return o.Kin.Current.Position
}

// SetPosition moves the object within the current tick; the grid catches up
// when the tick's movement diff runs.
func (o *Object) SetPosition(x, y float64) {
	if o.Kin != nil {
		o.Kin.Current.Position = Vec2{X: x, Y: y}
	}
}

// Teleport places the object without a movement diff or collision checks.
func (o *Object) Teleport(x, y float64) {
	if o.Kin == nil {
		return
	}
	o.Kin.Current.Position = Vec2{X: x, Y: y}
	o.Kin.Previous.Position = o.Kin.Current.Position
	if o.started && o.kernel != nil {
		o.kernel.grid.place(o)
	}
}

// History returns the retained positions, oldest first.
func (o *Object) History() (*History, bool) {
	if o.kernel == nil {
		return nil, false
	}
	return o.kernel.history.Get(o.id)
}

// PostUpdate applies row of a finished pipeline batch. It reports false when
// the row does not belong to this object or the object cannot take forces.
func (o *Object) PostUpdate(rows []pipeline.Result, row int, kind pipeline.Kind) bool {
	if o.Phys == nil || o.disposed || row < 0 || row >= len(rows) {
		return false
	}
	r := rows[row]
	if r.ID != o.id {
		return false
	}
	p := &o.Phys.Current
	p.NetForce = Vec2{X: r.ForceX, Y: r.ForceY}
	if o.Kin.Unmovable {
		return true
	}
	p.Velocity = p.Velocity.Add(Vec2{X: r.DeltaVX, Y: r.DeltaVY})
	dt := 0.0
	if o.kernel != nil {
		dt = o.kernel.dt
	}
	o.Phys.refresh(dt)
	o.Phys.lastPipeline = kind
	return true
}
