package world

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/simkernel/internal/core/ecs"
	"github.com/l1jgo/simkernel/internal/core/event"
	"github.com/l1jgo/simkernel/internal/pipeline"
)

// CollisionConfig tunes the collision response.
type CollisionConfig struct {
	ExchangeDamping float64 // applied to the exchanged or reflected velocity
	StrongDamping   float64 // applied on every rejected axis
	ModerateDamping float64 // applied on the free axis of a single-axis rejection
	Jitter          float64 // half-width of the uniform noise added after an exchange
	// DuplicateOnCollision clones the moving object at its previous position
	// on every collision. Debug only.
	DuplicateOnCollision bool
}

func DefaultCollisionConfig() CollisionConfig {
	return CollisionConfig{
		ExchangeDamping: 0.9,
		StrongDamping:   0.5,
		ModerateDamping: 0.8,
		Jitter:          0.01,
	}
}

// Settings are fixed for the lifetime of a kernel.
type Settings struct {
	TickRate  time.Duration
	Collision CollisionConfig
	Seed      int64
}

func DefaultSettings() Settings {
	return Settings{
		TickRate:  50 * time.Millisecond,
		Collision: DefaultCollisionConfig(),
		Seed:      1,
	}
}

// Kernel owns one simulation: its entity table, object pool, scene graph
// root, spatial grid and collision resolver. Everything here runs on the
// simulation goroutine; only pipeline jobs leave it.
type Kernel struct {
	log *zap.Logger

	entities *ecs.World[*Object]
	history  *ecs.SparseStore[History]
	names    map[string]ecs.EntityID

	pool     *Pool
	root     *Object
	grid     *Grid
	resolver *Resolver
	bus      *event.Bus

	tickRate time.Duration
	dt       float64 // seconds per tick
	tick     uint64

	// Inputs alternate between two buffers so a submitted batch is never
	// rewritten while a pipeline still reads it.
	inputs [2][]pipeline.Input
	cur    int
}

func NewKernel(s Settings, log *zap.Logger) *Kernel {
	if s.TickRate <= 0 {
		s.TickRate = DefaultSettings().TickRate
	}
	k := &Kernel{
		log:      log,
		entities: ecs.NewWorld[*Object](),
		history:  ecs.NewSparseStore[History](),
		names:    make(map[string]ecs.EntityID),
		pool:     NewPool(),
		bus:      event.NewBus(),
		tickRate: s.TickRate,
		dt:       s.TickRate.Seconds(),
	}
	k.entities.Register(k.history)
	k.grid = &Grid{k: k}
	k.resolver = newResolver(k, s.Collision, s.Seed)

	root, err := k.pool.Create(KindGroup, true, k, WithName("root"))
	if err != nil {
		panic(err) // fresh kernel: the name cannot be taken
	}
	root.rooted = true
	root.started = true
	k.root = root
	return k
}

func (k *Kernel) Root() *Object            { return k.root }
func (k *Kernel) Pool() *Pool              { return k.pool }
func (k *Kernel) Grid() *Grid              { return k.grid }
func (k *Kernel) Bus() *event.Bus          { return k.bus }
func (k *Kernel) Resolver() *Resolver      { return k.resolver }
func (k *Kernel) Tick() uint64             { return k.tick }
func (k *Kernel) DT() float64              { return k.dt }
func (k *Kernel) TickRate() time.Duration  { return k.tickRate }
func (k *Kernel) Len() int                 { return k.entities.Slots().Len() }
func (k *Kernel) Log() *zap.Logger         { return k.log }
func (k *Kernel) Inputs() []pipeline.Input { return k.inputs[k.cur] }

// adopt gives o an id in this kernel and registers its unique name.
func (k *Kernel) adopt(o *Object) error {
	if o.name != "" {
		if _, ok := k.names[o.name]; ok {
			return fmt.Errorf("%w: %q", ErrNameTaken, o.name)
		}
	}
	o.id = k.entities.Spawn(o)
	o.kernel = k
	if o.name != "" {
		k.names[o.name] = o.id
	}
	return nil
}

func (k *Kernel) obj(id ecs.EntityID) *Object {
	if k == nil || id.IsZero() {
		return nil
	}
	o, _ := k.entities.Get(id)
	return o
}

// Create is Pool.Create owned by this kernel.
func (k *Kernel) Create(kind Kind, initialize bool, opts ...Option) (*Object, error) {
	return k.pool.Create(kind, initialize, k, opts...)
}

// Spawn creates and initializes an object and attaches it under parent, or
// under the root when parent is nil.
func (k *Kernel) Spawn(kind Kind, parent *Object, opts ...Option) (*Object, error) {
	o, err := k.pool.Create(kind, true, k, opts...)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		parent = k.root
	}
	if err := parent.Add(o); err != nil {
		k.pool.Dispose(o)
		return nil, err
	}
	return o, nil
}

func (k *Kernel) Dispose(o *Object) { k.pool.Dispose(o) }

func (k *Kernel) DisposeAll(objs []*Object, compact bool) []*Object {
	return k.pool.DisposeAll(objs, compact)
}

// Get resolves a live id.
func (k *Kernel) Get(id ecs.EntityID) (*Object, bool) {
	o := k.obj(id)
	return o, o != nil
}

// Lookup resolves a unique name.
func (k *Kernel) Lookup(name string) (*Object, bool) {
	id, ok := k.names[name]
	if !ok {
		return nil, false
	}
	return k.Get(id)
}

// MarkForDestruction defers disposal of o to FlushDestroyed.
func (k *Kernel) MarkForDestruction(o *Object) {
	if o == nil || o.disposed || o.kernel != k {
		return
	}
	k.entities.MarkForDestruction(o.id)
}

// PendingDestruction returns the number of queued disposals.
func (k *Kernel) PendingDestruction() int { return k.entities.Pending() }

// FlushDestroyed disposes every queued object that is still alive.
func (k *Kernel) FlushDestroyed() int {
	n := 0
	k.entities.FlushDestroyQueue(func(_ ecs.EntityID, o *Object) {
		if o == k.root {
			return
		}
		k.pool.Dispose(o)
		n++
	})
	return n
}

// ConfigureGrid reconfigures the grid and re-places every started spatial
// object. On error nothing changes.
func (k *Kernel) ConfigureGrid(minX, minY, maxX, maxY int) error {
	if err := k.grid.configure(minX, minY, maxX, maxY); err != nil {
		return err
	}
	for _, o := range k.root.Flatten(false) {
		if o.Kin != nil && o.started && !o.disposed {
			k.grid.place(o)
		}
	}
	return nil
}

// Update advances the simulation by one tick: flatten the graph, then for
// every rooted object sync, advance, diff, move through the grid and queue
// pipeline input. Objects attached during the tick start moving on the next.
func (k *Kernel) Update() {
	k.tick++
	in := k.inputs[k.cur][:0]

	for _, o := range k.root.Flatten(false) {
		if o.disposed || !o.rooted {
			continue
		}
		k.step(o)
		if o.Phys != nil && o.rooted && !o.disposed {
			pos := o.Kin.Current.Position
			in = append(in, pipeline.Input{ID: o.id, Mass: o.Phys.Current.Mass, X: pos.X, Y: pos.Y})
		}
	}
	k.inputs[k.cur] = in
}

func (k *Kernel) step(o *Object) {
	kin := o.Kin
	if kin == nil {
		if o.hooks.OnUpdate != nil {
			o.hooks.OnUpdate(o, k.dt)
		}
		return
	}

	kin.Sync()
	if p := o.Phys; p != nil {
		p.Sync()
		if !kin.Unmovable {
			p.advance(kin, k.dt)
		}
	}
	if o.hooks.OnUpdate != nil {
		o.hooks.OnUpdate(o, k.dt)
		if o.disposed || !o.rooted {
			return
		}
	}

	kin.Update()
	if kin.Current.Moved {
		if h, ok := k.history.Get(o.id); ok {
			h.Push(kin.Previous.Position)
		}
	}
	// Positions set between ticks leave no diff behind, so the recorded cell
	// is checked as well as the flag.
	if kin.Current.GridMoved || k.grid.cellIndex(kin.Current.Position.Floor()) != kin.cell {
		k.grid.moved(o)
	}
}

// SwapInputs hands the current input buffer over to a pipeline and starts
// filling the other one on the next tick.
func (k *Kernel) SwapInputs() {
	k.cur ^= 1
}

// ApplyResults applies a finished pipeline batch. Rows whose id no longer
// resolves to a live object are dropped. Returns the number of rows applied.
func (k *Kernel) ApplyResults(rows []pipeline.Result, kind pipeline.Kind) int {
	n := 0
	for i := range rows {
		o := k.obj(rows[i].ID)
		if o == nil {
			continue
		}
		if o.PostUpdate(rows, i, kind) {
			n++
		}
	}
	return n
}

// leftGrid runs once per excursion outside the grid bounds. The default
// policy queues the object for disposal at the end of the tick.
func (k *Kernel) leftGrid(o *Object) {
	x, y := o.Kin.Current.Position.Floor()
	event.Emit(k.bus, event.LeftGrid{EntityID: o.id, X: x, Y: y, Tick: k.tick})
	if o.hooks.OnOutsideGrid != nil {
		o.hooks.OnOutsideGrid(o, k.grid)
		return
	}
	k.MarkForDestruction(o)
}
