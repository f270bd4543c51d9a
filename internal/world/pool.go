package world

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/l1jgo/simkernel/internal/core/ecs"
	"github.com/l1jgo/simkernel/internal/core/event"
)

// Pool recycles disposed objects per kind. Each kind keeps a LIFO free list
// and one template built from its constructor and archetype; a reused object
// is reset from the template so it never carries stale field values.
// Owned by one kernel; never shared between kernels.
type Pool struct {
	free       [kindCount][]*Object
	templates  [kindCount]*Object
	archetypes [kindCount]Archetype
}

func NewPool() *Pool {
	p := &Pool{}
	for k := Kind(0); k < kindCount; k++ {
		p.archetypes[k] = defaultArchetype(k)
	}
	return p
}

// SetArchetype replaces the constructor defaults of kind k. Objects already
// sitting in the free list pick the new defaults up on their next reuse.
func (p *Pool) SetArchetype(k Kind, a Archetype) error {
	if !k.Valid() {
		return fmt.Errorf("%w: %s", ErrNotConstructible, k)
	}
	p.archetypes[k] = a
	p.templates[k] = nil
	return nil
}

func (p *Pool) Archetype(k Kind) Archetype {
	if !k.Valid() {
		return Archetype{}
	}
	return p.archetypes[k]
}

// Free returns the number of pooled objects of kind k.
func (p *Pool) Free(k Kind) int {
	if !k.Valid() {
		return 0
	}
	return len(p.free[k])
}

func (p *Pool) template(k Kind) *Object {
	if p.templates[k] == nil {
		p.templates[k] = construct(k, p.archetypes[k])
	}
	return p.templates[k]
}

// acquire pops a pooled object and resets it from the template, or constructs
// a new one. Component allocations and the flatten buffer are kept.
func (p *Pool) acquire(k Kind) *Object {
	tmpl := p.template(k)
	n := len(p.free[k])
	if n == 0 {
		o := construct(k, p.archetypes[k])
		o.pool = p
		return o
	}
	o := p.free[k][n-1]
	p.free[k][n-1] = nil
	p.free[k] = p.free[k][:n-1]

	kin, phys, flat := o.Kin, o.Phys, o.flat
	*o = *tmpl
	if kin != nil {
		*kin = *tmpl.Kin
		o.Kin = kin
	}
	if phys != nil {
		*phys = *tmpl.Phys
		o.Phys = phys
	}
	o.flat = flat[:0]
	o.pool = p
	return o
}

// Create returns a ready object of kind k. With an owner the object gets a
// fresh id from the owner's slot table and its unique name is registered;
// with initialize the init hook runs once. The owner must be the kernel this
// pool belongs to.
func (p *Pool) Create(k Kind, initialize bool, owner *Kernel, opts ...Option) (*Object, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrNotConstructible, k)
	}
	if owner != nil && owner.pool != p {
		return nil, fmt.Errorf("%w: owner uses another pool", ErrNotOwned)
	}
	o := p.acquire(k)
	for _, opt := range opts {
		opt(o)
	}
	if owner != nil {
		if err := owner.adopt(o); err != nil {
			o.disposed = true
			p.free[k] = append(p.free[k], o)
			return nil, err
		}
	}
	if initialize {
		o.Init()
	}
	return o, nil
}

// Dispose detaches o, disposes its whole subtree leaves first, and returns
// every object to the pool. Nil and already disposed objects are ignored.
// The kernel root cannot be disposed. An object always returns to the pool
// that built it.
func (p *Pool) Dispose(o *Object) {
	if o == nil || o.disposed {
		return
	}
	if o.pool != nil && o.pool != p {
		o.pool.Dispose(o)
		return
	}
	if k := o.kernel; k != nil && o == k.root {
		k.log.Warn("root 物件不可釋放", zap.Uint64("id", uint64(o.id)))
		return
	}
	o.Remove()
	desc := o.Flatten(false)
	for i := len(desc) - 1; i >= 0; i-- {
		p.release(desc[i])
	}
	p.release(o)
}

// DisposeAll disposes each element. With compact the surviving entries are
// packed to the front and the shortened slice is returned; otherwise
// disposed entries are left as nil holes.
func (p *Pool) DisposeAll(objs []*Object, compact bool) []*Object {
	n := 0
	for i, o := range objs {
		p.Dispose(o)
		kept := o != nil && !o.disposed
		switch {
		case compact && kept:
			objs[n] = o
			n++
		case !compact && !kept:
			objs[i] = nil
		}
	}
	if !compact {
		return objs
	}
	clear(objs[n:])
	return objs[:n]
}

func (p *Pool) release(o *Object) {
	if k := o.kernel; k != nil {
		if o.Kin != nil {
			k.grid.evict(o)
		}
		if o.name != "" && k.names[o.name] == o.id {
			delete(k.names, o.name)
		}
		k.entities.Despawn(o.id)
		event.Emit(k.bus, event.Disposed{EntityID: o.id, Kind: uint8(o.kind), Tick: k.tick})
	}
	o.parent, o.prev, o.next = ecs.InvalidID, ecs.InvalidID, ecs.InvalidID
	o.first, o.last = ecs.InvalidID, ecs.InvalidID
	o.id = ecs.InvalidID
	o.kernel = nil
	o.initialized = false
	o.started = false
	o.rooted = false
	o.disposed = true
	o.hooks = Hooks{}
	p.free[o.kind] = append(p.free[o.kind], o)
}
