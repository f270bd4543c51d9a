package world

import "github.com/l1jgo/simkernel/internal/core/ecs"

func (o *Object) Parent() *Object      { return o.kernel.obj(o.parent) }
func (o *Object) FirstChild() *Object  { return o.kernel.obj(o.first) }
func (o *Object) LastChild() *Object   { return o.kernel.obj(o.last) }
func (o *Object) NextSibling() *Object { return o.kernel.obj(o.next) }
func (o *Object) PrevSibling() *Object { return o.kernel.obj(o.prev) }
func (o *Object) GraphDirty() bool     { return o.graphDirty }

// Children visits the direct children in sibling order.
func (o *Object) Children(fn func(*Object)) {
	for c := o.FirstChild(); c != nil; c = c.NextSibling() {
		fn(c)
	}
}

// Add appends child as the last child of o, detaching it from its current
// parent first. Adding an existing child is a no-op.
func (o *Object) Add(child *Object) error {
	if child == nil {
		return nil
	}
	if o.disposed || child.disposed {
		return ErrDisposed
	}
	if o.kernel == nil || child.kernel != o.kernel {
		return ErrNotOwned
	}
	if child.parent == o.id {
		return nil
	}
	for a := o; a != nil; a = a.Parent() {
		if a == child {
			return ErrCycle
		}
	}
	if !child.parent.IsZero() {
		child.Remove()
	}

	k := o.kernel
	child.parent = o.id
	child.prev = o.last
	child.next = ecs.InvalidID
	if last := k.obj(o.last); last != nil {
		last.next = child.id
	} else {
		o.first = child.id
	}
	o.last = child.id
	o.childrenDirty = true
	o.markDirty()

	child.propagate(o)
	return nil
}

// Remove detaches o from its parent and siblings. The detached subtree
// leaves the grid and stops until it is attached under the root again.
func (o *Object) Remove() {
	p := o.Parent()
	if p == nil {
		return
	}
	k := o.kernel
	if prev := k.obj(o.prev); prev != nil {
		prev.next = o.next
	} else {
		p.first = o.next
	}
	if next := k.obj(o.next); next != nil {
		next.prev = o.prev
	} else {
		p.last = o.prev
	}
	o.parent, o.prev, o.next = ecs.InvalidID, ecs.InvalidID, ecs.InvalidID
	o.index = -1
	p.childrenDirty = true
	p.markDirty()

	o.propagate(nil)
}

func (o *Object) markDirty() {
	for a := o; a != nil; a = a.Parent() {
		a.graphDirty = true
	}
}

// propagate pushes the layer and rooted associations from parent down
// through the subtree of o, starting or stopping nodes whose rooted state
// changed.
func (o *Object) propagate(parent *Object) {
	for _, n := range o.Flatten(true) {
		p := parent
		if n != o {
			p = n.Parent()
		}
		n.layer = n.ownLayer
		if n.layer == 0 && p != nil {
			n.layer = p.layer
		}
		n.rooted = p != nil && p.rooted
		switch {
		case n.rooted && !n.started:
			n.start()
		case !n.rooted && n.started:
			n.stop()
		}
	}
}

// start registers the initial cell and clones current into previous so the
// first tick sees zero deltas.
func (o *Object) start() {
	o.started = true
	if o.Kin == nil {
		return
	}
	o.Kin.Sync()
	if o.Phys != nil {
		o.Phys.Sync()
	}
	o.kernel.grid.place(o)
}

func (o *Object) stop() {
	o.started = false
	if o.Kin == nil {
		return
	}
	o.kernel.grid.evict(o)
	o.Kin.outside = false
}

// Flatten returns the subtree of o in preorder. The result is cached and
// only rebuilt when the subtree changed; callers must not keep it across
// graph mutations. Call it on root-like nodes only.
func (o *Object) Flatten(includeSelf bool) []*Object {
	if !o.graphDirty && o.flatSelf == includeSelf {
		return o.flat
	}
	buf := o.flat[:0]
	if includeSelf {
		buf = append(buf, o)
	}
	k := o.kernel
	n := k.obj(o.first)
	for n != nil {
		buf = append(buf, n)
		if c := k.obj(n.first); c != nil {
			n = c
			continue
		}
		for n != nil && n != o {
			if s := k.obj(n.next); s != nil {
				n = s
				break
			}
			n = k.obj(n.parent)
		}
		if n == o {
			break
		}
	}
	o.flat = buf
	o.flatSelf = includeSelf
	o.graphDirty = false
	return buf
}

// Count walks the subtree recursively without touching the flatten cache.
func (o *Object) Count(includeSelf bool) int {
	n := 0
	if includeSelf {
		n = 1
	}
	for c := o.FirstChild(); c != nil; c = c.NextSibling() {
		n += c.Count(true)
	}
	return n
}

// Walk visits o and its descendants in preorder, recursively.
func (o *Object) Walk(fn func(*Object)) {
	fn(o)
	for c := o.FirstChild(); c != nil; c = c.NextSibling() {
		c.Walk(fn)
	}
}

// Index returns the position of o among its siblings, or -1 when detached.
func (o *Object) Index() int {
	p := o.Parent()
	if p == nil {
		return -1
	}
	if p.childrenDirty {
		i := 0
		for c := p.FirstChild(); c != nil; c = c.NextSibling() {
			c.index = i
			i++
		}
		p.childrenDirty = false
	}
	return o.index
}
