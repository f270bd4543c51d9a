package world

import (
	"errors"
	"testing"

	"github.com/l1jgo/simkernel/internal/core/ecs"
)

func TestPoolRoundTripMatchesTemplate(t *testing.T) {
	for _, kind := range []Kind{KindGroup, KindParticle, KindBody} {
		t.Run(kind.String(), func(t *testing.T) {
			k := newTestKernel(t)
			o := spawn(t, k, kind, nil,
				WithName("x"), WithLayer(3), WithPosition(4.5, -2), WithVelocity(1, 2),
				WithMass(9), WithHistory(4), WithCollision(false, true))
			child := spawn(t, k, KindParticle, o)
			k.Update()
			k.Dispose(o)
			if !o.Disposed() || !child.Disposed() {
				t.Fatalf("expected subtree disposed")
			}

			reused, err := k.Pool().Create(kind, false, nil)
			if err != nil {
				t.Fatal(err)
			}
			if reused != o {
				t.Fatalf("expected the pooled instance to be reused")
			}
			fresh := construct(kind, k.Pool().Archetype(kind))
			assertSameDefaults(t, fresh, reused)
		})
	}
}

func assertSameDefaults(t *testing.T, want, got *Object) {
	t.Helper()
	if got.id != ecs.InvalidID || got.kernel != nil || got.initialized || got.disposed || got.started {
		t.Fatalf("identity fields not reset: %+v", got)
	}
	if got.name != want.name || got.ownLayer != want.ownLayer || got.layer != want.layer || got.rooted != want.rooted {
		t.Fatalf("association fields differ: want %+v got %+v", want, got)
	}
	if !got.parent.IsZero() || !got.first.IsZero() || !got.last.IsZero() || !got.prev.IsZero() || !got.next.IsZero() {
		t.Fatalf("graph links not reset")
	}
	if got.index != want.index || got.graphDirty != want.graphDirty || len(got.flat) != 0 {
		t.Fatalf("graph bookkeeping not reset")
	}
	if (want.Kin == nil) != (got.Kin == nil) || (want.Phys == nil) != (got.Phys == nil) {
		t.Fatalf("component set differs")
	}
	if want.Kin != nil && *want.Kin != *got.Kin {
		t.Fatalf("kinematics differ:\nwant %+v\ngot  %+v", *want.Kin, *got.Kin)
	}
	if want.Phys != nil && *want.Phys != *got.Phys {
		t.Fatalf("physics differ:\nwant %+v\ngot  %+v", *want.Phys, *got.Phys)
	}
}

func TestPoolArchetypeAppliesOnReuse(t *testing.T) {
	k := newTestKernel(t)
	o := spawn(t, k, KindBody, nil)
	k.Dispose(o)
	if err := k.Pool().SetArchetype(KindBody, Archetype{Mass: 7, HistoryMax: 2}); err != nil {
		t.Fatal(err)
	}
	reused := spawn(t, k, KindBody, nil)
	if reused.Phys.Current.Mass != 7 || reused.Kin.HistoryMax != 2 {
		t.Fatalf("archetype not applied: mass %v history %d", reused.Phys.Current.Mass, reused.Kin.HistoryMax)
	}
	if _, ok := reused.History(); !ok {
		t.Fatalf("expected history component from archetype")
	}
}

func TestPoolCreateErrors(t *testing.T) {
	k := newTestKernel(t)
	if _, err := k.Create(Kind(42), true); !errors.Is(err, ErrNotConstructible) {
		t.Fatalf("expected ErrNotConstructible, got %v", err)
	}
	if err := k.Pool().SetArchetype(Kind(42), Archetype{}); !errors.Is(err, ErrNotConstructible) {
		t.Fatalf("expected ErrNotConstructible, got %v", err)
	}

	spawn(t, k, KindParticle, nil, WithName("sensor"))
	before := k.Len()
	if _, err := k.Create(KindParticle, true, WithName("sensor")); !errors.Is(err, ErrNameTaken) {
		t.Fatalf("expected ErrNameTaken, got %v", err)
	}
	if k.Len() != before {
		t.Fatalf("failed create must not take a slot")
	}
	if k.Pool().Free(KindParticle) != 1 {
		t.Fatalf("failed create must return the object to the pool")
	}
}

func TestPoolStaysWithItsKernel(t *testing.T) {
	a := newTestKernel(t)
	b := newTestKernel(t)

	if _, err := a.Pool().Create(KindParticle, true, b); !errors.Is(err, ErrNotOwned) {
		t.Fatalf("expected ErrNotOwned for a foreign owner, got %v", err)
	}
	if a.Pool().Free(KindParticle) != 0 || b.Len() != 1 {
		t.Fatalf("rejected create must touch neither kernel")
	}

	o := spawn(t, b, KindParticle, nil)
	a.Pool().Dispose(o)
	if !o.Disposed() {
		t.Fatalf("object must still be disposed")
	}
	if a.Pool().Free(KindParticle) != 0 || b.Pool().Free(KindParticle) != 1 {
		t.Fatalf("object must return to its own pool, free a=%d b=%d",
			a.Pool().Free(KindParticle), b.Pool().Free(KindParticle))
	}

	loose, err := a.Pool().Create(KindBody, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	b.Pool().Dispose(loose)
	if a.Pool().Free(KindBody) != 1 || b.Pool().Free(KindBody) != 0 {
		t.Fatalf("unowned object must return to the pool that built it")
	}
}

func TestPoolInitIsIdempotent(t *testing.T) {
	k := newTestKernel(t)
	calls := 0
	var peer *Object
	hooks := Hooks{OnInit: func(o *Object) {
		calls++
		if peer != nil {
			peer.Init()
		}
		o.Init()
	}}
	a, err := k.Create(KindParticle, false, WithHooks(hooks))
	if err != nil {
		t.Fatal(err)
	}
	b, err := k.Create(KindParticle, false, WithHooks(Hooks{OnInit: func(*Object) { calls++; a.Init() }}))
	if err != nil {
		t.Fatal(err)
	}
	peer = b
	a.Init()
	a.Init()
	if calls != 2 || !a.Initialized() || !b.Initialized() {
		t.Fatalf("expected each init hook once, got %d calls", calls)
	}
}

func TestPoolDisposeNoops(t *testing.T) {
	k := newTestKernel(t)
	k.Dispose(nil)

	o := spawn(t, k, KindParticle, nil)
	k.Dispose(o)
	free := k.Pool().Free(KindParticle)
	k.Dispose(o)
	if k.Pool().Free(KindParticle) != free {
		t.Fatalf("double dispose must not pool twice")
	}

	k.Dispose(k.Root())
	if k.Root().Disposed() {
		t.Fatalf("root must survive dispose")
	}
}

func TestPoolDisposeReleasesSlotAndName(t *testing.T) {
	k := newTestKernel(t)
	o := spawn(t, k, KindBody, nil, WithName("b"), WithHistory(3))
	id := o.ID()
	k.Dispose(o)

	if _, ok := k.Lookup("b"); ok {
		t.Fatalf("name must be released")
	}
	if k.history.Has(id) {
		t.Fatalf("history must be dropped")
	}
	if o.ID() != ecs.InvalidID || o.Kernel() != nil || o.Initialized() {
		t.Fatalf("identity not cleared")
	}
	if k.Bus().Pending() != 1 {
		t.Fatalf("expected a Disposed event, pending %d", k.Bus().Pending())
	}

	again := spawn(t, k, KindBody, nil, WithName("b"))
	if again.ID().Index() != id.Index() || again.ID() == id {
		t.Fatalf("expected slot %d reused with a new generation, got %v", id.Index(), again.ID())
	}
}

func TestPoolDisposeAll(t *testing.T) {
	k := newTestKernel(t)
	objs := []*Object{
		spawn(t, k, KindParticle, nil),
		nil,
		k.Root(),
		spawn(t, k, KindGroup, nil),
	}
	holes := k.DisposeAll(append([]*Object(nil), objs...), false)
	if len(holes) != 4 || holes[0] != nil || holes[1] != nil || holes[2] != k.Root() || holes[3] != nil {
		t.Fatalf("unexpected holes %v", holes)
	}

	objs = []*Object{
		spawn(t, k, KindParticle, nil),
		k.Root(),
		spawn(t, k, KindBody, nil),
	}
	packed := k.DisposeAll(objs, true)
	if len(packed) != 1 || packed[0] != k.Root() {
		t.Fatalf("expected only the root left, got %v", packed)
	}
	if objs[1] != nil || objs[2] != nil {
		t.Fatalf("tail of the compacted slice must be cleared")
	}
}

func TestPoolDisposeSubtreeLeavesFirst(t *testing.T) {
	k := newTestKernel(t)
	g := spawn(t, k, KindGroup, nil)
	a := spawn(t, k, KindParticle, g, WithPosition(1, 1))
	b := spawn(t, k, KindParticle, a, WithPosition(2, 2))
	sibling := spawn(t, k, KindParticle, nil, WithPosition(3, 3))

	k.Dispose(g)
	for _, o := range []*Object{g, a, b} {
		if !o.Disposed() {
			t.Fatalf("expected subtree disposed")
		}
	}
	if k.Grid().CellAt(1, 1).Len() != 0 || k.Grid().CellAt(2, 2).Len() != 0 {
		t.Fatalf("disposed objects must leave the grid")
	}
	if k.Root().Count(false) != 1 || k.Root().FirstChild() != sibling {
		t.Fatalf("unexpected graph after dispose")
	}
	if k.Len() != 2 {
		t.Fatalf("expected root and sibling left, got %d", k.Len())
	}
}
