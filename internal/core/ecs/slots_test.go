package ecs

import "testing"

func TestSlotsReuseFreedIndexBeforeGrowing(t *testing.T) {
	s := NewSlots[string]()
	a := s.Insert("a")
	b := s.Insert("b")
	c := s.Insert("c")
	if s.Cap() != 3 || s.Len() != 3 {
		t.Fatalf("expected cap 3 len 3, got cap %d len %d", s.Cap(), s.Len())
	}

	if !s.Remove(b) {
		t.Fatalf("expected remove of %d to succeed", b)
	}
	if s.Len() != 2 || s.Cap() != 3 {
		t.Fatalf("capacity must not shrink: cap %d len %d", s.Cap(), s.Len())
	}

	d := s.Insert("d")
	if d.Index() != b.Index() {
		t.Fatalf("expected freed index %d to be reused, got %d", b.Index(), d.Index())
	}
	if d == b {
		t.Fatalf("reused slot must carry a new generation")
	}
	if s.Cap() != 3 {
		t.Fatalf("expected no growth while a free index exists, cap %d", s.Cap())
	}

	e := s.Insert("e")
	if e.Index() != 3 || s.Cap() != 4 {
		t.Fatalf("expected growth to index 3, got index %d cap %d", e.Index(), s.Cap())
	}

	for _, id := range []EntityID{a, c, d, e} {
		if !s.Alive(id) {
			t.Errorf("expected %d alive", id)
		}
	}
}

func TestSlotsStaleIDRejected(t *testing.T) {
	s := NewSlots[int]()
	id := s.Insert(7)
	s.Remove(id)
	if _, ok := s.Get(id); ok {
		t.Fatalf("expected stale id lookup to fail")
	}
	if s.Remove(id) {
		t.Fatalf("expected second remove to be ignored")
	}
	reused := s.Insert(9)
	if v, ok := s.Get(id); ok {
		t.Fatalf("stale id resolved to %d after reuse", v)
	}
	if v, ok := s.Get(reused); !ok || v != 9 {
		t.Fatalf("expected reused slot to hold 9, got %d (%v)", v, ok)
	}
}

func TestSlotsZeroIDNeverLive(t *testing.T) {
	s := NewSlots[int]()
	first := s.Insert(1)
	if first.IsZero() {
		t.Fatalf("first id must not be the zero id")
	}
	if s.Alive(InvalidID) {
		t.Fatalf("InvalidID must never be alive")
	}
}

func TestSlotsEachSkipsFreed(t *testing.T) {
	s := NewSlots[int]()
	ids := make([]EntityID, 5)
	for i := range ids {
		ids[i] = s.Insert(i)
	}
	s.Remove(ids[1])
	s.Remove(ids[3])

	var seen []int
	s.Each(func(_ EntityID, v int) { seen = append(seen, v) })
	want := []int{0, 2, 4}
	if len(seen) != len(want) {
		t.Fatalf("expected %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, seen)
		}
	}
}

func TestWorldDestroyQueue(t *testing.T) {
	w := NewWorld[string]()
	store := NewSparseStore[int]()
	w.Register(store)

	id := w.Spawn("x")
	v := 3
	store.Set(id, &v)

	w.MarkForDestruction(id)
	w.MarkForDestruction(id)
	if w.Pending() != 1 {
		t.Fatalf("expected duplicate queueing to collapse, pending %d", w.Pending())
	}

	calls := 0
	w.FlushDestroyQueue(func(id EntityID, _ string) {
		calls++
		w.Despawn(id)
	})
	if calls != 1 {
		t.Fatalf("expected one destroy call, got %d", calls)
	}
	if w.Alive(id) {
		t.Fatalf("expected entity to be gone after flush")
	}
	if store.Has(id) {
		t.Fatalf("expected component store to be cleared on despawn")
	}
	if w.Pending() != 0 {
		t.Fatalf("expected empty queue after flush")
	}
}

func TestSparseStoreRejectsStaleIDs(t *testing.T) {
	s := NewSlots[int]()
	store := NewSparseStore[string]()
	a := s.Insert(1)
	b := s.Insert(2)
	c := s.Insert(3)
	va, vb, vc := "a", "b", "c"
	store.Set(a, &va)
	store.Set(b, &vb)
	store.Set(c, &vc)

	store.Remove(a)
	if store.Len() != 2 || store.Has(a) {
		t.Fatalf("expected a removed, len %d", store.Len())
	}
	if v, ok := store.Get(c); !ok || *v != "c" {
		t.Fatalf("swap-remove must keep the moved entry reachable")
	}

	s.Remove(b)
	reused := s.Insert(4)
	if store.Has(reused) {
		t.Fatalf("reused slot must not inherit the old component")
	}
	if v, ok := store.Get(b); !ok || *v != "b" {
		t.Fatalf("the old id still owns its component until removed")
	}
	if store.Has(InvalidID) {
		t.Fatalf("InvalidID never has a component")
	}

	var seen int
	store.Each(func(EntityID, *string) { seen++ })
	if seen != 2 {
		t.Fatalf("expected 2 entries, visited %d", seen)
	}
}
