package ecs

// Removable is implemented by all component stores so the Registry can
// bulk-remove an entity's data from every store on destroy.
type Removable interface {
	Remove(id EntityID)
}

// SparseStore holds an optional component for the few entities that carry
// it. Values live in a dense array; a sparse array indexed by the slot
// index points into it. The stored id is compared on lookup, so a stale id
// whose slot was reused never sees the new owner's component.
type SparseStore[T any] struct {
	sparse []int32 // slot index -> dense position, -1 when absent
	ids    []EntityID
	values []*T
}

func NewSparseStore[T any]() *SparseStore[T] {
	return &SparseStore[T]{}
}

func (s *SparseStore[T]) pos(id EntityID) int {
	i := int(id.Index())
	if id.IsZero() || i >= len(s.sparse) {
		return -1
	}
	p := int(s.sparse[i])
	if p < 0 || s.ids[p] != id {
		return -1
	}
	return p
}

// Set attaches c to id, replacing any previous value.
func (s *SparseStore[T]) Set(id EntityID, c *T) {
	if id.IsZero() {
		return
	}
	if p := s.pos(id); p >= 0 {
		s.values[p] = c
		return
	}
	i := int(id.Index())
	for len(s.sparse) <= i {
		s.sparse = append(s.sparse, -1)
	}
	s.sparse[i] = int32(len(s.ids))
	s.ids = append(s.ids, id)
	s.values = append(s.values, c)
}

func (s *SparseStore[T]) Get(id EntityID) (*T, bool) {
	p := s.pos(id)
	if p < 0 {
		return nil, false
	}
	return s.values[p], true
}

// Remove swaps the last dense entry into the vacated position.
func (s *SparseStore[T]) Remove(id EntityID) {
	p := s.pos(id)
	if p < 0 {
		return
	}
	last := len(s.ids) - 1
	moved := s.ids[last]
	s.ids[p] = moved
	s.values[p] = s.values[last]
	s.sparse[moved.Index()] = int32(p)
	s.sparse[id.Index()] = -1

	s.ids[last] = InvalidID
	s.values[last] = nil
	s.ids = s.ids[:last]
	s.values = s.values[:last]
}

func (s *SparseStore[T]) Has(id EntityID) bool {
	return s.pos(id) >= 0
}

func (s *SparseStore[T]) Len() int {
	return len(s.ids)
}

// Each visits every component in dense order.
func (s *SparseStore[T]) Each(fn func(EntityID, *T)) {
	for i, id := range s.ids {
		fn(id, s.values[i])
	}
}
