package ecs

// Slots is a free-list backed indexed container. Values are addressed by the
// EntityID returned from Insert; freed indices are reused before the backing
// array grows.
type Slots[T any] struct {
	pool  *EntityPool
	items []T
}

func NewSlots[T any]() *Slots[T] {
	return &Slots[T]{
		pool:  NewEntityPool(),
		items: make([]T, 0, 1024),
	}
}

// Insert stores v in the next free slot.
func (s *Slots[T]) Insert(v T) EntityID {
	id := s.pool.Create()
	idx := int(id.Index())
	if idx == len(s.items) {
		s.items = append(s.items, v)
	} else {
		s.items[idx] = v
	}
	return id
}

// Remove frees the slot held by id. Stale ids are ignored.
func (s *Slots[T]) Remove(id EntityID) bool {
	if !s.pool.Destroy(id) {
		return false
	}
	var zero T
	s.items[id.Index()] = zero
	return true
}

func (s *Slots[T]) Get(id EntityID) (T, bool) {
	if !s.pool.Alive(id) {
		var zero T
		return zero, false
	}
	return s.items[id.Index()], true
}

func (s *Slots[T]) Alive(id EntityID) bool { return s.pool.Alive(id) }
func (s *Slots[T]) Len() int               { return s.pool.Len() }
func (s *Slots[T]) Cap() int               { return s.pool.Cap() }

// Each visits live slots in index order.
func (s *Slots[T]) Each(fn func(EntityID, T)) {
	for i := range s.items {
		if s.pool.alive[i] {
			fn(NewEntityID(uint32(i), s.pool.generations[i]), s.items[i])
		}
	}
}
