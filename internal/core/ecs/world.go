package ecs

// World is the entity table of one kernel. It owns the slot container, the
// component stores cleared on despawn, and a deferred destruction queue
// flushed by CleanupSystem each tick.
type World[T any] struct {
	slots        *Slots[T]
	stores       []Removable
	destroyQueue []EntityID
	queued       map[EntityID]struct{}
}

func NewWorld[T any]() *World[T] {
	return &World[T]{
		slots:        NewSlots[T](),
		destroyQueue: make([]EntityID, 0, 64),
		queued:       make(map[EntityID]struct{}, 64),
	}
}

func (w *World[T]) Slots() *Slots[T] { return w.slots }

// Register adds a component store that Despawn clears.
func (w *World[T]) Register(store Removable) {
	w.stores = append(w.stores, store)
}

func (w *World[T]) Spawn(v T) EntityID {
	return w.slots.Insert(v)
}

func (w *World[T]) Get(id EntityID) (T, bool) {
	return w.slots.Get(id)
}

func (w *World[T]) Alive(id EntityID) bool {
	return w.slots.Alive(id)
}

// Despawn clears the entity from every registered component store and frees
// its slot.
func (w *World[T]) Despawn(id EntityID) bool {
	if !w.slots.Alive(id) {
		return false
	}
	for _, s := range w.stores {
		s.Remove(id)
	}
	return w.slots.Remove(id)
}

// MarkForDestruction queues an entity for end-of-tick cleanup. Queuing the
// same id twice in one tick is harmless.
func (w *World[T]) MarkForDestruction(id EntityID) {
	if _, ok := w.queued[id]; ok {
		return
	}
	w.queued[id] = struct{}{}
	w.destroyQueue = append(w.destroyQueue, id)
}

// Pending returns the number of queued destructions.
func (w *World[T]) Pending() int { return len(w.destroyQueue) }

// FlushDestroyQueue hands every still-live queued entity to destroy, which is
// expected to end in Despawn. Ids that died in the meantime are skipped.
func (w *World[T]) FlushDestroyQueue(destroy func(EntityID, T)) {
	for _, id := range w.destroyQueue {
		if v, ok := w.slots.Get(id); ok {
			destroy(id, v)
		}
		delete(w.queued, id)
	}
	w.destroyQueue = w.destroyQueue[:0]
}
