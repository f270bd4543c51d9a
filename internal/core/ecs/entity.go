package ecs

// EntityID encodes a 32-bit index in the lower bits and a 32-bit generation
// in the upper bits. Generation increments on destroy to invalidate stale refs.
// Generations start at 1, so the zero value never names a live entity.
type EntityID uint64

// InvalidID is the "no entity" marker.
const InvalidID EntityID = 0

func NewEntityID(index uint32, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

func (id EntityID) Index() uint32      { return uint32(id) }
func (id EntityID) Generation() uint32 { return uint32(id >> 32) }
func (id EntityID) IsZero() bool       { return id == InvalidID }

// EntityPool manages entity allocation with generational indices and a free list.
// The most recently freed index is handed out first; the index space never shrinks.
type EntityPool struct {
	generations []uint32
	alive       []bool
	freeList    []uint32
	nextIndex   uint32
	live        int
}

func NewEntityPool() *EntityPool {
	return &EntityPool{
		generations: make([]uint32, 0, 1024),
		alive:       make([]bool, 0, 1024),
		freeList:    make([]uint32, 0, 256),
	}
}

func (p *EntityPool) Create() EntityID {
	p.live++
	if len(p.freeList) > 0 {
		idx := p.freeList[len(p.freeList)-1]
		p.freeList = p.freeList[:len(p.freeList)-1]
		p.alive[idx] = true
		return NewEntityID(idx, p.generations[idx])
	}
	idx := p.nextIndex
	p.nextIndex++
	if int(idx) >= len(p.generations) {
		p.generations = append(p.generations, 1)
		p.alive = append(p.alive, false)
	}
	p.alive[idx] = true
	return NewEntityID(idx, p.generations[idx])
}

func (p *EntityPool) Alive(id EntityID) bool {
	idx := id.Index()
	if idx >= p.nextIndex {
		return false
	}
	return p.alive[idx] && p.generations[idx] == id.Generation()
}

// Destroy releases the id's index. Returns false for stale or unknown ids.
func (p *EntityPool) Destroy(id EntityID) bool {
	if !p.Alive(id) {
		return false
	}
	idx := id.Index()
	p.alive[idx] = false
	p.generations[idx]++
	if p.generations[idx] == 0 {
		p.generations[idx] = 1
	}
	p.freeList = append(p.freeList, idx)
	p.live--
	return true
}

// Len returns the number of live ids.
func (p *EntityPool) Len() int { return p.live }

// Cap returns the number of indices ever issued.
func (p *EntityPool) Cap() int { return int(p.nextIndex) }
