package world

import "fmt"

// Kind is the closed set of object types the kernel can construct.
type Kind uint8

const (
	KindGroup    Kind = iota // graph node only
	KindParticle             // spatial, grid-indexed
	KindBody                 // spatial + physical, feeds the force pipeline
	kindCount
)

// Capability flags describe which components a kind carries.
type Capability uint8

const (
	CapSpatial Capability = 1 << iota
	CapPhysical
)

type kindSpec struct {
	name string
	caps Capability
}

var kinds = [kindCount]kindSpec{
	KindGroup:    {name: "group"},
	KindParticle: {name: "particle", caps: CapSpatial},
	KindBody:     {name: "body", caps: CapSpatial | CapPhysical},
}

func (k Kind) Valid() bool { return k < kindCount }

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
	return kinds[k].name
}

// Has reports whether the kind carries every capability in c.
func (k Kind) Has(c Capability) bool {
	return k.Valid() && kinds[k].caps&c == c
}

// ParseKind maps a config/YAML name onto a Kind.
func ParseKind(name string) (Kind, error) {
	for k := Kind(0); k < kindCount; k++ {
		if kinds[k].name == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrNotConstructible, name)
}

// Archetype carries the constructor-time defaults of one kind. Fields that do
// not apply to the kind are ignored.
type Archetype struct {
	Mass       float64
	CanCollide bool
	Unmovable  bool
	HistoryMax int
	Layer      int
}

// defaultArchetype is used until SetArchetype overrides it.
func defaultArchetype(k Kind) Archetype {
	switch k {
	case KindParticle:
		return Archetype{CanCollide: true}
	case KindBody:
		return Archetype{Mass: 1, CanCollide: true}
	}
	return Archetype{}
}

// construct builds a fresh object of kind k with every component at its
// constructor defaults.
func construct(k Kind, a Archetype) *Object {
	o := &Object{
		kind:       k,
		ownLayer:   a.Layer,
		layer:      a.Layer,
		index:      -1,
		graphDirty: true,
	}
	if k.Has(CapSpatial) {
		o.Kin = &Kinematics{
			CanCollide: a.CanCollide,
			Unmovable:  a.Unmovable,
			HistoryMax: a.HistoryMax,
			cell:       -1,
			slot:       -1,
		}
		o.Kin.Current.NeverMoved = true
		o.Kin.Previous.NeverMoved = true
	}
	if k.Has(CapPhysical) {
		o.Phys = &Physics{}
		o.Phys.Current.Mass = a.Mass
	}
	return o
}
