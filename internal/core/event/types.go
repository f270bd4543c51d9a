package event

import "github.com/l1jgo/simkernel/internal/core/ecs"

// Axis tells which components of a move a collision rejected.
type Axis uint8

const (
	AxisNone       Axis = 0
	AxisHorizontal Axis = 1 << 0
	AxisVertical   Axis = 1 << 1
	AxisBoth            = AxisHorizontal | AxisVertical
)

// Collided is emitted when a moving entity is stopped by an occupied cell.
type Collided struct {
	Source ecs.EntityID
	Target ecs.EntityID
	Axis   Axis
	Tick   uint64
}

// LeftGrid is emitted once per excursion outside the configured grid bounds.
type LeftGrid struct {
	EntityID ecs.EntityID
	X, Y     int
	Tick     uint64
}

// Disposed is emitted when an owned entity returns to its pool.
type Disposed struct {
	EntityID ecs.EntityID
	Kind     uint8
	Tick     uint64
}
