package world

import (
	"math"

	"github.com/l1jgo/simkernel/internal/physics"
	"github.com/l1jgo/simkernel/internal/pipeline"
)

type Vec2 struct {
	X, Y float64
}

func (v Vec2) Add(o Vec2) Vec2      { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2      { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }
func (v Vec2) Scale(f float64) Vec2 { return Vec2{X: v.X * f, Y: v.Y * f} }
func (v Vec2) Floor() (int, int)    { return int(math.Floor(v.X)), int(math.Floor(v.Y)) }

// Dir holds the sign of the last displacement on each axis: -1, 0 or 1.
type Dir struct {
	X, Y int
}

// KinematicState is one buffer of the double-buffered movement record.
type KinematicState struct {
	Position  Vec2
	Direction Dir
	Moved     bool // position changed this tick
	GridMoved bool // floored cell changed this tick
	HasMoved  bool // sticky: moved at least once
	// NeverMoved starts true and is cleared for good on the first move.
	NeverMoved bool
}

// Kinematics is the spatial component. Current is mutated during the tick;
// Previous is the snapshot taken by Sync at the start of the tick.
type Kinematics struct {
	Current  KinematicState
	Previous KinematicState

	CanCollide bool
	Unmovable  bool
	HistoryMax int

	cell    int // flat grid cell index, -1 when in no cell
	slot    int // position inside the cell, -1 when in no cell
	outside bool
}

// Sync copies the current state into the previous buffer. The tick driver
// calls it before the tick's mutations begin.
func (k *Kinematics) Sync() {
	k.Previous = k.Current
}

// Update derives direction and movement flags from the two buffers. It does
// not resync Previous.
func (k *Kinematics) Update() {
	cur := &k.Current
	prev := &k.Previous
	dx := cur.Position.X - prev.Position.X
	dy := cur.Position.Y - prev.Position.Y
	cur.Direction = Dir{X: physics.Sign(dx), Y: physics.Sign(dy)}
	cur.Moved = dx != 0 || dy != 0

	px, py := prev.Position.Floor()
	cx, cy := cur.Position.Floor()
	cur.GridMoved = px != cx || py != cy

	if cur.Moved {
		cur.HasMoved = true
		cur.NeverMoved = false
	}
}

// Cell returns the flat index of the grid cell the object is recorded in,
// or -1.
func (k *Kinematics) Cell() int { return k.cell }

// Slot returns the object's position within its cell, or -1.
func (k *Kinematics) Slot() int { return k.slot }

// Outside reports whether the object is on an excursion outside the grid.
func (k *Kinematics) Outside() bool { return k.outside }

// PhysicalState extends the kinematic record with mass and motion.
type PhysicalState struct {
	Mass float64
	// Velocity is in world units per second.
	Velocity Vec2
	// StepVelocity is the displacement applied on the next tick.
	StepVelocity Vec2
	Momentum     Vec2
	NetForce     Vec2
}

// Physics is the physical component, double-buffered like Kinematics.
type Physics struct {
	Current  PhysicalState
	Previous PhysicalState

	lastPipeline pipeline.Kind
}

func (p *Physics) Sync() {
	p.Previous = p.Current
}

// LastPipeline names the pipeline whose result was applied last.
func (p *Physics) LastPipeline() pipeline.Kind { return p.lastPipeline }

// advance consumes the step budget and refills it from the velocity so motion
// continues between pipeline results.
func (p *Physics) advance(k *Kinematics, dt float64) {
	k.Current.Position = k.Current.Position.Add(p.Current.StepVelocity)
	p.refresh(dt)
}

// refresh recomputes the derived fields after velocity or mass changed.
func (p *Physics) refresh(dt float64) {
	c := &p.Current
	c.StepVelocity = c.Velocity.Scale(dt)
	c.Momentum = c.Velocity.Scale(c.Mass)
}
