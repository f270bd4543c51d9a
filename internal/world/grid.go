package world

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/l1jgo/simkernel/internal/core/ecs"
)

// Cell is an unordered list of the objects whose floored position falls
// inside it. Removal swaps the last occupant into the vacated slot.
type Cell struct {
	objects   []ecs.EntityID
	lastIndex int // len(objects)-1, -1 when empty
}

// Objects returns the occupied slots. The slice is only valid until the next
// grid mutation.
func (c *Cell) Objects() []ecs.EntityID { return c.objects }
func (c *Cell) LastIndex() int          { return c.lastIndex }
func (c *Cell) Len() int                { return c.lastIndex + 1 }

func (c *Cell) push(id ecs.EntityID) int {
	c.objects = append(c.objects, id)
	c.lastIndex++
	return c.lastIndex
}

// swapRemove vacates slot and returns the id that was moved into it, or
// InvalidID when slot was the last one.
func (c *Cell) swapRemove(slot int) ecs.EntityID {
	last := c.lastIndex
	moved := ecs.InvalidID
	if slot != last {
		moved = c.objects[last]
		c.objects[slot] = moved
	}
	c.objects[last] = ecs.InvalidID
	c.objects = c.objects[:last]
	c.lastIndex--
	return moved
}

func (c *Cell) reset() {
	clear(c.objects)
	c.objects = c.objects[:0]
	c.lastIndex = -1
}

// Grid is a dense matrix of cells covering [minX, maxX] x [minY, maxY].
// Row 0 holds maxY, so rows grow as Y decreases.
type Grid struct {
	k *Kernel

	minX, minY int
	maxX, maxY int
	cols, rows int
	cells      []Cell
	configured bool
}

// configure sets the bounds, which must straddle zero on both axes. Every
// violated bound is reported. Cells keep their backing arrays across
// reconfiguration; previous members lose their membership until
// Kernel.ConfigureGrid re-places them.
func (g *Grid) configure(minX, minY, maxX, maxY int) error {
	var err error
	if minX > 0 {
		err = multierr.Append(err, fmt.Errorf("%w: minX %d > 0", ErrInvalidBounds, minX))
	}
	if maxX < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: maxX %d < 0", ErrInvalidBounds, maxX))
	}
	if minY > 0 {
		err = multierr.Append(err, fmt.Errorf("%w: minY %d > 0", ErrInvalidBounds, minY))
	}
	if maxY < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: maxY %d < 0", ErrInvalidBounds, maxY))
	}
	if err != nil {
		return err
	}

	for i := range g.cells {
		for _, id := range g.cells[i].Objects() {
			if o := g.k.obj(id); o != nil {
				o.Kin.cell, o.Kin.slot = -1, -1
			}
		}
	}

	g.minX, g.minY, g.maxX, g.maxY = minX, minY, maxX, maxY
	g.cols = 1 + maxX - minX
	g.rows = 1 + maxY - minY
	n := g.cols * g.rows
	if n <= cap(g.cells) {
		g.cells = g.cells[:n]
	} else {
		cells := make([]Cell, n)
		copy(cells, g.cells[:cap(g.cells)])
		g.cells = cells
	}
	for i := range g.cells {
		g.cells[i].reset()
	}
	g.configured = true
	return nil
}

func (g *Grid) Configured() bool { return g.configured }

// Bounds returns minX, minY, maxX, maxY.
func (g *Grid) Bounds() (int, int, int, int) { return g.minX, g.minY, g.maxX, g.maxY }

// Size returns the number of columns and rows.
func (g *Grid) Size() (int, int) { return g.cols, g.rows }

// InBounds reports whether the integer coordinate lies inside the grid.
func (g *Grid) InBounds(x, y int) bool {
	return g.configured && x >= g.minX && x <= g.maxX && y >= g.minY && y <= g.maxY
}

func (g *Grid) cellIndex(x, y int) int {
	if !g.InBounds(x, y) {
		return -1
	}
	return (g.maxY-y)*g.cols + (x - g.minX)
}

// CellAt returns the cell for integer coordinates, or nil out of bounds.
func (g *Grid) CellAt(x, y int) *Cell {
	i := g.cellIndex(x, y)
	if i < 0 {
		return nil
	}
	return &g.cells[i]
}

// CellOf returns the cell o is recorded in, or nil.
func (g *Grid) CellOf(o *Object) *Cell {
	if o == nil || o.Kin == nil || o.Kin.cell < 0 || o.kernel != g.k {
		return nil
	}
	return &g.cells[o.Kin.cell]
}

// place records o in the cell matching its floored current position.
func (g *Grid) place(o *Object) {
	g.transfer(o, g.cellIndex(o.Kin.Current.Position.Floor()))
}

// moved runs after the movement diff reported a cell change. Colliding
// objects may have part of the move rejected before the transfer.
func (g *Grid) moved(o *Object) {
	kin := o.Kin
	target := g.cellIndex(kin.Current.Position.Floor())
	if target >= 0 && target == kin.cell {
		return
	}
	if kin.CanCollide && kin.cell >= 0 && target >= 0 {
		if g.k.resolver.check(o) {
			if o.disposed || !o.started {
				return
			}
			target = g.cellIndex(kin.Current.Position.Floor())
			if target == kin.cell {
				return
			}
		}
	}
	g.transfer(o, target)
}

func (g *Grid) transfer(o *Object, target int) {
	kin := o.Kin
	if target >= 0 && target == kin.cell {
		return
	}
	g.evict(o)
	if target >= 0 {
		kin.cell = target
		kin.slot = g.cells[target].push(o.id)
		kin.outside = false
		return
	}
	if g.configured && !kin.outside {
		kin.outside = true
		g.k.leftGrid(o)
	}
}

// evict removes o from its cell and repairs the slot of the object swapped
// into its place.
func (g *Grid) evict(o *Object) {
	kin := o.Kin
	if kin.cell < 0 {
		return
	}
	c := &g.cells[kin.cell]
	if moved := c.swapRemove(kin.slot); !moved.IsZero() {
		if m := g.k.obj(moved); m != nil {
			m.Kin.slot = kin.slot
		}
	}
	kin.cell, kin.slot = -1, -1
}
