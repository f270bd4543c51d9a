package world

import "github.com/gammazero/deque"

// History is a bounded record of an object's past positions, oldest first.
// It is a sparse component: only objects with HistoryMax > 0 carry one.
type History struct {
	max    int
	points deque.Deque[Vec2]
}

func newHistory(max int) *History {
	return &History{max: max}
}

// Push appends p, dropping the oldest entry once the bound is reached.
func (h *History) Push(p Vec2) {
	if h.max <= 0 {
		return
	}
	if h.points.Len() == h.max {
		h.points.PopFront()
	}
	h.points.PushBack(p)
}

func (h *History) Len() int      { return h.points.Len() }
func (h *History) Max() int      { return h.max }
func (h *History) At(i int) Vec2 { return h.points.At(i) }

// Points appends the retained positions to dst.
func (h *History) Points(dst []Vec2) []Vec2 {
	for i := 0; i < h.points.Len(); i++ {
		dst = append(dst, h.points.At(i))
	}
	return dst
}
