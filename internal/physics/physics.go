// Package physics holds the numeric rules shared by the collision resolver
// and the force pipelines. Everything here is pure and allocation-free.
package physics

import "math"

// Sign returns -1, 0 or 1 as (v>0)-(v<0).
func Sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// ElasticExchange returns the post-collision velocities of two masses along
// one axis. Callers must ensure m1+m2 > 0.
func ElasticExchange(m1, v1, m2, v2 float64) (float64, float64) {
	total := m1 + m2
	out1 := (m1-m2)/total*v1 + 2*m2/total*v2
	out2 := (m2-m1)/total*v2 + 2*m1/total*v1
	return out1, out2
}

// Reflect bounces v back when the body was travelling along that axis.
func Reflect(v float64, dir int) float64 {
	if dir == 0 {
		return v
	}
	return -v
}

// Softened returns the acceleration that body b exerts on body a under a
// softened inverse-square law. eps keeps close encounters finite.
func Softened(g, ax, ay, bx, by, bMass, eps float64) (float64, float64) {
	dx := bx - ax
	dy := by - ay
	dist2 := dx*dx + dy*dy + eps*eps
	if dist2 == 0 {
		return 0, 0
	}
	inv := 1 / math.Sqrt(dist2)
	f := g * bMass / dist2
	return dx * inv * f, dy * inv * f
}
