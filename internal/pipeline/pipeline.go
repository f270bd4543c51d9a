// Package pipeline defines the bulk force computation contract. The kernel
// gathers one Input row per physical object each tick, a Pipeline turns the
// batch into Result rows off the simulation goroutine, and the kernel applies
// the rows on a later tick.
package pipeline

import (
	"context"

	"github.com/l1jgo/simkernel/internal/core/ecs"
)

// Kind identifies which pipeline produced a result batch.
type Kind uint8

const (
	KindNone Kind = iota
	KindGravity
	KindScript
)

func (k Kind) String() string {
	switch k {
	case KindGravity:
		return "gravity"
	case KindScript:
		return "script"
	}
	return "none"
}

// Input is the per-object row submitted to a pipeline.
type Input struct {
	ID   ecs.EntityID
	Mass float64
	X, Y float64
}

// Result is the per-object row a pipeline hands back. Rows are matched to
// objects by ID, never by position alone.
type Result struct {
	ID      ecs.EntityID
	DeltaVX float64
	DeltaVY float64
	ForceX  float64
	ForceY  float64
}

// Pipeline computes velocity changes for a batch of bodies. Implementations
// must not retain or mutate in.
type Pipeline interface {
	Kind() Kind
	Compute(ctx context.Context, in []Input, dt float64) ([]Result, error)
}
