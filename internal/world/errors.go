package world

import "errors"

var (
	// ErrNotConstructible is returned for kinds outside the closed kind set.
	ErrNotConstructible = errors.New("kind is not constructible")
	// ErrNotOwned is returned when a graph or grid operation needs an owning
	// kernel and the object has none, or belongs to another kernel.
	ErrNotOwned = errors.New("object is not owned by this kernel")
	// ErrDisposed is returned when operating on a disposed object.
	ErrDisposed = errors.New("object is disposed")
	// ErrCycle is returned when an add would make a node its own ancestor.
	ErrCycle = errors.New("scene graph cycle")
	// ErrNameTaken is returned when a unique name is already registered.
	ErrNameTaken = errors.New("unique name already registered")
	// ErrInvalidBounds wraps every grid bound violation.
	ErrInvalidBounds = errors.New("invalid grid bounds")
)
