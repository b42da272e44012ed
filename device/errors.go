package device

import "errors"

var (
	// ErrNotMappable is returned by MapBuffer and MapTexture when the
	// requested mode cannot be satisfied for the resource, for example a
	// direct map of a tiled texture or of device-local memory.
	ErrNotMappable = errors.New("device: resource cannot be mapped in the requested mode")

	// ErrUnsupported is returned when the device does not implement an
	// optional capability, such as wrapping caller memory as a user resource.
	ErrUnsupported = errors.New("device: operation not supported")

	// ErrOutOfMemory is returned when an allocation exceeds the device budget.
	ErrOutOfMemory = errors.New("device: out of memory")

	// ErrInvalidResource is returned when a resource does not belong to the
	// device or has already been destroyed.
	ErrInvalidResource = errors.New("device: invalid resource")

	// ErrInvalidRange is returned when an offset, size or box lies outside
	// the resource.
	ErrInvalidRange = errors.New("device: range outside resource")
)
