package clmem

import (
	"errors"
	"fmt"

	"github.com/gogpu/clmem/device"
	"github.com/gogpu/clmem/internal/rect"
)

var (
	// ErrOutOfResources reports a failure to open a transfer, create a
	// shadow, or resolve the resource of an object on a device.
	ErrOutOfResources = errors.New("clmem: out of resources")

	// ErrOutOfHostMemory reports an allocation failure or an offset and
	// size computation that does not fit the target width.
	ErrOutOfHostMemory = errors.New("clmem: out of host memory")

	// ErrImageFormatNotSupported is returned by image constructors for
	// formats without a device encoding.
	ErrImageFormatNotSupported = errors.New("clmem: image format not supported")

	// ErrInvalidValue reports an invalid argument.
	ErrInvalidValue = errors.New("clmem: invalid value")

	// ErrNoResource reports a device the object was never realized on.
	ErrNoResource = errors.New("clmem: object has no resource on device")

	// ErrInvalidDevice reports a device that is not part of the context.
	ErrInvalidDevice = errors.New("clmem: device not in context")
)

// IsResourceError reports whether err belongs to the resource classes:
// exhaustion, range, or an unresolvable object graph.
func IsResourceError(err error) bool {
	return errors.Is(err, ErrOutOfResources) || errors.Is(err, ErrOutOfHostMemory)
}

// rangeError wraps an arithmetic failure as a host-memory error.
func rangeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrOutOfHostMemory, op, err)
}

// resourceError classifies a device failure.
func resourceError(op string, err error) error {
	if errors.Is(err, device.ErrOutOfMemory) {
		return fmt.Errorf("%w: %s: %w", ErrOutOfHostMemory, op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrOutOfResources, op, err)
}

// checkedAdd is rect.Add reported as a range error.
func checkedAdd(op string, a, b uint64) (uint64, error) {
	s, err := rect.Add(a, b)
	if err != nil {
		return 0, rangeError(op, err)
	}
	return s, nil
}
