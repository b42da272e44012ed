package native

import (
	"errors"
	"fmt"

	"github.com/gogpu/clmem/device"
)

var (
	// ErrNilHALDevice is returned when a device is built without a HAL
	// device or queue.
	ErrNilHALDevice = errors.New("native: HAL device is nil")

	// ErrNoAdapter is returned when a HAL instance exposes no adapter.
	ErrNoAdapter = errors.New("native: no adapter available")

	// ErrProvider is returned by FromProvider when the provider does not
	// expose HAL handles.
	ErrProvider = errors.New("native: provider does not expose HAL types")

	// ErrSubmitTimeout is returned when a submission does not complete
	// within the submit timeout.
	ErrSubmitTimeout = errors.New("native: submission timed out")

	// ErrKindMismatch is returned when a buffer operation is given a texture
	// or the other way around, or when texel sizes of a copy differ.
	ErrKindMismatch = errors.New("native: incompatible resources")

	// ErrEmptyPattern is returned by clears given no pattern bytes.
	ErrEmptyPattern = errors.New("native: empty clear pattern")

	// ErrClosed is returned after Close.
	ErrClosed = fmt.Errorf("native: device closed: %w", device.ErrInvalidResource)
)
