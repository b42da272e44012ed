package soft

import (
	"errors"
	"fmt"

	"github.com/gogpu/clmem/device"
)

var (
	// ErrMemoryBudgetExceeded is returned when an allocation would exceed
	// the device memory budget.
	ErrMemoryBudgetExceeded = fmt.Errorf("soft: memory budget exceeded: %w", device.ErrOutOfMemory)

	// ErrKindMismatch is returned by CopyRegion when one side is a buffer
	// and the other a texture, or when texel sizes differ.
	ErrKindMismatch = errors.New("soft: incompatible copy resources")

	// ErrEmptyPattern is returned by clears given no pattern bytes.
	ErrEmptyPattern = errors.New("soft: empty clear pattern")
)
