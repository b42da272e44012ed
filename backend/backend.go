package backend

import (
	"errors"
	"io"

	"github.com/gogpu/clmem/device"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not
	// registered or none of the registered backends could be opened.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// Names of the backends shipped with clmem.
const (
	BackendNative = "native"
	BackendSoft   = "soft"
)

// Factory opens a new device.
type Factory func() (device.Device, error)

// Close releases a device opened through the registry. Devices that own
// nothing outside their resources, like soft devices, need no closing.
func Close(dev device.Device) error {
	if c, ok := dev.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
