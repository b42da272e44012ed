package native

import (
	"github.com/gogpu/clmem/backend"
	"github.com/gogpu/clmem/device"
)

func init() {
	Register()
}

// Register adds the software HAL device to the backend registry. It runs on
// import.
func Register() {
	backend.Register(backend.BackendNative, func() (device.Device, error) {
		d, err := OpenSoftware()
		if err != nil {
			return nil, err
		}
		return d, nil
	})
}

// Unregister removes the native backend from the registry.
func Unregister() {
	backend.Unregister(backend.BackendNative)
}
