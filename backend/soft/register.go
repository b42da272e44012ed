package soft

import (
	"github.com/gogpu/clmem/backend"
	"github.com/gogpu/clmem/device"
)

func init() {
	Register()
}

// Register adds the default soft device to the backend registry. It runs on
// import.
func Register() {
	backend.Register(backend.BackendSoft, func() (device.Device, error) {
		return New(WithName(backend.BackendSoft)), nil
	})
}

// Unregister removes the soft backend from the registry.
func Unregister() {
	backend.Unregister(backend.BackendSoft)
}
