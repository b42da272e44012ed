// Package backend keeps a registry of device backends.
//
// Backend packages register a factory from their init function, so importing
// one is enough to make it available:
//
//	import _ "github.com/gogpu/clmem/backend/soft"
//
// # Backend Selection
//
// Use Default to open the best available backend, or Open to request one by
// name:
//
//	dev, name, err := backend.Default()
//
//	// Or request a specific backend
//	dev, err := backend.Open(backend.BackendSoft)
//
// The native backend (a gogpu/wgpu HAL device) is preferred over the soft
// reference device. Devices opened here are released with Close.
package backend
