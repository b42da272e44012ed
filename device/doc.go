// Package device defines the collaborator contract between clmem memory
// objects and the devices that own their storage.
//
// A Device allocates resources, opens CPU-visible transfers on them and
// executes copy and clear commands on its own command stream. Memory objects
// never allocate GPU memory themselves; they resolve a Resource per Device and
// drive it through this interface.
//
// Two implementations ship with the module:
//
//   - backend/soft: a pure-Go reference device (unified or discrete, linear or
//     tiled texture layouts)
//   - backend/native: a device over gogpu/wgpu HAL
package device
