// Package native binds clmem to a gogpu/wgpu HAL device.
//
// A native Device wraps a hal.Device and its hal.Queue and implements
// device.Device on top of them:
//
//   - Buffers are hal buffers. Staging buffers, and every buffer of a
//     unified-memory adapter, carry map usage and can be mapped directly.
//   - Normal textures are hal textures and are never CPU visible. Staging
//     textures are linear images stored in a mappable hal buffer with rows
//     aligned to the adapter copy pitch.
//   - A normal map of device-only memory goes through a temporary staging
//     buffer filled by a copy command and written back on unmap.
//   - Every command is encoded into its own command buffer and submitted at
//     once. The device waits for the submission before returning, so the
//     command stream is never deferred.
//
// Devices come from an already open HAL device (New), from an adapter
// (Open), from the pure-Go software HAL (OpenSoftware), or from a
// gpucontext.DeviceProvider such as a gogpu application (FromProvider).
package native
