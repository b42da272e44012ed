// Package soft provides a pure-Go reference device for clmem.
//
// A soft Device keeps every resource in host memory but models the placement
// constraints of real hardware:
//
//   - Discrete devices refuse direct maps of normal resources; only staging
//     and user resources are CPU visible.
//   - Tiled devices store normal textures in 4x4 texel tiles that cannot be
//     exposed as linear memory.
//   - Staging resources live in anonymous mmap memory on unix systems.
//   - Copy, clear and upload commands go through a FIFO command stream that
//     either runs eagerly or, in deferred mode, waits for Finish or for a
//     synchronizing map.
//
// Stats and History expose what the device did, which makes the package the
// reference collaborator for clmem tests.
//
// Devices can be described declaratively in YAML:
//
//	devices:
//	  - name: igpu
//	    unified_memory: true
//	  - name: dgpu
//	    tiled_textures: true
//	    memory_budget: 268435456
package soft
