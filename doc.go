// Package clmem manages compute memory objects shared by several devices
// and exposes CPU-visible mappings of them.
//
// # Overview
//
// A memory object is a Buffer or an Image created in a Context. The context
// realizes the object on every one of its devices; the devices own the
// storage and clmem only drives it through the device.Device contract.
// Callers reach the storage through Queues, each bound to one device:
//
//	dev := soft.New(soft.WithUnifiedMemory(true))
//	ctx, err := clmem.NewContext([]device.Device{dev})
//	q, err := ctx.NewQueue(dev)
//
//	buf, err := clmem.NewBuffer(ctx, clmem.MemReadWrite, 4096, clmem.HostPtr{})
//	p, err := buf.Map(q, 0)
//	// ... use p.Bytes(4096) ...
//	err = buf.Unmap(q, p)
//
// # Mapping
//
// The first map of an object on a device opens a mapping session. When the
// device shares memory with the host, or the resource is host visible, and
// the resource is linear, the session maps the resource directly. Otherwise
// it maps a staging shadow that is filled by a device copy when the object
// goes from unmapped to mapped, and written back when it goes from mapped to
// unmapped. Objects created with MemUseHostPtr that the device cannot wrap
// mirror their storage through the caller's memory instead.
//
// Map is split into Reserve, which only computes the pointer and never waits
// for data, and SyncShadow, which makes the data visible. A non-blocking API
// layer calls Reserve at enqueue time and SyncShadow when the queue reaches
// the command.
//
// # Concurrency
//
// Memory objects are safe for concurrent use from several queues. The
// mapping state of an object is guarded by one mutex per object; resource
// tables are immutable after construction. Data written through mapped
// pointers is synchronized by the caller.
//
// # Logging
//
// clmem logs through log/slog and is silent by default. See SetLogger.
package clmem
