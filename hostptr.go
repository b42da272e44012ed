package clmem

import (
	"fmt"
	"unsafe"
)

// HostPtr is an address in memory owned by the caller: host memory passed
// with MemUseHostPtr, or a pointer returned by a map. clmem never frees or
// validates such memory. The caller keeps it alive while the object or
// mapping uses it and synchronizes access across goroutines.
type HostPtr struct {
	p unsafe.Pointer
}

// NewHostPtr wraps p.
func NewHostPtr(p unsafe.Pointer) HostPtr { return HostPtr{p: p} }

// HostPtrOf returns the address of the first byte of b, or the nil HostPtr
// for an empty slice.
func HostPtrOf(b []byte) HostPtr {
	if len(b) == 0 {
		return HostPtr{}
	}
	return HostPtr{p: unsafe.Pointer(&b[0])}
}

// Pointer returns the wrapped address.
func (h HostPtr) Pointer() unsafe.Pointer { return h.p }

// IsNil reports whether h holds no address.
func (h HostPtr) IsNil() bool { return h.p == nil }

// Addr returns the numeric address of h. It identifies a mapping and must
// not be converted back into a pointer.
func (h HostPtr) Addr() uintptr { return uintptr(h.p) }

// Add returns h advanced by off bytes.
func (h HostPtr) Add(off uint64) HostPtr {
	if h.p == nil {
		return h
	}
	return HostPtr{p: unsafe.Add(h.p, off)}
}

// Bytes returns the n bytes starting at h.
func (h HostPtr) Bytes(n uint64) []byte {
	if h.p == nil || n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(h.p), n)
}

func (h HostPtr) String() string {
	return fmt.Sprintf("%#x", uintptr(h.p))
}
