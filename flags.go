package clmem

import "strings"

// MemFlags describes how a memory object is created and accessed.
type MemFlags uint64

const (
	MemReadWrite MemFlags = 1 << iota
	MemWriteOnly
	MemReadOnly

	// MemUseHostPtr makes the caller's memory the storage of the object.
	// Devices that cannot wrap it keep their own copy and mirror it to the
	// caller's memory on map and unmap.
	MemUseHostPtr
	// MemAllocHostPtr asks for host-visible storage.
	MemAllocHostPtr
	// MemCopyHostPtr initializes the object from the caller's memory.
	MemCopyHostPtr

	MemHostWriteOnly
	MemHostReadOnly
	MemHostNoAccess
)

const (
	memDeviceAccess = MemReadWrite | MemWriteOnly | MemReadOnly
	memHostPtr      = MemUseHostPtr | MemAllocHostPtr | MemCopyHostPtr
	memHostAccess   = MemHostWriteOnly | MemHostReadOnly | MemHostNoAccess
)

var flagNames = []struct {
	flag MemFlags
	name string
}{
	{MemReadWrite, "ReadWrite"},
	{MemWriteOnly, "WriteOnly"},
	{MemReadOnly, "ReadOnly"},
	{MemUseHostPtr, "UseHostPtr"},
	{MemAllocHostPtr, "AllocHostPtr"},
	{MemCopyHostPtr, "CopyHostPtr"},
	{MemHostWriteOnly, "HostWriteOnly"},
	{MemHostReadOnly, "HostReadOnly"},
	{MemHostNoAccess, "HostNoAccess"},
}

// Has reports whether every flag of x is set.
func (f MemFlags) Has(x MemFlags) bool { return f&x == x }

func (f MemFlags) String() string {
	if f == 0 {
		return "0"
	}
	var parts []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, "|")
}

// validate checks the combinations that are never allowed.
func (f MemFlags) validate() bool {
	if bitsSet(f&memDeviceAccess) > 1 || bitsSet(f&memHostAccess) > 1 {
		return false
	}
	if f.Has(MemUseHostPtr) && f&(MemAllocHostPtr|MemCopyHostPtr) != 0 {
		return false
	}
	return true
}

// inherit fills the access and host-pointer flags a sub-object leaves unset
// from its parent.
func (f MemFlags) inherit(parent MemFlags) MemFlags {
	if f&memDeviceAccess == 0 {
		f |= parent & memDeviceAccess
	}
	if f&memHostAccess == 0 {
		f |= parent & memHostAccess
	}
	return f | parent&memHostPtr
}

func bitsSet(f MemFlags) int {
	n := 0
	for ; f != 0; f &= f - 1 {
		n++
	}
	return n
}

// HostAccess is the CPU access allowed on an object.
type HostAccess uint8

const (
	HostAccessNone  HostAccess = 0
	HostAccessRead  HostAccess = 1 << 0
	HostAccessWrite HostAccess = 1 << 1

	HostAccessReadWrite = HostAccessRead | HostAccessWrite
)

func (a HostAccess) String() string {
	switch a {
	case HostAccessNone:
		return "None"
	case HostAccessRead:
		return "Read"
	case HostAccessWrite:
		return "Write"
	default:
		return "ReadWrite"
	}
}

// hostAccess derives the CPU access from the host access flags.
func (f MemFlags) hostAccess() HostAccess {
	switch {
	case f&MemHostNoAccess != 0:
		return HostAccessNone
	case f&MemHostReadOnly != 0:
		return HostAccessRead
	case f&MemHostWriteOnly != 0:
		return HostAccessWrite
	default:
		return HostAccessReadWrite
	}
}
