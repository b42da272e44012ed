package device

import (
	"unsafe"

	"github.com/gogpu/gputypes"
)

// ResourceType selects the placement of a new resource.
type ResourceType uint8

const (
	// ResourceNormal is device-preferred memory with a device-chosen layout.
	ResourceNormal ResourceType = iota

	// ResourceStaging is host-visible memory with a linear layout.
	ResourceStaging

	// ResourceUser wraps caller memory. The host slice passed at creation
	// becomes the storage of the resource.
	ResourceUser
)

// String returns the resource type name.
func (t ResourceType) String() string {
	switch t {
	case ResourceNormal:
		return "Normal"
	case ResourceStaging:
		return "Staging"
	case ResourceUser:
		return "User"
	default:
		return "Unknown"
	}
}

// Access describes the direction of a transfer.
type Access uint8

const (
	AccessRead Access = 1 << iota
	AccessWrite

	AccessReadWrite = AccessRead | AccessWrite
)

// Reads reports whether the access includes reading.
func (a Access) Reads() bool { return a&AccessRead != 0 }

// Writes reports whether the access includes writing.
func (a Access) Writes() bool { return a&AccessWrite != 0 }

// MapMode selects how a transfer is opened.
type MapMode uint8

const (
	// MapNormal opens a transient transfer. The device waits for pending
	// commands touching the resource and may stage the data through a
	// temporary allocation.
	MapNormal MapMode = iota

	// MapDirect returns a pointer into the resource storage itself without
	// synchronizing. It fails with ErrNotMappable when the resource storage
	// is not CPU visible or not linear.
	MapDirect

	// MapCoherent opens a persistent, coherent mapping. Only staging
	// resources support it.
	MapCoherent
)

// String returns the map mode name.
func (m MapMode) String() string {
	switch m {
	case MapNormal:
		return "Normal"
	case MapDirect:
		return "Direct"
	case MapCoherent:
		return "Coherent"
	default:
		return "Unknown"
	}
}

// ResourceInfo describes a resource.
type ResourceInfo struct {
	Buffer  bool
	Linear  bool
	Staging bool
	User    bool

	// Size is the byte size of a buffer, or of the linear storage of a
	// texture when the device exposes one.
	Size uint64

	// Texture only.
	Dimension gputypes.TextureDimension
	Format    gputypes.TextureFormat
	Width     uint32
	Height    uint32
	// DepthOrArrayLayers is the depth of a 3D texture or the layer count of
	// an array texture.
	DepthOrArrayLayers uint32
	Array              bool
}

// Resource is an opaque device allocation.
type Resource interface {
	Info() ResourceInfo
}

// Transfer is an open CPU-visible window onto a resource region. It stays
// valid until passed to Device.Unmap.
type Transfer interface {
	// Ptr is the address of the first byte of the mapped region.
	Ptr() unsafe.Pointer
	// Len is the number of bytes addressable from Ptr.
	Len() uint64
	RowPitch() uint32
	SlicePitch() uint64
}

// Bytes returns the mapped region of tx as a byte slice.
func Bytes(tx Transfer) []byte {
	if tx == nil || tx.Ptr() == nil || tx.Len() == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(tx.Ptr()), tx.Len())
}

// TextureDescriptor describes a texture to create.
type TextureDescriptor struct {
	Label     string
	Dimension gputypes.TextureDimension
	Format    gputypes.TextureFormat
	Width     uint32
	Height    uint32
	// DepthOrArrayLayers is the depth of a 3D texture or the layer count of
	// an array texture.
	DepthOrArrayLayers uint32
	Array              bool

	// RowPitch and SlicePitch describe the layout of the host data passed
	// at creation. Zero means tightly packed.
	RowPitch   uint32
	SlicePitch uint64
}

// Extent returns the size of the whole texture.
func (d *TextureDescriptor) Extent() gputypes.Extent3D {
	return gputypes.Extent3D{Width: d.Width, Height: d.Height, DepthOrArrayLayers: d.DepthOrArrayLayers}
}

// Device is a memory-owning device with its own command stream.
//
// Commands (CopyRegion, Clear*, *SubData) execute in submission order. A
// MapNormal transfer observes every command submitted before it; MapDirect
// and MapCoherent transfers do not synchronize.
type Device interface {
	Name() string

	// UnifiedMemory reports whether host and device share physical memory.
	UnifiedMemory() bool

	// CreateBuffer allocates a buffer. When host is non-nil and copyHost is
	// set, its first size bytes become the initial contents. With
	// ResourceUser the host slice is used as storage.
	CreateBuffer(size uint64, host []byte, copyHost bool, typ ResourceType) (Resource, error)

	// CreateTexture allocates a texture. host follows the layout given by
	// the descriptor pitches.
	CreateTexture(desc *TextureDescriptor, host []byte, copyHost bool, typ ResourceType) (Resource, error)

	DestroyResource(res Resource)

	MapBuffer(res Resource, offset, size uint64, access Access, mode MapMode) (Transfer, error)
	MapTexture(res Resource, box Box, access Access, mode MapMode) (Transfer, error)
	Unmap(tx Transfer)

	// CopyRegion copies box of src into dst at dstOrigin. Both resources
	// are buffers, or both are textures.
	CopyRegion(src, dst Resource, dstOrigin gputypes.Origin3D, box Box) error

	// ClearBuffer repeats pattern over [offset, offset+size).
	ClearBuffer(res Resource, pattern []byte, offset, size uint64) error

	// ClearTexture sets every texel of box to pattern.
	ClearTexture(res Resource, pattern []byte, box Box) error

	// ClearImageBuffer sets the texels of an image stored in a buffer at
	// offset with the given pitches.
	ClearImageBuffer(res Resource, pattern []byte, offset uint64, origin, region [3]uint64, rowPitch, slicePitch uint64, pixelSize uint32) error

	BufferSubData(res Resource, offset uint64, data []byte) error
	TextureSubData(res Resource, box Box, data []byte, rowPitch uint32, slicePitch uint64) error
}

// SamplerFactory is implemented by devices that realize sampler state
// objects.
type SamplerFactory interface {
	CreateSampler(desc *gputypes.SamplerDescriptor) (any, error)
	DestroySampler(s any)
}

// Finisher is implemented by devices with a deferred command stream.
type Finisher interface {
	// Finish executes every submitted command.
	Finish() error
}
