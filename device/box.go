package device

import (
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
)

// Box is a region of a resource in device coordinates. Buffers use X and
// Width only. One-dimensional array textures carry the layer in Z.
type Box struct {
	Origin gputypes.Origin3D
	Size   gputypes.Extent3D
}

// BufferBox returns the box covering [offset, offset+size) of a buffer.
func BufferBox(offset, size uint64) (Box, error) {
	if offset > math.MaxUint32 || size > math.MaxUint32 {
		return Box{}, fmt.Errorf("%w: buffer box [%d,+%d) exceeds 32 bits", ErrInvalidRange, offset, size)
	}
	return Box{
		Origin: gputypes.Origin3D{X: uint32(offset)},
		Size:   gputypes.Extent3D{Width: uint32(size), Height: 1, DepthOrArrayLayers: 1},
	}, nil
}

// Empty reports whether the box covers no texel.
func (b Box) Empty() bool {
	return b.Size.Width == 0 || b.Size.Height == 0 || b.Size.DepthOrArrayLayers == 0
}

// Texels returns the number of texels covered by the box.
func (b Box) Texels() uint64 {
	return uint64(b.Size.Width) * uint64(b.Size.Height) * uint64(b.Size.DepthOrArrayLayers)
}

// Within reports whether the box fits in a resource of the given extent.
func (b Box) Within(e gputypes.Extent3D) bool {
	return uint64(b.Origin.X)+uint64(b.Size.Width) <= uint64(e.Width) &&
		uint64(b.Origin.Y)+uint64(b.Size.Height) <= uint64(e.Height) &&
		uint64(b.Origin.Z)+uint64(b.Size.DepthOrArrayLayers) <= uint64(e.DepthOrArrayLayers)
}

func (b Box) String() string {
	return fmt.Sprintf("(%d,%d,%d)+(%d,%d,%d)",
		b.Origin.X, b.Origin.Y, b.Origin.Z,
		b.Size.Width, b.Size.Height, b.Size.DepthOrArrayLayers)
}
