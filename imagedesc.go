package clmem

import (
	"fmt"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/clmem/device"
	"github.com/gogpu/clmem/internal/rect"
)

// ImageType is the dimensionality of an image.
type ImageType uint8

const (
	Image1D ImageType = iota + 1
	Image1DBuffer
	Image1DArray
	Image2D
	Image2DArray
	Image3D
)

var imageTypeNames = map[ImageType]string{
	Image1D:       "1D",
	Image1DBuffer: "1DBuffer",
	Image1DArray:  "1DArray",
	Image2D:       "2D",
	Image2DArray:  "2DArray",
	Image3D:       "3D",
}

func (t ImageType) String() string {
	if s, ok := imageTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("ImageType(%d)", uint8(t))
}

// Dims returns the number of spatial dimensions, not counting the array
// axis.
func (t ImageType) Dims() int {
	switch t {
	case Image2D, Image2DArray:
		return 2
	case Image3D:
		return 3
	default:
		return 1
	}
}

// IsArray reports whether the type has an array axis.
func (t ImageType) IsArray() bool { return t == Image1DArray || t == Image2DArray }

// ImageDesc describes the shape of an image. Pitches describe host memory
// passed at creation or the buffer an image is created from; zero means
// tightly packed.
type ImageDesc struct {
	Type      ImageType
	Width     uint64
	Height    uint64
	Depth     uint64
	ArraySize uint64

	RowPitch   uint64
	SlicePitch uint64
}

// sanitize sets the extents the type does not use to 1.
func (d ImageDesc) sanitize() ImageDesc {
	dims := d.Type.Dims()
	if dims < 2 {
		d.Height = 1
	}
	if dims < 3 {
		d.Depth = 1
	}
	if !d.Type.IsArray() {
		d.ArraySize = 1
	}
	return d
}

// Size returns the extent of the image in host coordinates. The array axis
// follows the last spatial one, so a 1D array has its layers in y.
func (d ImageDesc) Size() [3]uint64 {
	switch d.Type {
	case Image1DArray:
		return [3]uint64{d.Width, d.ArraySize, 1}
	case Image2DArray:
		return [3]uint64{d.Width, d.Height, d.ArraySize}
	default:
		return [3]uint64{d.Width, d.Height, d.Depth}
	}
}

// Pixels returns the number of texels of the image.
func (d ImageDesc) Pixels() (uint64, error) {
	s := d.Size()
	n, err := rect.Mul(s[0], s[1])
	if err != nil {
		return 0, err
	}
	return rect.Mul(n, s[2])
}

// withPitches validates the extents and fills in tight pitches.
func (d ImageDesc) withPitches(pixel uint32) (ImageDesc, error) {
	if _, ok := imageTypeNames[d.Type]; !ok {
		return d, fmt.Errorf("%w: image type %v", ErrInvalidValue, d.Type)
	}
	d = d.sanitize()
	s := d.Size()
	if s[0] == 0 || s[1] == 0 || s[2] == 0 {
		return d, fmt.Errorf("%w: empty %v image %v", ErrInvalidValue, d.Type, s)
	}

	tightRow, err := rect.Mul(d.Width, uint64(pixel))
	if err != nil {
		return d, rangeError("image row pitch", err)
	}
	if d.RowPitch == 0 {
		d.RowPitch = tightRow
	}
	if d.RowPitch < tightRow {
		return d, fmt.Errorf("%w: row pitch %d below %d", ErrInvalidValue, d.RowPitch, tightRow)
	}

	// A 1D array keeps one row per layer.
	tightSlice := d.RowPitch
	if d.Type != Image1DArray {
		if tightSlice, err = rect.Mul(d.RowPitch, d.Height); err != nil {
			return d, rangeError("image slice pitch", err)
		}
	}
	if d.SlicePitch == 0 {
		d.SlicePitch = tightSlice
	}
	if d.SlicePitch < tightSlice {
		return d, fmt.Errorf("%w: slice pitch %d below %d", ErrInvalidValue, d.SlicePitch, tightSlice)
	}
	return d, nil
}

// span returns the bytes covered by the whole image in the declared layout.
func (d ImageDesc) span(pixel uint32) (uint64, error) {
	_, size, err := rect.OffsetSize(rect.Vec{}, d.Size(), d.pitch(pixel))
	return size, err
}

// pitch returns the strides of the host coordinates of the image.
func (d ImageDesc) pitch(pixel uint32) rect.Vec {
	if d.Type == Image1DArray {
		return rect.Vec{uint64(pixel), d.SlicePitch, d.SlicePitch}
	}
	return rect.Vec{uint64(pixel), d.RowPitch, d.SlicePitch}
}

// check validates that region at origin lies inside the image.
func (d ImageDesc) check(origin, region [3]uint64) error {
	s := d.Size()
	for k := range 3 {
		end, err := rect.Add(origin[k], region[k])
		if err != nil || end > s[k] {
			return fmt.Errorf("%w: region %v at %v outside %v", ErrInvalidValue, region, origin, s)
		}
	}
	return nil
}

// Box converts a host region to a device box. The layers of a 1D array move
// from y to z.
func (d ImageDesc) Box(origin, region [3]uint64) (device.Box, error) {
	if d.Type == Image1DArray {
		origin = [3]uint64{origin[0], 0, origin[1]}
		region = [3]uint64{region[0], 1, region[1]}
	}
	var v [6]uint32
	for k, x := range [6]uint64{origin[0], origin[1], origin[2], region[0], region[1], region[2]} {
		if x > math.MaxUint32 {
			return device.Box{}, fmt.Errorf("%w: image coordinate %d", ErrOutOfHostMemory, x)
		}
		v[k] = uint32(x)
	}
	return device.Box{
		Origin: gputypes.Origin3D{X: v[0], Y: v[1], Z: v[2]},
		Size:   gputypes.Extent3D{Width: v[3], Height: v[4], DepthOrArrayLayers: v[5]},
	}, nil
}

// wholeBox is the device box of the whole image.
func (d ImageDesc) wholeBox() (device.Box, error) {
	return d.Box([3]uint64{}, d.Size())
}

// mapPitches returns the pitches reported by a map: the row pitch from two
// dimensions up, the slice pitch for 3D and array images.
func (d ImageDesc) mapPitches(row, slice uint64) (uint64, uint64) {
	if d.Type.Dims() < 2 {
		row = 0
	}
	if d.Type.Dims() < 3 && !d.Type.IsArray() {
		slice = 0
	}
	return row, slice
}

// offset returns the byte offset of origin in a mapping with the given
// pitches.
func (d ImageDesc) offset(origin [3]uint64, pixel uint32, row, slice uint64) (uint64, error) {
	if d.Type == Image1DArray {
		return rect.Dot(rect.Vec{origin[0], origin[1], 0}, rect.Vec{uint64(pixel), slice, 0})
	}
	return rect.Dot(origin, rect.Vec{uint64(pixel), row, slice})
}

func (d ImageDesc) textureDescriptor(format gputypes.TextureFormat) (*device.TextureDescriptor, error) {
	box, err := d.wholeBox()
	if err != nil {
		return nil, err
	}
	if d.RowPitch > math.MaxUint32 {
		return nil, fmt.Errorf("%w: row pitch %d", ErrOutOfHostMemory, d.RowPitch)
	}
	td := &device.TextureDescriptor{
		Label:              d.Type.String(),
		Format:             format,
		Width:              box.Size.Width,
		Height:             box.Size.Height,
		DepthOrArrayLayers: box.Size.DepthOrArrayLayers,
		Array:              d.Type.IsArray(),
		RowPitch:           uint32(d.RowPitch),
		SlicePitch:         d.SlicePitch,
	}
	switch d.Type.Dims() {
	case 1:
		td.Dimension = gputypes.TextureDimension1D
	case 2:
		td.Dimension = gputypes.TextureDimension2D
	default:
		td.Dimension = gputypes.TextureDimension3D
	}
	return td, nil
}
