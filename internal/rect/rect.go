// Package rect copies rectangular regions between linear memory spans and
// checks the offset arithmetic that addresses them.
package rect

import (
	"errors"
	"fmt"
	"math/bits"
)

var (
	// ErrOverflow is returned when offset or size arithmetic does not fit
	// in 64 bits.
	ErrOverflow = errors.New("rect: arithmetic overflow")

	// ErrOutOfBounds is returned when a region does not fit in its span.
	ErrOutOfBounds = errors.New("rect: region exceeds span")
)

// Vec is an (x, y, z) triple of texels, rows and slices.
type Vec [3]uint64

// Layout positions a region inside a span.
type Layout struct {
	Origin     Vec
	RowPitch   uint64
	SlicePitch uint64
}

// Add returns a+b.
func Add(a, b uint64) (uint64, error) {
	s, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%w: %d + %d", ErrOverflow, a, b)
	}
	return s, nil
}

// Mul returns a*b.
func Mul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, fmt.Errorf("%w: %d * %d", ErrOverflow, a, b)
	}
	return lo, nil
}

// Dot returns a·b.
func Dot(a, b Vec) (uint64, error) {
	var sum uint64
	for i := range a {
		p, err := Mul(a[i], b[i])
		if err != nil {
			return 0, err
		}
		if sum, err = Add(sum, p); err != nil {
			return 0, err
		}
	}
	return sum, nil
}

// OffsetSize returns the byte offset of origin and the number of bytes
// spanned by region in a layout whose strides are pitch (pixel, row,
// slice). A region with a zero component spans no bytes.
func OffsetSize(origin, region, pitch Vec) (offset, size uint64, err error) {
	if offset, err = Dot(origin, pitch); err != nil {
		return 0, 0, err
	}
	if region[0] == 0 || region[1] == 0 || region[2] == 0 {
		return offset, 0, nil
	}
	size, err = Dot(Vec{region[0], region[1] - 1, region[2] - 1}, pitch)
	return offset, size, err
}

// End returns offset+size of region at l with the given pixel size.
func (l Layout) End(region Vec, pixelSize uint64) (uint64, error) {
	off, size, err := OffsetSize(l.Origin, region, Vec{pixelSize, l.RowPitch, l.SlicePitch})
	if err != nil {
		return 0, err
	}
	return Add(off, size)
}

// Copy copies region from src to dst. Each row moves region[0]*pixelSize
// bytes. Both layouts are validated against their spans before any byte is
// written.
func Copy(dst []byte, dl Layout, src []byte, sl Layout, region Vec, pixelSize uint64) error {
	if region[0] == 0 || region[1] == 0 || region[2] == 0 {
		return nil
	}
	rowBytes, err := Mul(region[0], pixelSize)
	if err != nil {
		return err
	}
	if err := fits(dst, dl, region, pixelSize); err != nil {
		return fmt.Errorf("destination: %w", err)
	}
	if err := fits(src, sl, region, pixelSize); err != nil {
		return fmt.Errorf("source: %w", err)
	}

	// fits proved every offset below len(span), so nothing here overflows.
	dBase := dl.Origin[0]*pixelSize + dl.Origin[1]*dl.RowPitch + dl.Origin[2]*dl.SlicePitch
	sBase := sl.Origin[0]*pixelSize + sl.Origin[1]*sl.RowPitch + sl.Origin[2]*sl.SlicePitch
	for z := uint64(0); z < region[2]; z++ {
		for y := uint64(0); y < region[1]; y++ {
			d := dBase + z*dl.SlicePitch + y*dl.RowPitch
			s := sBase + z*sl.SlicePitch + y*sl.RowPitch
			copy(dst[d:d+rowBytes], src[s:s+rowBytes])
		}
	}
	return nil
}

func fits(span []byte, l Layout, region Vec, pixelSize uint64) error {
	end, err := l.End(region, pixelSize)
	if err != nil {
		return err
	}
	if end > uint64(len(span)) {
		return fmt.Errorf("%w: needs %d bytes, have %d", ErrOutOfBounds, end, len(span))
	}
	return nil
}
