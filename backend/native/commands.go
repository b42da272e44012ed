package native

import (
	"bytes"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/clmem/device"
	"github.com/gogpu/clmem/internal/rect"
)

// CopyRegion implements device.Device.
func (d *Device) CopyRegion(src, dst device.Resource, dstOrigin gputypes.Origin3D, box device.Box) error {
	s, err := d.lookup(src)
	if err != nil {
		return err
	}
	t, err := d.lookup(dst)
	if err != nil {
		return err
	}
	if s.info.Buffer != t.info.Buffer {
		return fmt.Errorf("%w: copy between a buffer and a texture", ErrKindMismatch)
	}
	if s.info.Buffer {
		return d.copyBuffer(s, t, uint64(dstOrigin.X), uint64(box.Origin.X), uint64(box.Size.Width))
	}
	if s.pixel != t.pixel {
		return fmt.Errorf("%w: %d-byte and %d-byte texels", ErrKindMismatch, s.pixel, t.pixel)
	}
	dbox := device.Box{Origin: dstOrigin, Size: box.Size}
	if !box.Within(s.extent()) || !dbox.Within(t.extent()) {
		return fmt.Errorf("%w: copy %v to %v", device.ErrInvalidRange, box, dbox)
	}
	if box.Empty() {
		return nil
	}

	switch {
	case !s.linearTexture() && !t.linearTexture():
		return d.submit("copy texture", func(enc hal.CommandEncoder) {
			enc.CopyTextureToTexture(s.tex, t.tex, []hal.TextureCopy{{
				SrcBase: s.copyTexture(box.Origin),
				DstBase: t.copyTexture(dstOrigin),
				Size:    extent(box),
			}})
		})
	case !s.linearTexture():
		return d.submit("copy texture to staging", func(enc hal.CommandEncoder) {
			enc.CopyTextureToBuffer(s.tex, t.buf, []hal.BufferTextureCopy{t.linearCopy(dbox, s.copyTexture(box.Origin))})
		})
	case !t.linearTexture():
		return d.submit("copy staging to texture", func(enc hal.CommandEncoder) {
			enc.CopyBufferToTexture(s.buf, t.tex, []hal.BufferTextureCopy{s.linearCopy(box, t.copyTexture(dstOrigin))})
		})
	}

	// Both sides are host visible.
	return s.withBytes(func(from []byte) error {
		return t.withBytes(func(to []byte) error {
			return rect.Copy(to, t.layout(dbox), from, s.layout(box), boxVec(box), uint64(s.pixel))
		})
	})
}

// linearCopy describes box of a staging texture for a buffer/texture copy.
func (r *resource) linearCopy(box device.Box, tex hal.ImageCopyTexture) hal.BufferTextureCopy {
	l := r.layout(box)
	return hal.BufferTextureCopy{
		BufferLayout: hal.ImageDataLayout{
			Offset:       l.Origin[0]*uint64(r.pixel) + l.Origin[1]*r.rowPitch + l.Origin[2]*r.slicePitch,
			BytesPerRow:  uint32(r.rowPitch),
			RowsPerImage: r.info.Height,
		},
		TextureBase: tex,
		Size:        extent(box),
	}
}

func (d *Device) copyBuffer(s, t *resource, dstOff, srcOff, size uint64) error {
	if srcOff > s.info.Size || size > s.info.Size-srcOff || dstOff > t.info.Size || size > t.info.Size-dstOff {
		return fmt.Errorf("%w: copy [%d,+%d) to %d", device.ErrInvalidRange, srcOff, size, dstOff)
	}
	if size == 0 {
		return nil
	}
	if srcOff%copyAlign == 0 && dstOff%copyAlign == 0 && size%copyAlign == 0 {
		return d.submit("copy buffer", func(enc hal.CommandEncoder) {
			enc.CopyBufferToBuffer(s.buf, t.buf, []hal.BufferCopy{{SrcOffset: srcOff, DstOffset: dstOff, Size: size}})
		})
	}
	data, err := d.readBuffer(s, srcOff, size)
	if err != nil {
		return err
	}
	return d.writeBuffer(t, dstOff, data)
}

// readBuffer returns a copy of [off, off+size) of r.
func (d *Device) readBuffer(r *resource, off, size uint64) ([]byte, error) {
	tx, err := d.MapBuffer(r, off, size, device.AccessRead, device.MapNormal)
	if err != nil {
		return nil, err
	}
	defer d.Unmap(tx)
	return bytes.Clone(device.Bytes(tx)), nil
}

// writeBuffer stores data at off, through the queue when the range is copy
// aligned and through a mapping otherwise.
func (d *Device) writeBuffer(r *resource, off uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if !r.mappable && off%copyAlign == 0 && uint64(len(data))%copyAlign == 0 {
		if err := d.queue.WriteBuffer(r.buf, off, data); err != nil {
			return fmt.Errorf("native: write buffer: %w", err)
		}
		return nil
	}
	tx, err := d.MapBuffer(r, off, uint64(len(data)), device.AccessWrite, device.MapNormal)
	if err != nil {
		return err
	}
	copy(device.Bytes(tx), data)
	d.Unmap(tx)
	return nil
}

// ClearBuffer implements device.Device.
func (d *Device) ClearBuffer(res device.Resource, pattern []byte, offset, size uint64) error {
	r, err := d.lookup(res)
	if err != nil {
		return err
	}
	if !r.info.Buffer {
		return fmt.Errorf("%w: ClearBuffer on a texture", ErrKindMismatch)
	}
	if len(pattern) == 0 {
		return ErrEmptyPattern
	}
	if offset > r.info.Size || size > r.info.Size-offset {
		return fmt.Errorf("%w: clear [%d,+%d) of %d", device.ErrInvalidRange, offset, size, r.info.Size)
	}
	if size == 0 {
		return nil
	}
	if isZero(pattern) && offset%copyAlign == 0 && size%copyAlign == 0 {
		return d.submit("clear buffer", func(enc hal.CommandEncoder) {
			enc.ClearBuffer(r.buf, offset, size)
		})
	}
	data := make([]byte, size)
	fill(data, pattern)
	return d.writeBuffer(r, offset, data)
}

// ClearTexture implements device.Device.
func (d *Device) ClearTexture(res device.Resource, pattern []byte, box device.Box) error {
	r, err := d.lookup(res)
	if err != nil {
		return err
	}
	if r.info.Buffer {
		return fmt.Errorf("%w: ClearTexture on a buffer", ErrKindMismatch)
	}
	if uint32(len(pattern)) < r.pixel {
		return fmt.Errorf("%w: %d pattern bytes for %d-byte texels", ErrEmptyPattern, len(pattern), r.pixel)
	}
	if box.Empty() {
		return nil
	}
	row := uint64(box.Size.Width) * uint64(r.pixel)
	data := make([]byte, row*uint64(box.Size.Height)*uint64(box.Size.DepthOrArrayLayers))
	fill(data, pattern[:r.pixel])
	return d.TextureSubData(r, box, data, uint32(row), row*uint64(box.Size.Height))
}

// ClearImageBuffer implements device.Device.
func (d *Device) ClearImageBuffer(res device.Resource, pattern []byte, offset uint64, origin, region [3]uint64, rowPitch, slicePitch uint64, pixelSize uint32) error {
	r, err := d.lookup(res)
	if err != nil {
		return err
	}
	if !r.info.Buffer {
		return fmt.Errorf("%w: ClearImageBuffer on a texture", ErrKindMismatch)
	}
	if pixelSize == 0 || uint32(len(pattern)) < pixelSize {
		return fmt.Errorf("%w: %d pattern bytes for %d-byte texels", ErrEmptyPattern, len(pattern), pixelSize)
	}
	if offset > r.info.Size {
		return fmt.Errorf("%w: image offset %d of %d", device.ErrInvalidRange, offset, r.info.Size)
	}
	px := uint64(pixelSize)
	l := rect.Layout{Origin: rect.Vec(origin), RowPitch: rowPitch, SlicePitch: slicePitch}
	end, err := l.End(rect.Vec(region), px)
	if err != nil || end > r.info.Size-offset {
		return fmt.Errorf("%w: image clear ends at %d of %d", device.ErrInvalidRange, end, r.info.Size-offset)
	}
	if region[0] == 0 || region[1] == 0 || region[2] == 0 {
		return nil
	}

	src := make([]byte, region[0]*px)
	fill(src, pattern[:pixelSize])
	tx, err := d.MapBuffer(r, offset, end, device.AccessReadWrite, device.MapNormal)
	if err != nil {
		return err
	}
	defer d.Unmap(tx)
	// A zero source pitch replicates the single filled row.
	return rect.Copy(device.Bytes(tx), l, src, rect.Layout{}, rect.Vec(region), px)
}

// BufferSubData implements device.Device.
func (d *Device) BufferSubData(res device.Resource, offset uint64, data []byte) error {
	r, err := d.lookup(res)
	if err != nil {
		return err
	}
	if !r.info.Buffer {
		return fmt.Errorf("%w: BufferSubData on a texture", ErrKindMismatch)
	}
	if offset > r.info.Size || uint64(len(data)) > r.info.Size-offset {
		return fmt.Errorf("%w: write [%d,+%d) of %d", device.ErrInvalidRange, offset, len(data), r.info.Size)
	}
	return d.writeBuffer(r, offset, data)
}

// TextureSubData implements device.Device.
func (d *Device) TextureSubData(res device.Resource, box device.Box, data []byte, rowPitch uint32, slicePitch uint64) error {
	r, err := d.lookup(res)
	if err != nil {
		return err
	}
	if r.info.Buffer {
		return fmt.Errorf("%w: TextureSubData on a buffer", ErrKindMismatch)
	}
	if !box.Within(r.extent()) {
		return fmt.Errorf("%w: box %v outside %v", device.ErrInvalidRange, box, r.extent())
	}
	if box.Empty() {
		return nil
	}
	px := uint64(r.pixel)
	row := uint64(rowPitch)
	if row == 0 {
		row = uint64(box.Size.Width) * px
	}
	if slicePitch == 0 {
		slicePitch = row * uint64(box.Size.Height)
	}
	src := rect.Layout{RowPitch: row, SlicePitch: slicePitch}

	if r.linearTexture() {
		return r.withBytes(func(storage []byte) error {
			return rect.Copy(storage, r.layout(box), data, src, boxVec(box), px)
		})
	}

	// The queue takes whole rows per image; repack other layouts.
	if slicePitch%row != 0 || row > 1<<32-1 {
		tight := uint64(box.Size.Width) * px
		packed := make([]byte, tight*uint64(box.Size.Height)*uint64(box.Size.DepthOrArrayLayers))
		dst := rect.Layout{RowPitch: tight, SlicePitch: tight * uint64(box.Size.Height)}
		if err := rect.Copy(packed, dst, data, src, boxVec(box), px); err != nil {
			return fmt.Errorf("%w: %w", device.ErrInvalidRange, err)
		}
		data, row, slicePitch = packed, tight, dst.SlicePitch
	} else if end, err := src.End(boxVec(box), px); err != nil || end > uint64(len(data)) {
		return fmt.Errorf("%w: host data has %d bytes, box needs %d", device.ErrInvalidRange, len(data), end)
	}

	dst := r.copyTexture(box.Origin)
	size := extent(box)
	layout := hal.ImageDataLayout{BytesPerRow: uint32(row), RowsPerImage: uint32(slicePitch / row)}
	if err := d.queue.WriteTexture(&dst, data, &layout, &size); err != nil {
		return fmt.Errorf("native: write texture: %w", err)
	}
	return nil
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

func fill(dst, pattern []byte) {
	for i := 0; i < len(dst); i += len(pattern) {
		copy(dst[i:], pattern)
	}
}
