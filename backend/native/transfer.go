package native

import (
	"fmt"
	"unsafe"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/clmem/device"
)

// transfer is an open CPU window. A bounced transfer maps a temporary
// staging buffer and copies it back to target on unmap.
type transfer struct {
	res    *resource
	ptr    unsafe.Pointer
	n      uint64
	row    uint32
	slice  uint64
	access device.Access

	// mapped holds one mapping reference.
	mapped    *resource
	bounce    *resource
	writeBack func(enc hal.CommandEncoder)
}

func (t *transfer) Ptr() unsafe.Pointer { return t.ptr }
func (t *transfer) Len() uint64         { return t.n }
func (t *transfer) RowPitch() uint32    { return t.row }
func (t *transfer) SlicePitch() uint64  { return t.slice }

// open maps r and returns a transfer starting off bytes into it.
func (d *Device) open(r *resource, off, n uint64, access device.Access) (*transfer, error) {
	base, err := r.acquire()
	if err != nil {
		return nil, err
	}
	return &transfer{res: r, mapped: r, ptr: unsafe.Add(base, off), n: n, access: access}, nil
}

// MapBuffer implements device.Device.
func (d *Device) MapBuffer(res device.Resource, offset, size uint64, access device.Access, mode device.MapMode) (device.Transfer, error) {
	r, err := d.lookup(res)
	if err != nil {
		return nil, err
	}
	if !r.info.Buffer {
		return nil, fmt.Errorf("%w: MapBuffer on a texture", ErrKindMismatch)
	}
	if offset > r.info.Size || size > r.info.Size-offset {
		return nil, fmt.Errorf("%w: map [%d,+%d) of %d", device.ErrInvalidRange, offset, size, r.info.Size)
	}
	if size == 0 {
		return &transfer{res: r, access: access}, nil
	}

	switch mode {
	case device.MapDirect:
		if !r.mappable {
			return nil, device.ErrNotMappable
		}
		return d.open(r, offset, size, access)
	case device.MapCoherent:
		if r.typ != device.ResourceStaging {
			return nil, device.ErrNotMappable
		}
		tx, err := d.open(r, offset, size, access)
		if err != nil {
			return nil, err
		}
		if !r.coherent {
			d.Unmap(tx)
			return nil, fmt.Errorf("%w: mapping is not coherent", device.ErrNotMappable)
		}
		return tx, nil
	}

	if r.mappable {
		return d.open(r, offset, size, access)
	}
	return d.bounceBuffer(r, offset, size, access)
}

// bounceBuffer stages [offset, offset+size) of a device-only buffer. The
// staged span is widened to the copy alignment and filled first. The write
// back covers the widened span, so the edge bytes sharing an aligned word
// with the window get the values they had when the map was opened. Bytes
// outside the widened span are never written.
func (d *Device) bounceBuffer(r *resource, offset, size uint64, access device.Access) (device.Transfer, error) {
	lo := alignDown(offset, copyAlign)
	hi := min(alignUp(offset+size, copyAlign), r.alloc)
	b, err := d.newBuffer("bounce", hi-lo, true)
	if err != nil {
		return nil, err
	}
	err = d.submit("bounce in", func(enc hal.CommandEncoder) {
		enc.CopyBufferToBuffer(r.buf, b.buf, []hal.BufferCopy{{SrcOffset: lo, Size: hi - lo}})
	})
	if err != nil {
		b.destroy()
		return nil, err
	}
	tx, err := d.open(b, offset-lo, size, access)
	if err != nil {
		b.destroy()
		return nil, err
	}
	tx.res, tx.bounce = r, b
	tx.writeBack = func(enc hal.CommandEncoder) {
		enc.CopyBufferToBuffer(b.buf, r.buf, []hal.BufferCopy{{DstOffset: lo, Size: hi - lo}})
	}
	d.log().Debug("native: buffer bounce", "device", d.cfg.label, "offset", offset, "size", size)
	return tx, nil
}

// MapTexture implements device.Device.
func (d *Device) MapTexture(res device.Resource, box device.Box, access device.Access, mode device.MapMode) (device.Transfer, error) {
	r, err := d.lookup(res)
	if err != nil {
		return nil, err
	}
	if r.info.Buffer {
		return nil, fmt.Errorf("%w: MapTexture on a buffer", ErrKindMismatch)
	}
	if !box.Within(r.extent()) {
		return nil, fmt.Errorf("%w: box %v outside %v", device.ErrInvalidRange, box, r.extent())
	}

	if r.linearTexture() {
		l := r.layout(box)
		start := l.Origin[0]*uint64(r.pixel) + l.Origin[1]*r.rowPitch + l.Origin[2]*r.slicePitch
		var n uint64
		if !box.Empty() {
			end, err := l.End(boxVec(box), uint64(r.pixel))
			if err != nil {
				return nil, fmt.Errorf("%w: %w", device.ErrInvalidRange, err)
			}
			n = end - start
		}
		tx, err := d.open(r, start, n, access)
		if err != nil {
			return nil, err
		}
		tx.row, tx.slice = uint32(r.rowPitch), r.slicePitch
		return tx, nil
	}

	if mode != device.MapNormal {
		return nil, device.ErrNotMappable
	}
	return d.bounceTexture(r, box, access)
}

// bounceTexture stages box of a normal texture in a linear buffer.
func (d *Device) bounceTexture(r *resource, box device.Box, access device.Access) (device.Transfer, error) {
	row := alignUp(uint64(box.Size.Width)*uint64(r.pixel), uint64(d.cfg.rowAlignment))
	slice := row * uint64(box.Size.Height)
	size := max(slice*uint64(box.Size.DepthOrArrayLayers), copyAlign)
	b, err := d.newBuffer("texture bounce", size, true)
	if err != nil {
		return nil, err
	}
	region := hal.BufferTextureCopy{
		BufferLayout: hal.ImageDataLayout{BytesPerRow: uint32(row), RowsPerImage: box.Size.Height},
		TextureBase:  r.copyTexture(box.Origin),
		Size:         extent(box),
	}
	if !box.Empty() {
		err = d.submit("texture bounce in", func(enc hal.CommandEncoder) {
			enc.CopyTextureToBuffer(r.tex, b.buf, []hal.BufferTextureCopy{region})
		})
		if err != nil {
			b.destroy()
			return nil, err
		}
	}
	var n uint64
	if !box.Empty() {
		n = slice*uint64(box.Size.DepthOrArrayLayers-1) + row*uint64(box.Size.Height-1) + uint64(box.Size.Width)*uint64(r.pixel)
	}
	tx, err := d.open(b, 0, n, access)
	if err != nil {
		b.destroy()
		return nil, err
	}
	tx.res, tx.bounce = r, b
	tx.row, tx.slice = uint32(row), slice
	if !box.Empty() {
		tx.writeBack = func(enc hal.CommandEncoder) {
			enc.CopyBufferToTexture(b.buf, r.tex, []hal.BufferTextureCopy{region})
		}
	}
	d.log().Debug("native: texture bounce", "device", d.cfg.label, "box", box)
	return tx, nil
}

// Unmap implements device.Device.
func (d *Device) Unmap(tx device.Transfer) {
	t, ok := tx.(*transfer)
	if !ok || t == nil || t.res == nil || t.res.dev != d {
		d.log().Warn("native: unmap of foreign transfer", "device", d.cfg.label)
		return
	}
	if t.mapped != nil {
		t.mapped.releaseMap()
	}
	if t.bounce == nil {
		return
	}
	if t.access.Writes() && t.writeBack != nil {
		if err := d.submit("bounce out", t.writeBack); err != nil {
			d.log().Warn("native: write back failed", "device", d.cfg.label, "err", err)
		}
	}
	t.bounce.destroy()
}
