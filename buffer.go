package clmem

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/clmem/device"
	"github.com/gogpu/clmem/internal/rect"
)

// Buffer is a linear memory object. A sub-buffer is a window of its parent
// and shares the root allocation.
type Buffer struct {
	memBase
	// offset is the position of the buffer in the root allocation.
	offset uint64
}

var _ MemObject = (*Buffer)(nil)

// NewBuffer creates a buffer of size bytes realized on every device of ctx.
// host is required by MemUseHostPtr and MemCopyHostPtr and must span size
// bytes.
func NewBuffer(ctx *Context, flags MemFlags, size uint64, host HostPtr) (*Buffer, error) {
	if ctx == nil {
		return nil, fmt.Errorf("%w: nil context", ErrInvalidValue)
	}
	if !flags.validate() {
		return nil, fmt.Errorf("%w: flags %v", ErrInvalidValue, flags)
	}
	if err := ctx.checkSize(size); err != nil {
		return nil, err
	}
	wantsHost := flags&(MemUseHostPtr|MemCopyHostPtr) != 0
	if wantsHost == host.IsNil() {
		return nil, fmt.Errorf("%w: host pointer %v with flags %v", ErrInvalidValue, host, flags)
	}

	types := placementTypes(flags)
	copyHost := wantsHost
	res, err := ctx.createBuffer(size, host, copyHost, types...)
	if err != nil {
		return nil, resourceError("create buffer", err)
	}

	b := &Buffer{}
	b.init(ctx, "buffer", nil, flags, size, HostPtr{})
	if flags.Has(MemUseHostPtr) {
		b.hostPtr = host
	}
	b.resources = res
	b.owned = true
	Logger().Debug("clmem: buffer created", "size", size, "flags", flags)
	return b, nil
}

// placementTypes returns the resource types to try, in order, for objects
// created with flags.
func placementTypes(flags MemFlags) []device.ResourceType {
	switch {
	case flags.Has(MemUseHostPtr):
		return []device.ResourceType{device.ResourceUser, device.ResourceNormal}
	case flags.Has(MemAllocHostPtr):
		return []device.ResourceType{device.ResourceStaging, device.ResourceNormal}
	default:
		return []device.ResourceType{device.ResourceNormal}
	}
}

// NewSubBuffer creates a window of size bytes at offset into parent. Flags
// left unset are inherited from the parent.
func NewSubBuffer(parent *Buffer, flags MemFlags, offset, size uint64) (*Buffer, error) {
	if parent == nil {
		return nil, fmt.Errorf("%w: nil parent", ErrInvalidValue)
	}
	if size == 0 {
		return nil, fmt.Errorf("%w: zero size", ErrInvalidValue)
	}
	end, err := checkedAdd("sub-buffer range", offset, size)
	if err != nil {
		return nil, err
	}
	if end > parent.size {
		return nil, fmt.Errorf("%w: sub-buffer [%d,%d) outside %d bytes", ErrInvalidValue, offset, end, parent.size)
	}
	if flags&memHostPtr != 0 {
		return nil, fmt.Errorf("%w: host pointer flags on a sub-buffer", ErrInvalidValue)
	}
	flags = flags.inherit(parent.flags)
	if !flags.validate() {
		return nil, fmt.Errorf("%w: flags %v", ErrInvalidValue, flags)
	}
	abs, err := checkedAdd("sub-buffer offset", parent.offset, offset)
	if err != nil {
		return nil, err
	}

	parent.Retain()
	b := &Buffer{offset: abs}
	b.init(parent.ctx, "buffer", parent, flags, size, parent.hostPtr.Add(offset))
	return b, nil
}

// Offset returns the position of the buffer in its root allocation.
func (b *Buffer) Offset() uint64 { return b.offset }

// mapRoot returns the root buffer, whose mapping table serves every
// sub-buffer, and the offset of b within it.
func (b *Buffer) mapRoot() (*Buffer, uint64) {
	r := b
	for {
		p, ok := r.parent.(*Buffer)
		if !ok {
			return r, b.offset - r.offset
		}
		r = p
	}
}

// IsMappedPtr reports whether p is a live mapping of the buffer. A
// sub-buffer shares the mappings of its root buffer.
func (b *Buffer) IsMappedPtr(p HostPtr) bool {
	r, _ := b.mapRoot()
	return r.memBase.IsMappedPtr(p)
}

// cancel drops a reservation made by Reserve on dev.
func (b *Buffer) cancel(dev device.Device) {
	r, _ := b.mapRoot()
	r.maps.Cancel(dev)
}

// Reserve returns the host address of offset within the buffer on dev and
// holds the mapping session of dev open. The caller must complete the
// reservation with SyncShadow. Sub-buffers map through their root buffer,
// so a sub-buffer at k returns the address of offset k+offset in the root.
func (b *Buffer) Reserve(dev device.Device, offset uint64) (HostPtr, error) {
	if offset >= b.size {
		return HostPtr{}, fmt.Errorf("%w: map offset %d of %d", ErrInvalidValue, offset, b.size)
	}
	if r, k := b.mapRoot(); r != b {
		return r.Reserve(dev, k+offset)
	}
	shadowed, err := b.hasUserShadow(dev)
	if err != nil {
		return HostPtr{}, err
	}
	if shadowed {
		return b.hostPtr.Add(offset), nil
	}

	tx, err := b.maps.Acquire(dev, func() (device.Transfer, device.Resource, error) {
		return b.openSession(dev)
	})
	if err != nil {
		return HostPtr{}, err
	}
	return NewHostPtr(tx.Ptr()).Add(offset), nil
}

func (b *Buffer) openSession(dev device.Device) (device.Transfer, device.Resource, error) {
	res, err := b.Resource(dev)
	if err != nil {
		return nil, nil, err
	}
	if ChooseStrategy(dev, res) == StrategyDirect {
		tx, err := dev.MapBuffer(res, b.offset, b.size, device.AccessReadWrite, device.MapDirect)
		if err == nil {
			return tx, nil, nil
		}
		Logger().Warn("clmem: direct map refused, using a shadow", "device", dev.Name(), "err", err)
	}

	shadow, err := dev.CreateBuffer(b.size, nil, false, device.ResourceStaging)
	if err != nil {
		return nil, nil, resourceError("create shadow buffer", err)
	}
	tx, err := dev.MapBuffer(shadow, 0, b.size, device.AccessReadWrite, device.MapCoherent)
	if err != nil {
		dev.DestroyResource(shadow)
		return nil, nil, resourceError("map shadow buffer", err)
	}
	return tx, shadow, nil
}

// SyncShadow completes a reservation on the device of q. When p is the
// first live pointer of the buffer, the shadow (or the caller memory of a
// MemUseHostPtr buffer) is filled from the resource.
func (b *Buffer) SyncShadow(q *Queue, p HostPtr) error {
	if r, _ := b.mapRoot(); r != b {
		return r.SyncShadow(q, p)
	}
	dev := q.dev
	shadowed, err := b.hasUserShadow(dev)
	if err != nil {
		return err
	}
	synced, err := b.maps.Install(dev, p.Addr(), func(shadow device.Resource) error {
		switch {
		case shadowed:
			return b.readInto(dev, 0, b.hostPtr.Bytes(b.size))
		case shadow != nil:
			res, err := b.Resource(dev)
			if err != nil {
				return err
			}
			box, err := device.BufferBox(b.offset, b.size)
			if err != nil {
				return rangeError("shadow sync", err)
			}
			if err := dev.CopyRegion(res, shadow, gputypes.Origin3D{}, box); err != nil {
				return resourceError("shadow sync", err)
			}
		}
		return nil
	})
	if err != nil || !synced {
		return err
	}
	return q.Finish()
}

// Map is Reserve followed by SyncShadow on the device of q.
func (b *Buffer) Map(q *Queue, offset uint64) (HostPtr, error) {
	p, err := b.Reserve(q.dev, offset)
	if err != nil {
		return HostPtr{}, err
	}
	if err := b.SyncShadow(q, p); err != nil {
		return HostPtr{}, err
	}
	return p, nil
}

// Unmap drops one reference on p. When the buffer has no live pointer left,
// the view of the device of q is written back to the resource.
func (b *Buffer) Unmap(q *Queue, p HostPtr) error {
	if r, _ := b.mapRoot(); r != b {
		return r.Unmap(q, p)
	}
	if !b.IsMappedPtr(p) {
		return nil
	}
	dev := q.dev
	shadowed, err := b.hasUserShadow(dev)
	if err != nil {
		return err
	}
	_, err = b.maps.Release(dev, p.Addr(), func(shadow device.Resource) error {
		switch {
		case shadow != nil:
			res, err := b.Resource(dev)
			if err != nil {
				return err
			}
			dst, err := device.BufferBox(b.offset, b.size)
			if err != nil {
				return rangeError("write back", err)
			}
			src, _ := device.BufferBox(0, b.size)
			if err := dev.CopyRegion(shadow, res, dst.Origin, src); err != nil {
				return resourceError("write back", err)
			}
		case shadowed:
			return b.Write(q, 0, b.hostPtr.Bytes(b.size))
		}
		return nil
	})
	return err
}

// span validates [offset, offset+size) against the buffer and returns its
// position in the root allocation.
func (b *Buffer) span(offset, size uint64) (uint64, error) {
	end, err := checkedAdd("buffer range", offset, size)
	if err != nil {
		return 0, err
	}
	if end > b.size {
		return 0, fmt.Errorf("%w: range [%d,%d) outside %d bytes", ErrInvalidValue, offset, end, b.size)
	}
	return checkedAdd("buffer range", b.offset, offset)
}

// transfer maps [offset, offset+size) of the buffer for a one-shot access.
func (b *Buffer) transfer(dev device.Device, offset, size uint64, access device.Access) (device.Transfer, error) {
	abs, err := b.span(offset, size)
	if err != nil {
		return nil, err
	}
	res, err := b.Resource(dev)
	if err != nil {
		return nil, err
	}
	tx, err := dev.MapBuffer(res, abs, size, access, device.MapNormal)
	if err != nil {
		return nil, resourceError("map buffer", err)
	}
	return tx, nil
}

func (b *Buffer) readInto(dev device.Device, offset uint64, dst []byte) error {
	if len(dst) == 0 {
		return nil
	}
	tx, err := b.transfer(dev, offset, uint64(len(dst)), device.AccessRead)
	if err != nil {
		return err
	}
	defer dev.Unmap(tx)
	copy(dst, device.Bytes(tx))
	return nil
}

// Read copies len(dst) bytes at offset into dst.
func (b *Buffer) Read(q *Queue, offset uint64, dst []byte) error {
	return b.readInto(q.dev, offset, dst)
}

// Write uploads src at offset.
func (b *Buffer) Write(q *Queue, offset uint64, src []byte) error {
	if len(src) == 0 {
		return nil
	}
	abs, err := b.span(offset, uint64(len(src)))
	if err != nil {
		return err
	}
	res, err := b.Resource(q.dev)
	if err != nil {
		return err
	}
	if err := q.dev.BufferSubData(res, abs, src); err != nil {
		return resourceError("buffer upload", err)
	}
	return nil
}

// RectCopy describes a rectangular byte transfer. Region is in bytes, rows
// and slices; origins are in the same units. Zero pitches are tight.
type RectCopy struct {
	Region [3]uint64

	SrcOrigin     [3]uint64
	SrcRowPitch   uint64
	SrcSlicePitch uint64

	DstOrigin     [3]uint64
	DstRowPitch   uint64
	DstSlicePitch uint64
}

func (r RectCopy) layouts() (src, dst rect.Layout) {
	row := func(p uint64) uint64 {
		if p == 0 {
			return r.Region[0]
		}
		return p
	}
	slice := func(p, rowPitch uint64) uint64 {
		if p == 0 {
			return rowPitch * r.Region[1]
		}
		return p
	}
	src = rect.Layout{Origin: r.SrcOrigin, RowPitch: row(r.SrcRowPitch)}
	src.SlicePitch = slice(r.SrcSlicePitch, src.RowPitch)
	dst = rect.Layout{Origin: r.DstOrigin, RowPitch: row(r.DstRowPitch)}
	dst.SlicePitch = slice(r.DstSlicePitch, dst.RowPitch)
	return src, dst
}

// rectTransfer maps the bytes of the buffer covered by region in l and
// returns the layout rebased onto the transfer.
func (b *Buffer) rectTransfer(dev device.Device, l rect.Layout, region [3]uint64, access device.Access) (device.Transfer, rect.Layout, error) {
	off, size, err := rect.OffsetSize(l.Origin, region, rect.Vec{1, l.RowPitch, l.SlicePitch})
	if err != nil {
		return nil, l, rangeError("rect range", err)
	}
	tx, err := b.transfer(dev, off, size, access)
	if err != nil {
		return nil, l, err
	}
	l.Origin = rect.Vec{}
	return tx, l, nil
}

func (r RectCopy) empty() bool {
	return r.Region[0] == 0 || r.Region[1] == 0 || r.Region[2] == 0
}

// ReadRect copies a rectangle of the buffer (the source of r) into dst.
func (b *Buffer) ReadRect(q *Queue, dst []byte, r RectCopy) error {
	if r.empty() {
		return nil
	}
	sl, dl := r.layouts()
	tx, sl, err := b.rectTransfer(q.dev, sl, r.Region, device.AccessRead)
	if err != nil {
		return err
	}
	defer q.dev.Unmap(tx)
	if err := rect.Copy(dst, dl, device.Bytes(tx), sl, r.Region, 1); err != nil {
		return fmt.Errorf("%w: read rect: %w", ErrInvalidValue, err)
	}
	return nil
}

// WriteRect copies a rectangle of src into the buffer (the destination of
// r).
func (b *Buffer) WriteRect(q *Queue, src []byte, r RectCopy) error {
	if r.empty() {
		return nil
	}
	sl, dl := r.layouts()
	if _, err := sl.End(r.Region, 1); err != nil {
		return rangeError("write rect", err)
	}
	tx, dl, err := b.rectTransfer(q.dev, dl, r.Region, device.AccessWrite)
	if err != nil {
		return err
	}
	defer q.dev.Unmap(tx)
	if err := rect.Copy(device.Bytes(tx), dl, src, sl, r.Region, 1); err != nil {
		return fmt.Errorf("%w: write rect: %w", ErrInvalidValue, err)
	}
	return nil
}

// CopyRect copies a rectangle of the buffer into dst.
func (b *Buffer) CopyRect(q *Queue, dst *Buffer, r RectCopy) error {
	if r.empty() {
		return nil
	}
	sl, dl := r.layouts()
	src, sl, err := b.rectTransfer(q.dev, sl, r.Region, device.AccessRead)
	if err != nil {
		return err
	}
	defer q.dev.Unmap(src)
	out, dl, err := dst.rectTransfer(q.dev, dl, r.Region, device.AccessWrite)
	if err != nil {
		return err
	}
	defer q.dev.Unmap(out)
	if err := rect.Copy(device.Bytes(out), dl, device.Bytes(src), sl, r.Region, 1); err != nil {
		return fmt.Errorf("%w: copy rect: %w", ErrInvalidValue, err)
	}
	return nil
}

// CopyToBuffer copies size bytes at srcOffset into dst at dstOffset on the
// device of q.
func (b *Buffer) CopyToBuffer(q *Queue, dst *Buffer, srcOffset, dstOffset, size uint64) error {
	if size == 0 {
		return nil
	}
	from, err := b.span(srcOffset, size)
	if err != nil {
		return err
	}
	to, err := dst.span(dstOffset, size)
	if err != nil {
		return err
	}
	srcRes, err := b.Resource(q.dev)
	if err != nil {
		return err
	}
	dstRes, err := dst.Resource(q.dev)
	if err != nil {
		return err
	}
	box, err := device.BufferBox(from, size)
	if err != nil {
		return rangeError("buffer copy", err)
	}
	at, err := device.BufferBox(to, size)
	if err != nil {
		return rangeError("buffer copy", err)
	}
	if err := q.dev.CopyRegion(srcRes, dstRes, at.Origin, box); err != nil {
		return resourceError("buffer copy", err)
	}
	return nil
}

// CopyToImage copies tightly packed texels at srcOffset into region of dst
// at dstOrigin.
func (b *Buffer) CopyToImage(q *Queue, dst *Image, srcOffset uint64, dstOrigin, region [3]uint64) error {
	if region[0] == 0 || region[1] == 0 || region[2] == 0 {
		return nil
	}
	px := uint64(dst.pixel)
	sl := rect.Layout{RowPitch: region[0] * px}
	sl.SlicePitch = sl.RowPitch * region[1]
	_, size, err := rect.OffsetSize(rect.Vec{}, region, rect.Vec{px, sl.RowPitch, sl.SlicePitch})
	if err != nil {
		return rangeError("buffer to image", err)
	}
	src, err := b.transfer(q.dev, srcOffset, size, device.AccessRead)
	if err != nil {
		return err
	}
	defer q.dev.Unmap(src)

	v, err := dst.openView(q.dev, dstOrigin, region, device.AccessWrite)
	if err != nil {
		return err
	}
	defer v.close()
	if err := rect.Copy(v.data, v.layout(), device.Bytes(src), sl, region, px); err != nil {
		return fmt.Errorf("%w: buffer to image: %w", ErrInvalidValue, err)
	}
	return nil
}

// Fill repeats pattern over [offset, offset+size).
func (b *Buffer) Fill(q *Queue, pattern []byte, offset, size uint64) error {
	if len(pattern) == 0 || size%uint64(len(pattern)) != 0 {
		return fmt.Errorf("%w: %d-byte pattern over %d bytes", ErrInvalidValue, len(pattern), size)
	}
	if size == 0 {
		return nil
	}
	abs, err := b.span(offset, size)
	if err != nil {
		return err
	}
	res, err := b.Resource(q.dev)
	if err != nil {
		return err
	}
	if err := q.dev.ClearBuffer(res, pattern, abs, size); err != nil {
		return resourceError("buffer fill", err)
	}
	return nil
}
