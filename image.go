package clmem

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/clmem/device"
	"github.com/gogpu/clmem/internal/rect"
	"github.com/gogpu/clmem/internal/texel"
)

// Image is a formatted memory object. An image created from a buffer
// stores its texels in the buffer with the declared pitches.
type Image struct {
	memBase
	format gputypes.TextureFormat
	pixel  uint32
	desc   ImageDesc
}

var _ MemObject = (*Image)(nil)

// NewImage creates an image realized on every device of ctx. host follows
// the pitches of desc.
func NewImage(ctx *Context, flags MemFlags, format gputypes.TextureFormat, desc ImageDesc, host HostPtr) (*Image, error) {
	if ctx == nil {
		return nil, fmt.Errorf("%w: nil context", ErrInvalidValue)
	}
	if !flags.validate() {
		return nil, fmt.Errorf("%w: flags %v", ErrInvalidValue, flags)
	}
	pixel, err := texelSize(format)
	if err != nil {
		return nil, err
	}
	if desc.Type == Image1DBuffer {
		return nil, fmt.Errorf("%w: %v image needs a buffer", ErrInvalidValue, desc.Type)
	}
	wantsHost := flags&(MemUseHostPtr|MemCopyHostPtr) != 0
	if wantsHost == host.IsNil() {
		return nil, fmt.Errorf("%w: host pointer %v with flags %v", ErrInvalidValue, host, flags)
	}
	if !wantsHost && (desc.RowPitch != 0 || desc.SlicePitch != 0) {
		return nil, fmt.Errorf("%w: pitches without host memory", ErrInvalidValue)
	}
	d, err := desc.withPitches(pixel)
	if err != nil {
		return nil, err
	}
	size, err := imageBytes(d, pixel)
	if err != nil {
		return nil, err
	}
	if err := ctx.checkSize(size); err != nil {
		return nil, err
	}

	td, err := d.textureDescriptor(format)
	if err != nil {
		return nil, err
	}
	var hostBytes []byte
	if wantsHost {
		span, err := d.span(pixel)
		if err != nil {
			return nil, rangeError("image host span", err)
		}
		hostBytes = host.Bytes(span)
	}
	res, err := ctx.createTexture(td, hostBytes, wantsHost, placementTypes(flags)...)
	if err != nil {
		return nil, resourceError("create image", err)
	}

	i := &Image{format: format, pixel: pixel, desc: d}
	i.init(ctx, "image", nil, flags, size, HostPtr{})
	if flags.Has(MemUseHostPtr) {
		i.hostPtr = host
	}
	i.resources = res
	i.owned = true
	Logger().Debug("clmem: image created", "type", d.Type, "size", d.Size(), "format", format)
	return i, nil
}

func texelSize(format gputypes.TextureFormat) (uint32, error) {
	pixel, err := texel.PixelSize(format)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrImageFormatNotSupported, err)
	}
	return pixel, nil
}

func imageBytes(d ImageDesc, pixel uint32) (uint64, error) {
	n, err := d.Pixels()
	if err == nil {
		n, err = rect.Mul(n, uint64(pixel))
	}
	if err != nil {
		return 0, rangeError("image size", err)
	}
	return n, nil
}

// NewImageFromBuffer creates an image whose texels live in buf. Only 1D
// buffer and 2D images can be created this way.
func NewImageFromBuffer(buf *Buffer, flags MemFlags, format gputypes.TextureFormat, desc ImageDesc) (*Image, error) {
	if buf == nil {
		return nil, fmt.Errorf("%w: nil buffer", ErrInvalidValue)
	}
	if desc.Type != Image1DBuffer && desc.Type != Image2D {
		return nil, fmt.Errorf("%w: %v image from a buffer", ErrInvalidValue, desc.Type)
	}
	pixel, err := texelSize(format)
	if err != nil {
		return nil, err
	}
	if flags&memHostPtr != 0 {
		return nil, fmt.Errorf("%w: host pointer flags on a buffer image", ErrInvalidValue)
	}
	flags = flags.inherit(buf.flags)
	if !flags.validate() {
		return nil, fmt.Errorf("%w: flags %v", ErrInvalidValue, flags)
	}
	d, err := desc.withPitches(pixel)
	if err != nil {
		return nil, err
	}
	span, err := d.span(pixel)
	if err != nil {
		return nil, rangeError("image span", err)
	}
	if span > buf.size {
		return nil, fmt.Errorf("%w: image spans %d bytes, buffer has %d", ErrInvalidValue, span, buf.size)
	}
	size, err := imageBytes(d, pixel)
	if err != nil {
		return nil, err
	}

	buf.Retain()
	i := &Image{format: format, pixel: pixel, desc: d}
	i.init(buf.ctx, "image", buf, flags, size, buf.hostPtr)
	return i, nil
}

// Format returns the texel format.
func (i *Image) Format() gputypes.TextureFormat { return i.format }

// PixelSize returns the bytes per texel.
func (i *Image) PixelSize() uint32 { return i.pixel }

// Desc returns the sanitized descriptor with its pitches.
func (i *Image) Desc() ImageDesc { return i.desc }

func (i *Image) parentBuffer() *Buffer {
	b, _ := i.parent.(*Buffer)
	return b
}

// IsMappedPtr reports whether p is a live mapping of the image. Buffer
// images share the mappings of their buffer.
func (i *Image) IsMappedPtr(p HostPtr) bool {
	if b := i.parentBuffer(); b != nil {
		return b.IsMappedPtr(p)
	}
	return i.memBase.IsMappedPtr(p)
}

// MappedImage is the result of mapping an image.
type MappedImage struct {
	Ptr        HostPtr
	RowPitch   uint64
	SlicePitch uint64
}

// Reserve returns the host address of the texel at origin on dev and holds
// the mapping session of dev open. The caller must complete the
// reservation with SyncShadow.
func (i *Image) Reserve(dev device.Device, origin [3]uint64) (MappedImage, error) {
	if err := i.desc.check(origin, [3]uint64{1, 1, 1}); err != nil {
		return MappedImage{}, err
	}

	var (
		m      MappedImage
		cancel func()
	)
	if b := i.parentBuffer(); b != nil {
		p, err := b.Reserve(dev, 0)
		if err != nil {
			return MappedImage{}, err
		}
		m = MappedImage{Ptr: p, RowPitch: i.desc.RowPitch, SlicePitch: i.desc.SlicePitch}
		cancel = func() { b.cancel(dev) }
	} else {
		shadowed, err := i.hasUserShadow(dev)
		if err != nil {
			return MappedImage{}, err
		}
		if shadowed {
			m = MappedImage{Ptr: i.hostPtr, RowPitch: i.desc.RowPitch, SlicePitch: i.desc.SlicePitch}
		} else {
			tx, err := i.maps.Acquire(dev, func() (device.Transfer, device.Resource, error) {
				return i.openSession(dev)
			})
			if err != nil {
				return MappedImage{}, err
			}
			m = MappedImage{Ptr: NewHostPtr(tx.Ptr()), RowPitch: uint64(tx.RowPitch()), SlicePitch: tx.SlicePitch()}
			cancel = func() { i.maps.Cancel(dev) }
		}
	}

	m.RowPitch, m.SlicePitch = i.desc.mapPitches(m.RowPitch, m.SlicePitch)
	off, err := i.desc.offset(origin, i.pixel, m.RowPitch, m.SlicePitch)
	if err != nil {
		if cancel != nil {
			cancel()
		}
		return MappedImage{}, rangeError("image map offset", err)
	}
	m.Ptr = m.Ptr.Add(off)
	return m, nil
}

func (i *Image) openSession(dev device.Device) (device.Transfer, device.Resource, error) {
	res, err := i.Resource(dev)
	if err != nil {
		return nil, nil, err
	}
	box, err := i.desc.wholeBox()
	if err != nil {
		return nil, nil, err
	}
	if ChooseStrategy(dev, res) == StrategyDirect {
		tx, err := dev.MapTexture(res, box, device.AccessReadWrite, device.MapDirect)
		if err == nil {
			return tx, nil, nil
		}
		Logger().Warn("clmem: direct map refused, using a shadow", "device", dev.Name(), "err", err)
	}

	td, err := i.desc.textureDescriptor(i.format)
	if err != nil {
		return nil, nil, err
	}
	td.RowPitch, td.SlicePitch = 0, 0
	shadow, err := dev.CreateTexture(td, nil, false, device.ResourceStaging)
	if err != nil {
		return nil, nil, resourceError("create shadow image", err)
	}
	tx, err := dev.MapTexture(shadow, box, device.AccessReadWrite, device.MapCoherent)
	if err != nil {
		dev.DestroyResource(shadow)
		return nil, nil, resourceError("map shadow image", err)
	}
	return tx, shadow, nil
}

// SyncShadow completes a reservation on the device of q.
func (i *Image) SyncShadow(q *Queue, p HostPtr) error {
	if b := i.parentBuffer(); b != nil {
		return b.SyncShadow(q, p)
	}
	dev := q.dev
	shadowed, err := i.hasUserShadow(dev)
	if err != nil {
		return err
	}
	synced, err := i.maps.Install(dev, p.Addr(), func(shadow device.Resource) error {
		switch {
		case shadowed:
			span, err := i.desc.span(i.pixel)
			if err != nil {
				return rangeError("image host span", err)
			}
			row, slice := i.hostPitches()
			return i.Read(q, i.hostPtr.Bytes(span), [3]uint64{}, i.desc.Size(), row, slice)
		case shadow != nil:
			return i.copyWhole(dev, shadow, true)
		}
		return nil
	})
	if err != nil || !synced {
		return err
	}
	return q.Finish()
}

// Map is Reserve followed by SyncShadow on the device of q.
func (i *Image) Map(q *Queue, origin [3]uint64) (MappedImage, error) {
	m, err := i.Reserve(q.dev, origin)
	if err != nil {
		return MappedImage{}, err
	}
	if err := i.SyncShadow(q, m.Ptr); err != nil {
		return MappedImage{}, err
	}
	return m, nil
}

// Unmap drops one reference on p. When the image has no live pointer left,
// the view of the device of q is written back to the resource.
func (i *Image) Unmap(q *Queue, p HostPtr) error {
	if b := i.parentBuffer(); b != nil {
		return b.Unmap(q, p)
	}
	if !i.IsMappedPtr(p) {
		return nil
	}
	dev := q.dev
	shadowed, err := i.hasUserShadow(dev)
	if err != nil {
		return err
	}
	_, err = i.maps.Release(dev, p.Addr(), func(shadow device.Resource) error {
		switch {
		case shadow != nil:
			return i.copyWhole(dev, shadow, false)
		case shadowed:
			span, err := i.desc.span(i.pixel)
			if err != nil {
				return rangeError("image host span", err)
			}
			row, slice := i.hostPitches()
			return i.Write(q, i.hostPtr.Bytes(span), [3]uint64{}, i.desc.Size(), row, slice)
		}
		return nil
	})
	return err
}

// hostPitches returns the declared layout in the form Read and Write take
// it: a 1D array is strided by its row pitch.
func (i *Image) hostPitches() (row, slice uint64) {
	if i.desc.Type == Image1DArray {
		return i.desc.SlicePitch, 0
	}
	return i.desc.RowPitch, i.desc.SlicePitch
}

// copyWhole copies the image between its resource and shadow on dev.
func (i *Image) copyWhole(dev device.Device, shadow device.Resource, toShadow bool) error {
	res, err := i.Resource(dev)
	if err != nil {
		return err
	}
	box, err := i.desc.wholeBox()
	if err != nil {
		return err
	}
	src, dst := res, shadow
	if !toShadow {
		src, dst = shadow, res
	}
	if err := dev.CopyRegion(src, dst, gputypes.Origin3D{}, box); err != nil {
		return resourceError("image shadow copy", err)
	}
	return nil
}

// view is a transient CPU window onto a region of an image.
type view struct {
	data       []byte
	row, slice uint64
	close      func()
}

func (v view) layout() rect.Layout {
	return rect.Layout{RowPitch: v.row, SlicePitch: v.slice}
}

// openView maps region at origin for a one-shot access. The view uses host
// coordinates, so the layers of a 1D array are its rows.
func (i *Image) openView(dev device.Device, origin, region [3]uint64, access device.Access) (view, error) {
	if err := i.desc.check(origin, region); err != nil {
		return view{}, err
	}
	if b := i.parentBuffer(); b != nil {
		off, size, err := rect.OffsetSize(origin, region, i.desc.pitch(i.pixel))
		if err != nil {
			return view{}, rangeError("image range", err)
		}
		tx, err := b.transfer(dev, off, size, access)
		if err != nil {
			return view{}, err
		}
		return view{data: device.Bytes(tx), row: i.desc.RowPitch, slice: i.desc.SlicePitch, close: func() { dev.Unmap(tx) }}, nil
	}

	res, err := i.Resource(dev)
	if err != nil {
		return view{}, err
	}
	box, err := i.desc.Box(origin, region)
	if err != nil {
		return view{}, err
	}
	tx, err := dev.MapTexture(res, box, access, device.MapNormal)
	if err != nil {
		return view{}, resourceError("map image", err)
	}
	v := view{data: device.Bytes(tx), row: uint64(tx.RowPitch()), slice: tx.SlicePitch(), close: func() { dev.Unmap(tx) }}
	if i.desc.Type == Image1DArray {
		v.row = v.slice
	}
	return v, nil
}

// hostLayout returns the layout of caller memory for region, filling in
// tight pitches for zero values.
func (i *Image) hostLayout(region [3]uint64, rowPitch, slicePitch uint64) rect.Layout {
	if rowPitch == 0 {
		rowPitch = region[0] * uint64(i.pixel)
	}
	if i.desc.Type == Image1DArray {
		// Layers are rows; the caller's row pitch strides them.
		return rect.Layout{RowPitch: rowPitch, SlicePitch: rowPitch}
	}
	if slicePitch == 0 {
		slicePitch = rowPitch * region[1]
	}
	return rect.Layout{RowPitch: rowPitch, SlicePitch: slicePitch}
}

func emptyRegion(region [3]uint64) bool {
	return region[0] == 0 || region[1] == 0 || region[2] == 0
}

// Read copies region at origin into dst laid out with the given pitches.
func (i *Image) Read(q *Queue, dst []byte, origin, region [3]uint64, rowPitch, slicePitch uint64) error {
	if emptyRegion(region) {
		return nil
	}
	dl := i.hostLayout(region, rowPitch, slicePitch)
	v, err := i.openView(q.dev, origin, region, device.AccessRead)
	if err != nil {
		return err
	}
	defer v.close()
	if err := rect.Copy(dst, dl, v.data, v.layout(), region, uint64(i.pixel)); err != nil {
		return fmt.Errorf("%w: image read: %w", ErrInvalidValue, err)
	}
	return nil
}

// Write uploads src, laid out with the given pitches, into region at
// origin.
func (i *Image) Write(q *Queue, src []byte, origin, region [3]uint64, rowPitch, slicePitch uint64) error {
	if emptyRegion(region) {
		return nil
	}
	sl := i.hostLayout(region, rowPitch, slicePitch)
	end, err := sl.End(region, uint64(i.pixel))
	if err != nil {
		return rangeError("image write", err)
	}
	if end > uint64(len(src)) {
		return fmt.Errorf("%w: image write needs %d bytes, have %d", ErrInvalidValue, end, len(src))
	}

	if i.parentBuffer() != nil {
		v, err := i.openView(q.dev, origin, region, device.AccessWrite)
		if err != nil {
			return err
		}
		defer v.close()
		if err := rect.Copy(v.data, v.layout(), src, sl, region, uint64(i.pixel)); err != nil {
			return fmt.Errorf("%w: image write: %w", ErrInvalidValue, err)
		}
		return nil
	}

	if err := i.desc.check(origin, region); err != nil {
		return err
	}
	res, err := i.Resource(q.dev)
	if err != nil {
		return err
	}
	box, err := i.desc.Box(origin, region)
	if err != nil {
		return err
	}
	if sl.RowPitch > 1<<32-1 {
		return fmt.Errorf("%w: row pitch %d", ErrOutOfHostMemory, sl.RowPitch)
	}
	if err := q.dev.TextureSubData(res, box, src, uint32(sl.RowPitch), sl.SlicePitch); err != nil {
		return resourceError("image upload", err)
	}
	return nil
}

// CopyToBuffer copies region at srcOrigin into dst at dstOffset, tightly
// packed.
func (i *Image) CopyToBuffer(q *Queue, dst *Buffer, srcOrigin [3]uint64, dstOffset uint64, region [3]uint64) error {
	if emptyRegion(region) {
		return nil
	}
	px := uint64(i.pixel)
	dl := rect.Layout{RowPitch: region[0] * px}
	dl.SlicePitch = dl.RowPitch * region[1]
	_, size, err := rect.OffsetSize(rect.Vec{}, region, rect.Vec{px, dl.RowPitch, dl.SlicePitch})
	if err != nil {
		return rangeError("image to buffer", err)
	}

	v, err := i.openView(q.dev, srcOrigin, region, device.AccessRead)
	if err != nil {
		return err
	}
	defer v.close()
	out, err := dst.transfer(q.dev, dstOffset, size, device.AccessWrite)
	if err != nil {
		return err
	}
	defer q.dev.Unmap(out)
	if err := rect.Copy(device.Bytes(out), dl, v.data, v.layout(), region, px); err != nil {
		return fmt.Errorf("%w: image to buffer: %w", ErrInvalidValue, err)
	}
	return nil
}

// CopyToImage copies region at srcOrigin into dst at dstOrigin. Both images
// must have the same format.
func (i *Image) CopyToImage(q *Queue, dst *Image, srcOrigin, dstOrigin, region [3]uint64) error {
	if i.format != dst.format {
		return fmt.Errorf("%w: copy from %v to %v", ErrInvalidValue, i.format, dst.format)
	}
	if emptyRegion(region) {
		return nil
	}
	sameLayers := (i.desc.Type == Image1DArray) == (dst.desc.Type == Image1DArray)
	if i.parentBuffer() == nil && dst.parentBuffer() == nil && sameLayers {
		return i.copyRegion(q, dst, srcOrigin, dstOrigin, region)
	}

	v, err := i.openView(q.dev, srcOrigin, region, device.AccessRead)
	if err != nil {
		return err
	}
	defer v.close()
	w, err := dst.openView(q.dev, dstOrigin, region, device.AccessWrite)
	if err != nil {
		return err
	}
	defer w.close()
	if err := rect.Copy(w.data, w.layout(), v.data, v.layout(), region, uint64(i.pixel)); err != nil {
		return fmt.Errorf("%w: image copy: %w", ErrInvalidValue, err)
	}
	return nil
}

func (i *Image) copyRegion(q *Queue, dst *Image, srcOrigin, dstOrigin, region [3]uint64) error {
	if err := i.desc.check(srcOrigin, region); err != nil {
		return err
	}
	if err := dst.desc.check(dstOrigin, region); err != nil {
		return err
	}
	srcRes, err := i.Resource(q.dev)
	if err != nil {
		return err
	}
	dstRes, err := dst.Resource(q.dev)
	if err != nil {
		return err
	}
	box, err := i.desc.Box(srcOrigin, region)
	if err != nil {
		return err
	}
	at, err := dst.desc.Box(dstOrigin, region)
	if err != nil {
		return err
	}
	if err := q.dev.CopyRegion(srcRes, dstRes, at.Origin, box); err != nil {
		return resourceError("image copy", err)
	}
	return nil
}

// Fill sets every texel of region at origin to color. color holds raw
// channel words: float bits for float and normalized formats, integers
// otherwise.
func (i *Image) Fill(q *Queue, color [4]uint32, origin, region [3]uint64) error {
	if emptyRegion(region) {
		return nil
	}
	if err := i.desc.check(origin, region); err != nil {
		return err
	}
	pattern, err := texel.Pack(i.format, color)
	if err != nil {
		if errors.Is(err, texel.ErrUnsupportedFormat) {
			return fmt.Errorf("%w: %w", ErrImageFormatNotSupported, err)
		}
		return err
	}
	res, err := i.Resource(q.dev)
	if err != nil {
		return err
	}

	if b := i.parentBuffer(); b != nil {
		err = q.dev.ClearImageBuffer(res, pattern, b.offset, origin, region, i.desc.RowPitch, i.desc.SlicePitch, i.pixel)
	} else {
		var box device.Box
		if box, err = i.desc.Box(origin, region); err != nil {
			return err
		}
		err = q.dev.ClearTexture(res, pattern, box)
	}
	if err != nil {
		return resourceError("image fill", err)
	}
	return nil
}
