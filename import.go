package clmem

import (
	"fmt"
	"image"
	"maps"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"

	"github.com/gogpu/clmem/device"
)

// checkImported verifies that resources covers every device of ctx and
// nothing else.
func checkImported(ctx *Context, resources map[device.Device]device.Resource, wantBuffer bool) error {
	if ctx == nil {
		return fmt.Errorf("%w: nil context", ErrInvalidValue)
	}
	if len(resources) != len(ctx.devices) {
		return fmt.Errorf("%w: %d resources for %d devices", ErrInvalidValue, len(resources), len(ctx.devices))
	}
	for _, dev := range ctx.devices {
		res, ok := resources[dev]
		if !ok || res == nil {
			return fmt.Errorf("%w: %w: %s", ErrOutOfResources, ErrNoResource, dev.Name())
		}
		if res.Info().Buffer != wantBuffer {
			return fmt.Errorf("%w: resource kind on %s", ErrInvalidValue, dev.Name())
		}
	}
	return nil
}

// ImportBuffer wraps buffer resources created outside clmem, one per device
// of ctx. The resources are not destroyed with the buffer.
func ImportBuffer(ctx *Context, flags MemFlags, size uint64, resources map[device.Device]device.Resource) (*Buffer, error) {
	if flags&memHostPtr != 0 || !flags.validate() {
		return nil, fmt.Errorf("%w: flags %v on an import", ErrInvalidValue, flags)
	}
	if err := checkImported(ctx, resources, true); err != nil {
		return nil, err
	}
	if err := ctx.checkSize(size); err != nil {
		return nil, err
	}
	for dev, res := range resources {
		if res.Info().Size < size {
			return nil, fmt.Errorf("%w: %s resource has %d bytes, need %d", ErrInvalidValue, dev.Name(), res.Info().Size, size)
		}
	}

	b := &Buffer{}
	b.init(ctx, "buffer", nil, flags, size, HostPtr{})
	b.resources = maps.Clone(resources)
	return b, nil
}

// ImportImage wraps texture resources created outside clmem.
func ImportImage(ctx *Context, flags MemFlags, format gputypes.TextureFormat, desc ImageDesc, resources map[device.Device]device.Resource) (*Image, error) {
	if flags&memHostPtr != 0 || !flags.validate() {
		return nil, fmt.Errorf("%w: flags %v on an import", ErrInvalidValue, flags)
	}
	if err := checkImported(ctx, resources, false); err != nil {
		return nil, err
	}
	pixel, err := texelSize(format)
	if err != nil {
		return nil, err
	}
	if desc.RowPitch != 0 || desc.SlicePitch != 0 || desc.Type == Image1DBuffer {
		return nil, fmt.Errorf("%w: imported %v image with pitches", ErrInvalidValue, desc.Type)
	}
	d, err := desc.withPitches(pixel)
	if err != nil {
		return nil, err
	}
	want, err := d.wholeBox()
	if err != nil {
		return nil, err
	}
	for dev, res := range resources {
		info := res.Info()
		if info.Format != format || info.Width != want.Size.Width || info.Height != want.Size.Height ||
			info.DepthOrArrayLayers != want.Size.DepthOrArrayLayers {
			return nil, fmt.Errorf("%w: %s resource does not match %v %v", ErrInvalidValue, dev.Name(), d.Type, d.Size())
		}
	}
	size, err := imageBytes(d, pixel)
	if err != nil {
		return nil, err
	}

	i := &Image{format: format, pixel: pixel, desc: d}
	i.init(ctx, "image", nil, flags, size, HostPtr{})
	i.resources = maps.Clone(resources)
	return i, nil
}

// ImportSurface uploads img as an RGBA8 2D image.
func ImportSurface(ctx *Context, flags MemFlags, img image.Image) (*Image, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil surface", ErrInvalidValue)
	}
	if flags&memHostPtr != 0 {
		return nil, fmt.Errorf("%w: host pointer flags on a surface", ErrInvalidValue)
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: empty surface %v", ErrInvalidValue, b)
	}

	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Rect.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Copy(rgba, image.Point{}, img, b, draw.Src, nil)
	}
	desc := ImageDesc{
		Type:     Image2D,
		Width:    uint64(b.Dx()),
		Height:   uint64(b.Dy()),
		RowPitch: uint64(rgba.Stride),
	}
	return NewImage(ctx, flags|MemCopyHostPtr, gputypes.TextureFormatRGBA8Unorm, desc, HostPtrOf(rgba.Pix))
}
