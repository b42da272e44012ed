package native

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/clmem/device"
	"github.com/gogpu/clmem/internal/texel"
)

const (
	stagingUsage = gputypes.BufferUsageMapRead | gputypes.BufferUsageMapWrite |
		gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst
	normalUsage = gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst | gputypes.BufferUsageStorage

	textureUsage = gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst | gputypes.TextureUsageTextureBinding
)

// newBuffer allocates a hal buffer of at least size bytes.
func (d *Device) newBuffer(label string, size uint64, mappable bool) (*resource, error) {
	usage := normalUsage
	if mappable {
		usage = stagingUsage
	} else if d.cfg.unified {
		usage |= gputypes.BufferUsageMapRead | gputypes.BufferUsageMapWrite
		mappable = true
	}
	alloc := alignUp(size, copyAlign)
	buf, err := d.hal.CreateBuffer(&hal.BufferDescriptor{
		Label: d.cfg.label + " " + label,
		Size:  alloc,
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s of %d bytes: %w", device.ErrOutOfMemory, label, size, err)
	}
	return &resource{dev: d, buf: buf, alloc: alloc, mappable: mappable}, nil
}

// CreateBuffer implements device.Device.
func (d *Device) CreateBuffer(size uint64, host []byte, copyHost bool, typ device.ResourceType) (device.Resource, error) {
	if size == 0 {
		return nil, fmt.Errorf("%w: zero-sized buffer", device.ErrInvalidRange)
	}
	if typ == device.ResourceUser {
		return nil, fmt.Errorf("%w: user memory on %s", device.ErrUnsupported, d.cfg.label)
	}
	if copyHost && host != nil && uint64(len(host)) < size {
		return nil, fmt.Errorf("%w: host data has %d bytes, buffer needs %d", device.ErrInvalidRange, len(host), size)
	}

	r, err := d.newBuffer("buffer", size, typ == device.ResourceStaging)
	if err != nil {
		return nil, err
	}
	r.typ = typ
	r.info = device.ResourceInfo{Buffer: true, Linear: true, Staging: typ == device.ResourceStaging, Size: size}
	if err := d.track(r); err != nil {
		r.destroy()
		return nil, err
	}
	if copyHost && host != nil {
		if err := d.writeBuffer(r, 0, host[:size]); err != nil {
			d.DestroyResource(r)
			return nil, err
		}
	}
	d.log().Debug("native: buffer created", "device", d.cfg.label, "size", size, "type", typ, "mappable", r.mappable)
	return r, nil
}

// CreateTexture implements device.Device.
func (d *Device) CreateTexture(desc *device.TextureDescriptor, host []byte, copyHost bool, typ device.ResourceType) (device.Resource, error) {
	if desc == nil {
		return nil, fmt.Errorf("%w: nil texture descriptor", device.ErrInvalidRange)
	}
	pixel, err := texel.PixelSize(desc.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", device.ErrUnsupported, err)
	}
	if desc.Width == 0 || desc.Height == 0 || desc.DepthOrArrayLayers == 0 {
		return nil, fmt.Errorf("%w: empty texture %dx%dx%d", device.ErrInvalidRange, desc.Width, desc.Height, desc.DepthOrArrayLayers)
	}
	if typ == device.ResourceUser {
		return nil, fmt.Errorf("%w: user memory on %s", device.ErrUnsupported, d.cfg.label)
	}
	hostRow, hostSlice := hostPitches(desc, pixel)

	info := device.ResourceInfo{
		Dimension:          desc.Dimension,
		Format:             desc.Format,
		Width:              desc.Width,
		Height:             desc.Height,
		DepthOrArrayLayers: desc.DepthOrArrayLayers,
		Array:              desc.Array,
	}

	var r *resource
	if typ == device.ResourceStaging {
		row := alignUp(uint64(desc.Width)*uint64(pixel), uint64(d.cfg.rowAlignment))
		slice := row * uint64(desc.Height)
		size := slice * uint64(desc.DepthOrArrayLayers)
		if r, err = d.newBuffer("staging texture", size, true); err != nil {
			return nil, err
		}
		r.rowPitch, r.slicePitch = row, slice
		info.Linear, info.Staging, info.Size = true, true, size
	} else {
		tex, err := d.hal.CreateTexture(&hal.TextureDescriptor{
			Label:         d.cfg.label + " " + desc.Label,
			Size:          hal.Extent3D{Width: desc.Width, Height: desc.Height, DepthOrArrayLayers: desc.DepthOrArrayLayers},
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     halDimension(desc),
			Format:        desc.Format,
			Usage:         textureUsage,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: texture %dx%dx%d: %w", device.ErrOutOfMemory, desc.Width, desc.Height, desc.DepthOrArrayLayers, err)
		}
		r = &resource{dev: d, tex: tex}
	}
	r.typ = typ
	r.pixel = pixel
	r.info = info
	if err := d.track(r); err != nil {
		r.destroy()
		return nil, err
	}

	if copyHost && host != nil {
		whole := device.Box{Size: desc.Extent()}
		if err := d.TextureSubData(r, whole, host, uint32(hostRow), hostSlice); err != nil {
			d.DestroyResource(r)
			return nil, err
		}
	}
	d.log().Debug("native: texture created", "device", d.cfg.label, "format", desc.Format,
		"extent", desc.Extent(), "type", typ)
	return r, nil
}

// halDimension maps 1D arrays, which carry their layers in depth, to 2D
// array textures.
func halDimension(desc *device.TextureDescriptor) gputypes.TextureDimension {
	if desc.Dimension == gputypes.TextureDimension1D && desc.Array {
		return gputypes.TextureDimension2D
	}
	return desc.Dimension
}

func hostPitches(desc *device.TextureDescriptor, pixel uint32) (row, slice uint64) {
	row = uint64(desc.RowPitch)
	if row == 0 {
		row = uint64(desc.Width) * uint64(pixel)
	}
	slice = desc.SlicePitch
	if slice == 0 {
		slice = row * uint64(desc.Height)
	}
	return row, slice
}
