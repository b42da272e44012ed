package native

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/clmem/device"
	"github.com/gogpu/clmem/internal/rect"
)

// resource is a buffer, a normal texture backed by a hal.Texture, or a
// staging texture stored linearly in a hal.Buffer.
type resource struct {
	dev  *Device
	info device.ResourceInfo
	typ  device.ResourceType

	buf hal.Buffer
	tex hal.Texture
	// alloc is the byte size of buf, rounded up for copy alignment.
	alloc uint64
	// mappable is set when buf carries map usage.
	mappable bool

	// Staging texture layout.
	pixel      uint32
	rowPitch   uint64
	slicePitch uint64

	mu       sync.Mutex
	maps     int
	base     unsafe.Pointer
	coherent bool
}

func (r *resource) Info() device.ResourceInfo { return r.info }

// linearTexture reports whether r is a staging texture.
func (r *resource) linearTexture() bool { return !r.info.Buffer && r.buf != nil }

// acquire maps the whole buffer on first use and returns its base address.
func (r *resource) acquire() (unsafe.Pointer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.maps == 0 {
		m, err := r.dev.hal.MapBuffer(r.buf, 0, r.alloc)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", device.ErrNotMappable, err)
		}
		r.base, r.coherent = m.Ptr, m.IsCoherent
	}
	r.maps++
	return r.base, nil
}

// releaseMap drops one mapping reference and unmaps at zero.
func (r *resource) releaseMap() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.maps == 0 {
		return
	}
	r.maps--
	if r.maps > 0 {
		return
	}
	r.base = nil
	if err := r.dev.hal.UnmapBuffer(r.buf); err != nil {
		r.dev.log().Warn("native: unmap failed", "device", r.dev.cfg.label, "err", err)
	}
}

// withBytes maps the storage of a mappable buffer for the duration of fn.
func (r *resource) withBytes(fn func(storage []byte) error) error {
	base, err := r.acquire()
	if err != nil {
		return err
	}
	defer r.releaseMap()
	return fn(unsafe.Slice((*byte)(base), r.alloc))
}

func (r *resource) destroy() {
	r.mu.Lock()
	mapped := r.maps > 0
	r.maps = 0
	r.base = nil
	r.mu.Unlock()

	switch {
	case r.buf != nil:
		if mapped {
			_ = r.dev.hal.UnmapBuffer(r.buf)
		}
		r.dev.hal.DestroyBuffer(r.buf)
	case r.tex != nil:
		r.dev.hal.DestroyTexture(r.tex)
	}
}

func (r *resource) extent() gputypes.Extent3D {
	return gputypes.Extent3D{Width: r.info.Width, Height: r.info.Height, DepthOrArrayLayers: r.info.DepthOrArrayLayers}
}

// layout returns the position of box in the linear storage of a staging
// texture.
func (r *resource) layout(box device.Box) rect.Layout {
	return rect.Layout{
		Origin:     rect.Vec{uint64(box.Origin.X), uint64(box.Origin.Y), uint64(box.Origin.Z)},
		RowPitch:   r.rowPitch,
		SlicePitch: r.slicePitch,
	}
}

// copyTexture addresses a normal texture at origin.
func (r *resource) copyTexture(origin gputypes.Origin3D) hal.ImageCopyTexture {
	return hal.ImageCopyTexture{
		Texture: r.tex,
		Origin:  hal.Origin3D{X: origin.X, Y: origin.Y, Z: origin.Z},
		Aspect:  gputypes.TextureAspectAll,
	}
}

func extent(box device.Box) hal.Extent3D {
	return hal.Extent3D{Width: box.Size.Width, Height: box.Size.Height, DepthOrArrayLayers: box.Size.DepthOrArrayLayers}
}

func boxVec(box device.Box) rect.Vec {
	return rect.Vec{uint64(box.Size.Width), uint64(box.Size.Height), uint64(box.Size.DepthOrArrayLayers)}
}

func alignUp(v, align uint64) uint64 {
	if align <= 1 {
		return v
	}
	return (v + align - 1) / align * align
}

func alignDown(v, align uint64) uint64 {
	if align <= 1 {
		return v
	}
	return v / align * align
}

// copyAlign is the offset and size alignment of buffer copies.
const copyAlign = 4
