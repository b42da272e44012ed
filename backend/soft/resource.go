package soft

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/clmem/device"
)

const tileSize = 4

// resource is the storage of a soft buffer or texture.
type resource struct {
	dev  *Device
	id   uint64
	info device.ResourceInfo
	typ  device.ResourceType
	data []byte
	free func()

	// Texture layout. Tiled textures ignore the pitches.
	tiled      bool
	pixel      uint32
	rowPitch   uint64
	slicePitch uint64

	// charged is the number of bytes counted against the budget.
	charged   uint64
	destroyed bool
}

func (r *resource) Info() device.ResourceInfo { return r.info }

// cpuVisible reports whether the storage may be handed to the CPU as is.
func (r *resource) cpuVisible() bool {
	return r.dev.opts.UnifiedMemory || r.typ == device.ResourceStaging || r.typ == device.ResourceUser
}

func (r *resource) extent() gputypes.Extent3D {
	return gputypes.Extent3D{Width: r.info.Width, Height: r.info.Height, DepthOrArrayLayers: r.info.DepthOrArrayLayers}
}

func (r *resource) tiles() (x, y uint64) {
	return (uint64(r.info.Width) + tileSize - 1) / tileSize, (uint64(r.info.Height) + tileSize - 1) / tileSize
}

// texelOffset returns the storage offset of texel (x, y, z).
func (r *resource) texelOffset(x, y, z uint32) uint64 {
	px := uint64(r.pixel)
	if !r.tiled {
		return uint64(z)*r.slicePitch + uint64(y)*r.rowPitch + uint64(x)*px
	}
	tx, ty := r.tiles()
	tile := (uint64(z)*ty+uint64(y/tileSize))*tx + uint64(x/tileSize)
	in := uint64(y%tileSize)*tileSize + uint64(x%tileSize)
	return (tile*tileSize*tileSize + in) * px
}

// readBox copies box into dst laid out with the given pitches.
func (r *resource) readBox(box device.Box, dst []byte, rowPitch, slicePitch uint64) {
	r.walk(box, rowPitch, slicePitch, func(storage, host uint64, n uint64) {
		copy(dst[host:host+n], r.data[storage:storage+n])
	})
}

// writeBox copies src laid out with the given pitches into box.
func (r *resource) writeBox(box device.Box, src []byte, rowPitch, slicePitch uint64) {
	r.walk(box, rowPitch, slicePitch, func(storage, host uint64, n uint64) {
		copy(r.data[storage:storage+n], src[host:host+n])
	})
}

// walk calls fn for each contiguous run of box, giving the storage offset,
// the offset in a host layout with the given pitches, and the run length.
func (r *resource) walk(box device.Box, rowPitch, slicePitch uint64, fn func(storage, host, n uint64)) {
	px := uint64(r.pixel)
	o, s := box.Origin, box.Size
	for z := uint32(0); z < s.DepthOrArrayLayers; z++ {
		for y := uint32(0); y < s.Height; y++ {
			host := uint64(z)*slicePitch + uint64(y)*rowPitch
			if !r.tiled {
				fn(r.texelOffset(o.X, o.Y+y, o.Z+z), host, uint64(s.Width)*px)
				continue
			}
			for x := uint32(0); x < s.Width; x++ {
				fn(r.texelOffset(o.X+x, o.Y+y, o.Z+z), host+uint64(x)*px, px)
			}
		}
	}
}

// span returns the storage range touched by box on a linear texture.
func (r *resource) span(box device.Box) (start, end uint64) {
	o, s := box.Origin, box.Size
	start = r.texelOffset(o.X, o.Y, o.Z)
	end = r.texelOffset(o.X+s.Width-1, o.Y+s.Height-1, o.Z+s.DepthOrArrayLayers-1) + uint64(r.pixel)
	return start, end
}

// storageSize returns the bytes needed for a texture with the given layout.
func storageSize(info device.ResourceInfo, pixel uint32, tiled bool, rowPitch, slicePitch uint64) uint64 {
	if tiled {
		tx := (uint64(info.Width) + tileSize - 1) / tileSize
		ty := (uint64(info.Height) + tileSize - 1) / tileSize
		return uint64(info.DepthOrArrayLayers) * ty * tx * tileSize * tileSize * uint64(pixel)
	}
	return uint64(info.DepthOrArrayLayers-1)*slicePitch + uint64(info.Height-1)*rowPitch + uint64(info.Width)*uint64(pixel)
}

func alignUp(v uint64, align uint32) uint64 {
	if align <= 1 {
		return v
	}
	a := uint64(align)
	return (v + a - 1) / a * a
}
