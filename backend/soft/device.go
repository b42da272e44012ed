package soft

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"

	"github.com/gogpu/clmem/device"
	"github.com/gogpu/clmem/internal/texel"
)

// Device is a pure-Go device. It is safe for concurrent use.
type Device struct {
	opts   Options
	mem    memoryBudget
	nextID atomic.Uint64
	logger atomic.Pointer[slog.Logger]

	mu        sync.Mutex
	cmds      *queue.Queue
	resources map[*resource]struct{}
	stats     Stats
	history   []Command
}

var _ device.Device = (*Device)(nil)

// New creates a device. The default device is discrete, linear, eager and
// unlimited.
func New(opts ...Option) *Device {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return newDevice(o)
}

func newDevice(o Options) *Device {
	d := &Device{
		opts:      o,
		cmds:      queue.New(),
		resources: make(map[*resource]struct{}),
	}
	d.mem.budget = o.MemoryBudget
	d.log().Debug("soft: device created",
		"name", o.Name, "unified", o.UnifiedMemory, "tiled", o.TiledTextures, "deferred", o.Deferred)
	return d
}

// SetLogger sets the logger of this device. Pass nil to fall back to the
// package logger.
func (d *Device) SetLogger(l *slog.Logger) {
	d.logger.Store(l)
}

func (d *Device) log() *slog.Logger {
	if l := d.logger.Load(); l != nil {
		return l
	}
	return slogger()
}

// Name returns the device name.
func (d *Device) Name() string { return d.opts.Name }

// UnifiedMemory reports whether the device shares memory with the host.
func (d *Device) UnifiedMemory() bool { return d.opts.UnifiedMemory }

// Options returns the configuration of the device.
func (d *Device) Options() Options { return d.opts }

func (d *Device) String() string { return "soft:" + d.opts.Name }

// CreateBuffer implements device.Device.
func (d *Device) CreateBuffer(size uint64, host []byte, copyHost bool, typ device.ResourceType) (device.Resource, error) {
	if size == 0 {
		return nil, fmt.Errorf("%w: zero-sized buffer", device.ErrInvalidRange)
	}
	if host != nil && uint64(len(host)) < size && (copyHost || typ == device.ResourceUser) {
		return nil, fmt.Errorf("%w: host data has %d bytes, buffer needs %d", device.ErrInvalidRange, len(host), size)
	}

	r := &resource{
		dev:  d,
		id:   d.nextID.Add(1),
		typ:  typ,
		info: device.ResourceInfo{Buffer: true, Linear: true, Size: size},
	}
	if err := d.allocate(r, size, host); err != nil {
		return nil, err
	}
	if copyHost && host != nil && typ != device.ResourceUser {
		copy(r.data, host[:size])
	}
	d.track(r)
	d.log().Debug("soft: buffer created", "device", d.opts.Name, "id", r.id, "size", size, "type", typ)
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

	info := device.ResourceInfo{
		Dimension:          desc.Dimension,
		Format:             desc.Format,
		Width:              desc.Width,
		Height:             desc.Height,
		DepthOrArrayLayers: desc.DepthOrArrayLayers,
		Array:              desc.Array,
	}
	hostRow, hostSlice := hostPitches(desc, pixel)

	r := &resource{
		dev:   d,
		id:    d.nextID.Add(1),
		typ:   typ,
		pixel: pixel,
		tiled: d.opts.TiledTextures && typ == device.ResourceNormal,
	}
	if typ == device.ResourceUser {
		r.rowPitch, r.slicePitch = hostRow, hostSlice
	} else {
		r.rowPitch = alignUp(uint64(desc.Width)*uint64(pixel), d.opts.RowAlignment)
		r.slicePitch = r.rowPitch * uint64(desc.Height)
	}
	info.Linear = !r.tiled
	size := storageSize(info, pixel, r.tiled, r.rowPitch, r.slicePitch)
	info.Size = size
	r.info = info

	if host != nil && (copyHost || typ == device.ResourceUser) {
		need := storageSize(info, pixel, false, hostRow, hostSlice)
		if uint64(len(host)) < need {
			return nil, fmt.Errorf("%w: host data has %d bytes, texture needs %d", device.ErrInvalidRange, len(host), need)
		}
	}
	if err := d.allocate(r, size, host); err != nil {
		return nil, err
	}
	if copyHost && host != nil && typ != device.ResourceUser {
		r.writeBox(device.Box{Size: desc.Extent()}, host, hostRow, hostSlice)
	}
	d.track(r)
	d.log().Debug("soft: texture created", "device", d.opts.Name, "id", r.id,
		"format", desc.Format, "size", desc.Extent(), "tiled", r.tiled, "type", typ)
	return r, nil
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

func (d *Device) allocate(r *resource, size uint64, host []byte) error {
	switch r.typ {
	case device.ResourceUser:
		if !d.opts.UserMemory {
			return fmt.Errorf("%w: user memory on %s", device.ErrUnsupported, d.opts.Name)
		}
		if host == nil {
			return fmt.Errorf("%w: user resource without host memory", device.ErrInvalidRange)
		}
		r.data = host[:size:size]
		r.free = func() {}
		return nil
	case device.ResourceStaging:
		if err := d.mem.reserve(size); err != nil {
			return err
		}
		data, free, err := allocHostVisible(size)
		if err != nil {
			d.mem.release(size)
			return fmt.Errorf("%w: %w", device.ErrOutOfMemory, err)
		}
		r.data, r.free, r.charged = data, free, size
		return nil
	default:
		if err := d.mem.reserve(size); err != nil {
			return err
		}
		r.data, r.free, r.charged = make([]byte, size), func() {}, size
		return nil
	}
}

func (d *Device) track(r *resource) {
	r.info.Staging = r.typ == device.ResourceStaging
	r.info.User = r.typ == device.ResourceUser

	d.mu.Lock()
	defer d.mu.Unlock()

	d.resources[r] = struct{}{}
	if r.info.Buffer {
		d.stats.Buffers++
	} else {
		d.stats.Textures++
	}
	if r.typ == device.ResourceStaging {
		d.stats.StagingCreated++
	}
}

// DestroyResource implements device.Device. Pending commands run first.
func (d *Device) DestroyResource(res device.Resource) {
	r, err := d.lookup(res)
	if err != nil {
		d.log().Warn("soft: destroy of unknown resource", "device", d.opts.Name, "err", err)
		return
	}

	d.mu.Lock()
	d.flushLocked()
	delete(d.resources, r)
	r.destroyed = true
	if r.info.Buffer {
		d.stats.Buffers--
	} else {
		d.stats.Textures--
	}
	d.mu.Unlock()

	r.free()
	r.data = nil
	if r.charged != 0 {
		d.mem.release(r.charged)
	}
}

func (d *Device) lookup(res device.Resource) (*resource, error) {
	r, ok := res.(*resource)
	if !ok || r == nil || r.dev != d {
		return nil, fmt.Errorf("%w: %T not owned by %s", device.ErrInvalidResource, res, d.opts.Name)
	}
	d.mu.Lock()
	_, live := d.resources[r]
	d.mu.Unlock()
	if !live {
		return nil, fmt.Errorf("%w: resource %d destroyed", device.ErrInvalidResource, r.id)
	}
	return r, nil
}

// Memory returns the allocation statistics of the device.
func (d *Device) Memory() MemoryStats { return d.mem.stats() }
