package clmem

import (
	"errors"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/clmem/device"
)

// Context groups the devices memory objects are realized on.
type Context struct {
	devices []device.Device
	opts    contextOptions
}

// NewContext creates a context over devices. Devices implementing
// SetLogger(*slog.Logger) receive the current clmem logger.
func NewContext(devices []device.Device, opts ...ContextOption) (*Context, error) {
	if len(devices) == 0 {
		return nil, fmt.Errorf("%w: context without devices", ErrInvalidValue)
	}
	seen := make(map[device.Device]bool, len(devices))
	for i, dev := range devices {
		if dev == nil {
			return nil, fmt.Errorf("%w: device %d is nil", ErrInvalidValue, i)
		}
		if seen[dev] {
			return nil, fmt.Errorf("%w: device %s listed twice", ErrInvalidValue, dev.Name())
		}
		seen[dev] = true
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	c := &Context{devices: slices.Clone(devices), opts: o}

	l := Logger()
	for _, dev := range c.devices {
		propagateLogger(dev, l)
	}
	contextsMu.Lock()
	contexts[c] = struct{}{}
	contextsMu.Unlock()

	l.Info("clmem: context created", "devices", len(c.devices))
	return c, nil
}

// Release detaches the context from SetLogger propagation. Objects created
// in the context stay usable.
func (c *Context) Release() {
	contextsMu.Lock()
	delete(contexts, c)
	contextsMu.Unlock()
}

// Devices returns the devices of the context.
func (c *Context) Devices() []device.Device {
	return slices.Clone(c.devices)
}

// HasDevice reports whether dev belongs to the context.
func (c *Context) HasDevice(dev device.Device) bool {
	return slices.Contains(c.devices, dev)
}

// NewQueue returns a queue on dev.
func (c *Context) NewQueue(dev device.Device) (*Queue, error) {
	if !c.HasDevice(dev) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDevice, deviceName(dev))
	}
	return &Queue{ctx: c, dev: dev}, nil
}

func (c *Context) checkSize(size uint64) error {
	if size == 0 {
		return fmt.Errorf("%w: zero size", ErrInvalidValue)
	}
	if c.opts.maxAllocSize != 0 && size > c.opts.maxAllocSize {
		return fmt.Errorf("%w: size %d exceeds max alloc size %d", ErrInvalidValue, size, c.opts.maxAllocSize)
	}
	return nil
}

// realize creates one resource per device. Devices allocate concurrently; if
// any fails, the resources already created are destroyed.
func (c *Context) realize(op string, create func(dev device.Device) (device.Resource, error)) (map[device.Device]device.Resource, error) {
	created := make([]device.Resource, len(c.devices))

	var g errgroup.Group
	if c.opts.realizeConcurrency > 0 {
		g.SetLimit(c.opts.realizeConcurrency)
	}
	for i, dev := range c.devices {
		g.Go(func() error {
			res, err := create(dev)
			if err != nil {
				return fmt.Errorf("%s on %s: %w", op, dev.Name(), err)
			}
			created[i] = res
			return nil
		})
	}
	err := g.Wait()

	out := make(map[device.Device]device.Resource, len(c.devices))
	for i, res := range created {
		if res != nil {
			out[c.devices[i]] = res
		}
	}
	if err != nil {
		destroyResources(out)
		return nil, err
	}
	return out, nil
}

// createBuffer realizes a buffer on every device, trying types in order per
// device. See placeFirst for the fallback rule.
func (c *Context) createBuffer(size uint64, host HostPtr, copyHost bool, types ...device.ResourceType) (map[device.Device]device.Resource, error) {
	data := host.Bytes(size)
	return c.realize("create buffer", func(dev device.Device) (device.Resource, error) {
		return placeFirst(dev, types, func(typ device.ResourceType) (device.Resource, error) {
			return dev.CreateBuffer(size, data, copyHost, typ)
		})
	})
}

func (c *Context) createTexture(desc *device.TextureDescriptor, host []byte, copyHost bool, types ...device.ResourceType) (map[device.Device]device.Resource, error) {
	return c.realize("create texture", func(dev device.Device) (device.Resource, error) {
		return placeFirst(dev, types, func(typ device.ResourceType) (device.Resource, error) {
			d := *desc
			return dev.CreateTexture(&d, host, copyHost, typ)
		})
	})
}

// placeFirst returns the first resource create succeeds with. A failed
// staging allocation always falls through to the next type; other types
// fall through only when the device reports device.ErrUnsupported.
func placeFirst(dev device.Device, types []device.ResourceType, create func(device.ResourceType) (device.Resource, error)) (device.Resource, error) {
	var err error
	for i, typ := range types {
		var res device.Resource
		res, err = create(typ)
		if err == nil {
			return res, nil
		}
		last := i == len(types)-1
		if last || (typ != device.ResourceStaging && !errors.Is(err, device.ErrUnsupported)) {
			break
		}
		Logger().Warn("clmem: placement refused, falling back",
			"device", dev.Name(), "type", typ, "next", types[i+1], "err", err)
	}
	return nil, err
}

func destroyResources(res map[device.Device]device.Resource) {
	for dev, r := range res {
		dev.DestroyResource(r)
	}
}

func deviceName(dev device.Device) string {
	if dev == nil {
		return "<nil>"
	}
	return dev.Name()
}

// Queue issues work to one device of a context.
type Queue struct {
	ctx *Context
	dev device.Device
}

// Context returns the context of the queue.
func (q *Queue) Context() *Context { return q.ctx }

// Device returns the device of the queue.
func (q *Queue) Device() device.Device { return q.dev }

// Finish waits for the commands submitted to the device. Devices without a
// deferred command stream have nothing to wait for.
func (q *Queue) Finish() error {
	if f, ok := q.dev.(device.Finisher); ok {
		return f.Finish()
	}
	return nil
}
