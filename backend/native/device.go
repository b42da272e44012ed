package native

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/clmem/device"
)

// Device is a clmem device over a HAL device and queue. It is safe for
// concurrent use.
type Device struct {
	cfg    config
	hal    hal.Device
	queue  hal.Queue
	logger atomic.Pointer[slog.Logger]

	// release tears down what Open created. Nil for borrowed devices.
	release func()

	// submitMu serializes encoding and submission.
	submitMu sync.Mutex

	mu        sync.Mutex
	resources map[*resource]struct{}
	closed    bool
}

var (
	_ device.Device         = (*Device)(nil)
	_ device.Finisher       = (*Device)(nil)
	_ device.SamplerFactory = (*Device)(nil)
)

// New wraps an open HAL device and its queue. The caller keeps ownership
// of both.
func New(dev hal.Device, queue hal.Queue, opts ...Option) (*Device, error) {
	if dev == nil || queue == nil {
		return nil, ErrNilHALDevice
	}
	return newDevice(dev, queue, newConfig("", false, opts), nil), nil
}

func newDevice(dev hal.Device, queue hal.Queue, cfg config, release func()) *Device {
	d := &Device{
		cfg:       cfg,
		hal:       dev,
		queue:     queue,
		release:   release,
		resources: make(map[*resource]struct{}),
	}
	d.log().Info("native: device opened",
		"name", cfg.label, "unified", cfg.unified, "row_alignment", cfg.rowAlignment)
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

// Name returns the device label.
func (d *Device) Name() string { return d.cfg.label }

// UnifiedMemory reports whether the adapter shares memory with the host.
func (d *Device) UnifiedMemory() bool { return d.cfg.unified }

// HAL returns the wrapped HAL device and queue.
func (d *Device) HAL() (hal.Device, hal.Queue) { return d.hal, d.queue }

func (d *Device) String() string { return "native:" + d.cfg.label }

// Finish waits until the HAL device is idle.
func (d *Device) Finish() error {
	if err := d.hal.WaitIdle(); err != nil {
		return fmt.Errorf("native: wait idle: %w", err)
	}
	return nil
}

// Close destroys every live resource and, for devices created by Open or
// OpenSoftware, the HAL device itself.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	live := make([]*resource, 0, len(d.resources))
	for r := range d.resources {
		live = append(live, r)
	}
	d.resources = make(map[*resource]struct{})
	d.mu.Unlock()

	err := d.Finish()
	for _, r := range live {
		r.destroy()
	}
	if len(live) > 0 {
		d.log().Warn("native: closed with live resources", "device", d.cfg.label, "count", len(live))
	}
	if d.release != nil {
		d.release()
	}
	return err
}

// Live returns the number of resources not yet destroyed.
func (d *Device) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.resources)
}

func (d *Device) track(r *resource) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	d.resources[r] = struct{}{}
	return nil
}

func (d *Device) lookup(res device.Resource) (*resource, error) {
	r, ok := res.(*resource)
	if !ok || r == nil || r.dev != d {
		return nil, fmt.Errorf("%w: %T not owned by %s", device.ErrInvalidResource, res, d.cfg.label)
	}
	d.mu.Lock()
	_, live := d.resources[r]
	d.mu.Unlock()
	if !live {
		return nil, fmt.Errorf("%w: resource destroyed", device.ErrInvalidResource)
	}
	return r, nil
}

// DestroyResource implements device.Device.
func (d *Device) DestroyResource(res device.Resource) {
	r, err := d.lookup(res)
	if err != nil {
		d.log().Warn("native: destroy of unknown resource", "device", d.cfg.label, "err", err)
		return
	}
	d.mu.Lock()
	delete(d.resources, r)
	d.mu.Unlock()
	r.destroy()
}

// submit records one command buffer and waits for it to complete.
func (d *Device) submit(label string, record func(enc hal.CommandEncoder)) error {
	d.submitMu.Lock()
	defer d.submitMu.Unlock()

	enc, err := d.hal.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return fmt.Errorf("native: create command encoder: %w", err)
	}
	defer enc.Destroy()

	if err := enc.BeginEncoding(label); err != nil {
		return fmt.Errorf("native: begin encoding: %w", err)
	}
	record(enc)
	cmd, err := enc.EndEncoding()
	if err != nil {
		return fmt.Errorf("native: end encoding: %w", err)
	}
	defer d.hal.FreeCommandBuffer(cmd)

	idx, err := d.queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		return fmt.Errorf("native: submit %s: %w", label, err)
	}
	if err := d.wait(idx); err != nil {
		return err
	}
	d.log().Debug("native: submitted", "device", d.cfg.label, "label", label, "index", idx)
	return nil
}

// wait polls the queue until submission idx completes.
func (d *Device) wait(idx uint64) error {
	deadline := time.Now().Add(d.cfg.submitTimeout)
	for d.queue.PollCompleted() < idx {
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: index %d after %v", ErrSubmitTimeout, idx, d.cfg.submitTimeout)
		}
		time.Sleep(50 * time.Microsecond)
	}
	return nil
}
