package native

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/software"
)

// Open opens a logical device on adapter. Unified memory and the row
// alignment are taken from the adapter unless overridden by opts. Close
// destroys the HAL device.
func Open(adapter hal.ExposedAdapter, opts ...Option) (*Device, error) {
	if adapter.Adapter == nil {
		return nil, ErrNoAdapter
	}
	od, err := adapter.Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		return nil, fmt.Errorf("native: open %s: %w", adapter.Info.Name, err)
	}
	if od.Device == nil || od.Queue == nil {
		return nil, ErrNilHALDevice
	}

	base := []Option{WithLabel(adapter.Info.Name)}
	if pitch := adapter.Capabilities.AlignmentsMask.BufferCopyPitch; pitch > 0 && pitch <= 1<<16 {
		base = append(base, WithRowAlignment(uint32(pitch)))
	}
	cfg := newConfig("", unifiedDeviceType(adapter.Info.DeviceType), append(base, opts...))
	return newDevice(od.Device, od.Queue, cfg, od.Device.Destroy), nil
}

// OpenSoftware opens the pure-Go software HAL. It needs no GPU.
func OpenSoftware(opts ...Option) (*Device, error) {
	inst, err := software.API{}.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("native: software instance: %w", err)
	}
	adapters := inst.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		inst.Destroy()
		return nil, ErrNoAdapter
	}
	d, err := Open(adapters[0], opts...)
	if err != nil {
		inst.Destroy()
		return nil, err
	}
	closeDevice := d.release
	d.release = func() {
		closeDevice()
		inst.Destroy()
	}
	return d, nil
}

// FromProvider wraps the HAL device shared by a gpucontext provider, such
// as a gogpu application. The provider keeps ownership of the device.
//
// The HAL handles are found on the provider itself (HalDevice() any and
// HalQueue() any) or on its Device (HalDevice() hal.Device and HalQueue()
// hal.Queue, as *wgpu.Device has).
func FromProvider(provider gpucontext.DeviceProvider, opts ...Option) (*Device, error) {
	if provider == nil {
		return nil, ErrProvider
	}
	dev, queue, err := providerHAL(provider)
	if err != nil {
		return nil, err
	}
	info := provider.AdapterInfo()
	base := []Option{WithLabel(info.Name)}
	cfg := newConfig("", unifiedAdapterType(info.Type), append(base, opts...))
	return newDevice(dev, queue, cfg, nil), nil
}

func providerHAL(provider gpucontext.DeviceProvider) (hal.Device, hal.Queue, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	type halDevice interface {
		HalDevice() hal.Device
		HalQueue() hal.Queue
	}

	if hp, ok := provider.(halProvider); ok {
		dev, _ := hp.HalDevice().(hal.Device)
		queue, _ := hp.HalQueue().(hal.Queue)
		if dev == nil || queue == nil {
			return nil, nil, fmt.Errorf("%w: HalDevice is %T, HalQueue is %T", ErrProvider, hp.HalDevice(), hp.HalQueue())
		}
		return dev, queue, nil
	}
	if hd, ok := provider.Device().(halDevice); ok {
		dev, queue := hd.HalDevice(), hd.HalQueue()
		if dev == nil || queue == nil {
			return nil, nil, ErrNilHALDevice
		}
		return dev, queue, nil
	}
	return nil, nil, fmt.Errorf("%w: device is %T", ErrProvider, provider.Device())
}

func unifiedDeviceType(t gputypes.DeviceType) bool {
	return t == gputypes.DeviceTypeIntegratedGPU || t == gputypes.DeviceTypeCPU
}

func unifiedAdapterType(t gpucontext.AdapterType) bool {
	return t == gpucontext.AdapterTypeIntegrated || t == gpucontext.AdapterTypeSoftware
}
