package soft

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/clmem/device"
)

// sampler is the sampler state of a soft device. The device never samples,
// it only validates and keeps the descriptor.
type sampler struct {
	dev  *Device
	desc gputypes.SamplerDescriptor
}

var _ device.SamplerFactory = (*Device)(nil)

// CreateSampler implements device.SamplerFactory.
func (d *Device) CreateSampler(desc *gputypes.SamplerDescriptor) (any, error) {
	if desc == nil {
		return nil, fmt.Errorf("%w: nil sampler descriptor", device.ErrInvalidRange)
	}
	for _, m := range []gputypes.AddressMode{desc.AddressModeU, desc.AddressModeV, desc.AddressModeW} {
		if m == gputypes.AddressModeUndefined {
			return nil, fmt.Errorf("%w: undefined address mode", device.ErrUnsupported)
		}
	}
	if desc.MagFilter == gputypes.FilterModeUndefined || desc.MinFilter == gputypes.FilterModeUndefined {
		return nil, fmt.Errorf("%w: undefined filter mode", device.ErrUnsupported)
	}

	d.mu.Lock()
	d.stats.Samplers++
	d.mu.Unlock()
	d.log().Debug("soft: sampler created", "device", d.opts.Name, "wrap", desc.AddressModeU, "filter", desc.MagFilter)
	return &sampler{dev: d, desc: *desc}, nil
}

// DestroySampler implements device.SamplerFactory.
func (d *Device) DestroySampler(s any) {
	st, ok := s.(*sampler)
	if !ok || st.dev != d {
		d.log().Warn("soft: destroy of foreign sampler", "device", d.opts.Name)
		return
	}
	d.mu.Lock()
	d.stats.Samplers--
	d.mu.Unlock()
}

// SamplerDescriptor returns the descriptor a sampler state was created
// with.
func SamplerDescriptor(s any) (gputypes.SamplerDescriptor, bool) {
	st, ok := s.(*sampler)
	if !ok {
		return gputypes.SamplerDescriptor{}, false
	}
	return st.desc, true
}
