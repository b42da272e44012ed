package native

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/clmem/device"
)

// Sampler is a realized HAL sampler.
type Sampler struct {
	dev  *Device
	hal  hal.Sampler
	desc gputypes.SamplerDescriptor
}

// HAL returns the wrapped HAL sampler.
func (s *Sampler) HAL() hal.Sampler { return s.hal }

// Descriptor returns the descriptor the sampler was created with.
func (s *Sampler) Descriptor() gputypes.SamplerDescriptor { return s.desc }

// CreateSampler implements device.SamplerFactory.
func (d *Device) CreateSampler(desc *gputypes.SamplerDescriptor) (any, error) {
	if desc == nil {
		return nil, fmt.Errorf("%w: nil sampler descriptor", device.ErrInvalidRange)
	}
	hs, err := d.hal.CreateSampler(&hal.SamplerDescriptor{
		Label:        d.cfg.label + " " + desc.Label,
		AddressModeU: desc.AddressModeU,
		AddressModeV: desc.AddressModeV,
		AddressModeW: desc.AddressModeW,
		MagFilter:    desc.MagFilter,
		MinFilter:    desc.MinFilter,
		MipmapFilter: mipmapFilter(desc.MipmapFilter),
		LodMinClamp:  desc.LodMinClamp,
		LodMaxClamp:  desc.LodMaxClamp,
		Compare:      desc.Compare,
		Anisotropy:   max(desc.MaxAnisotropy, 1),
	})
	if err != nil {
		return nil, fmt.Errorf("native: create sampler: %w", err)
	}
	d.log().Debug("native: sampler created", "device", d.cfg.label, "wrap", desc.AddressModeU, "filter", desc.MagFilter)
	return &Sampler{dev: d, hal: hs, desc: *desc}, nil
}

// DestroySampler implements device.SamplerFactory.
func (d *Device) DestroySampler(s any) {
	st, ok := s.(*Sampler)
	if !ok || st.dev != d {
		d.log().Warn("native: destroy of foreign sampler", "device", d.cfg.label)
		return
	}
	d.hal.DestroySampler(st.hal)
}

func mipmapFilter(m gputypes.MipmapFilterMode) gputypes.FilterMode {
	switch m {
	case gputypes.MipmapFilterModeNearest:
		return gputypes.FilterModeNearest
	case gputypes.MipmapFilterModeLinear:
		return gputypes.FilterModeLinear
	default:
		return gputypes.FilterModeUndefined
	}
}
