package clmem

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/clmem/device"
)

// AddressingMode is how a sampler treats coordinates outside an image.
type AddressingMode uint8

const (
	AddressNone AddressingMode = iota
	AddressClampToEdge
	AddressClamp
	AddressRepeat
	AddressMirroredRepeat
)

func (m AddressingMode) String() string {
	switch m {
	case AddressNone:
		return "None"
	case AddressClampToEdge:
		return "ClampToEdge"
	case AddressClamp:
		return "Clamp"
	case AddressRepeat:
		return "Repeat"
	case AddressMirroredRepeat:
		return "MirroredRepeat"
	}
	return fmt.Sprintf("AddressingMode(%d)", uint8(m))
}

// gpu returns the device address mode. Devices have no border color, so
// Clamp and None fall back to ClampToEdge.
func (m AddressingMode) gpu() gputypes.AddressMode {
	switch m {
	case AddressRepeat:
		return gputypes.AddressModeRepeat
	case AddressMirroredRepeat:
		return gputypes.AddressModeMirrorRepeat
	default:
		return gputypes.AddressModeClampToEdge
	}
}

// FilterMode is the texel filter of a sampler.
type FilterMode uint8

const (
	FilterNearest FilterMode = iota
	FilterLinear
)

func (f FilterMode) String() string {
	switch f {
	case FilterNearest:
		return "Nearest"
	case FilterLinear:
		return "Linear"
	}
	return fmt.Sprintf("FilterMode(%d)", uint8(f))
}

// Sampler is an immutable sampling state. It is realized on the devices of
// its context that implement device.SamplerFactory.
type Sampler struct {
	ctx        *Context
	normalized bool
	addressing AddressingMode
	filter     FilterMode

	mu     sync.Mutex
	states map[device.Device]any
}

// NewSampler creates a sampler in ctx.
func NewSampler(ctx *Context, normalized bool, addressing AddressingMode, filter FilterMode) (*Sampler, error) {
	if ctx == nil {
		return nil, fmt.Errorf("%w: nil context", ErrInvalidValue)
	}
	if addressing > AddressMirroredRepeat {
		return nil, fmt.Errorf("%w: addressing mode %v", ErrInvalidValue, addressing)
	}
	if filter > FilterLinear {
		return nil, fmt.Errorf("%w: filter mode %v", ErrInvalidValue, filter)
	}
	s := &Sampler{
		ctx:        ctx,
		normalized: normalized,
		addressing: addressing,
		filter:     filter,
		states:     make(map[device.Device]any),
	}

	desc := s.Descriptor()
	for _, dev := range ctx.devices {
		f, ok := dev.(device.SamplerFactory)
		if !ok {
			continue
		}
		d := desc
		st, err := f.CreateSampler(&d)
		if err != nil {
			s.Release()
			return nil, resourceError("create sampler on "+dev.Name(), err)
		}
		s.states[dev] = st
	}
	return s, nil
}

func (s *Sampler) Context() *Context              { return s.ctx }
func (s *Sampler) NormalizedCoords() bool         { return s.normalized }
func (s *Sampler) AddressingMode() AddressingMode { return s.addressing }
func (s *Sampler) FilterMode() FilterMode         { return s.filter }

// Descriptor returns the device sampler state. Unnormalized coordinates
// have no device equivalent and are left to the kernel.
func (s *Sampler) Descriptor() gputypes.SamplerDescriptor {
	d := gputypes.DefaultSamplerDescriptor()
	d.Label = "clmem sampler"
	wrap := s.addressing.gpu()
	d.AddressModeU, d.AddressModeV, d.AddressModeW = wrap, wrap, wrap
	if s.filter == FilterLinear {
		d.MagFilter, d.MinFilter = gputypes.FilterModeLinear, gputypes.FilterModeLinear
	}
	return d
}

// State returns the sampler object realized on dev.
func (s *Sampler) State(dev device.Device) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[dev]
	return st, ok
}

// Release destroys the realized sampler objects.
func (s *Sampler) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for dev, st := range s.states {
		dev.(device.SamplerFactory).DestroySampler(st)
		delete(s.states, dev)
	}
}
