package clmem

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/clmem/backend/soft"
)

func TestSamplerDescriptor(t *testing.T) {
	tests := []struct {
		addr   AddressingMode
		filter FilterMode
		wrap   gputypes.AddressMode
		mag    gputypes.FilterMode
	}{
		{AddressNone, FilterNearest, gputypes.AddressModeClampToEdge, gputypes.FilterModeNearest},
		{AddressClampToEdge, FilterLinear, gputypes.AddressModeClampToEdge, gputypes.FilterModeLinear},
		{AddressClamp, FilterNearest, gputypes.AddressModeClampToEdge, gputypes.FilterModeNearest},
		{AddressRepeat, FilterLinear, gputypes.AddressModeRepeat, gputypes.FilterModeLinear},
		{AddressMirroredRepeat, FilterNearest, gputypes.AddressModeMirrorRepeat, gputypes.FilterModeNearest},
	}
	ctx, _, _ := newSoft(t)
	for _, tt := range tests {
		t.Run(tt.addr.String()+"/"+tt.filter.String(), func(t *testing.T) {
			s, err := NewSampler(ctx, true, tt.addr, tt.filter)
			if err != nil {
				t.Fatalf("NewSampler: %v", err)
			}
			defer s.Release()

			d := s.Descriptor()
			if d.AddressModeU != tt.wrap || d.AddressModeV != tt.wrap || d.AddressModeW != tt.wrap {
				t.Errorf("address modes = (%v, %v, %v), want %v", d.AddressModeU, d.AddressModeV, d.AddressModeW, tt.wrap)
			}
			if d.MagFilter != tt.mag || d.MinFilter != tt.mag {
				t.Errorf("filters = (%v, %v), want %v", d.MagFilter, d.MinFilter, tt.mag)
			}
		})
	}
}

func TestSamplerRealized(t *testing.T) {
	ctx, dev, _ := newSoft(t)
	s, err := NewSampler(ctx, false, AddressRepeat, FilterLinear)
	if err != nil {
		t.Fatalf("NewSampler: %v", err)
	}
	if s.NormalizedCoords() {
		t.Error("NormalizedCoords() = true, want false")
	}
	if s.AddressingMode() != AddressRepeat {
		t.Errorf("AddressingMode() = %v, want Repeat", s.AddressingMode())
	}
	if s.FilterMode() != FilterLinear {
		t.Errorf("FilterMode() = %v, want Linear", s.FilterMode())
	}
	if s.Context() != ctx {
		t.Error("Context() is not the creating context")
	}
	if n := dev.Stats().Samplers; n != 1 {
		t.Errorf("Samplers = %d, want 1", n)
	}

	st, ok := s.State(dev)
	if !ok {
		t.Fatal("State() found no device sampler")
	}
	desc, ok := soft.SamplerDescriptor(st)
	if !ok {
		t.Fatal("device state is not a soft sampler")
	}
	if desc.AddressModeU != gputypes.AddressModeRepeat {
		t.Errorf("device AddressModeU = %v, want Repeat", desc.AddressModeU)
	}

	s.Release()
	if n := dev.Stats().Samplers; n != 0 {
		t.Errorf("Samplers = %d after release, want 0", n)
	}
	if _, ok := s.State(dev); ok {
		t.Error("State() found a sampler after release")
	}
}

func TestSamplerInvalid(t *testing.T) {
	ctx, _, _ := newSoft(t)
	if _, err := NewSampler(ctx, true, AddressingMode(42), FilterNearest); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("bad addressing mode: err = %v, want ErrInvalidValue", err)
	}
	if _, err := NewSampler(ctx, true, AddressRepeat, FilterMode(9)); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("bad filter mode: err = %v, want ErrInvalidValue", err)
	}
}
