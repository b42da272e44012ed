package texel

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/x448/float16"
)

// Pack encodes color as one texel of f. Normalized, sRGB and float formats
// read each word as float32 bits; integer formats read it as an integer and
// clamp to the channel range. The result is zero padded to a multiple of 4
// bytes; only the first PixelSize bytes are the texel.
func Pack(f gputypes.TextureFormat, color [4]uint32) ([]byte, error) {
	l, ok := layouts[f]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, f)
	}
	out := make([]byte, (l.size()+3)&^3)

	if l.rgb10a2 {
		var word uint32
		for c, shift := range [4]uint{0, 10, 20, 30} {
			bits := 10
			if c == 3 {
				bits = 2
			}
			word |= uint32(encode(color[c], bits, l.kind)) << shift
		}
		binary.LittleEndian.PutUint32(out, word)
		return out, nil
	}

	bytesPer := l.bits / 8
	for c := 0; c < l.channels; c++ {
		src := c
		if l.bgra && c < 3 {
			src = 2 - c
		}
		v := encode(color[src], l.bits, l.kind)
		if l.kind == kindSrgb && c == 3 {
			v = encode(color[src], l.bits, kindUnorm)
		}
		put(out[c*bytesPer:], v, bytesPer)
	}
	return out, nil
}

func put(b []byte, v uint64, n int) {
	switch n {
	case 1:
		b[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(v))
	}
}

func encode(word uint32, bits int, k kind) uint64 {
	mask := uint64(1)<<bits - 1
	switch k {
	case kindUnorm:
		return unorm(math.Float32frombits(word), bits)
	case kindSrgb:
		return unorm(linearToSrgb(math.Float32frombits(word)), bits)
	case kindSnorm:
		f := clampf(math.Float32frombits(word), -1, 1)
		maxv := float64(uint64(1)<<(bits-1) - 1)
		return uint64(int64(math.Round(float64(f)*maxv))) & mask
	case kindUint:
		return min(uint64(word), mask)
	case kindSint:
		v := int64(int32(word))
		lo, hi := -int64(1)<<(bits-1), int64(1)<<(bits-1)-1
		return uint64(max(lo, min(v, hi))) & mask
	case kindFloat:
		if bits == 16 {
			return uint64(float16.Fromfloat32(math.Float32frombits(word)).Bits())
		}
		return uint64(word)
	}
	return 0
}

func unorm(f float32, bits int) uint64 {
	f = clampf(f, 0, 1)
	return uint64(math.Round(float64(f) * float64(uint64(1)<<bits-1)))
}

func clampf(f, lo, hi float32) float32 {
	if math.IsNaN(float64(f)) {
		return 0
	}
	return max(lo, min(f, hi))
}

func linearToSrgb(f float32) float32 {
	f = clampf(f, 0, 1)
	if f <= 0.0031308 {
		return f * 12.92
	}
	return float32(1.055*math.Pow(float64(f), 1/2.4) - 0.055)
}
