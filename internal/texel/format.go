// Package texel knows the byte layout of the image formats memory objects
// accept, and packs fill colors into them.
package texel

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
)

// ErrUnsupportedFormat is returned for formats without a packing rule.
var ErrUnsupportedFormat = errors.New("texel: unsupported format")

type kind uint8

const (
	kindUnorm kind = iota
	kindSnorm
	kindUint
	kindSint
	kindFloat
	kindSrgb
)

type layout struct {
	channels int
	bits     int
	kind     kind
	bgra     bool
	// rgb10a2 packs 10-10-10-2 bits into one 32-bit word.
	rgb10a2 bool
}

func (l layout) size() uint32 {
	if l.rgb10a2 {
		return 4
	}
	return uint32(l.channels * l.bits / 8)
}

var layouts = map[gputypes.TextureFormat]layout{
	gputypes.TextureFormatR8Unorm:   {1, 8, kindUnorm, false, false},
	gputypes.TextureFormatR8Snorm:   {1, 8, kindSnorm, false, false},
	gputypes.TextureFormatR8Uint:    {1, 8, kindUint, false, false},
	gputypes.TextureFormatR8Sint:    {1, 8, kindSint, false, false},
	gputypes.TextureFormatR16Unorm:  {1, 16, kindUnorm, false, false},
	gputypes.TextureFormatR16Snorm:  {1, 16, kindSnorm, false, false},
	gputypes.TextureFormatR16Uint:   {1, 16, kindUint, false, false},
	gputypes.TextureFormatR16Sint:   {1, 16, kindSint, false, false},
	gputypes.TextureFormatR16Float:  {1, 16, kindFloat, false, false},
	gputypes.TextureFormatRG8Unorm:  {2, 8, kindUnorm, false, false},
	gputypes.TextureFormatRG8Snorm:  {2, 8, kindSnorm, false, false},
	gputypes.TextureFormatRG8Uint:   {2, 8, kindUint, false, false},
	gputypes.TextureFormatRG8Sint:   {2, 8, kindSint, false, false},
	gputypes.TextureFormatR32Float:  {1, 32, kindFloat, false, false},
	gputypes.TextureFormatR32Uint:   {1, 32, kindUint, false, false},
	gputypes.TextureFormatR32Sint:   {1, 32, kindSint, false, false},
	gputypes.TextureFormatRG16Unorm: {2, 16, kindUnorm, false, false},
	gputypes.TextureFormatRG16Snorm: {2, 16, kindSnorm, false, false},
	gputypes.TextureFormatRG16Uint:  {2, 16, kindUint, false, false},
	gputypes.TextureFormatRG16Sint:  {2, 16, kindSint, false, false},
	gputypes.TextureFormatRG16Float: {2, 16, kindFloat, false, false},

	gputypes.TextureFormatRGBA8Unorm:     {4, 8, kindUnorm, false, false},
	gputypes.TextureFormatRGBA8UnormSrgb: {4, 8, kindSrgb, false, false},
	gputypes.TextureFormatRGBA8Snorm:     {4, 8, kindSnorm, false, false},
	gputypes.TextureFormatRGBA8Uint:      {4, 8, kindUint, false, false},
	gputypes.TextureFormatRGBA8Sint:      {4, 8, kindSint, false, false},
	gputypes.TextureFormatBGRA8Unorm:     {4, 8, kindUnorm, true, false},
	gputypes.TextureFormatBGRA8UnormSrgb: {4, 8, kindSrgb, true, false},
	gputypes.TextureFormatRGB10A2Uint:    {4, 0, kindUint, false, true},
	gputypes.TextureFormatRGB10A2Unorm:   {4, 0, kindUnorm, false, true},

	gputypes.TextureFormatRG32Float:    {2, 32, kindFloat, false, false},
	gputypes.TextureFormatRG32Uint:     {2, 32, kindUint, false, false},
	gputypes.TextureFormatRG32Sint:     {2, 32, kindSint, false, false},
	gputypes.TextureFormatRGBA16Unorm:  {4, 16, kindUnorm, false, false},
	gputypes.TextureFormatRGBA16Snorm:  {4, 16, kindSnorm, false, false},
	gputypes.TextureFormatRGBA16Uint:   {4, 16, kindUint, false, false},
	gputypes.TextureFormatRGBA16Sint:   {4, 16, kindSint, false, false},
	gputypes.TextureFormatRGBA16Float:  {4, 16, kindFloat, false, false},
	gputypes.TextureFormatRGBA32Float:  {4, 32, kindFloat, false, false},
	gputypes.TextureFormatRGBA32Uint:   {4, 32, kindUint, false, false},
	gputypes.TextureFormatRGBA32Sint:   {4, 32, kindSint, false, false},
}

// Supported reports whether f can back an image.
func Supported(f gputypes.TextureFormat) bool {
	_, ok := layouts[f]
	return ok
}

// PixelSize returns the byte size of one texel of f.
func PixelSize(f gputypes.TextureFormat) (uint32, error) {
	l, ok := layouts[f]
	if !ok {
		return 0, fmt.Errorf("%w: %v", ErrUnsupportedFormat, f)
	}
	return l.size(), nil
}

// MustPixelSize is like PixelSize but panics on unsupported formats. It is
// meant for formats validated at construction.
func MustPixelSize(f gputypes.TextureFormat) uint32 {
	n, err := PixelSize(f)
	if err != nil {
		panic(err)
	}
	return n
}

// Channels returns the number of color channels of f.
func Channels(f gputypes.TextureFormat) int {
	return layouts[f].channels
}
