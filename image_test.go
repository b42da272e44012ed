package clmem

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/clmem/backend/soft"
	"github.com/gogpu/clmem/device"
)

const rgba8 = gputypes.TextureFormatRGBA8Unorm

func f32(f float32) uint32 { return math.Float32bits(f) }

func TestImageDescSize(t *testing.T) {
	tests := []struct {
		desc ImageDesc
		want [3]uint64
	}{
		{ImageDesc{Type: Image2DArray, Width: 16, Height: 8, ArraySize: 5}, [3]uint64{16, 8, 5}},
		{ImageDesc{Type: Image1DArray, Width: 16, ArraySize: 5}, [3]uint64{16, 5, 1}},
		{ImageDesc{Type: Image3D, Width: 4, Height: 3, Depth: 2}, [3]uint64{4, 3, 2}},
		{ImageDesc{Type: Image1D, Width: 9, Height: 7, Depth: 7, ArraySize: 7}.sanitize(), [3]uint64{9, 1, 1}},
		{ImageDesc{Type: Image2D, Width: 9, Height: 7, Depth: 7, ArraySize: 7}.sanitize(), [3]uint64{9, 7, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.desc.Type.String(), func(t *testing.T) {
			if got := tt.desc.Size(); got != tt.want {
				t.Errorf("Size() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestImageDescBox(t *testing.T) {
	arr := ImageDesc{Type: Image1DArray, Width: 8, ArraySize: 4}
	box, err := arr.Box([3]uint64{1, 2, 0}, [3]uint64{3, 2, 1})
	if err != nil {
		t.Fatalf("Box: %v", err)
	}
	if want := (gputypes.Origin3D{X: 1, Y: 0, Z: 2}); box.Origin != want {
		t.Errorf("1D array origin = %v, want %v", box.Origin, want)
	}
	if want := (gputypes.Extent3D{Width: 3, Height: 1, DepthOrArrayLayers: 2}); box.Size != want {
		t.Errorf("1D array size = %v, want %v", box.Size, want)
	}

	plane := ImageDesc{Type: Image2D, Width: 8, Height: 8}
	box, err = plane.Box([3]uint64{1, 2, 0}, [3]uint64{3, 2, 1})
	if err != nil {
		t.Fatalf("Box: %v", err)
	}
	if want := (gputypes.Origin3D{X: 1, Y: 2}); box.Origin != want {
		t.Errorf("2D origin = %v, want %v", box.Origin, want)
	}

	if _, err := plane.Box([3]uint64{math.MaxUint32 + 1, 0, 0}, [3]uint64{1, 1, 1}); !errors.Is(err, ErrOutOfHostMemory) {
		t.Errorf("oversized origin: err = %v, want ErrOutOfHostMemory", err)
	}
}

func TestImageCreate2DArray(t *testing.T) {
	ctx, dev, _ := newSoft(t)
	img, err := NewImage(ctx, MemReadWrite, rgba8, ImageDesc{Type: Image2DArray, Width: 4, Height: 8, ArraySize: 5, Depth: 3}, HostPtr{})
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}
	defer img.Release()

	if got := img.Desc().Size(); got != [3]uint64{4, 8, 5} {
		t.Errorf("Size() = %v, want [4 8 5]", got)
	}
	if got := img.Size(); got != 4*8*5*4 {
		t.Errorf("byte size = %d, want %d", got, 4*8*5*4)
	}
	res, err := img.Resource(dev)
	if err != nil {
		t.Fatalf("Resource: %v", err)
	}
	info := res.Info()
	if !info.Array {
		t.Error("texture is not an array")
	}
	if info.DepthOrArrayLayers != 5 {
		t.Errorf("DepthOrArrayLayers = %d, want 5", info.DepthOrArrayLayers)
	}
	if info.Dimension != gputypes.TextureDimension2D {
		t.Errorf("Dimension = %v, want 2D", info.Dimension)
	}
}

func TestImageRoundTrip(t *testing.T) {
	for _, tt := range strategies {
		t.Run(tt.name, func(t *testing.T) {
			ctx, _, q := newSoft(t, tt.opts...)
			img, err := NewImage(ctx, MemReadWrite, rgba8, ImageDesc{Type: Image2D, Width: 8, Height: 6}, HostPtr{})
			if err != nil {
				t.Fatalf("NewImage: %v", err)
			}
			defer img.Release()

			full := [3]uint64{8, 6, 1}
			data := pattern(8*6*4, 11)
			if err := img.Write(q, data, [3]uint64{}, full, 0, 0); err != nil {
				t.Fatalf("Write: %v", err)
			}
			got := make([]byte, len(data))
			if err := img.Read(q, got, [3]uint64{}, full, 0, 0); err != nil {
				t.Fatalf("Read: %v", err)
			}
			if !bytes.Equal(got, data) {
				t.Error("Read differs from Write")
			}

			m, err := img.Map(q, [3]uint64{1, 2, 0})
			if err != nil {
				t.Fatalf("Map: %v", err)
			}
			at := (2*8 + 1) * 4
			if !bytes.Equal(m.Ptr.Bytes(4), data[at:at+4]) {
				t.Errorf("mapped texel = %v, want %v", m.Ptr.Bytes(4), data[at:at+4])
			}
			copy(m.Ptr.Bytes(4), []byte{1, 2, 3, 4})
			if err := img.Unmap(q, m.Ptr); err != nil {
				t.Fatalf("Unmap: %v", err)
			}

			texel := make([]byte, 4)
			if err := img.Read(q, texel, [3]uint64{1, 2, 0}, [3]uint64{1, 1, 1}, 0, 0); err != nil {
				t.Fatalf("Read: %v", err)
			}
			if !bytes.Equal(texel, []byte{1, 2, 3, 4}) {
				t.Errorf("texel after unmap = %v, want [1 2 3 4]", texel)
			}
		})
	}
}

func TestImageMapPitches(t *testing.T) {
	tests := []struct {
		desc       ImageDesc
		row, slice uint64
	}{
		{ImageDesc{Type: Image1D, Width: 4}, 0, 0},
		{ImageDesc{Type: Image1DArray, Width: 4, ArraySize: 3}, 0, 16},
		{ImageDesc{Type: Image2D, Width: 4, Height: 2}, 16, 0},
		{ImageDesc{Type: Image2DArray, Width: 4, Height: 2, ArraySize: 3}, 16, 32},
		{ImageDesc{Type: Image3D, Width: 4, Height: 2, Depth: 3}, 16, 32},
	}
	for _, tt := range tests {
		t.Run(tt.desc.Type.String(), func(t *testing.T) {
			ctx, _, q := newSoft(t, soft.WithUnifiedMemory(true))
			img, err := NewImage(ctx, MemReadWrite, rgba8, tt.desc, HostPtr{})
			if err != nil {
				t.Fatalf("NewImage: %v", err)
			}
			defer img.Release()

			m, err := img.Map(q, [3]uint64{})
			if err != nil {
				t.Fatalf("Map: %v", err)
			}
			if m.RowPitch != tt.row || m.SlicePitch != tt.slice {
				t.Errorf("pitches = (%d, %d), want (%d, %d)", m.RowPitch, m.SlicePitch, tt.row, tt.slice)
			}
			if err := img.Unmap(q, m.Ptr); err != nil {
				t.Fatalf("Unmap: %v", err)
			}
		})
	}
}

func TestImage1DArrayLayers(t *testing.T) {
	ctx, _, q := newSoft(t, soft.WithTiledTextures(true))
	img, err := NewImage(ctx, MemReadWrite, rgba8, ImageDesc{Type: Image1DArray, Width: 4, ArraySize: 3}, HostPtr{})
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}
	defer img.Release()

	layer := pattern(16, 40)
	if err := img.Write(q, layer, [3]uint64{0, 2, 0}, [3]uint64{4, 1, 1}, 0, 0); err != nil {
		t.Fatalf("Write: %v", err)
	}
	all := make([]byte, 48)
	if err := img.Read(q, all, [3]uint64{}, [3]uint64{4, 3, 1}, 0, 0); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(all[32:], layer) {
		t.Errorf("layer 2 = %v, want %v", all[32:], layer)
	}
	if !bytes.Equal(all[:32], make([]byte, 32)) {
		t.Errorf("layers 0-1 written: %v", all[:32])
	}

	base, err := img.Map(q, [3]uint64{})
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	at, err := img.Map(q, [3]uint64{1, 2, 0})
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if want := base.Ptr.Add(4 + 2*base.SlicePitch); at.Ptr != want {
		t.Errorf("Map(1, 2) = %v, want %v", at.Ptr, want)
	}
	if !bytes.Equal(at.Ptr.Bytes(4), layer[4:8]) {
		t.Errorf("mapped texel = %v, want %v", at.Ptr.Bytes(4), layer[4:8])
	}
	if err := img.Unmap(q, at.Ptr); err != nil {
		t.Fatalf("Unmap: %v", err)
	}
	if err := img.Unmap(q, base.Ptr); err != nil {
		t.Fatalf("Unmap: %v", err)
	}
}

func TestImageHostPtr1DArray(t *testing.T) {
	ctx, _, q := newSoft(t)
	// Layers 32 bytes apart, 16 bytes used.
	host := make([]byte, 3*32)
	copy(host[64:], pattern(16, 3))
	img, err := NewImage(ctx, MemUseHostPtr, rgba8,
		ImageDesc{Type: Image1DArray, Width: 4, ArraySize: 3, SlicePitch: 32}, HostPtrOf(host))
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}
	defer img.Release()

	got := make([]byte, 16)
	if err := img.Read(q, got, [3]uint64{0, 2, 0}, [3]uint64{4, 1, 1}, 0, 0); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, pattern(16, 3)) {
		t.Errorf("layer 2 = %v, want %v", got, pattern(16, 3))
	}

	m, err := img.Map(q, [3]uint64{0, 1, 0})
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if want := HostPtrOf(host).Add(32); m.Ptr != want {
		t.Errorf("Map = %v, want caller memory + 32", m.Ptr)
	}
	host[32] = 0x99
	if err := img.Unmap(q, m.Ptr); err != nil {
		t.Fatalf("Unmap: %v", err)
	}

	if err := img.Read(q, got[:4], [3]uint64{0, 1, 0}, [3]uint64{1, 1, 1}, 0, 0); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got[0] != 0x99 {
		t.Errorf("layer 1 byte 0 = %#x, want 0x99", got[0])
	}
}

func TestImageFill(t *testing.T) {
	ctx, _, q := newSoft(t, soft.WithTiledTextures(true))
	img, err := NewImage(ctx, MemReadWrite, rgba8, ImageDesc{Type: Image2D, Width: 4, Height: 4}, HostPtr{})
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}
	defer img.Release()

	if err := img.Fill(q, [4]uint32{f32(1), 0, 0, f32(1)}, [3]uint64{1, 1, 0}, [3]uint64{2, 2, 1}); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	got := make([]byte, 64)
	if err := img.Read(q, got, [3]uint64{}, [3]uint64{4, 4, 1}, 0, 0); err != nil {
		t.Fatalf("Read: %v", err)
	}
	for y := range 4 {
		for x := range 4 {
			want := []byte{0, 0, 0, 0}
			if x >= 1 && x <= 2 && y >= 1 && y <= 2 {
				want = []byte{0xff, 0, 0, 0xff}
			}
			off := (y*4 + x) * 4
			if !bytes.Equal(got[off:off+4], want) {
				t.Errorf("texel (%d,%d) = %v, want %v", x, y, got[off:off+4], want)
			}
		}
	}
}

func TestImageFromBuffer(t *testing.T) {
	ctx, _, q := newSoft(t)
	buf, err := NewBuffer(ctx, MemReadWrite, 256, HostPtr{})
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}
	defer buf.Release()

	img, err := NewImageFromBuffer(buf, 0, rgba8, ImageDesc{Type: Image2D, Width: 4, Height: 4, RowPitch: 32})
	if err != nil {
		t.Fatalf("NewImageFromBuffer: %v", err)
	}
	defer img.Release()
	if !IsParentBuffer(img, buf) || !HasSameParent(img, buf) {
		t.Error("image not linked to its buffer")
	}

	data := pattern(64, 1)
	if err := img.Write(q, data, [3]uint64{}, [3]uint64{4, 4, 1}, 0, 0); err != nil {
		t.Fatalf("Write: %v", err)
	}
	raw := make([]byte, 128)
	if err := buf.Read(q, 0, raw); err != nil {
		t.Fatalf("Read: %v", err)
	}
	for row := range 4 {
		if !bytes.Equal(raw[row*32:row*32+16], data[row*16:row*16+16]) {
			t.Errorf("row %d = %v, want %v", row, raw[row*32:row*32+16], data[row*16:row*16+16])
		}
	}

	bp, err := buf.Map(q, 0)
	if err != nil {
		t.Fatalf("buffer Map: %v", err)
	}
	m, err := img.Map(q, [3]uint64{1, 1, 0})
	if err != nil {
		t.Fatalf("image Map: %v", err)
	}
	if want := bp.Add(32 + 4); m.Ptr != want {
		t.Errorf("image map = %v, want %v", m.Ptr, want)
	}
	if m.RowPitch != 32 {
		t.Errorf("RowPitch = %d, want 32", m.RowPitch)
	}
	if !img.IsMappedPtr(bp) || !buf.IsMappedPtr(m.Ptr) {
		t.Error("image and buffer should share mapped pointers")
	}
	if err := img.Unmap(q, m.Ptr); err != nil {
		t.Fatalf("image Unmap: %v", err)
	}
	if err := buf.Unmap(q, bp); err != nil {
		t.Fatalf("buffer Unmap: %v", err)
	}

	if _, err := NewImageFromBuffer(buf, 0, rgba8, ImageDesc{Type: Image2D, Width: 16, Height: 16}); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("image larger than buffer: err = %v, want ErrInvalidValue", err)
	}
	if _, err := NewImageFromBuffer(buf, 0, rgba8, ImageDesc{Type: Image3D, Width: 1, Height: 1, Depth: 1}); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("3D image from buffer: err = %v, want ErrInvalidValue", err)
	}
}

func TestImageOnSubBuffer(t *testing.T) {
	ctx, _, q := newSoft(t)
	buf, err := NewBuffer(ctx, MemReadWrite, 128, HostPtr{})
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}
	defer buf.Release()
	sub, err := NewSubBuffer(buf, 0, 64, 32)
	if err != nil {
		t.Fatalf("NewSubBuffer: %v", err)
	}
	defer sub.Release()
	img, err := NewImageFromBuffer(sub, 0, rgba8, ImageDesc{Type: Image2D, Width: 2, Height: 2, RowPitch: 12})
	if err != nil {
		t.Fatalf("NewImageFromBuffer: %v", err)
	}
	defer img.Release()

	if err := img.Fill(q, [4]uint32{0, f32(1), 0, f32(1)}, [3]uint64{}, [3]uint64{2, 2, 1}); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	raw := make([]byte, 24)
	if err := buf.Read(q, 64, raw); err != nil {
		t.Fatalf("Read: %v", err)
	}
	green := []byte{0, 0xff, 0, 0xff}
	for _, off := range []int{0, 4, 12, 16} {
		if !bytes.Equal(raw[off:off+4], green) {
			t.Errorf("bytes %d-%d = %v, want green", off, off+4, raw[off:off+4])
		}
	}
	if !bytes.Equal(raw[8:12], []byte{0, 0, 0, 0}) {
		t.Errorf("row padding written: %v", raw[8:12])
	}

	before := make([]byte, 64)
	if err := buf.Read(q, 0, before); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(before, make([]byte, 64)) {
		t.Error("fill wrote before the sub-buffer")
	}

	// The image, its sub-buffer and the root buffer share one shadow.
	m, err := img.Map(q, [3]uint64{0, 1, 0})
	if err != nil {
		t.Fatalf("image Map: %v", err)
	}
	rp, err := buf.Map(q, 64+12)
	if err != nil {
		t.Fatalf("buffer Map: %v", err)
	}
	if m.Ptr != rp {
		t.Errorf("image map = %v, buffer map at 76 = %v", m.Ptr, rp)
	}
	if !bytes.Equal(m.Ptr.Bytes(4), green) {
		t.Errorf("mapped texel = %v, want green", m.Ptr.Bytes(4))
	}
	copy(m.Ptr.Bytes(4), []byte{1, 2, 3, 4})
	if err := img.Unmap(q, m.Ptr); err != nil {
		t.Fatalf("image Unmap: %v", err)
	}
	if err := buf.Unmap(q, rp); err != nil {
		t.Fatalf("buffer Unmap: %v", err)
	}
	if err := buf.Read(q, 76, raw[:4]); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(raw[:4], []byte{1, 2, 3, 4}) {
		t.Errorf("buffer bytes 76-80 = %v, want [1 2 3 4]", raw[:4])
	}
}

func TestImageCopies(t *testing.T) {
	ctx, dev, q := newSoft(t, soft.WithTiledTextures(true))
	desc := ImageDesc{Type: Image2D, Width: 4, Height: 4}
	src, err := NewImage(ctx, MemReadWrite, rgba8, desc, HostPtr{})
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}
	defer src.Release()
	dst, err := NewImage(ctx, MemReadWrite, rgba8, desc, HostPtr{})
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}
	defer dst.Release()
	data := pattern(64, 21)
	if err := src.Write(q, data, [3]uint64{}, [3]uint64{4, 4, 1}, 0, 0); err != nil {
		t.Fatalf("Write: %v", err)
	}

	t.Run("image to image", func(t *testing.T) {
		dev.ResetHistory()
		if err := src.CopyToImage(q, dst, [3]uint64{0, 0, 0}, [3]uint64{2, 2, 0}, [3]uint64{2, 2, 1}); err != nil {
			t.Fatalf("CopyToImage: %v", err)
		}
		if n := len(copyRegions(dev.History())); n != 1 {
			t.Errorf("%d copy regions, want 1 device copy", n)
		}
		got := make([]byte, 8)
		if err := dst.Read(q, got, [3]uint64{2, 3, 0}, [3]uint64{2, 1, 1}, 0, 0); err != nil {
			t.Fatalf("Read: %v", err)
		}
		if !bytes.Equal(got, data[16:24]) {
			t.Errorf("copied row = %v, want %v", got, data[16:24])
		}
	})

	t.Run("image to buffer and back", func(t *testing.T) {
		buf, err := NewBuffer(ctx, MemReadWrite, 128, HostPtr{})
		if err != nil {
			t.Fatalf("NewBuffer: %v", err)
		}
		defer buf.Release()

		if err := src.CopyToBuffer(q, buf, [3]uint64{1, 1, 0}, 8, [3]uint64{2, 2, 1}); err != nil {
			t.Fatalf("CopyToBuffer: %v", err)
		}
		raw := make([]byte, 16)
		if err := buf.Read(q, 8, raw); err != nil {
			t.Fatalf("Read: %v", err)
		}
		if !bytes.Equal(raw[:8], data[20:28]) || !bytes.Equal(raw[8:], data[36:44]) {
			t.Errorf("buffer = %v, want %v %v", raw, data[20:28], data[36:44])
		}

		if err := buf.CopyToImage(q, dst, 8, [3]uint64{0, 0, 0}, [3]uint64{2, 2, 1}); err != nil {
			t.Fatalf("CopyToImage: %v", err)
		}
		got := make([]byte, 8)
		if err := dst.Read(q, got, [3]uint64{0, 1, 0}, [3]uint64{2, 1, 1}, 0, 0); err != nil {
			t.Fatalf("Read: %v", err)
		}
		if !bytes.Equal(got, data[36:44]) {
			t.Errorf("row 1 = %v, want %v", got, data[36:44])
		}
	})

	t.Run("format mismatch", func(t *testing.T) {
		other, err := NewImage(ctx, MemReadWrite, gputypes.TextureFormatR32Float, desc, HostPtr{})
		if err != nil {
			t.Fatalf("NewImage: %v", err)
		}
		defer other.Release()
		if err := src.CopyToImage(q, other, [3]uint64{}, [3]uint64{}, [3]uint64{1, 1, 1}); !errors.Is(err, ErrInvalidValue) {
			t.Errorf("err = %v, want ErrInvalidValue", err)
		}
	})

	t.Run("out of bounds", func(t *testing.T) {
		err := src.CopyToImage(q, dst, [3]uint64{3, 3, 0}, [3]uint64{}, [3]uint64{2, 2, 1})
		if !errors.Is(err, ErrInvalidValue) {
			t.Errorf("err = %v, want ErrInvalidValue", err)
		}
	})
}

// noStagingTextures refuses host-visible textures.
type noStagingTextures struct{ *soft.Device }

func (d noStagingTextures) CreateTexture(desc *device.TextureDescriptor, host []byte, copyHost bool, typ device.ResourceType) (device.Resource, error) {
	if typ == device.ResourceStaging {
		return nil, errors.New("no staging textures")
	}
	return d.Device.CreateTexture(desc, host, copyHost, typ)
}

func TestImageStagingFallback(t *testing.T) {
	dev := noStagingTextures{soft.New()}
	ctx, err := NewContext([]device.Device{dev})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer ctx.Release()

	img, err := NewImage(ctx, MemAllocHostPtr, rgba8, ImageDesc{Type: Image2D, Width: 2, Height: 2}, HostPtr{})
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}
	defer img.Release()
	res, err := img.Resource(dev)
	if err != nil {
		t.Fatalf("Resource: %v", err)
	}
	if res.Info().Staging {
		t.Error("texture placed in staging memory")
	}
	if n := dev.Stats().Textures; n != 1 {
		t.Errorf("Textures = %d, want 1", n)
	}
}

func TestImageErrors(t *testing.T) {
	ctx, _, q := newSoft(t)
	host := make([]byte, 64)

	tests := []struct {
		name  string
		flags MemFlags
		fmt   gputypes.TextureFormat
		desc  ImageDesc
		host  HostPtr
		want  error
	}{
		{"depth format", MemReadWrite, gputypes.TextureFormatDepth32Float, ImageDesc{Type: Image2D, Width: 2, Height: 2}, HostPtr{}, ErrImageFormatNotSupported},
		{"zero width", MemReadWrite, rgba8, ImageDesc{Type: Image2D, Width: 0, Height: 2}, HostPtr{}, ErrInvalidValue},
		{"buffer type without buffer", MemReadWrite, rgba8, ImageDesc{Type: Image1DBuffer, Width: 2}, HostPtr{}, ErrInvalidValue},
		{"pitch without host memory", MemReadWrite, rgba8, ImageDesc{Type: Image2D, Width: 2, Height: 2, RowPitch: 64}, HostPtr{}, ErrInvalidValue},
		{"row pitch below row size", MemCopyHostPtr, rgba8, ImageDesc{Type: Image2D, Width: 4, Height: 2, RowPitch: 8}, HostPtrOf(host), ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewImage(ctx, tt.flags, tt.fmt, tt.desc, tt.host)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	img, err := NewImage(ctx, MemReadWrite, rgba8, ImageDesc{Type: Image2D, Width: 2, Height: 2}, HostPtr{})
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}
	defer img.Release()
	if _, err := img.Map(q, [3]uint64{2, 0, 0}); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Map out of bounds: err = %v, want ErrInvalidValue", err)
	}
	if err := img.Write(q, make([]byte, 4), [3]uint64{}, [3]uint64{2, 2, 1}, 0, 0); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Write short source: err = %v, want ErrInvalidValue", err)
	}
}
