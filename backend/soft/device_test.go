package soft

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/clmem/device"
)

func rgba8(w, h, d uint32) *device.TextureDescriptor {
	dim := gputypes.TextureDimension2D
	if d > 1 {
		dim = gputypes.TextureDimension3D
	}
	return &device.TextureDescriptor{
		Dimension:          dim,
		Format:             gputypes.TextureFormatRGBA8Unorm,
		Width:              w,
		Height:             h,
		DepthOrArrayLayers: d,
	}
}

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + 3)
	}
	return b
}

func TestCreateBufferCopiesHost(t *testing.T) {
	d := New()
	host := pattern(64)
	res, err := d.CreateBuffer(64, host, true, device.ResourceNormal)
	if err != nil {
		t.Fatalf("CreateBuffer() error = %v", err)
	}
	tx, err := d.MapBuffer(res, 0, 64, device.AccessRead, device.MapNormal)
	if err != nil {
		t.Fatalf("MapBuffer() error = %v", err)
	}
	if !bytes.Equal(device.Bytes(tx), host) {
		t.Error("buffer contents differ from host data")
	}
	d.Unmap(tx)

	info := res.Info()
	if !info.Buffer || !info.Linear || info.Staging || info.Size != 64 {
		t.Errorf("Info() = %+v", info)
	}
	if s := d.Stats(); s.Buffers != 1 || s.BounceMaps != 1 || s.OpenTransfers != 0 {
		t.Errorf("Stats() = %v", s)
	}
	d.DestroyResource(res)
	if s := d.Stats(); s.Buffers != 0 {
		t.Errorf("Buffers after destroy = %d", s.Buffers)
	}
}

func TestMapModes(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		typ     device.ResourceType
		mode    device.MapMode
		wantErr error
	}{
		{"discrete normal direct", nil, device.ResourceNormal, device.MapDirect, device.ErrNotMappable},
		{"unified normal direct", []Option{WithUnifiedMemory(true)}, device.ResourceNormal, device.MapDirect, nil},
		{"discrete staging direct", nil, device.ResourceStaging, device.MapDirect, nil},
		{"normal coherent", []Option{WithUnifiedMemory(true)}, device.ResourceNormal, device.MapCoherent, device.ErrNotMappable},
		{"staging coherent", nil, device.ResourceStaging, device.MapCoherent, nil},
		{"discrete normal normal", nil, device.ResourceNormal, device.MapNormal, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(tt.opts...)
			res, err := d.CreateBuffer(32, nil, false, tt.typ)
			if err != nil {
				t.Fatal(err)
			}
			defer d.DestroyResource(res)

			tx, err := d.MapBuffer(res, 0, 32, device.AccessReadWrite, tt.mode)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("MapBuffer() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("MapBuffer() error = %v", err)
			}
			if tx.Len() != 32 || tx.Ptr() == nil {
				t.Errorf("transfer len=%d ptr=%v", tx.Len(), tx.Ptr())
			}
			d.Unmap(tx)
		})
	}
}

func TestDirectMapAliasesStorage(t *testing.T) {
	d := New(WithUnifiedMemory(true))
	res, err := d.CreateBuffer(16, nil, false, device.ResourceNormal)
	if err != nil {
		t.Fatal(err)
	}
	direct, err := d.MapBuffer(res, 4, 8, device.AccessWrite, device.MapDirect)
	if err != nil {
		t.Fatal(err)
	}
	copy(device.Bytes(direct), []byte{1, 2, 3, 4, 5, 6, 7, 8})
	d.Unmap(direct)

	tx, err := d.MapBuffer(res, 0, 16, device.AccessRead, device.MapNormal)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Unmap(tx)
	want := []byte{0, 0, 0, 0, 1, 2, 3, 4, 5, 6, 7, 8, 0, 0, 0, 0}
	if got := device.Bytes(tx); !bytes.Equal(got, want) {
		t.Errorf("contents = %v, want %v", got, want)
	}
}

func TestTiledTextureRoundTrip(t *testing.T) {
	d := New(WithTiledTextures(true))
	desc := rgba8(6, 5, 2)
	host := pattern(6 * 5 * 2 * 4)
	res, err := d.CreateTexture(desc, host, true, device.ResourceNormal)
	if err != nil {
		t.Fatalf("CreateTexture() error = %v", err)
	}
	if res.Info().Linear {
		t.Fatal("normal texture on a tiled device reports a linear layout")
	}

	full := device.Box{Size: desc.Extent()}
	if _, err := d.MapTexture(res, full, device.AccessRead, device.MapDirect); !errors.Is(err, device.ErrNotMappable) {
		t.Fatalf("direct map of tiled texture error = %v, want ErrNotMappable", err)
	}

	tx, err := d.MapTexture(res, full, device.AccessRead, device.MapNormal)
	if err != nil {
		t.Fatal(err)
	}
	if tx.RowPitch() != 24 || tx.SlicePitch() != 120 {
		t.Errorf("pitches = %d, %d, want 24, 120", tx.RowPitch(), tx.SlicePitch())
	}
	if !bytes.Equal(device.Bytes(tx), host) {
		t.Error("tiled storage did not round trip")
	}
	d.Unmap(tx)

	// Write one texel through a bounce map and read it back.
	one := device.Box{Origin: gputypes.Origin3D{X: 5, Y: 4, Z: 1}, Size: gputypes.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1}}
	wtx, err := d.MapTexture(res, one, device.AccessWrite, device.MapNormal)
	if err != nil {
		t.Fatal(err)
	}
	copy(device.Bytes(wtx), []byte{9, 9, 9, 9})
	d.Unmap(wtx)

	rtx, err := d.MapTexture(res, full, device.AccessRead, device.MapNormal)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Unmap(rtx)
	off := 1*120 + 4*24 + 5*4
	if got := device.Bytes(rtx)[off : off+4]; !bytes.Equal(got, []byte{9, 9, 9, 9}) {
		t.Errorf("texel (5,4,1) = %v, want [9 9 9 9]", got)
	}
}

func TestCopyRegionTextureToStaging(t *testing.T) {
	d := New(WithTiledTextures(true), WithRowAlignment(32))
	desc := rgba8(4, 4, 1)
	host := pattern(4 * 4 * 4)
	src, err := d.CreateTexture(desc, host, true, device.ResourceNormal)
	if err != nil {
		t.Fatal(err)
	}
	shadow, err := d.CreateTexture(desc, nil, false, device.ResourceStaging)
	if err != nil {
		t.Fatal(err)
	}
	if info := shadow.Info(); !info.Linear || !info.Staging {
		t.Fatalf("staging texture info = %+v", shadow.Info())
	}

	full := device.Box{Size: desc.Extent()}
	if err := d.CopyRegion(src, shadow, gputypes.Origin3D{}, full); err != nil {
		t.Fatalf("CopyRegion() error = %v", err)
	}
	tx, err := d.MapTexture(shadow, full, device.AccessRead, device.MapCoherent)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Unmap(tx)
	if tx.RowPitch() != 32 {
		t.Fatalf("RowPitch() = %d, want 32", tx.RowPitch())
	}
	got := device.Bytes(tx)
	for y := 0; y < 4; y++ {
		if !bytes.Equal(got[y*32:y*32+16], host[y*16:y*16+16]) {
			t.Errorf("row %d = %v, want %v", y, got[y*32:y*32+16], host[y*16:y*16+16])
		}
	}
	if n := len(d.History()); n != 1 {
		t.Errorf("History() has %d commands, want 1", n)
	}
}

func TestCopyRegionKindMismatch(t *testing.T) {
	d := New()
	buf, err := d.CreateBuffer(64, nil, false, device.ResourceNormal)
	if err != nil {
		t.Fatal(err)
	}
	tex, err := d.CreateTexture(rgba8(4, 4, 1), nil, false, device.ResourceNormal)
	if err != nil {
		t.Fatal(err)
	}
	box, _ := device.BufferBox(0, 16)
	if err := d.CopyRegion(buf, tex, gputypes.Origin3D{}, box); !errors.Is(err, ErrKindMismatch) {
		t.Errorf("CopyRegion() error = %v, want ErrKindMismatch", err)
	}
}

func TestDeferredStream(t *testing.T) {
	d := New(WithDeferred(true), WithUnifiedMemory(true))
	res, err := d.CreateBuffer(8, nil, false, device.ResourceNormal)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.ClearBuffer(res, []byte{0xab}, 0, 8); err != nil {
		t.Fatal(err)
	}
	if s := d.Stats(); s.Queued != 1 || s.Executed != 0 {
		t.Fatalf("after submit: %v", s)
	}

	// A direct map does not synchronize.
	direct, err := d.MapBuffer(res, 0, 8, device.AccessRead, device.MapDirect)
	if err != nil {
		t.Fatal(err)
	}
	if device.Bytes(direct)[0] != 0 {
		t.Error("direct map observed a queued clear")
	}
	d.Unmap(direct)

	if err := d.Finish(); err != nil {
		t.Fatal(err)
	}
	tx, err := d.MapBuffer(res, 0, 8, device.AccessRead, device.MapNormal)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Unmap(tx)
	if !bytes.Equal(device.Bytes(tx), bytes.Repeat([]byte{0xab}, 8)) {
		t.Errorf("contents = %v after Finish", device.Bytes(tx))
	}
}

func TestClearImageBuffer(t *testing.T) {
	d := New()
	res, err := d.CreateBuffer(64, nil, false, device.ResourceNormal)
	if err != nil {
		t.Fatal(err)
	}
	// 2x2 region of 2-byte texels at (1,1) in a layout with 8-byte rows.
	err = d.ClearImageBuffer(res, []byte{0xaa, 0xbb, 0, 0}, 0, [3]uint64{1, 1, 0}, [3]uint64{2, 2, 1}, 8, 32, 2)
	if err != nil {
		t.Fatalf("ClearImageBuffer() error = %v", err)
	}
	tx, err := d.MapBuffer(res, 0, 24, device.AccessRead, device.MapNormal)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Unmap(tx)
	want := []byte{
		0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0xaa, 0xbb, 0xaa, 0xbb, 0, 0,
		0, 0, 0xaa, 0xbb, 0xaa, 0xbb, 0, 0,
	}
	if got := device.Bytes(tx); !bytes.Equal(got, want) {
		t.Errorf("contents = %v, want %v", got, want)
	}
}

func TestTextureSubDataAndClear(t *testing.T) {
	d := New(WithTiledTextures(true))
	desc := rgba8(5, 3, 1)
	res, err := d.CreateTexture(desc, nil, false, device.ResourceNormal)
	if err != nil {
		t.Fatal(err)
	}
	inner := device.Box{Origin: gputypes.Origin3D{X: 1, Y: 1}, Size: gputypes.Extent3D{Width: 2, Height: 2, DepthOrArrayLayers: 1}}
	if err := d.ClearTexture(res, []byte{1, 2, 3, 4}, device.Box{Size: desc.Extent()}); err != nil {
		t.Fatal(err)
	}
	// Rows padded to 12 bytes in the upload.
	upload := make([]byte, 12*2)
	copy(upload[0:8], pattern(8))
	copy(upload[12:20], pattern(8))
	if err := d.TextureSubData(res, inner, upload, 12, 0); err != nil {
		t.Fatal(err)
	}

	tx, err := d.MapTexture(res, device.Box{Size: desc.Extent()}, device.AccessRead, device.MapNormal)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Unmap(tx)
	got := device.Bytes(tx)
	if !bytes.Equal(got[0:4], []byte{1, 2, 3, 4}) {
		t.Errorf("texel (0,0) = %v", got[0:4])
	}
	if !bytes.Equal(got[20+4:20+12], pattern(8)) {
		t.Errorf("row 1 = %v", got[20:40])
	}
}

func TestUserMemory(t *testing.T) {
	host := make([]byte, 32)
	if _, err := New().CreateBuffer(32, host, false, device.ResourceUser); !errors.Is(err, device.ErrUnsupported) {
		t.Fatalf("user buffer without support error = %v", err)
	}

	d := New(WithUserMemory(true))
	res, err := d.CreateBuffer(32, host, false, device.ResourceUser)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.BufferSubData(res, 8, []byte{5, 6}); err != nil {
		t.Fatal(err)
	}
	if host[8] != 5 || host[9] != 6 {
		t.Errorf("user buffer does not alias host memory: %v", host[:12])
	}
	if d.Memory().UsedBytes != 0 {
		t.Errorf("user memory charged to the budget: %v", d.Memory())
	}
}

func TestMemoryBudget(t *testing.T) {
	d := New(WithMemoryBudget(100))
	a, err := d.CreateBuffer(60, nil, false, device.ResourceNormal)
	if err != nil {
		t.Fatal(err)
	}
	_, err = d.CreateBuffer(60, nil, false, device.ResourceStaging)
	if !errors.Is(err, ErrMemoryBudgetExceeded) || !errors.Is(err, device.ErrOutOfMemory) {
		t.Fatalf("CreateBuffer() over budget error = %v", err)
	}
	d.DestroyResource(a)
	if _, err := d.CreateBuffer(60, nil, false, device.ResourceStaging); err != nil {
		t.Fatalf("CreateBuffer() after free error = %v", err)
	}
	m := d.Memory()
	if m.UsedBytes != 60 || m.PeakBytes != 60 || m.Allocations != 1 {
		t.Errorf("Memory() = %v", m)
	}
}

func TestForeignResource(t *testing.T) {
	a, b := New(WithName("a")), New(WithName("b"))
	res, err := a.CreateBuffer(8, nil, false, device.ResourceNormal)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.MapBuffer(res, 0, 8, device.AccessRead, device.MapNormal); !errors.Is(err, device.ErrInvalidResource) {
		t.Errorf("MapBuffer() on foreign device error = %v", err)
	}
	a.DestroyResource(res)
	if err := a.BufferSubData(res, 0, []byte{1}); !errors.Is(err, device.ErrInvalidResource) {
		t.Errorf("BufferSubData() after destroy error = %v", err)
	}
}
