package clmem

import (
	"testing"

	"github.com/gogpu/clmem/backend/soft"
	"github.com/gogpu/clmem/device"
)

// newSoft returns a context over one soft device and a queue on it.
func newSoft(t *testing.T, opts ...soft.Option) (*Context, *soft.Device, *Queue) {
	t.Helper()
	dev := soft.New(opts...)
	ctx, err := NewContext([]device.Device{dev})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	t.Cleanup(ctx.Release)
	q, err := ctx.NewQueue(dev)
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}
	return ctx, dev, q
}

func pattern(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i*7)
	}
	return b
}

func copyRegions(h []soft.Command) []soft.Command {
	var out []soft.Command
	for _, c := range h {
		if c.Kind == soft.CmdCopyRegion {
			out = append(out, c)
		}
	}
	return out
}

// strategies lists device setups covering both mapping strategies.
var strategies = []struct {
	name string
	opts []soft.Option
}{
	{"unified", []soft.Option{soft.WithUnifiedMemory(true)}},
	{"discrete", nil},
	{"discrete-tiled", []soft.Option{soft.WithTiledTextures(true)}},
	{"deferred", []soft.Option{soft.WithDeferred(true)}},
	{"aligned-rows", []soft.Option{soft.WithRowAlignment(256), soft.WithUnifiedMemory(true)}},
}
