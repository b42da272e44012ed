package commands

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/spf13/cobra"

	"github.com/gogpu/clmem"
	"github.com/gogpu/clmem/backend"
	"github.com/gogpu/clmem/backend/soft"
	"github.com/gogpu/clmem/device"
)

type mapOptions struct {
	size     uint64
	width    uint64
	height   uint64
	backends []string
	devices  []string
}

func newMapCommand(root *rootOptions) *cobra.Command {
	opts := &mapOptions{}
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Map, write and read back a buffer, a sub-buffer and an image on each device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			profiles, err := root.loadProfiles()
			if err != nil {
				return err
			}
			var devs []device.Device
			for _, p := range profiles {
				if len(opts.devices) == 0 || slices.Contains(opts.devices, p.Name) {
					devs = append(devs, soft.NewFromOptions(p))
				}
			}
			for _, name := range opts.backends {
				d, err := backend.Open(name)
				if err != nil {
					return err
				}
				defer backend.Close(d)
				devs = append(devs, d)
			}
			if len(devs) == 0 {
				return errors.New("no device selected")
			}
			return runProbes(cmd.OutOrStdout(), devs, opts)
		},
	}
	f := cmd.Flags()
	f.Uint64Var(&opts.size, "size", 4096, "buffer size in bytes")
	f.Uint64Var(&opts.width, "width", 64, "image width in texels")
	f.Uint64Var(&opts.height, "height", 2, "image height in texels")
	f.StringSliceVar(&opts.backends, "backend", nil, "also probe a device opened from a registered backend ("+strings.Join(backend.Available(), ", ")+")")
	f.StringSliceVar(&opts.devices, "device", nil, "only probe the named profiles")
	return cmd
}

// probeResult is one row of the report.
type probeResult struct {
	device   string
	object   string
	strategy clmem.Strategy
	bytes    uint64
	elapsed  time.Duration
	err      error
}

func runProbes(w io.Writer, devs []device.Device, opts *mapOptions) error {
	if opts.size < 4 {
		return fmt.Errorf("buffer size %d too small", opts.size)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DEVICE\tOBJECT\tSTRATEGY\tBYTES\tTIME\tRESULT")

	var failed int
	for _, dev := range devs {
		for _, r := range probeDevice(dev, opts) {
			result := "ok"
			if r.err != nil {
				result = r.err.Error()
				failed++
			}
			fmt.Fprintf(tw, "%s\t%s\t%v\t%d\t%v\t%s\n", r.device, r.object, r.strategy, r.bytes, r.elapsed.Round(time.Microsecond), result)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, dev := range devs {
		if sd, ok := dev.(*soft.Device); ok {
			fmt.Fprintf(w, "%s: %v %v\n", sd.Name(), sd.Stats(), sd.Memory())
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d probes failed", failed)
	}
	return nil
}

func probeDevice(dev device.Device, opts *mapOptions) []probeResult {
	ctx, err := clmem.NewContext([]device.Device{dev})
	if err != nil {
		return []probeResult{{device: dev.Name(), object: "context", err: err}}
	}
	defer ctx.Release()
	q, err := ctx.NewQueue(dev)
	if err != nil {
		return []probeResult{{device: dev.Name(), object: "queue", err: err}}
	}

	var out []probeResult
	run := func(object string, probe func() (clmem.Strategy, uint64, error)) {
		start := time.Now()
		s, n, err := probe()
		out = append(out, probeResult{device: dev.Name(), object: object, strategy: s, bytes: n, elapsed: time.Since(start), err: err})
	}
	data := pattern(opts.size)

	buf, err := clmem.NewBuffer(ctx, clmem.MemReadWrite, opts.size, clmem.HostPtr{})
	if err != nil {
		return append(out, probeResult{device: dev.Name(), object: "buffer", err: err})
	}
	defer buf.Release()
	run("buffer", func() (clmem.Strategy, uint64, error) {
		return probeBuffer(q, buf, data)
	})

	sub, err := clmem.NewSubBuffer(buf, 0, opts.size/2, opts.size/4)
	if err == nil {
		defer sub.Release()
		run("sub-buffer", func() (clmem.Strategy, uint64, error) {
			return probeSubBuffer(q, sub, data[opts.size/2:opts.size/2+opts.size/4])
		})
	} else {
		out = append(out, probeResult{device: dev.Name(), object: "sub-buffer", err: err})
	}

	img, err := clmem.NewImage(ctx, clmem.MemReadWrite, gputypes.TextureFormatRGBA8Unorm,
		clmem.ImageDesc{Type: clmem.Image2D, Width: opts.width, Height: opts.height}, clmem.HostPtr{})
	if err != nil {
		return append(out, probeResult{device: dev.Name(), object: "image", err: err})
	}
	defer img.Release()
	run("image", func() (clmem.Strategy, uint64, error) {
		return probeImage(q, img)
	})
	return out
}

func strategyOf(q *clmem.Queue, obj clmem.MemObject) (clmem.Strategy, error) {
	res, err := obj.Resource(q.Device())
	if err != nil {
		return 0, err
	}
	return clmem.ChooseStrategy(q.Device(), res), nil
}

// probeBuffer writes data through a mapping and reads it back.
func probeBuffer(q *clmem.Queue, buf *clmem.Buffer, data []byte) (clmem.Strategy, uint64, error) {
	s, err := strategyOf(q, buf)
	if err != nil {
		return s, 0, err
	}
	p, err := buf.Map(q, 0)
	if err != nil {
		return s, 0, err
	}
	copy(p.Bytes(buf.Size()), data)
	if err := buf.Unmap(q, p); err != nil {
		return s, 0, err
	}
	back := make([]byte, buf.Size())
	if err := buf.Read(q, 0, back); err != nil {
		return s, 0, err
	}
	if !bytes.Equal(back, data) {
		return s, 0, errors.New("read back differs from mapped write")
	}
	return s, buf.Size(), nil
}

// probeSubBuffer checks that a sub-buffer mapping sees its parent's bytes.
func probeSubBuffer(q *clmem.Queue, sub *clmem.Buffer, want []byte) (clmem.Strategy, uint64, error) {
	s, err := strategyOf(q, sub)
	if err != nil {
		return s, 0, err
	}
	p, err := sub.Map(q, 0)
	if err != nil {
		return s, 0, err
	}
	got := bytes.Clone(p.Bytes(sub.Size()))
	if err := sub.Unmap(q, p); err != nil {
		return s, 0, err
	}
	if !bytes.Equal(got, want) {
		return s, 0, fmt.Errorf("sub-buffer at %d sees other bytes", sub.Offset())
	}
	return s, sub.Size(), nil
}

// probeImage fills the image, checks a mapped texel, then changes the last
// texel through the mapping and reads the image back.
func probeImage(q *clmem.Queue, img *clmem.Image) (clmem.Strategy, uint64, error) {
	s, err := strategyOf(q, img)
	if err != nil {
		return s, 0, err
	}
	size := img.Desc().Size()
	one := math.Float32bits(1)
	if err := img.Fill(q, [4]uint32{one, 0, one, one}, [3]uint64{}, size); err != nil {
		return s, 0, err
	}

	m, err := img.Map(q, [3]uint64{})
	if err != nil {
		return s, 0, err
	}
	px := uint64(img.PixelSize())
	row := m.RowPitch
	if row == 0 {
		row = size[0] * px
	}
	mapped := m.Ptr.Bytes(row*(size[1]-1) + size[0]*px)
	if !bytes.Equal(mapped[:4], []byte{255, 0, 255, 255}) {
		return s, 0, fmt.Errorf("mapped texel %v after fill", mapped[:4])
	}
	last := row*(size[1]-1) + (size[0]-1)*px
	copy(mapped[last:], []byte{1, 2, 3, 4})
	if err := img.Unmap(q, m.Ptr); err != nil {
		return s, 0, err
	}

	got := make([]byte, img.Size())
	if err := img.Read(q, got, [3]uint64{}, size, 0, 0); err != nil {
		return s, 0, err
	}
	if texel := got[len(got)-4:]; !bytes.Equal(texel, []byte{1, 2, 3, 4}) {
		return s, 0, fmt.Errorf("texel %v after unmap", texel)
	}
	return s, img.Size(), nil
}

func pattern(n uint64) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*13 + 7)
	}
	return b
}
