package soft

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/clmem/device"
	"github.com/gogpu/clmem/internal/rect"
)

// command is an entry of the device command stream.
type command struct {
	rec Command
	run func()
}

// submit appends a command to the stream and runs it unless the device is
// deferred.
func (d *Device) submit(rec Command, run func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.history = append(d.history, rec)
	switch rec.Kind {
	case CmdCopyRegion:
		d.stats.CopyRegions++
	case CmdClearBuffer, CmdClearTexture, CmdClearImageBuffer:
		d.stats.Clears++
	case CmdBufferSubData, CmdTextureSubData:
		d.stats.Uploads++
	}
	d.cmds.Add(command{rec: rec, run: run})
	if !d.opts.Deferred {
		d.flushLocked()
	}
}

func (d *Device) flushLocked() {
	for d.cmds.Length() > 0 {
		cmd := d.cmds.Remove().(command)
		cmd.run()
		d.stats.Executed++
		d.log().Debug("soft: command executed", "device", d.opts.Name, "cmd", cmd.rec)
	}
}

// Finish runs every queued command.
func (d *Device) Finish() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.flushLocked()
	return nil
}

// CopyRegion implements device.Device.
func (d *Device) CopyRegion(src, dst device.Resource, dstOrigin gputypes.Origin3D, box device.Box) error {
	s, err := d.lookup(src)
	if err != nil {
		return err
	}
	t, err := d.lookup(dst)
	if err != nil {
		return err
	}
	if box.Empty() {
		return nil
	}
	rec := Command{Kind: CmdCopyRegion, Src: s.id, Dst: t.id, Box: box}

	if s.info.Buffer != t.info.Buffer {
		return fmt.Errorf("%w: buffer and texture", ErrKindMismatch)
	}
	if s.info.Buffer {
		so, n := uint64(box.Origin.X), uint64(box.Size.Width)
		do := uint64(dstOrigin.X)
		if so+n > s.info.Size || do+n > t.info.Size {
			return fmt.Errorf("%w: copy %v to %d", device.ErrInvalidRange, box, do)
		}
		rec.Bytes = n
		d.submit(rec, func() { copy(t.data[do:do+n], s.data[so:so+n]) })
		return nil
	}

	if s.pixel != t.pixel {
		return fmt.Errorf("%w: texel size %d vs %d", ErrKindMismatch, s.pixel, t.pixel)
	}
	dstBox := device.Box{Origin: dstOrigin, Size: box.Size}
	if !box.Within(s.extent()) || !dstBox.Within(t.extent()) {
		return fmt.Errorf("%w: copy %v to %v", device.ErrInvalidRange, box, dstBox)
	}
	row := uint64(box.Size.Width) * uint64(s.pixel)
	slice := row * uint64(box.Size.Height)
	rec.Bytes = slice * uint64(box.Size.DepthOrArrayLayers)
	d.submit(rec, func() {
		tmp := make([]byte, rec.Bytes)
		s.readBox(box, tmp, row, slice)
		t.writeBox(dstBox, tmp, row, slice)
	})
	return nil
}

// ClearBuffer implements device.Device.
func (d *Device) ClearBuffer(res device.Resource, pattern []byte, offset, size uint64) error {
	r, err := d.lookup(res)
	if err != nil {
		return err
	}
	if !r.info.Buffer {
		return fmt.Errorf("%w: ClearBuffer on a texture", ErrKindMismatch)
	}
	if len(pattern) == 0 {
		return ErrEmptyPattern
	}
	end, err := rect.Add(offset, size)
	if err != nil || end > r.info.Size {
		return fmt.Errorf("%w: clear [%d,+%d) of %d", device.ErrInvalidRange, offset, size, r.info.Size)
	}
	p := append([]byte(nil), pattern...)
	box, _ := device.BufferBox(offset, size)
	d.submit(Command{Kind: CmdClearBuffer, Dst: r.id, Box: box, Bytes: size}, func() {
		fill(r.data[offset:end], p)
	})
	return nil
}

// ClearTexture implements device.Device.
func (d *Device) ClearTexture(res device.Resource, pattern []byte, box device.Box) error {
	r, err := d.lookup(res)
	if err != nil {
		return err
	}
	if r.info.Buffer {
		return fmt.Errorf("%w: ClearTexture on a buffer", ErrKindMismatch)
	}
	if uint32(len(pattern)) < r.pixel {
		return fmt.Errorf("%w: %d pattern bytes for %d-byte texels", ErrEmptyPattern, len(pattern), r.pixel)
	}
	if !box.Within(r.extent()) {
		return fmt.Errorf("%w: clear %v", device.ErrInvalidRange, box)
	}
	p := append([]byte(nil), pattern[:r.pixel]...)
	row := uint64(box.Size.Width) * uint64(r.pixel)
	slice := row * uint64(box.Size.Height)
	n := slice * uint64(box.Size.DepthOrArrayLayers)
	d.submit(Command{Kind: CmdClearTexture, Dst: r.id, Box: box, Bytes: n}, func() {
		tmp := make([]byte, n)
		fill(tmp, p)
		r.writeBox(box, tmp, row, slice)
	})
	return nil
}

// ClearImageBuffer implements device.Device.
func (d *Device) ClearImageBuffer(res device.Resource, pattern []byte, offset uint64, origin, region [3]uint64, rowPitch, slicePitch uint64, pixelSize uint32) error {
	r, err := d.lookup(res)
	if err != nil {
		return err
	}
	if !r.info.Buffer {
		return fmt.Errorf("%w: ClearImageBuffer on a texture", ErrKindMismatch)
	}
	if pixelSize == 0 || uint32(len(pattern)) < pixelSize {
		return fmt.Errorf("%w: %d pattern bytes for %d-byte texels", ErrEmptyPattern, len(pattern), pixelSize)
	}
	if offset > r.info.Size {
		return fmt.Errorf("%w: image offset %d of %d", device.ErrInvalidRange, offset, r.info.Size)
	}
	storage := r.data[offset:]
	l := rect.Layout{Origin: rect.Vec(origin), RowPitch: rowPitch, SlicePitch: slicePitch}
	end, err := l.End(rect.Vec(region), uint64(pixelSize))
	if err != nil || end > uint64(len(storage)) {
		return fmt.Errorf("%w: image clear ends at %d of %d", device.ErrInvalidRange, end, len(storage))
	}

	px := uint64(pixelSize)
	src := make([]byte, region[0]*px)
	fill(src, pattern[:pixelSize])
	rec := Command{Kind: CmdClearImageBuffer, Dst: r.id, Bytes: region[0] * region[1] * region[2] * px}
	d.submit(rec, func() {
		// A zero source pitch replicates the single filled row.
		_ = rect.Copy(storage, l, src, rect.Layout{}, rect.Vec(region), px)
	})
	return nil
}

// BufferSubData implements device.Device.
func (d *Device) BufferSubData(res device.Resource, offset uint64, data []byte) error {
	r, err := d.lookup(res)
	if err != nil {
		return err
	}
	if !r.info.Buffer {
		return fmt.Errorf("%w: BufferSubData on a texture", ErrKindMismatch)
	}
	end, err := rect.Add(offset, uint64(len(data)))
	if err != nil || end > r.info.Size {
		return fmt.Errorf("%w: upload [%d,+%d) of %d", device.ErrInvalidRange, offset, len(data), r.info.Size)
	}
	p := append([]byte(nil), data...)
	box, _ := device.BufferBox(offset, uint64(len(data)))
	d.submit(Command{Kind: CmdBufferSubData, Dst: r.id, Box: box, Bytes: uint64(len(p))}, func() {
		copy(r.data[offset:end], p)
	})
	return nil
}

// TextureSubData implements device.Device.
func (d *Device) TextureSubData(res device.Resource, box device.Box, data []byte, rowPitch uint32, slicePitch uint64) error {
	r, err := d.lookup(res)
	if err != nil {
		return err
	}
	if r.info.Buffer {
		return fmt.Errorf("%w: TextureSubData on a buffer", ErrKindMismatch)
	}
	if !box.Within(r.extent()) {
		return fmt.Errorf("%w: upload %v", device.ErrInvalidRange, box)
	}
	if box.Empty() {
		return nil
	}
	row := uint64(rowPitch)
	if row == 0 {
		row = uint64(box.Size.Width) * uint64(r.pixel)
	}
	if slicePitch == 0 {
		slicePitch = row * uint64(box.Size.Height)
	}
	hl := rect.Layout{RowPitch: row, SlicePitch: slicePitch}
	end, err := hl.End(rect.Vec{uint64(box.Size.Width), uint64(box.Size.Height), uint64(box.Size.DepthOrArrayLayers)}, uint64(r.pixel))
	if err != nil || end > uint64(len(data)) {
		return fmt.Errorf("%w: upload needs %d bytes, have %d", device.ErrInvalidRange, end, len(data))
	}
	p := append([]byte(nil), data[:end]...)
	d.submit(Command{Kind: CmdTextureSubData, Dst: r.id, Box: box, Bytes: end}, func() {
		r.writeBox(box, p, row, slicePitch)
	})
	return nil
}

func fill(dst, pattern []byte) {
	for i := 0; i < len(dst); i += len(pattern) {
		copy(dst[i:], pattern)
	}
}
