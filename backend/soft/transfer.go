package soft

import (
	"fmt"
	"unsafe"

	"github.com/gogpu/clmem/device"
	"github.com/gogpu/clmem/internal/rect"
)

// transfer is an open CPU window onto a soft resource.
type transfer struct {
	res    *resource
	mode   device.MapMode
	access device.Access
	data   []byte
	row    uint32
	slice  uint64

	// bounce is set when data is a temporary copy of box.
	bounce bool
	box    device.Box
	offset uint64
}

func (t *transfer) Ptr() unsafe.Pointer {
	if len(t.data) == 0 {
		return nil
	}
	return unsafe.Pointer(&t.data[0])
}

func (t *transfer) Len() uint64        { return uint64(len(t.data)) }
func (t *transfer) RowPitch() uint32   { return t.row }
func (t *transfer) SlicePitch() uint64 { return t.slice }

// MapBuffer implements device.Device.
func (d *Device) MapBuffer(res device.Resource, offset, size uint64, access device.Access, mode device.MapMode) (device.Transfer, error) {
	r, err := d.lookup(res)
	if err != nil {
		return nil, err
	}
	if !r.info.Buffer {
		return nil, fmt.Errorf("%w: MapBuffer on a texture", ErrKindMismatch)
	}
	end, err := rect.Add(offset, size)
	if err != nil || size == 0 || end > r.info.Size {
		return nil, fmt.Errorf("%w: map [%d,+%d) of %d", device.ErrInvalidRange, offset, size, r.info.Size)
	}
	if err := d.checkMode(r, mode); err != nil {
		return nil, err
	}

	t := &transfer{res: r, mode: mode, access: access, offset: offset}
	d.mu.Lock()
	defer d.mu.Unlock()
	if mode == device.MapNormal {
		d.flushLocked()
	}
	if mode != device.MapNormal || r.cpuVisible() {
		t.data = r.data[offset:end:end]
	} else {
		t.bounce = true
		t.data = append([]byte(nil), r.data[offset:end]...)
	}
	d.countMap(t)
	return t, nil
}

// MapTexture implements device.Device.
func (d *Device) MapTexture(res device.Resource, box device.Box, access device.Access, mode device.MapMode) (device.Transfer, error) {
	r, err := d.lookup(res)
	if err != nil {
		return nil, err
	}
	if r.info.Buffer {
		return nil, fmt.Errorf("%w: MapTexture on a buffer", ErrKindMismatch)
	}
	if box.Empty() || !box.Within(r.extent()) {
		return nil, fmt.Errorf("%w: map %v of %v", device.ErrInvalidRange, box, r.extent())
	}
	if err := d.checkMode(r, mode); err != nil {
		return nil, err
	}

	t := &transfer{res: r, mode: mode, access: access, box: box}
	d.mu.Lock()
	defer d.mu.Unlock()
	if mode == device.MapNormal {
		d.flushLocked()
	}
	if !r.tiled && (mode != device.MapNormal || r.cpuVisible()) {
		start, end := r.span(box)
		t.data = r.data[start:end:end]
		t.row = uint32(r.rowPitch)
		t.slice = r.slicePitch
	} else {
		row := uint64(box.Size.Width) * uint64(r.pixel)
		slice := row * uint64(box.Size.Height)
		t.bounce = true
		t.data = make([]byte, slice*uint64(box.Size.DepthOrArrayLayers))
		t.row, t.slice = uint32(row), slice
		r.readBox(box, t.data, row, slice)
	}
	d.countMap(t)
	return t, nil
}

// checkMode rejects direct and coherent maps the resource cannot serve.
func (d *Device) checkMode(r *resource, mode device.MapMode) error {
	switch mode {
	case device.MapDirect:
		if !r.cpuVisible() || r.tiled {
			return fmt.Errorf("%w: direct map of resource %d on %s", device.ErrNotMappable, r.id, d.opts.Name)
		}
	case device.MapCoherent:
		if r.typ != device.ResourceStaging && r.typ != device.ResourceUser {
			return fmt.Errorf("%w: coherent map of non-staging resource %d", device.ErrNotMappable, r.id)
		}
	}
	return nil
}

func (d *Device) countMap(t *transfer) {
	d.stats.OpenTransfers++
	switch t.mode {
	case device.MapDirect:
		d.stats.DirectMaps++
	case device.MapCoherent:
		d.stats.CoherentMaps++
	default:
		d.stats.NormalMaps++
	}
	if t.bounce {
		d.stats.BounceMaps++
	}
}

// Unmap implements device.Device. Writable bounce transfers are copied back
// into the resource.
func (d *Device) Unmap(tx device.Transfer) {
	t, ok := tx.(*transfer)
	if !ok || t == nil || t.res.dev != d {
		d.log().Warn("soft: unmap of foreign transfer", "device", d.opts.Name, "transfer", fmt.Sprintf("%T", tx))
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if t.data == nil {
		return
	}
	if t.bounce && t.access.Writes() && !t.res.destroyed {
		if t.res.info.Buffer {
			copy(t.res.data[t.offset:], t.data)
		} else {
			t.res.writeBox(t.box, t.data, uint64(t.row), t.slice)
		}
	}
	t.data = nil
	d.stats.OpenTransfers--
}
