package clmem

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/clmem/device"
	"github.com/gogpu/clmem/internal/mapping"
)

// MemObject is a buffer or an image.
type MemObject interface {
	Context() *Context
	Flags() MemFlags
	Size() uint64
	HostPtr() HostPtr
	// Parent returns the object this one was created from, or nil.
	Parent() MemObject
	HostAccess() HostAccess

	// Resource returns the device allocation backing the object on dev.
	// Sub-buffers and buffer-backed images resolve to their root.
	Resource(dev device.Device) (device.Resource, error)

	// IsMappedPtr reports whether p is a live mapping of the object.
	IsMappedPtr(p HostPtr) bool
	// SyncShadow completes a reservation made on q's device with p.
	SyncShadow(q *Queue, p HostPtr) error
	// Unmap drops one reference on p. Unmapping an unknown pointer does
	// nothing.
	Unmap(q *Queue, p HostPtr) error

	Retain()
	Release()
	SetDestructorCallback(fn func())

	base() *memBase
}

type memBase struct {
	ctx     *Context
	parent  MemObject
	flags   MemFlags
	size    uint64
	hostPtr HostPtr
	kind    string

	// resources is set on root objects only. Imported resources are not
	// owned and survive the object.
	resources map[device.Device]device.Resource
	owned     bool

	maps *mapping.Table
	refs atomic.Int32

	cbMu      sync.Mutex
	callbacks []func()
}

func (m *memBase) init(ctx *Context, kind string, parent MemObject, flags MemFlags, size uint64, host HostPtr) {
	m.ctx = ctx
	m.kind = kind
	m.parent = parent
	m.flags = flags
	m.size = size
	m.hostPtr = host
	m.maps = mapping.New(retireSession)
	m.refs.Store(1)
}

func (m *memBase) base() *memBase { return m }

// Context returns the context the object was created in.
func (m *memBase) Context() *Context { return m.ctx }

// Flags returns the creation flags, including the ones inherited from the
// parent.
func (m *memBase) Flags() MemFlags { return m.flags }

// Size returns the size of the object in bytes.
func (m *memBase) Size() uint64 { return m.size }

// HostPtr returns the caller memory backing the object. It is nil unless
// the object was created with MemUseHostPtr.
func (m *memBase) HostPtr() HostPtr { return m.hostPtr }

func (m *memBase) Parent() MemObject { return m.parent }

// HostAccess returns the CPU access allowed by the flags.
func (m *memBase) HostAccess() HostAccess { return m.flags.hostAccess() }

func (m *memBase) root() *memBase {
	r := m
	for r.parent != nil {
		r = r.parent.base()
	}
	return r
}

func (m *memBase) Resource(dev device.Device) (device.Resource, error) {
	res, ok := m.root().resources[dev]
	if !ok {
		return nil, fmt.Errorf("%w: %w: %s", ErrOutOfResources, ErrNoResource, deviceName(dev))
	}
	return res, nil
}

// hasUserShadow reports whether the caller memory shadows the resource on
// dev: the object was created with MemUseHostPtr but dev could not adopt
// the memory as storage.
func (m *memBase) hasUserShadow(dev device.Device) (bool, error) {
	if !m.flags.Has(MemUseHostPtr) {
		return false, nil
	}
	res, err := m.Resource(dev)
	if err != nil {
		return false, err
	}
	return !res.Info().User, nil
}

func (m *memBase) IsMappedPtr(p HostPtr) bool {
	return !p.IsNil() && m.maps.Contains(p.Addr())
}

// Retain adds a reference to the object.
func (m *memBase) Retain() { m.refs.Add(1) }

// Release drops a reference. The last one destroys the object.
func (m *memBase) Release() {
	switch n := m.refs.Add(-1); {
	case n == 0:
		m.destroy()
	case n < 0:
		Logger().Warn("clmem: release of a destroyed object", "kind", m.kind)
	}
}

// SetDestructorCallback registers fn to run when the object is destroyed.
// Callbacks run in reverse registration order.
func (m *memBase) SetDestructorCallback(fn func()) {
	if fn == nil {
		return
	}
	m.cbMu.Lock()
	m.callbacks = append(m.callbacks, fn)
	m.cbMu.Unlock()
}

func (m *memBase) destroy() {
	m.cbMu.Lock()
	cbs := m.callbacks
	m.callbacks = nil
	m.cbMu.Unlock()
	for i := len(cbs) - 1; i >= 0; i-- {
		cbs[i]()
	}

	if n := m.maps.Drain(); n > 0 {
		Logger().Debug("clmem: destroyed object with open mappings", "kind", m.kind, "sessions", n)
	}
	if m.parent == nil && m.owned {
		destroyResources(m.resources)
	}
	m.resources = nil
	if m.parent != nil {
		m.parent.Release()
	}
}

func retireSession(dev device.Device, s *mapping.Session) {
	dev.Unmap(s.Transfer)
	if s.Shadow != nil {
		dev.DestroyResource(s.Shadow)
	}
	Logger().Debug("clmem: session retired", "device", dev.Name(), "shadow", s.Shadow != nil)
}

// HasSameParent reports whether a and b share their root object.
func HasSameParent(a, b MemObject) bool {
	if a == nil || b == nil {
		return false
	}
	return a.base().root() == b.base().root()
}

// IsParentBuffer reports whether the parent of obj is buf.
func IsParentBuffer(obj MemObject, buf *Buffer) bool {
	if obj == nil || buf == nil {
		return false
	}
	p, ok := obj.Parent().(*Buffer)
	return ok && p == buf
}
