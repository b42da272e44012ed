// Package mapping tracks the mapping sessions of one memory object.
//
// A session is the open transfer (and optional shadow resource) a device
// uses to expose the object to the CPU. Sessions are shared by every map of
// the object on that device. Pointers handed out to callers are counted
// object-wide, across devices. Everything is guarded by one mutex per Table.
package mapping

import (
	"fmt"
	"sync"

	"github.com/gogpu/clmem/device"
)

// Session is the per-device mapping state.
type Session struct {
	Transfer device.Transfer
	// Shadow is the staging resource backing Transfer, or nil when the
	// transfer maps the object resource directly.
	Shadow device.Resource

	// pending counts reservations that have not installed their pointer.
	pending uint32
	// synced is set once the view of the session was filled from the
	// object.
	synced bool
}

// OpenFunc opens the transfer of a new session.
type OpenFunc func() (device.Transfer, device.Resource, error)

// RetireFunc releases a retired session back to its device.
type RetireFunc func(dev device.Device, s *Session)

// SyncFunc moves data between the object and the view of a session. shadow
// is nil when the session maps directly or when the device has no session.
type SyncFunc func(shadow device.Resource) error

// Table is the mapping state of one memory object.
type Table struct {
	mu       sync.Mutex
	sessions map[device.Device]*Session
	ptrs     map[uintptr]uint32
	retire   RetireFunc
}

// New returns an empty table. retire is called, under the table lock, for
// every session the table drops.
func New(retire RetireFunc) *Table {
	return &Table{
		sessions: make(map[device.Device]*Session),
		ptrs:     make(map[uintptr]uint32),
		retire:   retire,
	}
}

// Acquire returns the transfer of the session for dev, opening it with open
// when the device has none. The reservation keeps the session alive until
// Install or Cancel is called for dev.
func (t *Table) Acquire(dev device.Device, open OpenFunc) (device.Transfer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.sessions[dev]; ok {
		s.pending++
		return s.Transfer, nil
	}
	tx, shadow, err := open()
	if err != nil {
		return nil, err
	}
	t.sessions[dev] = &Session{Transfer: tx, Shadow: shadow, pending: 1}
	return tx, nil
}

// Install completes a reservation on dev and counts a reference on ptr.
// sync runs before Install returns, with the shadow of the session of dev,
// when ptr is the first live pointer of the object or when the session of
// dev has not been synchronized yet. A failed sync undoes the reference.
// synced reports whether the view was synchronized by this call.
//
// Install on a device without a session only counts the reference, which is
// how host-pointer objects are tracked.
func (t *Table) Install(dev device.Device, ptr uintptr, sync SyncFunc) (synced bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	first := len(t.ptrs) == 0
	t.ptrs[ptr]++
	s := t.sessions[dev]
	if s != nil && s.pending > 0 {
		s.pending--
	}
	if !first && (s == nil || s.synced) {
		return false, nil
	}
	if sync != nil {
		var shadow device.Resource
		if s != nil {
			shadow = s.Shadow
		}
		if err := sync(shadow); err != nil {
			t.unref(ptr)
			t.tryRetire(dev)
			return false, err
		}
	}
	if s != nil {
		s.synced = true
	}
	return true, nil
}

// Cancel drops a reservation on dev made by Acquire that will never be
// installed.
func (t *Table) Cancel(dev device.Device) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.sessions[dev]; ok && s.pending > 0 {
		s.pending--
	}
	t.tryRetire(dev)
}

// Release drops one reference on ptr. When the object has no live pointer
// left, writeBack runs with the shadow of the session of dev. The session of
// dev is then retired if it became idle, whether or not writeBack ran or
// failed.
//
// Release of an untracked pointer does nothing and reports false.
func (t *Table) Release(dev device.Device, ptr uintptr, writeBack SyncFunc) (tracked bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.ptrs[ptr]; !ok {
		return false, nil
	}
	t.unref(ptr)
	if len(t.ptrs) == 0 && writeBack != nil {
		var shadow device.Resource
		if s := t.sessions[dev]; s != nil {
			shadow = s.Shadow
		}
		err = writeBack(shadow)
	}
	t.tryRetire(dev)
	return true, err
}

// TryRetire retires the session of dev when the object has no live pointer
// and no reservation is pending on dev.
func (t *Table) TryRetire(dev device.Device) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tryRetire(dev)
}

// Contains reports whether ptr is a live pointer of the object.
func (t *Table) Contains(ptr uintptr) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.ptrs[ptr]
	return ok
}

// Refs returns the reference count of ptr.
func (t *Table) Refs(ptr uintptr) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ptrs[ptr]
}

// Live returns the number of distinct live pointers.
func (t *Table) Live() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.ptrs)
}

// Pending returns the pending reservations of the session of dev, and
// whether dev has a session.
func (t *Table) Pending(dev device.Device) (uint32, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[dev]
	if !ok {
		return 0, false
	}
	return s.pending, true
}

// Sessions returns the number of open sessions.
func (t *Table) Sessions() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// Drain retires every session regardless of live pointers and pending
// reservations. It is called when the object is destroyed.
func (t *Table) Drain() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(t.sessions)
	for dev, s := range t.sessions {
		delete(t.sessions, dev)
		t.retire(dev, s)
	}
	clear(t.ptrs)
	return n
}

func (t *Table) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fmt.Sprintf("mapping.Table{sessions: %d, pointers: %d}", len(t.sessions), len(t.ptrs))
}

func (t *Table) unref(ptr uintptr) {
	if n := t.ptrs[ptr]; n > 1 {
		t.ptrs[ptr] = n - 1
	} else {
		delete(t.ptrs, ptr)
	}
}

func (t *Table) tryRetire(dev device.Device) bool {
	s, ok := t.sessions[dev]
	if !ok || len(t.ptrs) != 0 || s.pending != 0 {
		return false
	}
	delete(t.sessions, dev)
	t.retire(dev, s)
	return true
}
