package backend_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/clmem/backend"
	"github.com/gogpu/clmem/backend/native"
	"github.com/gogpu/clmem/backend/soft"
	"github.com/gogpu/clmem/device"
)

func TestRegistryBuiltins(t *testing.T) {
	for _, name := range []string{backend.BackendSoft, backend.BackendNative} {
		if !backend.IsRegistered(name) {
			t.Errorf("%s backend should be auto-registered", name)
		}
	}
	names := backend.Available()
	if !slices.IsSorted(names) {
		t.Errorf("Available() = %v, want sorted", names)
	}
}

func TestRegistryOpenSoft(t *testing.T) {
	dev, err := backend.Open(backend.BackendSoft)
	if err != nil {
		t.Fatalf("Open(soft) error = %v", err)
	}
	if _, ok := dev.(*soft.Device); !ok {
		t.Errorf("Open(soft) = %T, want *soft.Device", dev)
	}
	if err := backend.Close(dev); err != nil {
		t.Errorf("Close(soft) error = %v", err)
	}
}

func TestRegistryOpenUnregistered(t *testing.T) {
	_, err := backend.Open("nonexistent")
	if !errors.Is(err, backend.ErrBackendNotAvailable) {
		t.Errorf("Open(nonexistent) error = %v, want ErrBackendNotAvailable", err)
	}
}

func TestRegistryDefaultPrefersNative(t *testing.T) {
	dev, name, err := backend.Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	defer backend.Close(dev)
	if name != backend.BackendNative {
		t.Errorf("Default() picked %q, want %q", name, backend.BackendNative)
	}
	if _, ok := dev.(*native.Device); !ok {
		t.Errorf("Default() = %T, want *native.Device", dev)
	}
}

func TestRegistryDefaultFallsBack(t *testing.T) {
	failing := errors.New("no adapter")
	backend.Register("test-broken", func() (device.Device, error) { return nil, failing })
	defer backend.Unregister("test-broken")

	native.Unregister()
	defer native.Register()

	dev, name, err := backend.Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if name != backend.BackendSoft {
		t.Errorf("Default() picked %q, want soft", name)
	}
	_ = backend.Close(dev)

	_, err = backend.Open("test-broken")
	if !errors.Is(err, failing) {
		t.Errorf("Open(test-broken) error = %v, want wrapped factory error", err)
	}
}

func TestRegistryUnregister(t *testing.T) {
	backend.Register("test-temp", func() (device.Device, error) { return soft.New(), nil })
	if !backend.IsRegistered("test-temp") {
		t.Fatal("test-temp should be registered")
	}
	backend.Unregister("test-temp")
	if backend.IsRegistered("test-temp") {
		t.Error("test-temp should be unregistered")
	}
}

func TestRegistryNothingOpens(t *testing.T) {
	saved := backend.Available()
	for _, name := range saved {
		backend.Unregister(name)
	}
	defer func() {
		soft.Register()
		native.Register()
	}()

	if _, _, err := backend.Default(); !errors.Is(err, backend.ErrBackendNotAvailable) {
		t.Errorf("Default() error = %v, want ErrBackendNotAvailable", err)
	}
	defer func() {
		if recover() == nil {
			t.Error("MustDefault() should panic")
		}
	}()
	backend.MustDefault()
}
