package clmem

import "testing"

func TestContextOptions(t *testing.T) {
	o := defaultOptions()
	if o.maxAllocSize != 0 {
		t.Errorf("default maxAllocSize = %d, want 0", o.maxAllocSize)
	}

	for _, opt := range []ContextOption{WithMaxAllocSize(4096), WithRealizeConcurrency(2)} {
		opt(&o)
	}
	if o.maxAllocSize != 4096 {
		t.Errorf("maxAllocSize = %d, want 4096", o.maxAllocSize)
	}
	if o.realizeConcurrency != 2 {
		t.Errorf("realizeConcurrency = %d, want 2", o.realizeConcurrency)
	}
}

func TestFlags(t *testing.T) {
	tests := []struct {
		flags MemFlags
		valid bool
		host  HostAccess
	}{
		{MemReadWrite, true, HostAccessReadWrite},
		{MemReadOnly | MemHostReadOnly, true, HostAccessRead},
		{MemWriteOnly | MemHostWriteOnly, true, HostAccessWrite},
		{MemHostNoAccess, true, HostAccessNone},
		{MemReadOnly | MemWriteOnly, false, HostAccessReadWrite},
		{MemHostReadOnly | MemHostNoAccess, false, HostAccessNone},
		{MemUseHostPtr | MemCopyHostPtr, false, HostAccessReadWrite},
		{MemUseHostPtr | MemAllocHostPtr, false, HostAccessReadWrite},
		{MemAllocHostPtr | MemCopyHostPtr, true, HostAccessReadWrite},
	}
	for _, tt := range tests {
		t.Run(tt.flags.String(), func(t *testing.T) {
			if got := tt.flags.validate(); got != tt.valid {
				t.Errorf("validate() = %v, want %v", got, tt.valid)
			}
			if tt.valid {
				if got := tt.flags.hostAccess(); got != tt.host {
					t.Errorf("hostAccess() = %v, want %v", got, tt.host)
				}
			}
		})
	}
}

func TestFlagsInherit(t *testing.T) {
	parent := MemReadOnly | MemHostWriteOnly | MemUseHostPtr
	if got := MemFlags(0).inherit(parent); got != parent {
		t.Errorf("inherit into zero = %v, want %v", got, parent)
	}

	child := (MemWriteOnly | MemHostNoAccess).inherit(parent)
	tests := []struct {
		flag MemFlags
		want bool
	}{
		{MemWriteOnly, true},
		{MemReadOnly, false},
		{MemHostNoAccess, true},
		{MemUseHostPtr, true},
	}
	for _, tt := range tests {
		if got := child.Has(tt.flag); got != tt.want {
			t.Errorf("child.Has(%v) = %v, want %v", tt.flag, got, tt.want)
		}
	}
}
