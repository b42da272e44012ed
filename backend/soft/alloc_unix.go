//go:build unix

package soft

import (
	"fmt"
	"math"

	"golang.org/x/sys/unix"
)

// allocHostVisible returns zeroed memory for a staging resource. The memory
// is an anonymous private mapping, outside the Go heap, so pointers handed to
// callers never move and the pages are returned to the OS on free.
func allocHostVisible(size uint64) ([]byte, func(), error) {
	if size > math.MaxInt {
		return nil, nil, fmt.Errorf("soft: staging size %d too large", size)
	}
	b, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, fmt.Errorf("soft: mmap %d bytes: %w", size, err)
	}
	return b, func() {
		if err := unix.Munmap(b); err != nil {
			slogger().Warn("soft: munmap failed", "bytes", len(b), "err", err)
		}
	}, nil
}
