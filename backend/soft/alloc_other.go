//go:build !unix

package soft

import (
	"fmt"
	"math"
)

func allocHostVisible(size uint64) ([]byte, func(), error) {
	if size > math.MaxInt {
		return nil, nil, fmt.Errorf("soft: staging size %d too large", size)
	}
	return make([]byte, size), func() {}, nil
}
