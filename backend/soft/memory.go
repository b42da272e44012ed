package soft

import (
	"fmt"
	"sync"
)

// MemoryStats reports the allocations of a device.
type MemoryStats struct {
	// BudgetBytes is the budget, or zero when unlimited.
	BudgetBytes uint64
	UsedBytes   uint64
	// PeakBytes is the highest UsedBytes seen.
	PeakBytes   uint64
	Allocations int
}

// String returns a human-readable summary.
func (s MemoryStats) String() string {
	if s.BudgetBytes == 0 {
		return fmt.Sprintf("Memory[%d bytes in %d allocations, peak %d]", s.UsedBytes, s.Allocations, s.PeakBytes)
	}
	return fmt.Sprintf("Memory[%.1f%% used, %d/%d bytes in %d allocations, peak %d]",
		float64(s.UsedBytes)/float64(s.BudgetBytes)*100,
		s.UsedBytes, s.BudgetBytes, s.Allocations, s.PeakBytes)
}

// memoryBudget tracks device allocations against a budget.
//
// memoryBudget is safe for concurrent use.
type memoryBudget struct {
	mu     sync.Mutex
	budget uint64
	used   uint64
	peak   uint64
	count  int
}

func (m *memoryBudget) reserve(n uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.budget != 0 && (n > m.budget || m.used > m.budget-n) {
		return fmt.Errorf("%w: %d bytes requested, %d of %d in use", ErrMemoryBudgetExceeded, n, m.used, m.budget)
	}
	m.used += n
	m.count++
	m.peak = max(m.peak, m.used)
	return nil
}

func (m *memoryBudget) release(n uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.used -= min(n, m.used)
	if m.count > 0 {
		m.count--
	}
}

func (m *memoryBudget) stats() MemoryStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MemoryStats{BudgetBytes: m.budget, UsedBytes: m.used, PeakBytes: m.peak, Allocations: m.count}
}
