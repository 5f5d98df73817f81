package journal

import (
	"context"
	"sort"
	"sync"

	"wallet-core-sol/internal/logic/core"
	"wallet-core-sol/internal/types"
)

// MemoryJournal 单进程内的 Journal 实现
type MemoryJournal struct {
	mu      sync.RWMutex
	entries map[types.Signature]core.ExecutionStatus
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{entries: make(map[types.Signature]core.ExecutionStatus)}
}

func (m *MemoryJournal) Record(_ context.Context, sig types.Signature, status core.ExecutionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// 终态不允许回退
	if cur, ok := m.entries[sig]; ok && cur.Terminal() && !status.Terminal() {
		return nil
	}
	m.entries[sig] = status
	return nil
}

func (m *MemoryJournal) Status(_ context.Context, sig types.Signature) (core.ExecutionStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entries[sig], nil
}

func (m *MemoryJournal) Pending(_ context.Context) ([]types.Signature, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []types.Signature
	for sig, st := range m.entries {
		if st.Pending() {
			out = append(out, sig)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out, nil
}
