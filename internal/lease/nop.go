package lease

import "sync"

// NopManager satisfies Manager for environments with no execution budget.
// It tracks the number of outstanding grants but never expires them.
type NopManager struct {
	mu   sync.Mutex
	next int
	live map[int]struct{}
}

type nopHandle struct {
	id int
}

func (h nopHandle) ID() int { return h.id }

// NewNopManager creates a NopManager.
func NewNopManager() *NopManager {
	return &NopManager{live: make(map[int]struct{})}
}

// Acquire returns a fresh handle. onExpire is never invoked.
func (m *NopManager) Acquire(onExpire func()) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	m.live[m.next] = struct{}{}
	return nopHandle{id: m.next}
}

// Release forgets the handle.
func (m *NopManager) Release(h Handle) {
	if h == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.live, h.ID())
}

// Outstanding returns the number of unreleased grants.
func (m *NopManager) Outstanding() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}
