package lease

// FakeManager is a test double recording every grant. Not safe for
// concurrent use — tests drive it from a single goroutine.
type FakeManager struct {
	// Grants holds every handle ever acquired, in order.
	Grants []*FakeHandle

	// Acquired and Released count the respective calls.
	Acquired int
	Released int

	next int
}

// FakeHandle is a grant handed out by a FakeManager.
type FakeHandle struct {
	id       int
	onExpire func()

	// Released tracks whether the handle was given back.
	Released bool

	// Expired tracks whether Expire was driven on the handle.
	Expired bool
}

// ID returns the handle's number.
func (h *FakeHandle) ID() int { return h.id }

// NewFakeManager creates a FakeManager.
func NewFakeManager() *FakeManager {
	return &FakeManager{}
}

// Acquire records and returns a new grant.
func (m *FakeManager) Acquire(onExpire func()) Handle {
	m.next++
	m.Acquired++
	h := &FakeHandle{id: m.next, onExpire: onExpire}
	m.Grants = append(m.Grants, h)
	return h
}

// Release marks the grant as given back.
func (m *FakeManager) Release(h Handle) {
	if h == nil {
		return
	}
	for _, g := range m.Grants {
		if g.id == h.ID() && !g.Released {
			g.Released = true
			m.Released++
			return
		}
	}
}

// Outstanding returns the number of unreleased grants.
func (m *FakeManager) Outstanding() int {
	n := 0
	for _, g := range m.Grants {
		if !g.Released {
			n++
		}
	}
	return n
}

// Expire drives the expiry callback of the most recent unreleased grant.
func (m *FakeManager) Expire() {
	for i := len(m.Grants) - 1; i >= 0; i-- {
		g := m.Grants[i]
		if !g.Released && !g.Expired {
			g.Expired = true
			if g.onExpire != nil {
				g.onExpire()
			}
			return
		}
	}
}
