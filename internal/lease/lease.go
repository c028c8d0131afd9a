// Package lease models the time-bounded background-execution grant the
// scheduler holds across wake cycles. The real environment for a plain
// daemon imposes no such grant, so the production implementation is a
// counter; the fake lets tests assert acquire/release pairing and drive
// expiry.
package lease

// Handle identifies one acquired grant.
type Handle interface {
	// ID returns a number unique among the manager's live grants.
	ID() int
}

// Manager hands out background-execution grants.
type Manager interface {
	// Acquire begins a grant. onExpire runs if the grant reaches its
	// expiry before being released; it may be nil.
	Acquire(onExpire func()) Handle

	// Release ends a grant. Releasing an already-released handle is a
	// no-op.
	Release(h Handle)
}
