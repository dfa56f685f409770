// Package ident assigns stable vector identifiers.
//
// Each index unit owns one Allocator. Identifiers start at 0, increase
// strictly, and are never reused, even across persist/restore cycles.
package ident

// Allocator is a monotonic identifier counter.
// Not safe for concurrent use; the owning index unit synchronizes access.
type Allocator struct {
	next uint64
}

// New creates an allocator that will hand out ids starting at 0.
func New() *Allocator {
	return &Allocator{}
}

// Next returns the identifier the next Reserve call will assign.
func (a *Allocator) Next() uint64 {
	return a.next
}

// Reserve claims n consecutive identifiers and returns the first of the run.
func (a *Allocator) Reserve(n int) uint64 {
	first := a.next
	a.next += uint64(n)
	return first
}

// Seed resets the counter after a restore. next must be
// max(restored ids) + 1, or 0 for an empty unit.
func (a *Allocator) Seed(next uint64) {
	a.next = next
}
