// Package backend implements the L2 backend worker (§4.4): the single
// goroutine that drains every producer's ring in timestamp order, decodes
// records, and dispatches them to the addressed logger's sinks.
package backend

import "sync/atomic"

// State is the worker's three-state lifecycle (§4.4).
type State int32

const (
	// Idle: no stop requested, worker parks between scans when every ring
	// is empty.
	Idle State = iota
	// Draining: a stop has been requested; the worker keeps scanning until
	// every ring is empty.
	Draining
	// Stopping: every ring drained; the worker is tearing down and will
	// exit its run loop.
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Draining:
		return "draining"
	case Stopping:
		return "stopping"
	default:
		return "unknown"
	}
}

type stateBox struct{ v atomic.Int32 }

func (b *stateBox) load() State      { return State(b.v.Load()) }
func (b *stateBox) store(s State)    { b.v.Store(int32(s)) }
func (b *stateBox) cas(old, new_ State) bool {
	return b.v.CompareAndSwap(int32(old), int32(new_))
}
