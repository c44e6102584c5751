package threadctx

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/abyssdigger/flarelog/internal/ringbuf"
)

// DefaultStaleWindow is how long a Context may go untouched before Reap
// treats it the way it would treat an OS thread that exited without
// notice. Callers that know their producers' cadence can tune this via
// Registry.SetStaleWindow.
const DefaultStaleWindow = 30 * time.Second

// Registry is the process-wide table of live producer contexts. The
// backend worker enumerates it once per scan cycle to discover rings it
// has not yet started draining.
type Registry struct {
	mu          sync.Mutex
	byGoroutine map[uint64]*Context
	staleWindow time.Duration
	ringCap     uint64
}

// NewRegistry creates an empty registry. ringCap is the capacity handed to
// ringbuf.New for every lazily-created Context; it must satisfy
// ringbuf.New's power-of-two-and-page-multiple invariant.
func NewRegistry(ringCap uint64) *Registry {
	return &Registry{
		byGoroutine: make(map[uint64]*Context),
		staleWindow: DefaultStaleWindow,
		ringCap:     ringCap,
	}
}

// SetStaleWindow overrides the staleness threshold used by Reap.
func (reg *Registry) SetStaleWindow(d time.Duration) {
	reg.mu.Lock()
	reg.staleWindow = d
	reg.mu.Unlock()
}

// Local returns the calling goroutine's Context, lazily creating one (and
// its backing ring) on first access, mirroring §4.2's "first access on a
// thread" contract with goroutines standing in for OS threads (see the
// package doc for why). The returned pointer is stable for the producer's
// lifetime: later calls from the same goroutine return the same Context.
func (reg *Registry) Local() (*Context, error) {
	id := goroutineID()

	reg.mu.Lock()
	if c, ok := reg.byGoroutine[id]; ok && c.Valid() {
		reg.mu.Unlock()
		c.touch()
		return c, nil
	}
	capacity := reg.ringCap
	reg.mu.Unlock()

	ring, err := ringbuf.New(capacity)
	if err != nil {
		return nil, err
	}
	c := newContext(id, ring)

	reg.mu.Lock()
	reg.byGoroutine[id] = c
	reg.mu.Unlock()
	return c, nil
}

// Enumerate returns a snapshot of every registered context, live or not.
// The backend uses this each scan cycle instead of holding the registry
// lock while it drains rings.
func (reg *Registry) Enumerate() []*Context {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	out := make([]*Context, 0, len(reg.byGoroutine))
	for _, c := range reg.byGoroutine {
		out = append(out, c)
	}
	return out
}

// Reap invalidates contexts that have gone untouched past the staleness
// window and permanently removes already-invalid, empty contexts from the
// table. It returns the number of contexts removed.
func (reg *Registry) Reap() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	window := reg.staleWindow
	removed := 0
	for id, c := range reg.byGoroutine {
		if c.Valid() && c.stale(window) {
			c.valid.Store(false)
		}
		if !c.Valid() && c.ring.IsEmpty() {
			c.ring.Close()
			delete(reg.byGoroutine, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of contexts currently tracked, live or pending
// reap.
func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.byGoroutine)
}

// goroutineID extracts the runtime's internal goroutine id by parsing the
// "goroutine N [state]:" header runtime.Stack always emits first. This is
// the same pragmatic substitute for goroutine-local storage several Go
// tracing and ORM libraries use; it is unsupported by the runtime but
// stable in practice across Go releases.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
