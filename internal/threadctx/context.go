// Package threadctx implements the per-producer thread context and the
// process-wide registry that lets the backend enumerate every live
// producer's ring (§3 "Thread context", §4.2).
//
// Go has no public notion of "the current OS thread" for a goroutine and no
// thread-exit hook, so this package adapts §4.2's contract rather than
// translating it literally: a Context is looked up by goroutine id (parsed
// from runtime.Stack, the same pragmatic trick several Go tracing libraries
// use in place of real thread-local storage) and "thread exit" is detected
// by staleness — a Context not touched for longer than the registry's
// staleness window is treated as invalidated the same way an exited OS
// thread would be, and reaped once its ring is also empty. A producer that
// knows it is finished may call Release() for immediate, precise cleanup
// instead of waiting out the staleness window.
package threadctx

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/abyssdigger/flarelog/internal/osutil"
	"github.com/abyssdigger/flarelog/internal/ringbuf"
)

// Context is one producer thread's private transport plus identity. It is
// created once per producer and lives until Reap destroys it.
type Context struct {
	id       uuid.UUID // diagnostics-only correlation id, never used as a lookup key
	goid     uint64    // goroutine id this Context was minted for
	threadID uint64    // OS thread id, when the platform exposes one (0 otherwise)
	ring     *ringbuf.Ring

	name     atomic.Value // string
	lastSeen atomic.Int64 // unix nanoseconds, updated on every producer touch
	valid    atomic.Bool
}

func newContext(goid uint64, ring *ringbuf.Ring) *Context {
	c := &Context{
		id:       uuid.New(),
		goid:     goid,
		threadID: osutil.ThreadID(),
		ring:     ring,
	}
	c.valid.Store(true)
	c.touch()
	return c
}

// touch records that the producer is still alive; called on every Log.
func (c *Context) touch() { c.lastSeen.Store(time.Now().UnixNano()) }

// Ring returns the context's private SPSC transport.
func (c *Context) Ring() *ringbuf.Ring { return c.ring }

// ID returns the diagnostics-only correlation id for this context.
func (c *Context) ID() uuid.UUID { return c.id }

// ThreadID returns the OS thread id this context was created under, or 0 on
// platforms without a grounded primitive (see internal/osutil).
func (c *Context) ThreadID() uint64 { return c.threadID }

// SetName records an optional human-readable name for this producer
// (typically the goroutine or logical worker's name), surfaced in sink
// metadata.
func (c *Context) SetName(name string) { c.name.Store(name) }

// Name returns the producer's name, or "" if never set.
func (c *Context) Name() string {
	if v := c.name.Load(); v != nil {
		return v.(string)
	}
	return ""
}

// Valid reports whether the context has not yet been invalidated.
func (c *Context) Valid() bool { return c.valid.Load() }

// Release immediately invalidates the context, for producers that know
// they are finished (e.g. a worker-pool goroutine exiting cleanly) rather
// than relying on the staleness window.
func (c *Context) Release() { c.valid.Store(false) }

// stale reports whether this context has gone untouched for longer than
// window, the registry's substitute for an OS thread-exit notification.
func (c *Context) stale(window time.Duration) bool {
	last := c.lastSeen.Load()
	return time.Since(time.Unix(0, last)) > window
}
