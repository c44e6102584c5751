package backend

import (
	"container/heap"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/abyssdigger/flarelog/internal/osutil"
	"github.com/abyssdigger/flarelog/internal/record"
	"github.com/abyssdigger/flarelog/internal/sink"
	"github.com/abyssdigger/flarelog/internal/threadctx"
)

// LoggerDirectory is the backend's view of the frontend logger registry:
// enough to resolve a wire record's LoggerID to a name and sink set
// without the backend package importing the root lgr package (which
// would create an import cycle, since lgr owns and starts the backend).
type LoggerDirectory interface {
	// Resolve returns the sink slots and display name for loggerID, or
	// ok=false if no such logger is currently registered (the backend
	// then reports and drops the record).
	Resolve(loggerID uint64) (slots []*sink.Slot, name string, ok bool)
	// FileName resolves a source-file interning handle (Header.SourceFile)
	// back to a path, or "" if the handle is unknown.
	FileName(handle uint32) string
	// FieldName resolves a named-argument handle (one entry of
	// record.LogEvent.Names) back to the field name a producer registered
	// for it, or "" if the handle is unknown.
	FieldName(handle uint32) string
}

// Config tunes the worker's batching, backoff and instrumentation.
// Zero-value Config is valid; NewWorker fills in defaults.
type Config struct {
	// BatchSize bounds how many records the worker drains per scan cycle
	// before yielding back to reap housekeeping and a fresh registry
	// enumeration, so one extremely hot producer cannot starve others.
	BatchSize int
	// ReapInterval is how often the worker calls Registry.Reap.
	ReapInterval time.Duration
	// PinCPU, when > 0, pins the backend's OS thread to that CPU
	// (best-effort, see osutil.PinToCPU). Zero, the default, and negative
	// values disable pinning, so CPU 0 cannot be selected.
	PinCPU int
	// Registerer receives the backend's prometheus metrics; nil disables
	// metrics.
	Registerer prometheus.Registerer
	// FallbackReport receives one-line diagnostics for conditions that
	// must never crash the backend (sink panics, malformed records).
	FallbackReport sink.FallbackReporter
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 256
	}
	if c.ReapInterval <= 0 {
		c.ReapInterval = time.Second
	}
	if c.PinCPU == 0 {
		c.PinCPU = -1
	}
	return c
}

// Worker is the L2 backend: a single goroutine that merges every
// registered producer's ring in timestamp order and dispatches decoded
// records to their addressed logger's sinks (§4.4).
type Worker struct {
	registry *threadctx.Registry
	dir      LoggerDirectory
	cfg      Config
	metrics  *metrics

	state   stateBox
	stopCh  chan struct{}
	doneCh  chan struct{}

	pendingMu sync.Mutex
	pending   map[uuid.UUID]chan struct{}

	// dropped counts records discarded under the Drop queue-full policy,
	// independent of the prometheus metric (which is nil unless a
	// Registerer was supplied), so the run loop can still surface a
	// periodic self-log line per §7's "reported drop counter ... or via a
	// periodic self-log" even with no registerer configured.
	dropped        atomic.Uint64
	lastReportedAt uint64
}

// NewWorker constructs a Worker. Start must be called to begin draining.
func NewWorker(registry *threadctx.Registry, dir LoggerDirectory, cfg Config) *Worker {
	cfg = cfg.withDefaults()
	return &Worker{
		registry: registry,
		dir:      dir,
		cfg:      cfg,
		metrics:  newMetrics(cfg.Registerer),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		pending:  make(map[uuid.UUID]chan struct{}),
	}
}

// Start launches the backend goroutine. Calling Start more than once on
// the same Worker is a caller error; BackendStart's idempotence (§8) is
// enforced one layer up, by the lgr package deciding whether a new Worker
// is needed at all.
func (w *Worker) Start() {
	w.state.store(Idle)
	go w.run()
}

// Stop requests an orderly drain-then-exit and blocks until the worker
// goroutine has exited. Safe to call multiple times.
func (w *Worker) Stop() {
	if w.state.cas(Idle, Draining) {
		close(w.stopCh)
	}
	<-w.doneCh
}

// State reports the worker's current lifecycle state.
func (w *Worker) State() State { return w.state.load() }

// RecordDrop bumps the dropped-records counter. Called by a producer under
// the Drop queue-full policy (§4.1) when its own PrepareWrite fails — the
// producer never touches backend internals directly, so this is the one
// deliberately exported write path into the worker's metrics.
func (w *Worker) RecordDrop() {
	w.dropped.Add(1)
	if w.metrics != nil {
		w.metrics.dropped.Inc()
	}
}

// reportDrops emits a self-log line through FallbackReport when drops have
// occurred since the last report, so a drop count is observable on every
// reap tick even with no prometheus Registerer configured.
func (w *Worker) reportDrops() {
	total := w.dropped.Load()
	if total == w.lastReportedAt {
		return
	}
	w.lastReportedAt = total
	w.report("backend: " + strconv.FormatUint(total, 10) + " records dropped under Drop queue-full policy so far")
}

// AwaitFlush registers a wait channel for correlation id and returns it;
// the channel is closed once the backend processes the matching
// KindFlushAck record. Callers (the lgr package's Flush implementation)
// must call this before enqueuing the flush-ack command record, to avoid
// a race where the backend processes the ack before the wait is
// registered.
func (w *Worker) AwaitFlush(id uuid.UUID) <-chan struct{} {
	ch := make(chan struct{})
	w.pendingMu.Lock()
	w.pending[id] = ch
	w.pendingMu.Unlock()
	return ch
}

func (w *Worker) resolveFlush(id uuid.UUID) {
	w.pendingMu.Lock()
	ch, ok := w.pending[id]
	if ok {
		delete(w.pending, id)
	}
	w.pendingMu.Unlock()
	if ok {
		close(ch)
	}
}

func (w *Worker) report(line string) {
	if w.cfg.FallbackReport != nil {
		w.cfg.FallbackReport(line)
	}
}

func (w *Worker) run() {
	defer close(w.doneCh)
	if w.cfg.PinCPU >= 0 {
		runtime.LockOSThread()
		_ = osutil.PinToCPU(w.cfg.PinCPU)
	}

	back := newBackoff()
	lastReap := time.Now()
	var q mergeQueue

	for {
		ctxs := w.registry.Enumerate()
		w.recordOccupancy(ctxs)
		failures := fillQueue(&q, ctxs)
		for _, f := range failures {
			w.handleMalformed(f.ctx, f.err)
		}

		processed := w.drainBatch(&q)
		if processed > 0 {
			back.reset()
		}

		if time.Since(lastReap) >= w.cfg.ReapInterval {
			w.registry.Reap()
			w.reportDrops()
			lastReap = time.Now()
		}

		if w.state.load() == Draining && processed == 0 && q.Len() == 0 && allDrained(ctxs) {
			w.state.store(Stopping)
			return
		}

		select {
		case <-w.stopCh:
			if w.state.load() == Idle {
				w.state.store(Draining)
			}
		default:
		}

		if processed == 0 {
			back.wait()
		}
	}
}

func (w *Worker) recordOccupancy(ctxs []*threadctx.Context) {
	if w.metrics == nil {
		return
	}
	for _, c := range ctxs {
		label := strconv.FormatUint(c.ThreadID(), 10)
		w.metrics.occupancy.WithLabelValues(label).Set(float64(c.Ring().Occupancy()))
	}
}

func allDrained(ctxs []*threadctx.Context) bool {
	for _, c := range ctxs {
		if !c.Ring().IsEmpty() {
			return false
		}
	}
	return true
}

// drainBatch pops up to cfg.BatchSize items from the merge heap, commits
// each consumed context's read, re-peeks that context for more data, and
// dispatches every KindLog/KindFlushAck/KindShutdown record appropriately.
// It returns how many records were processed.
func (w *Worker) drainBatch(q *mergeQueue) int {
	processed := 0
	for processed < w.cfg.BatchSize && q.Len() > 0 {
		item := heap.Pop(q).(pqItem)
		w.dispatch(item)
		item.ctx.Ring().CommitRead(uint64(len(item.raw)))
		processed++

		next, err := peekContext(item.ctx)
		if err != nil {
			w.handleMalformed(item.ctx, err)
		} else if next != nil {
			heap.Push(q, *next)
		}
	}
	return processed
}

func (w *Worker) dispatch(item pqItem) {
	switch item.header.Kind {
	case record.KindLog:
		w.dispatchLog(item)
	case record.KindFlushAck:
		w.dispatchFlushAck(item)
	case record.KindShutdown:
		// A per-thread shutdown marker has no backend-side effect beyond
		// being consumed; the registry's own staleness/Release handling
		// (internal/threadctx) is what actually retires the context.
	}
	if w.metrics != nil {
		w.metrics.processed.Inc()
	}
}

func (w *Worker) dispatchLog(item pqItem) {
	ev, err := record.Decode(item.raw)
	if err != nil {
		w.handleMalformed(item.ctx, err)
		return
	}
	slots, name, ok := w.dir.Resolve(ev.Header.LoggerID)
	if !ok {
		w.report("backend: record for unknown logger id, dropped")
		return
	}
	var fieldNames []string
	if len(ev.Names) > 0 {
		fieldNames = make([]string, len(ev.Names))
		for i, h := range ev.Names {
			fieldNames[i] = w.dir.FieldName(h)
		}
	}
	meta := sink.Metadata{
		Timestamp:  time.Unix(0, ev.Header.Timestamp),
		Level:      ev.Header.Level.Norm(),
		LoggerName: name,
		ThreadID:   item.ctx.ThreadID(),
		ThreadName: item.ctx.Name(),
		SourceLine: ev.Header.SourceLine,
		SourceFile: w.dir.FileName(ev.Header.SourceFile),
		FieldNames: fieldNames,
	}
	sink.DispatchEvent(slots, w.report, ev, meta)
}

func (w *Worker) dispatchFlushAck(item pqItem) {
	h, id, err := record.DecodeCommand(item.raw)
	if err != nil {
		w.handleMalformed(item.ctx, err)
		return
	}
	if slots, _, ok := w.dir.Resolve(h.LoggerID); ok {
		if err := sink.FlushAll(slots); err != nil {
			w.report("backend: flush error: " + err.Error())
		}
	}
	w.resolveFlush(id)
}

// handleMalformed implements §4.4's edge case for a corrupted/oversized
// header: the offending context's ring is skipped up to its current write
// head (discarding everything currently visible, since a torn length
// field makes it unsafe to resynchronize mid-stream) and a synthetic
// error-level diagnostic is reported.
func (w *Worker) handleMalformed(ctx *threadctx.Context, cause error) {
	r := ctx.Ring()
	r.CommitRead(r.Occupancy())
	if w.metrics != nil {
		w.metrics.skipped.Inc()
	}
	w.report("backend: skipped malformed record: " + cause.Error())
}
