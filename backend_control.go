package lgr

/*
backend_control.go

The process-wide backend lifecycle: BackendStart/BackendStop (§8, both
idempotent — quill's LogManager::start_backend_worker is the model for
"calling start twice leaves one worker running", see SPEC_FULL.md's
supplemented-features section) and the flush-ack handshake Logger.Flush
drives through backend.Worker.AwaitFlush.
*/

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/abyssdigger/flarelog/internal/backend"
	"github.com/abyssdigger/flarelog/internal/record"
	"github.com/abyssdigger/flarelog/internal/threadctx"
)

var backendState = struct {
	mu     sync.Mutex
	worker *backend.Worker
}{}

var threadRegistryOnce sync.Once
var threadRegistryInstance *threadctx.Registry
var ringCapacityOverride atomic.Uint64

// getThreadRegistry returns the process-wide producer registry, creating
// it on first use with whatever ring capacity BackendStart was given (or
// DefaultRingCapacity if BackendStart was never called, or was called
// after the first producer already logged).
func getThreadRegistry() *threadctx.Registry {
	threadRegistryOnce.Do(func() {
		cap := ringCapacityOverride.Load()
		if cap == 0 {
			cap = DefaultRingCapacity
		}
		threadRegistryInstance = threadctx.NewRegistry(cap)
	})
	return threadRegistryInstance
}

// BackendStart launches the single backend worker that drains every
// producer's ring. Idempotent: a second call while one is already running
// is a no-op and returns nil (§8).
func BackendStart(cfg BackendConfig) error {
	backendState.mu.Lock()
	defer backendState.mu.Unlock()
	if backendState.worker != nil {
		return nil
	}

	if cfg.RingCapacity != 0 {
		ringCapacityOverride.Store(cfg.RingCapacity)
	}
	report := cfg.FallbackReport
	if report == nil {
		report = func(line string) { os.Stderr.WriteString(line + "\n") }
	}

	w := backend.NewWorker(getThreadRegistry(), loggerDirectory{}, backend.Config{
		BatchSize:      cfg.BatchSize,
		ReapInterval:   cfg.ReapInterval,
		PinCPU:         cfg.PinCPU,
		Registerer:     cfg.Metrics,
		FallbackReport: report,
	})
	w.Start()
	backendState.worker = w
	return nil
}

// BackendStop requests an orderly drain-then-exit of the backend worker
// and blocks until it has exited. Idempotent: calling it with no worker
// running is a no-op.
func BackendStop() {
	backendState.mu.Lock()
	w := backendState.worker
	backendState.worker = nil
	backendState.mu.Unlock()
	if w != nil {
		w.Stop()
	}
}

func currentWorker() *backend.Worker {
	backendState.mu.Lock()
	defer backendState.mu.Unlock()
	return backendState.worker
}

func recordDrop() {
	if w := currentWorker(); w != nil {
		w.RecordDrop()
	}
}

// flushLogger implements Logger.Flush: register a wait, publish a
// KindFlushAck command record addressed at loggerID into the calling
// goroutine's own ring (so it is ordered after every record that goroutine
// already enqueued for that logger), then block for the backend to reach
// it and flush every sink.
func flushLogger(loggerID uint64) error {
	w := currentWorker()
	if w == nil {
		return ErrBackendNotRunning
	}

	ctx, err := getThreadRegistry().Local()
	if err != nil {
		return err
	}

	id := uuid.New()
	done := w.AwaitFlush(id)
	buf := record.EncodeCommand(record.KindFlushAck, id, loggerID)

	// A momentarily-full ring must not fail the flush barrier: spin/yield
	// like the Block queue-full policy until the command fits, regardless
	// of this logger's own QueueFullPolicy.
	if err := blockingWrite(ctx.Ring(), buf); err != nil {
		return err
	}

	<-done
	return nil
}
