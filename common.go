// A lightweight, levelled logging package for Go. Provides asynchronous,
// timestamped log output with per-logger sink sets and pluggable formatting,
// backed by a wait-free producer transport and a dedicated backend worker.
package lgr

/*
common.go

Defines the package-wide types and constants shared by the rest of the
package:
  - Level, a re-export of internal/record's wire level so call sites never
    need to import internal/record themselves
  - QueueFullPolicy, the two documented producer back-pressure behaviors
  - Pattern, a logger's formatting configuration
  - BackendConfig, the knobs passed to BackendStart
  - default sizes and errors used across logger operations
*/

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/abyssdigger/flarelog/internal/record"
)

// Level mirrors internal/record.Level so producers can log without
// importing an internal package.
type Level = record.Level

const (
	LevelUnknown    = record.LevelUnknown
	LevelTrace      = record.LevelTrace
	LevelDebug      = record.LevelDebug
	LevelInfo       = record.LevelInfo
	LevelWarn       = record.LevelWarn
	LevelError      = record.LevelError
	LevelFatal      = record.LevelFatal
	LevelUnmaskable = record.LevelUnmaskable
)

// QueueFullPolicy selects what a producer does when its ring has no room
// for the next record (§4.1). Held per logger: CreateOrGetLogger starts
// every logger on Block, and Logger.SetQueueFullPolicy changes it.
type QueueFullPolicy uint8

const (
	// Block makes the producer spin/park until room frees up. Guarantees
	// delivery at the cost of producer-side latency under sustained
	// overload.
	Block QueueFullPolicy = iota
	// Drop makes the producer discard the record immediately and bump the
	// backend's dropped-records counter. Never blocks the caller; delivery
	// is not guaranteed under sustained overload, by design (§1 Non-goals).
	Drop
)

// Pattern is a logger's formatting configuration: the parts of the (out of
// scope, per spec.md §1) format engine contract that this implementation
// owns directly because every bundled sink.Sink formats independently
// rather than consuming a single pre-rendered line (see DESIGN.md's
// internal/sink entry). CreateOrGetLogger applies a Pattern to any
// *sink.ConsoleSink or *sink.FileSink passed in, so producers get one place
// to configure a logger's look regardless of which concrete sinks back it.
type Pattern struct {
	// TimeFormat is a time.Format layout string; empty keeps each sink's
	// own default.
	TimeFormat string
	// ShowLevelCode additionally prints a bracketed numeric level id, the
	// way ConsoleSink.ShowLevel does.
	ShowLevelCode bool
}

// DefaultPattern is used by CreateOrGetLogger when the caller passes the
// zero Pattern.
var DefaultPattern = Pattern{
	TimeFormat:    time.RFC3339,
	ShowLevelCode: true,
}

// BackendConfig tunes the single backend worker started by BackendStart.
// It is a thin, exported re-statement of backend.Config so callers of this
// package never need to import internal/backend themselves.
type BackendConfig struct {
	// BatchSize bounds records drained per scan cycle. Zero uses the
	// backend's default.
	BatchSize int
	// ReapInterval controls how often stale thread contexts are swept.
	// Zero uses the backend's default.
	ReapInterval time.Duration
	// PinCPU, when > 0, locks the backend goroutine to its OS thread and
	// pins that thread to the CPU (best-effort). Zero, the default, and
	// negative values disable pinning, so CPU 0 cannot be selected.
	PinCPU int
	// Metrics, if non-nil, receives the backend's prometheus metrics.
	Metrics prometheus.Registerer
	// FallbackReport receives one-line diagnostics the backend cannot
	// otherwise surface (sink panics, malformed records, unknown logger
	// ids). Defaults to writing to os.Stderr if nil.
	FallbackReport func(line string)
	// RingCapacity is the byte capacity handed to every producer's ring on
	// first use. Must be a power of two and a multiple of the page size;
	// zero uses DefaultRingCapacity.
	RingCapacity uint64
}

// DefaultRingCapacity is the per-producer ring size used when
// BackendConfig.RingCapacity is zero: large enough to absorb a short
// burst at typical record sizes without forcing a Block-policy producer
// to stall.
const DefaultRingCapacity = 1 << 20 // 1 MiB

var (
	// ErrBackendNotRunning is returned by Logger.Flush when no backend is
	// running. Logger.Log does not check for a backend.
	ErrBackendNotRunning = errors.New("lgr: backend is not running")
	// ErrQueueFull is returned by Logger.Log under the Drop policy when
	// the calling producer's ring has no room.
	ErrQueueFull = errors.New("lgr: producer ring is full")
	// ErrUnknownLogger is returned by RemoveLogger for a nil logger or one
	// that is not currently registered (never created, or already removed).
	ErrUnknownLogger = errors.New("lgr: no such logger")
)

