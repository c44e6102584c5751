package sink

import (
	"fmt"
	"sync/atomic"

	"github.com/abyssdigger/flarelog/internal/record"
)

// Slot pairs a Sink with the enabled flag the dispatch loop flips off if
// that sink ever panics, the same "disable on panic, never crash the
// backend thread" contract the teacher's logTextToOutputs/logTextData
// pair implements for its output map.
type Slot struct {
	Sink    Sink
	enabled atomic.Bool
}

// NewSlot wraps s in an enabled Slot.
func NewSlot(s Sink) *Slot {
	slot := &Slot{Sink: s}
	slot.enabled.Store(true)
	return slot
}

// Enabled reports whether this slot still accepts writes.
func (s *Slot) Enabled() bool { return s.enabled.Load() }

// FallbackReporter receives a one-line diagnostic when a sink errors or
// panics, mirroring the teacher's fallback-writer escape hatch
// (handleLogWriteError) for backend-side failures that must never be
// silently dropped nor allowed to crash the worker.
type FallbackReporter func(line string)

// DispatchEvent is the entry point the backend calls once per decoded log
// record. It walks slots in order, skipping disabled ones and ones whose
// Threshold is above meta.Level, exactly like the teacher's
// logTextToOutputs walking its outputs map.
func DispatchEvent(slots []*Slot, report FallbackReporter, ev record.LogEvent, meta Metadata) {
	for _, slot := range slots {
		if slot == nil || !slot.Enabled() {
			continue
		}
		if meta.Level < slot.Sink.Threshold() {
			continue
		}
		panicked, err := writeOne(slot.Sink, ev, meta)
		if panicked {
			slot.enabled.Store(false)
		}
		if err != nil && report != nil {
			report(fmt.Sprintf("sink write error: %v", err))
		}
	}
}

func writeOne(s Sink, ev record.LogEvent, meta Metadata) (panicked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			err = fmt.Errorf("panic writing to sink: %v", r)
		}
	}()
	err = s.Write(ev, meta)
	return
}

// FlushAll calls Flush on every enabled slot, not stopping on an error,
// and returns the first error any slot reported. Used by the backend's flush-ack handling
// (§4.5) to satisfy "every sink in the target logger's sink set has had
// Flush() called" before acking.
func FlushAll(slots []*Slot) error {
	var firstErr error
	for _, slot := range slots {
		if slot == nil || !slot.Enabled() {
			continue
		}
		if err := slot.Sink.Flush(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
