package lgr

/*
logger.go

Defines Logger, the central handle producers log through, and the
process-wide registry create_or_get_logger manages (§5 "Shared resources":
loggers are created by name through a process-wide registry and shared by
reference; immutable after creation except for threshold and queue-full
policy changes).
*/

import (
	"sync"
	"sync/atomic"

	"github.com/abyssdigger/flarelog/internal/sink"
)

// Logger is a named endpoint with an ordered set of sinks and a formatting
// pattern. Obtain one via CreateOrGetLogger; the zero Logger is not usable.
type Logger struct {
	id      uint64
	name    string
	slots   []*sink.Slot
	pattern Pattern

	level  atomic.Uint32 // record.Level, atomic so the hot Log path never takes a lock to check it
	policy atomic.Uint32 // QueueFullPolicy
}

// ID is the wire LoggerID this logger's records carry; exported mainly for
// diagnostics and tests.
func (l *Logger) ID() uint64 { return l.id }

// Name returns the name this logger was created with.
func (l *Logger) Name() string { return l.name }

// MinLevel returns the logger's current minimum level.
func (l *Logger) MinLevel() Level { return Level(l.level.Load()) }

// SetMinLevel changes the logger's minimum level. Together with
// SetQueueFullPolicy it is one of the two mutations a logger allows after
// creation; safe for concurrent use.
func (l *Logger) SetMinLevel(level Level) {
	l.level.Store(uint32(level.Norm()))
}

// QueueFullPolicyOf returns the logger's current back-pressure policy.
func (l *Logger) QueueFullPolicyOf() QueueFullPolicy {
	return QueueFullPolicy(l.policy.Load())
}

// SetQueueFullPolicy changes what Log does when the calling producer's
// ring has no room. CreateOrGetLogger defaults every logger to Block.
func (l *Logger) SetQueueFullPolicy(p QueueFullPolicy) {
	l.policy.Store(uint32(p))
}

var loggerRegistry = struct {
	mu       sync.RWMutex
	byName   map[string]*Logger
	byID     map[uint64]*Logger
	nextID   atomic.Uint64
}{
	byName: make(map[string]*Logger),
	byID:   make(map[uint64]*Logger),
}

// CreateOrGetLogger returns the shared logger handle for name, creating it
// with the given sinks and pattern on first call; later calls for the same
// name ignore sinks/pattern and return the existing handle (§5's "idempotent;
// returns a shared logger handle").
func CreateOrGetLogger(name string, sinks []sink.Sink, pattern Pattern) *Logger {
	loggerRegistry.mu.Lock()
	defer loggerRegistry.mu.Unlock()

	if l, ok := loggerRegistry.byName[name]; ok {
		return l
	}

	if pattern == (Pattern{}) {
		pattern = DefaultPattern
	}
	applyPattern(sinks, pattern)

	slots := make([]*sink.Slot, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			slots = append(slots, sink.NewSlot(s))
		}
	}

	l := &Logger{id: loggerRegistry.nextID.Add(1), name: name, slots: slots, pattern: pattern}
	l.level.Store(uint32(LevelTrace))
	l.policy.Store(uint32(Block))

	loggerRegistry.byName[name] = l
	loggerRegistry.byID[l.id] = l
	return l
}

// RemoveLogger retires a logger: further calls to CreateOrGetLogger with
// its name allocate a fresh handle, and the backend reports (rather than
// delivers) any record already in flight that still names this logger's
// id, since nothing tracks in-flight references across rings once the
// handle is gone (a deliberate simplification of invariant (3) in §3,
// acceptable because the backend treats an unresolved logger id as a
// reported-and-dropped record rather than a crash).
func RemoveLogger(l *Logger) error {
	if l == nil {
		return ErrUnknownLogger
	}
	loggerRegistry.mu.Lock()
	defer loggerRegistry.mu.Unlock()
	if _, ok := loggerRegistry.byID[l.id]; !ok {
		return ErrUnknownLogger
	}
	delete(loggerRegistry.byName, l.name)
	delete(loggerRegistry.byID, l.id)
	return nil
}

// applyPattern pushes a logger's formatting pattern into any bundled sink
// that owns its own time/level-code formatting (ConsoleSink, FileSink),
// since this implementation has each sink render independently rather than
// sharing one upstream formatter (see DESIGN.md's internal/sink entry).
func applyPattern(sinks []sink.Sink, pattern Pattern) {
	for _, s := range sinks {
		switch v := s.(type) {
		case *sink.ConsoleSink:
			if pattern.TimeFormat != "" {
				v.TimeFormat = pattern.TimeFormat
			}
			v.ShowLevel = pattern.ShowLevelCode
		case *sink.FileSink:
			if pattern.TimeFormat != "" {
				v.TimeFormat = pattern.TimeFormat
			}
		}
	}
}

// loggerDirectory is the backend.LoggerDirectory implementation backed by
// the package-wide logger registry and the source/field interning tables.
type loggerDirectory struct{}

func (loggerDirectory) Resolve(loggerID uint64) ([]*sink.Slot, string, bool) {
	loggerRegistry.mu.RLock()
	defer loggerRegistry.mu.RUnlock()
	l, ok := loggerRegistry.byID[loggerID]
	if !ok {
		return nil, "", false
	}
	return l.slots, l.name, true
}

func (loggerDirectory) FileName(handle uint32) string { return fileForHandle(handle) }

func (loggerDirectory) FieldName(handle uint32) string { return nameForHandle(handle) }
