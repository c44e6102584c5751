package lgr

/*
client.go

Producer-facing methods on *Logger: Log and the per-level convenience
wrappers, ported from the teacher's LogClient.Log/LogTrace/LogDebug/...
family onto Logger directly, since every producer goroutine already gets
its own private ring via threadctx.Registry.Local() — there is no separate
lightweight "client handle" layer to construct here.

All of these helpers behave like the teacher's LogBytes: on the common
Block-policy path the call spins until there is room, and the only enqueue
error it returns is ringbuf.ErrTooLarge for a record bigger than the whole
ring; only the Drop policy can produce a visible ErrQueueFull. Reserve Log_with_err-equivalent handling to callers that pass
QueueFullPolicy Drop and check the returned error.
*/

import (
	"errors"
	"runtime"
	"time"

	"github.com/abyssdigger/flarelog/internal/record"
	"github.com/abyssdigger/flarelog/internal/ringbuf"
)

// clockBase anchors record timestamps: Log adds the monotonic time elapsed
// since clockBase to clockBase's wall-clock reading, so timestamps never
// go backwards when the wall clock is stepped.
var clockBase = time.Now()

// Log encodes msg and fields as a KindLog record addressed to this logger
// and publishes it into the calling goroutine's ring. loc should normally
// come from NewSourceLoc at the call site. A call whose level is below the
// logger's current MinLevel is a no-op.
func (l *Logger) Log(level Level, loc SourceLoc, msg string, fields ...Field) error {
	level = level.Norm()
	if level < l.MinLevel() {
		return nil
	}

	args := make([]record.Arg, 0, len(fields)+1)
	args = append(args, record.StringArg(msg))
	var names []uint32
	if len(fields) > 0 {
		names = make([]uint32, len(fields))
		for i, f := range fields {
			args = append(args, f.arg)
			names[i] = internFieldName(f.name)
		}
	}

	h := record.Header{
		Level:      level,
		Timestamp:  clockBase.UnixNano() + int64(time.Since(clockBase)),
		LoggerID:   l.id,
		SourceLine: loc.line,
		SourceFile: loc.file,
	}
	buf := record.Encode(h, args, names)

	ctx, err := getThreadRegistry().Local()
	if err != nil {
		return err
	}
	return l.publish(ctx.Ring(), buf)
}

// publish writes buf into ring, honoring the logger's QueueFullPolicy.
func (l *Logger) publish(ring *ringbuf.Ring, buf []byte) error {
	n := uint64(len(buf))
	if l.QueueFullPolicyOf() == Drop {
		dst, err := ring.PrepareWrite(n)
		if err != nil {
			if errors.Is(err, ringbuf.ErrFull) {
				recordDrop()
				return ErrQueueFull
			}
			return err
		}
		copy(dst, buf)
		ring.CommitWrite(n)
		return nil
	}

	return blockingWrite(ring, buf)
}

// blockingWrite spins, then yields, until ring has room for buf and the
// write is committed. Used by the Block queue-full policy and by
// flushLogger, both of which must never give up on a momentarily-full ring.
func blockingWrite(ring *ringbuf.Ring, buf []byte) error {
	n := uint64(len(buf))
	spins := 0
	for {
		dst, err := ring.PrepareWrite(n)
		if err == nil {
			copy(dst, buf)
			ring.CommitWrite(n)
			return nil
		}
		if !errors.Is(err, ringbuf.ErrFull) {
			return err
		}
		spins++
		if spins < 64 {
			continue
		}
		runtime.Gosched()
	}
}

// LogTrace logs s at LevelTrace.
func (l *Logger) LogTrace(loc SourceLoc, s string, fields ...Field) error {
	return l.Log(LevelTrace, loc, s, fields...)
}

// LogDebug logs s at LevelDebug.
func (l *Logger) LogDebug(loc SourceLoc, s string, fields ...Field) error {
	return l.Log(LevelDebug, loc, s, fields...)
}

// LogInfo logs s at LevelInfo.
func (l *Logger) LogInfo(loc SourceLoc, s string, fields ...Field) error {
	return l.Log(LevelInfo, loc, s, fields...)
}

// LogWarn logs s at LevelWarn.
func (l *Logger) LogWarn(loc SourceLoc, s string, fields ...Field) error {
	return l.Log(LevelWarn, loc, s, fields...)
}

// LogError logs s at LevelError.
func (l *Logger) LogError(loc SourceLoc, s string, fields ...Field) error {
	return l.Log(LevelError, loc, s, fields...)
}

// LogErr logs e.Error() at LevelError. A nil e is a no-op.
func (l *Logger) LogErr(loc SourceLoc, e error, fields ...Field) error {
	if e == nil {
		return nil
	}
	return l.Log(LevelError, loc, e.Error(), fields...)
}

// Flush implements the §4.5 barrier: it blocks until every record the
// calling goroutine has enqueued on this logger so far has been dispatched
// to sinks and the sinks flushed. Records other goroutines enqueued are not
// waited for.
// Returns ErrBackendNotRunning if BackendStart has not been called.
func (l *Logger) Flush() error {
	return flushLogger(l.id)
}
