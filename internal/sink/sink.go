// Package sink implements the write targets a backend worker dispatches
// decoded log events to (§6 "Sink interface"), plus the panic-safe
// dispatch helper the backend uses to drive a logger's configured sink
// set without one bad sink taking the backend thread down.
package sink

import (
	"time"

	"github.com/abyssdigger/flarelog/internal/record"
)

// Metadata carries everything about a log event that is not itself an
// argument: time, level, and the producer's identity, exactly the set
// §6 names.
type Metadata struct {
	Timestamp  time.Time
	Level      record.Level
	LoggerName string
	ThreadID   uint64
	ThreadName string
	SourceFile string
	SourceLine uint32
	// FieldNames holds the resolved names for ev.Args[1:], parallel to
	// ev.Names, already looked up by the backend (via LoggerDirectory.
	// FieldName) so sinks never need a resolver of their own — the same
	// reason SourceFile above arrives pre-resolved instead of as a raw
	// record.Header.SourceFile handle.
	FieldNames []string
}

// Sink is the capability set every write target implements. Each sink
// formats the decoded event however suits its medium (ANSI text, JSON
// lines, ...); the backend never pre-formats on a sink's behalf.
type Sink interface {
	Write(ev record.LogEvent, meta Metadata) error
	Flush() error
	Threshold() record.Level
}
