package lgr

/*
fields.go

Named structured fields a producer can attach to a log call beyond the
mandatory rendered message (argument 0, per record package doc). A field
name is interned into a uint32 handle the same way source file paths are
(sourceloc.go), keeping the wire payload free of repeated strings for
field names that recur on every call at a given site.
*/

import (
	"sync"

	"github.com/abyssdigger/flarelog/internal/record"
)

// Arg is a single typed log argument. Use the constructors below.
type Arg = record.Arg

// Field pairs a name with an already-constructed Arg.
type Field struct {
	name string
	arg  Arg
}

// Int64 builds a Field holding an int64.
func Int64(name string, v int64) Field { return Field{name, record.Int64Arg(v)} }

// Uint64 builds a Field holding a uint64.
func Uint64(name string, v uint64) Field { return Field{name, record.Uint64Arg(v)} }

// Float64 builds a Field holding a float64.
func Float64(name string, v float64) Field { return Field{name, record.Float64Arg(v)} }

// Bool builds a Field holding a bool.
func Bool(name string, v bool) Field { return Field{name, record.BoolArg(v)} }

// String builds a Field holding a string.
func String(name string, v string) Field { return Field{name, record.StringArg(v)} }

// Formatter builds a Field carrying an opaque formatter handle, for
// producer-side types too expensive to render inline (§9's "stable function
// handle" resolution, see DESIGN.md's internal/record entry). Nothing in this
// module resolves the handle: JSONSink renders it as "<formatter#N>".
func Formatter(name string, handle uint32) Field { return Field{name, record.FormatterArg(handle)} }

var fieldNames = struct {
	mu      sync.Mutex
	byName  map[string]uint32
	byIndex []string
}{
	byName: make(map[string]uint32),
}

func internFieldName(name string) uint32 {
	fieldNames.mu.Lock()
	defer fieldNames.mu.Unlock()
	if h, ok := fieldNames.byName[name]; ok {
		return h
	}
	fieldNames.byIndex = append(fieldNames.byIndex, name)
	h := uint32(len(fieldNames.byIndex))
	fieldNames.byName[name] = h
	return h
}

// nameForHandle resolves a field-name handle back to the string it was
// interned from, implementing loggerDirectory.FieldName.
func nameForHandle(handle uint32) string {
	fieldNames.mu.Lock()
	defer fieldNames.mu.Unlock()
	if handle == 0 || int(handle) > len(fieldNames.byIndex) {
		return ""
	}
	return fieldNames.byIndex[handle-1]
}
