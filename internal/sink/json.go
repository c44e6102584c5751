package sink

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sugawarayuuta/sonnet"

	"github.com/abyssdigger/flarelog/internal/record"
)

// JSONRecord is the line-delimited JSON shape JSONSink emits, field names
// matching quill's JsonFileLoggingTest.cpp fixture (timestamp, logger,
// level, message) plus the structured fields every argument past index 0
// carries (see record package doc for the "argument 0 is the rendered
// message" convention).
type JSONRecord struct {
	Timestamp time.Time      `json:"timestamp"`
	Logger    string         `json:"logger"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Thread    string         `json:"thread,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// JSONSink writes one JSONRecord per line via sonnet, a drop-in encoding/json
// replacement already used elsewhere in the dependency pack for hot-path
// JSON (sonnet.Marshal/Unmarshal mirror the stdlib API).
type JSONSink struct {
	mu        sync.Mutex
	w         io.Writer
	threshold record.Level
}

// NewJSONSink returns a JSONSink writing newline-delimited JSON to w.
func NewJSONSink(w io.Writer, threshold record.Level) *JSONSink {
	return &JSONSink{w: w, threshold: threshold}
}

func (j *JSONSink) Threshold() record.Level { return j.threshold }

func (j *JSONSink) Write(ev record.LogEvent, meta Metadata) error {
	rec := JSONRecord{
		Timestamp: meta.Timestamp,
		Logger:    meta.LoggerName,
		Level:     meta.Level.Norm().String(),
		Message:   messageText(ev),
		Thread:    meta.ThreadName,
	}
	if len(ev.Args) > 1 {
		rec.Fields = make(map[string]any, len(ev.Args)-1)
		for i, a := range ev.Args[1:] {
			rec.Fields[fieldName(meta, i)] = argValue(a)
		}
	}

	b, err := sonnet.Marshal(rec)
	if err != nil {
		return fmt.Errorf("sink: marshal json record: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.w.Write(b); err != nil {
		return err
	}
	_, err = j.w.Write([]byte{'\n'})
	return err
}

func (j *JSONSink) Flush() error {
	if f, ok := j.w.(interface{ Sync() error }); ok {
		return f.Sync()
	}
	return nil
}

// fieldName returns the structured field name for structural argument i
// (args[1:][i]), using the backend-resolved name when the producer
// supplied one, falling back to a positional placeholder otherwise.
func fieldName(meta Metadata, i int) string {
	if i < len(meta.FieldNames) && meta.FieldNames[i] != "" {
		return meta.FieldNames[i]
	}
	return fmt.Sprintf("arg%d", i+1)
}

func argValue(a record.Arg) any {
	switch a.Tag {
	case record.TagInt64:
		return a.Int
	case record.TagUint64:
		return a.Uint
	case record.TagFloat64:
		return a.Float
	case record.TagBool:
		return a.Bool
	case record.TagString:
		return a.Str
	case record.TagFormatterHandle:
		return fmt.Sprintf("<formatter#%d>", a.Handle)
	default:
		return nil
	}
}
