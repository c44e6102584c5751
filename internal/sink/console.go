package sink

import (
	"bytes"
	"io"
	"strconv"
	"sync"

	"github.com/abyssdigger/flarelog/internal/record"
)

const (
	ansiPrefix = "\033["
	ansiSuffix = "m"
	ansiReset  = ansiPrefix + "0" + ansiSuffix
)

// levelColors are the ANSI SGR fragments used when ConsoleSink.Color is
// set, one entry per record.Level, carried forward verbatim from the
// teacher's LevelColorOnBlackMap.
var levelColors = [...]string{
	"9;90",     // LevelUnknown
	"2;90",     // LevelTrace
	"0;90",     // LevelDebug
	"0;97",     // LevelInfo
	"0;33",     // LevelWarn
	"0;91",     // LevelError
	"101;1;33", // LevelFatal
	"107;1;31", // LevelUnmaskable
}

// ConsoleSink writes one human-readable line per event, formatted the way
// the teacher's buildTextMessage assembles a text line: optional
// timestamp, optional numeric level code, a level prefix, optional ANSI
// color, the thread name (when set), the logger name, then the message.
type ConsoleSink struct {
	w          io.Writer
	mu         sync.Mutex
	buf        bytes.Buffer
	threshold  record.Level
	TimeFormat string // time.Format layout; empty disables the timestamp field
	ShowLevel  bool   // include a bracketed numeric level code
	Color      bool   // wrap the level prefix in ANSI color codes
	Delimiter  string
}

// NewConsoleSink returns a ConsoleSink writing to w with sensible text
// defaults (RFC3339 timestamps, colorized level prefixes, ": " delimiter).
func NewConsoleSink(w io.Writer, threshold record.Level) *ConsoleSink {
	return &ConsoleSink{
		w:          w,
		threshold:  threshold,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		ShowLevel:  true,
		Color:      true,
		Delimiter:  ": ",
	}
}

func (c *ConsoleSink) Threshold() record.Level { return c.threshold }

func (c *ConsoleSink) Write(ev record.LogEvent, meta Metadata) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.buf.Reset()
	level := meta.Level.Norm()

	if c.TimeFormat != "" {
		c.buf.WriteString(meta.Timestamp.Format(c.TimeFormat))
		c.buf.WriteString(c.Delimiter)
	}
	if c.ShowLevel {
		c.buf.WriteByte('[')
		c.buf.WriteString(strconv.Itoa(int(level)))
		c.buf.WriteByte(']')
		c.buf.WriteString(c.Delimiter)
	}

	withColor := c.Color
	if withColor {
		c.buf.WriteString(ansiPrefix)
		c.buf.WriteString(levelColors[level])
		c.buf.WriteString(ansiSuffix)
	}
	c.buf.WriteString(level.ShortString())
	if withColor {
		c.buf.WriteString(ansiReset)
	}
	c.buf.WriteString(c.Delimiter)

	if meta.ThreadName != "" {
		c.buf.WriteString(meta.ThreadName)
		c.buf.WriteString(c.Delimiter)
	}
	c.buf.WriteString(meta.LoggerName)
	c.buf.WriteString(c.Delimiter)

	c.buf.WriteString(messageText(ev))
	c.buf.WriteByte('\n')

	_, err := c.buf.WriteTo(c.w)
	return err
}

func (c *ConsoleSink) Flush() error {
	if f, ok := c.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	if f, ok := c.w.(interface{ Sync() error }); ok {
		return f.Sync()
	}
	return nil
}

// messageText returns the pre-rendered message string every LogEvent
// carries as argument 0 (see record package doc / DESIGN.md's
// internal/sink entry); a record with no arguments formats as empty.
func messageText(ev record.LogEvent) string {
	if len(ev.Args) == 0 {
		return ""
	}
	if ev.Args[0].Tag == record.TagString {
		return ev.Args[0].Str
	}
	return ""
}
