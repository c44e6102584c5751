package sink

import (
	"bufio"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/abyssdigger/flarelog/internal/record"
)

// FileSink writes length-bounded text lines to a rotating file, the same
// size-triggered rotation shape agilira-lethe's Logger/MPSCConsumer use
// (bytesWritten counter compared against a threshold, triggerRotation
// swaps the underlying *os.File).
type FileSink struct {
	mu   sync.Mutex
	path string
	cur  *os.File
	w    *bufio.Writer

	threshold   record.Level
	maxBytes    int64
	written     atomic.Int64
	generation  int
	rotateFn    func(path string, generation int) string
	TimeFormat  string
}

// NewFileSink opens path for appending and returns a FileSink that
// rotates to "<path>.N" once maxBytes have been written, or never
// rotates when maxBytes <= 0.
func NewFileSink(path string, threshold record.Level, maxBytes int64) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("sink: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	fs := &FileSink{
		path:       path,
		cur:        f,
		w:          bufio.NewWriter(f),
		threshold:  threshold,
		maxBytes:   maxBytes,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	fs.written.Store(info.Size())
	fs.rotateFn = defaultRotatePath
	return fs, nil
}

func defaultRotatePath(path string, generation int) string {
	return fmt.Sprintf("%s.%d", path, generation)
}

func (fs *FileSink) Threshold() record.Level { return fs.threshold }

func (fs *FileSink) Write(ev record.LogEvent, meta Metadata) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	line := fmt.Sprintf("%s %s %s %s\n",
		meta.Timestamp.Format(fs.TimeFormat), meta.Level.Norm().String(), meta.LoggerName, messageText(ev))

	n, err := fs.w.WriteString(line)
	if err != nil {
		return err
	}
	newSize := fs.written.Add(int64(n))
	if fs.maxBytes > 0 && newSize >= fs.maxBytes {
		return fs.rotate()
	}
	return nil
}

// rotate flushes and closes the current file, renames it aside, and opens
// a fresh one at the original path. Caller must hold fs.mu.
func (fs *FileSink) rotate() error {
	if err := fs.w.Flush(); err != nil {
		return err
	}
	if err := fs.cur.Close(); err != nil {
		return err
	}
	fs.generation++
	if err := os.Rename(fs.path, fs.rotateFn(fs.path, fs.generation)); err != nil {
		return err
	}
	f, err := os.OpenFile(fs.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	fs.cur = f
	fs.w = bufio.NewWriter(f)
	fs.written.Store(0)
	return nil
}

func (fs *FileSink) Flush() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.w.Flush(); err != nil {
		return err
	}
	return fs.cur.Sync()
}

// Close flushes and closes the underlying file.
func (fs *FileSink) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.w.Flush(); err != nil {
		fs.cur.Close()
		return err
	}
	return fs.cur.Close()
}
