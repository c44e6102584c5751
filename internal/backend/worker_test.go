package backend

import (
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abyssdigger/flarelog/internal/record"
	"github.com/abyssdigger/flarelog/internal/sink"
	"github.com/abyssdigger/flarelog/internal/threadctx"
)

type fakeSink struct {
	mu    sync.Mutex
	lines []string
	flush int
}

func (f *fakeSink) Threshold() record.Level { return record.LevelTrace }
func (f *fakeSink) Write(ev record.LogEvent, meta sink.Metadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(ev.Args) > 0 && ev.Args[0].Tag == record.TagString {
		f.lines = append(f.lines, ev.Args[0].Str)
	}
	return nil
}
func (f *fakeSink) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flush++
	return nil
}
func (f *fakeSink) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.lines))
	copy(out, f.lines)
	return out
}

type fakeDirectory struct {
	slots []*sink.Slot
	name  string
}

func (d *fakeDirectory) Resolve(loggerID uint64) ([]*sink.Slot, string, bool) {
	if loggerID != 1 {
		return nil, "", false
	}
	return d.slots, d.name, true
}

func (d *fakeDirectory) FileName(handle uint32) string  { return "" }
func (d *fakeDirectory) FieldName(handle uint32) string { return "" }

func testRegistry(t *testing.T) *threadctx.Registry {
	t.Helper()
	page := uint64(os.Getpagesize())
	p := uint64(1)
	for p < page {
		p <<= 1
	}
	return threadctx.NewRegistry(p)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for condition")
}

func TestWorker_DispatchesLogRecordToResolvedSink(t *testing.T) {
	reg := testRegistry(t)
	fs := &fakeSink{}
	dir := &fakeDirectory{slots: []*sink.Slot{sink.NewSlot(fs)}, name: "app"}

	w := NewWorker(reg, dir, Config{})
	w.Start()
	defer w.Stop()

	ctx, err := reg.Local()
	require.NoError(t, err)

	buf := record.Encode(record.Header{Level: record.LevelInfo, LoggerID: 1}, []record.Arg{record.StringArg("hello")}, nil)
	writeRaw(t, ctx, buf)

	waitFor(t, func() bool { return len(fs.snapshot()) == 1 })
	assert.Equal(t, []string{"hello"}, fs.snapshot())
}

func TestWorker_SkipsMalformedRecordAndContinues(t *testing.T) {
	reg := testRegistry(t)
	fs := &fakeSink{}
	dir := &fakeDirectory{slots: []*sink.Slot{sink.NewSlot(fs)}, name: "app"}

	var reports []string
	var mu sync.Mutex
	w := NewWorker(reg, dir, Config{FallbackReport: func(s string) {
		mu.Lock()
		reports = append(reports, s)
		mu.Unlock()
	}})
	w.Start()
	defer w.Stop()

	ctx, err := reg.Local()
	require.NoError(t, err)

	bad := record.Encode(record.Header{Level: record.LevelInfo, LoggerID: 1}, []record.Arg{record.StringArg("x")}, nil)
	bad[record.HeaderSize] ^= 0xFF // corrupt payload without fixing CRC
	good := record.Encode(record.Header{Level: record.LevelInfo, LoggerID: 1}, []record.Arg{record.StringArg("ok")}, nil)
	// written as one contiguous commit so the worker can never observe
	// "good" alone before "bad" triggers a whole-ring skip.
	writeRaw(t, ctx, append(bad, good...))

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(reports) >= 1
	})
	// the corrupted record wiped the whole ring (per §4.4's edge case), so
	// "ok" never reaches the sink — only the diagnostic is observed.
	assert.Empty(t, fs.snapshot())
}

func TestWorker_FlushAckResolvesWaiter(t *testing.T) {
	reg := testRegistry(t)
	fs := &fakeSink{}
	dir := &fakeDirectory{slots: []*sink.Slot{sink.NewSlot(fs)}, name: "app"}

	w := NewWorker(reg, dir, Config{})
	w.Start()
	defer w.Stop()

	ctx, err := reg.Local()
	require.NoError(t, err)

	id := uuid.New()
	done := w.AwaitFlush(id)
	ack := record.EncodeCommand(record.KindFlushAck, id, 1)
	writeRaw(t, ctx, ack)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("flush ack never resolved")
	}
	assert.Equal(t, 1, fs.flush)
}

func TestWorker_StopDrainsBeforeExiting(t *testing.T) {
	reg := testRegistry(t)
	fs := &fakeSink{}
	dir := &fakeDirectory{slots: []*sink.Slot{sink.NewSlot(fs)}, name: "app"}

	w := NewWorker(reg, dir, Config{})
	w.Start()

	ctx, err := reg.Local()
	require.NoError(t, err)
	buf := record.Encode(record.Header{Level: record.LevelInfo, LoggerID: 1}, []record.Arg{record.StringArg("last")}, nil)
	writeRaw(t, ctx, buf)

	w.Stop()
	assert.Equal(t, Stopping, w.State())
	assert.Equal(t, []string{"last"}, fs.snapshot())
}

func TestWorker_ReportsDropsOnReapTick(t *testing.T) {
	reg := testRegistry(t)
	fs := &fakeSink{}
	dir := &fakeDirectory{slots: []*sink.Slot{sink.NewSlot(fs)}, name: "app"}

	var reports []string
	var mu sync.Mutex
	w := NewWorker(reg, dir, Config{
		ReapInterval: time.Millisecond,
		FallbackReport: func(s string) {
			mu.Lock()
			reports = append(reports, s)
			mu.Unlock()
		},
	})
	w.Start()
	defer w.Stop()

	w.RecordDrop()
	w.RecordDrop()

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, r := range reports {
			if strings.Contains(r, "2 records dropped") {
				return true
			}
		}
		return false
	})
}

// TestWorker_ManyRecordsAcrossBatchesDeliverExactlyOnce guards against the
// merge heap re-peeking a context whose head record survived a batch
// boundary (drainBatch stops at cfg.BatchSize with more data still
// pending): fillQueue must not push a second copy of that already-queued
// head, or drainBatch would dispatch and CommitRead it twice, corrupting
// Occupancy.
func TestWorker_ManyRecordsAcrossBatchesDeliverExactlyOnce(t *testing.T) {
	reg := testRegistry(t)
	fs := &fakeSink{}
	dir := &fakeDirectory{slots: []*sink.Slot{sink.NewSlot(fs)}, name: "app"}

	w := NewWorker(reg, dir, Config{BatchSize: 4})
	w.Start()
	defer w.Stop()

	ctx, err := reg.Local()
	require.NoError(t, err)

	const n = 50
	for i := 0; i < n; i++ {
		buf := record.Encode(record.Header{Level: record.LevelInfo, LoggerID: 1}, []record.Arg{record.StringArg("m")}, nil)
		writeRaw(t, ctx, buf)
	}

	waitFor(t, func() bool { return len(fs.snapshot()) == n })
	time.Sleep(20 * time.Millisecond) // give any duplicate dispatch a chance to land
	assert.Len(t, fs.snapshot(), n)
	assert.True(t, ctx.Ring().IsEmpty())
}

func writeRaw(t *testing.T, ctx *threadctx.Context, buf []byte) {
	t.Helper()
	dst, err := ctx.Ring().PrepareWrite(uint64(len(buf)))
	require.NoError(t, err)
	copy(dst, buf)
	ctx.Ring().CommitWrite(uint64(len(buf)))
}
