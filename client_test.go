package lgr

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abyssdigger/flarelog/internal/sink"
)

func startTestBackend(t *testing.T) {
	t.Helper()
	require.NoError(t, BackendStart(BackendConfig{}))
	t.Cleanup(BackendStop)
}

func TestLog_DeliversMessageToSinkAfterFlush(t *testing.T) {
	startTestBackend(t)

	var buf bytes.Buffer
	l := CreateOrGetLogger("client-log-flush", []sink.Sink{sink.NewConsoleSink(&buf, LevelTrace)}, Pattern{})

	require.NoError(t, l.LogInfo(NewSourceLoc("client_test.go", 1), "hello world"))
	require.NoError(t, l.Flush())

	assert.Contains(t, buf.String(), "hello world")
}

func TestLog_BelowMinLevelIsSkipped(t *testing.T) {
	startTestBackend(t)

	var buf bytes.Buffer
	l := CreateOrGetLogger("client-log-skip", []sink.Sink{sink.NewConsoleSink(&buf, LevelTrace)}, Pattern{})
	l.SetMinLevel(LevelError)

	require.NoError(t, l.LogInfo(NewSourceLoc("client_test.go", 2), "should not appear"))
	require.NoError(t, l.Flush())

	assert.NotContains(t, buf.String(), "should not appear")
}

func TestLog_StructuredFieldsReachJSONSink(t *testing.T) {
	startTestBackend(t)

	var buf bytes.Buffer
	l := CreateOrGetLogger("client-log-fields", []sink.Sink{sink.NewJSONSink(&buf, LevelTrace)}, Pattern{})

	require.NoError(t, l.LogWarn(NewSourceLoc("client_test.go", 3), "disk low", Int64("free_bytes", 1024)))
	require.NoError(t, l.Flush())

	assert.Contains(t, buf.String(), `"message":"disk low"`)
	assert.Contains(t, buf.String(), `"free_bytes":1024`)
}

func TestLog_DropPolicyBurstNeverBlocks(t *testing.T) {
	startTestBackend(t)

	l := CreateOrGetLogger("client-log-drop", nil, Pattern{})
	l.SetQueueFullPolicy(Drop)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 64; i++ {
			_ = l.LogInfo(NewSourceLoc("client_test.go", 4), "burst")
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Drop policy blocked")
	}
}

func TestFlush_WithoutBackendReturnsError(t *testing.T) {
	l := CreateOrGetLogger("client-log-no-backend", nil, Pattern{})
	assert.ErrorIs(t, l.Flush(), ErrBackendNotRunning)
}

func TestLogErr_NilErrorIsNoOp(t *testing.T) {
	startTestBackend(t)
	l := CreateOrGetLogger("client-log-nil-err", nil, Pattern{})
	assert.NoError(t, l.LogErr(NewSourceLoc("client_test.go", 5), nil))
}
