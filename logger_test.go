package lgr

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abyssdigger/flarelog/internal/sink"
)

func TestCreateOrGetLogger_IsIdempotentByName(t *testing.T) {
	var buf bytes.Buffer
	a := CreateOrGetLogger("logger-idempotent", []sink.Sink{sink.NewConsoleSink(&buf, LevelTrace)}, Pattern{})
	b := CreateOrGetLogger("logger-idempotent", nil, Pattern{})

	assert.Same(t, a, b)
	assert.Equal(t, a.ID(), b.ID())
}

func TestCreateOrGetLogger_DistinctNamesGetDistinctIDs(t *testing.T) {
	a := CreateOrGetLogger("logger-a", nil, Pattern{})
	b := CreateOrGetLogger("logger-b", nil, Pattern{})
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestRemoveLogger_AllocatesFreshHandleOnRecreate(t *testing.T) {
	first := CreateOrGetLogger("logger-removable", nil, Pattern{})
	require.NoError(t, RemoveLogger(first))

	second := CreateOrGetLogger("logger-removable", nil, Pattern{})
	assert.NotEqual(t, first.ID(), second.ID())
}

func TestRemoveLogger_UnknownLoggerReturnsError(t *testing.T) {
	l := CreateOrGetLogger("logger-remove-twice", nil, Pattern{})
	require.NoError(t, RemoveLogger(l))
	assert.ErrorIs(t, RemoveLogger(l), ErrUnknownLogger)
}

func TestSetMinLevel_UpdatesMinLevel(t *testing.T) {
	var buf bytes.Buffer
	l := CreateOrGetLogger("logger-minlevel", []sink.Sink{sink.NewConsoleSink(&buf, LevelTrace)}, Pattern{})
	l.SetMinLevel(LevelWarn)
	assert.Equal(t, LevelWarn, l.MinLevel())
}

func TestApplyPattern_ConfiguresConsoleSinkTimeFormat(t *testing.T) {
	var buf bytes.Buffer
	cs := sink.NewConsoleSink(&buf, LevelTrace)
	CreateOrGetLogger("logger-pattern", []sink.Sink{cs}, Pattern{TimeFormat: "2006", ShowLevelCode: false})
	assert.Equal(t, "2006", cs.TimeFormat)
	assert.False(t, cs.ShowLevel)
}
