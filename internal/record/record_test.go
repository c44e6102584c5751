package record

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTripsArguments(t *testing.T) {
	args := []Arg{
		Int64Arg(-42),
		Uint64Arg(7),
		Float64Arg(3.5),
		BoolArg(true),
		StringArg("hello ring"),
		FormatterArg(99),
	}
	names := []uint32{1, 2, 3, 4, 5, 6}

	h := Header{
		Level:      LevelInfo,
		Timestamp:  123456789,
		LoggerID:   7,
		SourceLine: 42,
		SourceFile: 3,
	}

	buf := Encode(h, args, names)
	ev, err := Decode(buf)
	require.NoError(t, err)

	assert.Equal(t, LevelInfo, ev.Header.Level)
	assert.Equal(t, int64(123456789), ev.Header.Timestamp)
	assert.Equal(t, uint64(7), ev.Header.LoggerID)
	assert.Equal(t, uint32(42), ev.Header.SourceLine)
	assert.Equal(t, uint32(3), ev.Header.SourceFile)
	assert.Equal(t, args, ev.Args)
	assert.Equal(t, names, ev.Names)
}

func TestEncodeDecode_NoArguments(t *testing.T) {
	buf := Encode(Header{Level: LevelWarn}, nil, nil)
	ev, err := Decode(buf)
	require.NoError(t, err)
	assert.Empty(t, ev.Args)
	assert.Empty(t, ev.Names)
}

func TestDecode_DetectsCorruption(t *testing.T) {
	buf := Encode(Header{Level: LevelError}, []Arg{Int64Arg(1)}, nil)
	buf[HeaderSize] ^= 0xFF // flip a payload byte without touching the checksum

	_, err := Decode(buf)
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestDecode_RejectsShortBuffer(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrShortBuffer)
}

func TestCommandRecord_FlushAckCarriesCorrelation(t *testing.T) {
	id := uuid.New()
	buf := EncodeCommand(KindFlushAck, id, 0)

	h, got, err := DecodeCommand(buf)
	require.NoError(t, err)
	assert.Equal(t, KindFlushAck, h.Kind)
	assert.Equal(t, id, got)
}

func TestCommandRecord_ShutdownHasNoCorrelation(t *testing.T) {
	buf := EncodeCommand(KindShutdown, uuid.Nil, 0)

	h, got, err := DecodeCommand(buf)
	require.NoError(t, err)
	assert.Equal(t, KindShutdown, h.Kind)
	assert.Equal(t, uuid.Nil, got)
}

func TestLevel_NormAndStrings(t *testing.T) {
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "INF", LevelInfo.ShortString())
	assert.Equal(t, LevelUnknown, Level(200).Norm())
	assert.Equal(t, "UNKNOWN", Level(200).String())
}
