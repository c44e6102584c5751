// Package record implements the wire format producers write into a ring
// buffer and the backend decodes back out: a fixed-width header (§3 "Log
// event wire record", §4.3) followed by an argument payload, plus the
// narrower CommandRecord used for flush-ack and shutdown signalling (§4.5).
//
// By convention argument 0 of every KindLog record is the pre-rendered
// message string; arguments from index 1 on are structured fields, and the
// optional name table names those fields in order.
package record

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
)

// Kind discriminates what follows the header.
type Kind uint8

const (
	KindLog Kind = iota
	KindFlushAck
	KindShutdown
)

// HeaderSize is the fixed header length in bytes: every field is naturally
// aligned given a page-aligned ring base, per §4.3(c).
const HeaderSize = 40

// UUIDSize is the width of the correlation slot a KindFlushAck record
// carries immediately after the header.
const UUIDSize = 16

var (
	// ErrShortBuffer is returned when a buffer is too small to hold what
	// is being decoded from it: the header, an argument, or the name table.
	ErrShortBuffer = errors.New("record: buffer shorter than header size")
	// ErrChecksum is returned when a decoded header's CRC32 does not match
	// its payload, the backend's defence against torn or corrupted records.
	ErrChecksum = errors.New("record: checksum mismatch")
	// ErrTotalLen is returned when a header's totalLen field is internally
	// inconsistent (smaller than HeaderSize, or larger than the buffer it
	// was decoded from).
	ErrTotalLen = errors.New("record: invalid total length")
)

// Header is the fixed-layout prefix of every record in the ring. Field
// order matches the wire layout exactly; PutHeader/DecodeHeader do not
// reorder it.
type Header struct {
	TotalLen   uint32 // bytes in the whole record, header included
	CRC32      uint32 // of everything in the record after this field
	Kind       Kind
	Level      Level
	Reserved   uint16
	Timestamp  int64  // producer-captured Unix nanoseconds, advanced by a monotonic clock reading
	LoggerID   uint64 // logger registry handle
	ArgCount   uint16
	NameCount  uint16
	SourceLine uint32
	SourceFile uint32 // interned string-table handle, not inline bytes
}

var byteOrder = binary.LittleEndian

// PutHeader encodes h into dst[:HeaderSize]. payload must already be
// written to dst[HeaderSize:] before calling PutHeader so the CRC32, which
// is computed last, covers it.
func PutHeader(dst []byte, h Header, payload []byte) {
	_ = dst[HeaderSize-1]

	byteOrder.PutUint32(dst[0:4], h.TotalLen)
	// dst[4:8] (crc32) is filled in last, once the rest of the frame exists.
	dst[8] = byte(h.Kind)
	dst[9] = byte(h.Level)
	byteOrder.PutUint16(dst[10:12], h.Reserved)
	byteOrder.PutUint64(dst[12:20], uint64(h.Timestamp))
	byteOrder.PutUint64(dst[20:28], h.LoggerID)
	byteOrder.PutUint16(dst[28:30], h.ArgCount)
	byteOrder.PutUint16(dst[30:32], h.NameCount)
	byteOrder.PutUint32(dst[32:36], h.SourceLine)
	byteOrder.PutUint32(dst[36:40], h.SourceFile)

	sum := crc32.NewIEEE()
	sum.Write(dst[8:HeaderSize])
	sum.Write(payload)
	byteOrder.PutUint32(dst[4:8], sum.Sum32())
}

// DecodeHeader reads a Header from src and verifies its checksum against
// the payload bytes that follow it (src[HeaderSize:h.TotalLen]).
func DecodeHeader(src []byte) (Header, error) {
	var h Header
	if len(src) < HeaderSize {
		return h, ErrShortBuffer
	}
	h.TotalLen = byteOrder.Uint32(src[0:4])
	if h.TotalLen < HeaderSize || int(h.TotalLen) > len(src) {
		return h, ErrTotalLen
	}
	wantCRC := byteOrder.Uint32(src[4:8])
	h.Kind = Kind(src[8])
	h.Level = Level(src[9])
	h.Reserved = byteOrder.Uint16(src[10:12])
	h.Timestamp = int64(byteOrder.Uint64(src[12:20]))
	h.LoggerID = byteOrder.Uint64(src[20:28])
	h.ArgCount = byteOrder.Uint16(src[28:30])
	h.NameCount = byteOrder.Uint16(src[30:32])
	h.SourceLine = byteOrder.Uint32(src[32:36])
	h.SourceFile = byteOrder.Uint32(src[36:40])

	sum := crc32.NewIEEE()
	sum.Write(src[8:HeaderSize])
	sum.Write(src[HeaderSize:h.TotalLen])
	if sum.Sum32() != wantCRC {
		return h, ErrChecksum
	}
	return h, nil
}
