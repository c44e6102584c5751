package record

import "github.com/google/uuid"

// LogEvent is the decoded form of a KindLog record: header plus its
// argument payload and optional name-handle table (§3 "optional
// named-argument index").
type LogEvent struct {
	Header Header
	Args   []Arg
	Names  []uint32 // name-table handles, len == Header.NameCount, ordered to match Args[1:]
}

// Encode serializes h, args and names into a single contiguous record, ready to be copied
// into a ring buffer's write span. The caller supplies everything but
// TotalLen/CRC32, which Encode computes.
func Encode(h Header, args []Arg, names []uint32) []byte {
	h.Kind = KindLog
	h.ArgCount = uint16(len(args))
	h.NameCount = uint16(len(names))

	payloadLen := 0
	for _, a := range args {
		payloadLen += a.EncodedSize()
	}
	payloadLen += 4 * len(names)

	total := HeaderSize + payloadLen
	buf := make([]byte, total)

	payload := buf[HeaderSize:HeaderSize]
	for _, a := range args {
		payload = AppendArg(payload, a)
	}
	for _, n := range names {
		payload = appendUint32(payload, n)
	}

	h.TotalLen = uint32(total)
	PutHeader(buf, h, buf[HeaderSize:total])
	return buf
}

// Decode parses a full KindLog record previously produced by Encode.
func Decode(src []byte) (LogEvent, error) {
	h, err := DecodeHeader(src)
	if err != nil {
		return LogEvent{}, err
	}
	payload := src[HeaderSize:h.TotalLen]

	args := make([]Arg, 0, h.ArgCount)
	for i := uint16(0); i < h.ArgCount; i++ {
		var a Arg
		a, payload, err = ReadArg(payload)
		if err != nil {
			return LogEvent{}, err
		}
		args = append(args, a)
	}

	names := make([]uint32, 0, h.NameCount)
	for i := uint16(0); i < h.NameCount; i++ {
		if len(payload) < 4 {
			return LogEvent{}, ErrShortBuffer
		}
		names = append(names, byteOrder.Uint32(payload[:4]))
		payload = payload[4:]
	}

	return LogEvent{Header: h, Args: args, Names: names}, nil
}

// EncodeCommand serializes a zero-argument command record: KindShutdown
// carries nothing beyond the header, KindFlushAck additionally carries a
// 16-byte uuid.UUID the backend uses to resolve the wait the frontend
// registered for it (backend.Worker.AwaitFlush, §4.5). loggerID addresses the flush at
// a specific logger's sink set (DecodeCommand's caller resolves it the
// same way a KindLog record's Header.LoggerID is resolved); it is ignored
// for KindShutdown.
func EncodeCommand(kind Kind, correlation uuid.UUID, loggerID uint64) []byte {
	extra := 0
	if kind == KindFlushAck {
		extra = UUIDSize
	}
	total := HeaderSize + extra
	buf := make([]byte, total)

	h := Header{TotalLen: uint32(total), Kind: kind, LoggerID: loggerID}
	if kind == KindFlushAck {
		copy(buf[HeaderSize:total], correlation[:])
	}
	PutHeader(buf, h, buf[HeaderSize:total])
	return buf
}

// DecodeCommand parses a command record produced by EncodeCommand. The
// returned uuid.UUID is the zero value for KindShutdown.
func DecodeCommand(src []byte) (Header, uuid.UUID, error) {
	h, err := DecodeHeader(src)
	if err != nil {
		return Header{}, uuid.UUID{}, err
	}
	var id uuid.UUID
	if h.Kind == KindFlushAck {
		payload := src[HeaderSize:h.TotalLen]
		if len(payload) < UUIDSize {
			return h, uuid.UUID{}, ErrShortBuffer
		}
		copy(id[:], payload[:UUIDSize])
	}
	return h, id, nil
}
