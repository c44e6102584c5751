package record

import (
	"encoding/binary"
	"errors"
	"math"
)

// ArgTag discriminates the scalar encoding that follows it in the argument
// payload (§3 "argument payload", §4.3).
type ArgTag uint8

const (
	TagInt64 ArgTag = iota
	TagUint64
	TagFloat64
	TagBool
	TagString
	TagFormatterHandle // type-erased formatter callback, encoded as a handle
)

// ErrUnknownTag is returned while decoding an argument payload whose tag
// byte does not match any ArgTag.
var ErrUnknownTag = errors.New("record: unknown argument tag")

// Arg is one positional argument captured on the producer side. Exactly
// one of the value fields is meaningful, selected by Tag.
type Arg struct {
	Tag     ArgTag
	Int     int64
	Uint    uint64
	Float   float64
	Bool    bool
	Str     string
	Handle  uint32 // FormatterHandle index, valid only when Tag == TagFormatterHandle
}

// Int64Arg, Uint64Arg, Float64Arg, BoolArg, StringArg and FormatterArg
// build an Arg of the matching tag; kept as small constructors so producer
// call sites read as a flat argument list rather than literal structs.
func Int64Arg(v int64) Arg       { return Arg{Tag: TagInt64, Int: v} }
func Uint64Arg(v uint64) Arg     { return Arg{Tag: TagUint64, Uint: v} }
func Float64Arg(v float64) Arg   { return Arg{Tag: TagFloat64, Float: v} }
func BoolArg(v bool) Arg         { return Arg{Tag: TagBool, Bool: v} }
func StringArg(v string) Arg     { return Arg{Tag: TagString, Str: v} }
func FormatterArg(h uint32) Arg  { return Arg{Tag: TagFormatterHandle, Handle: h} }

// EncodedSize returns the number of bytes a appends to the payload buffer.
func (a Arg) EncodedSize() int {
	switch a.Tag {
	case TagInt64, TagUint64, TagFloat64:
		return 1 + 8
	case TagBool:
		return 1 + 1
	case TagString:
		return 1 + 4 + len(a.Str)
	case TagFormatterHandle:
		return 1 + 4
	default:
		return 1
	}
}

// AppendArg serializes a onto dst and returns the extended slice.
func AppendArg(dst []byte, a Arg) []byte {
	dst = append(dst, byte(a.Tag))
	switch a.Tag {
	case TagInt64:
		dst = appendUint64(dst, uint64(a.Int))
	case TagUint64:
		dst = appendUint64(dst, a.Uint)
	case TagFloat64:
		dst = appendUint64(dst, math.Float64bits(a.Float))
	case TagBool:
		if a.Bool {
			dst = append(dst, 1)
		} else {
			dst = append(dst, 0)
		}
	case TagString:
		dst = appendUint32(dst, uint32(len(a.Str)))
		dst = append(dst, a.Str...)
	case TagFormatterHandle:
		dst = appendUint32(dst, a.Handle)
	}
	return dst
}

// ReadArg decodes one Arg from the front of src, returning the remaining
// unconsumed bytes.
func ReadArg(src []byte) (Arg, []byte, error) {
	if len(src) < 1 {
		return Arg{}, nil, ErrShortBuffer
	}
	tag := ArgTag(src[0])
	src = src[1:]
	switch tag {
	case TagInt64:
		if len(src) < 8 {
			return Arg{}, nil, ErrShortBuffer
		}
		return Arg{Tag: tag, Int: int64(byteOrder.Uint64(src[:8]))}, src[8:], nil
	case TagUint64:
		if len(src) < 8 {
			return Arg{}, nil, ErrShortBuffer
		}
		return Arg{Tag: tag, Uint: byteOrder.Uint64(src[:8])}, src[8:], nil
	case TagFloat64:
		if len(src) < 8 {
			return Arg{}, nil, ErrShortBuffer
		}
		return Arg{Tag: tag, Float: math.Float64frombits(byteOrder.Uint64(src[:8]))}, src[8:], nil
	case TagBool:
		if len(src) < 1 {
			return Arg{}, nil, ErrShortBuffer
		}
		return Arg{Tag: tag, Bool: src[0] != 0}, src[1:], nil
	case TagString:
		if len(src) < 4 {
			return Arg{}, nil, ErrShortBuffer
		}
		n := byteOrder.Uint32(src[:4])
		src = src[4:]
		if uint32(len(src)) < n {
			return Arg{}, nil, ErrShortBuffer
		}
		return Arg{Tag: tag, Str: string(src[:n])}, src[n:], nil
	case TagFormatterHandle:
		if len(src) < 4 {
			return Arg{}, nil, ErrShortBuffer
		}
		return Arg{Tag: tag, Handle: byteOrder.Uint32(src[:4])}, src[4:], nil
	default:
		return Arg{}, nil, ErrUnknownTag
	}
}

func appendUint64(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

func appendUint32(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}
