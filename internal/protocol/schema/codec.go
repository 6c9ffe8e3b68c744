package schema

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrValueCount    = errors.New("schema: value count does not match field count")
	ErrValueMismatch = errors.New("schema: value does not belong to field")
	ErrTooManyElems  = errors.New("schema: too many elements for field")
)

// Value is one field's content. Bits holds each element's raw bit pattern,
// zero-extended to 64 bits.
type Value struct {
	Field Field
	Bits  []uint64
}

// UintValue builds a value for an unsigned or char field.
func UintValue(f Field, v ...uint64) Value {
	return Value{Field: f, Bits: v}
}

// IntValue builds a value for a signed field.
func IntValue(f Field, v ...int64) Value {
	bits := make([]uint64, len(v))
	for i, x := range v {
		bits[i] = uint64(x)
	}
	return Value{Field: f, Bits: bits}
}

// FloatValue builds a value for a float or double field.
func FloatValue(f Field, v ...float64) Value {
	bits := make([]uint64, len(v))
	for i, x := range v {
		if f.Type == Float {
			bits[i] = uint64(math.Float32bits(float32(x)))
		} else {
			bits[i] = math.Float64bits(x)
		}
	}
	return Value{Field: f, Bits: bits}
}

func (v Value) elem(i int) uint64 {
	if i < len(v.Bits) {
		return v.Bits[i]
	}
	return 0
}

// Uint returns element 0 as an unsigned integer.
func (v Value) Uint() uint64 { return v.UintAt(0) }

// UintAt returns element i as an unsigned integer.
func (v Value) UintAt(i int) uint64 {
	return v.elem(i) & mask(v.Field.Type)
}

// Int returns element 0 sign-extended for signed types.
func (v Value) Int() int64 { return v.IntAt(0) }

// IntAt returns element i sign-extended for signed types.
func (v Value) IntAt(i int) int64 {
	b := v.elem(i)
	switch v.Field.Type {
	case Int8:
		return int64(int8(b))
	case Int16:
		return int64(int16(b))
	case Int32:
		return int64(int32(b))
	case Int64:
		return int64(b)
	}
	return int64(b & mask(v.Field.Type))
}

// Float returns element 0 as a float64.
func (v Value) Float() float64 { return v.FloatAt(0) }

// FloatAt returns element i as a float64.
func (v Value) FloatAt(i int) float64 {
	switch v.Field.Type {
	case Float:
		return float64(math.Float32frombits(uint32(v.elem(i))))
	case Double:
		return math.Float64frombits(v.elem(i))
	}
	if v.Field.Type.signed() {
		return float64(v.IntAt(i))
	}
	return float64(v.UintAt(i))
}

func (v Value) String() string {
	if v.Field.Type == Char && v.Field.ArrayLen > 0 {
		var sb strings.Builder
		for i := 0; i < v.Field.Count(); i++ {
			c := byte(v.elem(i))
			if c == 0 {
				break
			}
			sb.WriteByte(c)
		}
		return strconv.Quote(sb.String())
	}
	if v.Field.ArrayLen == 0 {
		return v.format(0)
	}
	parts := make([]string, v.Field.Count())
	for i := range parts {
		parts[i] = v.format(i)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func (v Value) format(i int) string {
	switch {
	case v.Field.Type == Float || v.Field.Type == Double:
		return strconv.FormatFloat(v.FloatAt(i), 'g', -1, 64)
	case v.Field.Type.signed():
		return strconv.FormatInt(v.IntAt(i), 10)
	default:
		return strconv.FormatUint(v.UintAt(i), 10)
	}
}

func mask(t Type) uint64 {
	switch t.Size() {
	case 1:
		return 0xFF
	case 2:
		return 0xFFFF
	case 4:
		return 0xFFFFFFFF
	}
	return math.MaxUint64
}

// Encode packs values (declaration order) into a payload of the full
// declared length, little-endian at layout offsets.
func Encode(m Message, values []Value) ([]byte, error) {
	if len(values) != len(m.Fields) {
		return nil, fmt.Errorf("%w: message=%s got=%d want=%d", ErrValueCount, m.Name, len(values), len(m.Fields))
	}
	l := m.Layout()
	buf := make([]byte, l.Len)
	for _, s := range l.Slots {
		v := values[s.Index]
		if v.Field.Name != s.Name {
			return nil, fmt.Errorf("%w: message=%s field=%s value=%s", ErrValueMismatch, m.Name, s.Name, v.Field.Name)
		}
		if len(v.Bits) > s.Count() {
			return nil, fmt.Errorf("%w: message=%s field=%s got=%d want<=%d", ErrTooManyElems, m.Name, s.Name, len(v.Bits), s.Count())
		}
		size := s.Type.Size()
		for i, bits := range v.Bits {
			putBits(buf[s.Offset+i*size:], size, bits)
		}
	}
	return buf, nil
}

// Decode unpacks payload into values in declaration order. Bytes past the
// received payload read as zero; bytes past the declared length are ignored.
func Decode(m Message, payload []byte) []Value {
	l := m.Layout()
	buf := make([]byte, l.Len)
	copy(buf, payload)

	out := make([]Value, len(m.Fields))
	for _, s := range l.Slots {
		size := s.Type.Size()
		bits := make([]uint64, s.Count())
		for i := range bits {
			bits[i] = getBits(buf[s.Offset+i*size:], size)
		}
		out[s.Index] = Value{Field: s.Field, Bits: bits}
	}
	return out
}

func putBits(b []byte, size int, bits uint64) {
	switch size {
	case 1:
		b[0] = byte(bits)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(bits))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(bits))
	case 8:
		binary.LittleEndian.PutUint64(b, bits)
	}
}

func getBits(b []byte, size int) uint64 {
	switch size {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(b))
	case 4:
		return uint64(binary.LittleEndian.Uint32(b))
	case 8:
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}
