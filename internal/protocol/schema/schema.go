// Package schema holds declarative message tables: field names, wire types,
// byte offsets and the CRC-extra fingerprint derived from them.
package schema

import (
	"fmt"
	"sort"

	"github.com/danmuck/uorlink/internal/protocol/checksum"
)

// MaxPayloadLen is the largest payload a message table may declare.
const MaxPayloadLen = 255

// Type is a scalar wire type.
type Type uint8

const (
	Char Type = iota + 1
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Float
	Double
)

var typeNames = map[Type]string{
	Char:   "char",
	Int8:   "int8_t",
	Uint8:  "uint8_t",
	Int16:  "int16_t",
	Uint16: "uint16_t",
	Int32:  "int32_t",
	Uint32: "uint32_t",
	Int64:  "int64_t",
	Uint64: "uint64_t",
	Float:  "float",
	Double: "double",
}

// String returns the type name hashed into the CRC-extra fingerprint.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// Size is the element width in bytes, 0 for unknown types.
func (t Type) Size() int {
	switch t {
	case Char, Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float:
		return 4
	case Int64, Uint64, Double:
		return 8
	default:
		return 0
	}
}

func (t Type) signed() bool {
	switch t {
	case Int8, Int16, Int32, Int64:
		return true
	}
	return false
}

// Field declares one message field. ArrayLen 0 means scalar.
type Field struct {
	Name        string
	Type        Type
	ArrayLen    int
	Units       string
	Description string
	Extension   bool
}

// Count is the number of elements carried by the field.
func (f Field) Count() int {
	if f.ArrayLen > 0 {
		return f.ArrayLen
	}
	return 1
}

// Size is the field width on the wire.
func (f Field) Size() int {
	return f.Type.Size() * f.Count()
}

// Message is a message table. Fields are in declaration order.
type Message struct {
	ID     uint32
	Name   string
	Fields []Field
}

// Slot is a field placed at its wire offset.
type Slot struct {
	Field
	Index  int // position in Message.Fields
	Offset int
}

// Layout is the wire arrangement of a message.
type Layout struct {
	Slots  []Slot
	Len    int
	MinLen int
}

// Slot returns the slot for a field name.
func (l Layout) Slot(name string) (Slot, bool) {
	for _, s := range l.Slots {
		if s.Name == name {
			return s, true
		}
	}
	return Slot{}, false
}

// Layout orders base fields by element size (largest first, stable) followed
// by extension fields in declaration order.
func (m Message) Layout() Layout {
	base := make([]Slot, 0, len(m.Fields))
	ext := make([]Slot, 0)
	for i, f := range m.Fields {
		if f.Extension {
			ext = append(ext, Slot{Field: f, Index: i})
			continue
		}
		base = append(base, Slot{Field: f, Index: i})
	}
	sort.SliceStable(base, func(i, j int) bool {
		return base[i].Type.Size() > base[j].Type.Size()
	})

	var l Layout
	l.Slots = make([]Slot, 0, len(m.Fields))
	offset := 0
	for _, s := range base {
		s.Offset = offset
		offset += s.Size()
		l.Slots = append(l.Slots, s)
	}
	l.MinLen = offset
	for _, s := range ext {
		s.Offset = offset
		offset += s.Size()
		l.Slots = append(l.Slots, s)
	}
	l.Len = offset
	return l
}

// CRCExtra returns the schema fingerprint both endpoints fold into every
// frame checksum. Extension fields do not contribute.
func (m Message) CRCExtra() byte {
	h := checksum.New()
	_, _ = h.WriteString(m.Name + " ")
	for _, s := range m.Layout().Slots {
		if s.Extension {
			continue
		}
		_, _ = h.WriteString(s.Type.String() + " ")
		_, _ = h.WriteString(s.Name + " ")
		if s.ArrayLen > 0 {
			_ = h.WriteByte(byte(s.ArrayLen))
		}
	}
	crc := h.Sum16()
	return byte(crc&0xFF) ^ byte(crc>>8)
}

// ValidationError reports a malformed table or a table that disagrees with
// its declared constants.
type ValidationError struct {
	Message string
	Field   string
	Reason  string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema: message=%s: %s", e.Message, e.Reason)
	}
	return fmt.Sprintf("schema: message=%s field=%s: %s", e.Message, e.Field, e.Reason)
}

// Check reports structural problems in the table.
func (m Message) Check() error {
	if m.Name == "" {
		return ValidationError{Message: fmt.Sprint(m.ID), Reason: "empty name"}
	}
	if len(m.Fields) == 0 {
		return ValidationError{Message: m.Name, Reason: "no fields"}
	}
	seen := make(map[string]struct{}, len(m.Fields))
	for _, f := range m.Fields {
		if f.Name == "" {
			return ValidationError{Message: m.Name, Reason: "empty field name"}
		}
		if _, dup := seen[f.Name]; dup {
			return ValidationError{Message: m.Name, Field: f.Name, Reason: "duplicate field"}
		}
		seen[f.Name] = struct{}{}
		if f.Type.Size() == 0 {
			return ValidationError{Message: m.Name, Field: f.Name, Reason: "unknown type"}
		}
		if f.ArrayLen < 0 || f.ArrayLen > MaxPayloadLen {
			return ValidationError{Message: m.Name, Field: f.Name, Reason: "invalid array length"}
		}
	}
	if l := m.Layout(); l.Len > MaxPayloadLen {
		return ValidationError{
			Message: m.Name,
			Reason:  fmt.Sprintf("payload length %d exceeds %d", l.Len, MaxPayloadLen),
		}
	}
	return nil
}

// Validate checks the table and that it reproduces the declared payload
// length and CRC-extra byte.
func (m Message) Validate(declaredLen int, declaredCRC byte) error {
	if err := m.Check(); err != nil {
		return err
	}
	if l := m.Layout(); l.Len != declaredLen {
		return ValidationError{
			Message: m.Name,
			Reason:  fmt.Sprintf("payload length %d, declared %d", l.Len, declaredLen),
		}
	}
	if crc := m.CRCExtra(); crc != declaredCRC {
		return ValidationError{
			Message: m.Name,
			Reason:  fmt.Sprintf("crc extra %d, declared %d", crc, declaredCRC),
		}
	}
	return nil
}
