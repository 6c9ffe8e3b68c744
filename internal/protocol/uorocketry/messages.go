package uorocketry

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/danmuck/uorlink/internal/protocol/frame"
	"github.com/danmuck/uorlink/internal/protocol/schema"
)

var (
	ErrUnknownMessage = errors.New("uorocketry: unknown message id")
	ErrUnknownField   = errors.New("uorocketry: unknown field")
)

// Message is a typed dialect message.
type Message interface {
	MessageID() uint32
	// MarshalPayload returns the full-length little-endian payload.
	MarshalPayload() []byte
	// UnmarshalPayload decodes p. Missing trailing bytes read as zero and
	// bytes past the declared length are ignored.
	UnmarshalPayload(p []byte)
}

// SensorPage is implemented by the paged sensor telemetry messages.
type SensorPage interface {
	Message
	Readings() [ChannelsPerPage]uint32
	BootTime() uint32
	Page() (num, total uint8)
}

// Finalizer stamps header, sequence number and checksum onto a packed
// payload. *frame.Channel is the stock implementation.
type Finalizer interface {
	Finalize(msgID uint32, payload []byte, minLen int, crcExtra byte) (frame.Frame, error)
}

var _ Finalizer = (*frame.Channel)(nil)

// TestUOR carries a single test byte.
type TestUOR struct {
	Test uint8
}

func (*TestUOR) MessageID() uint32 { return MsgIDTestUOR }

func (m *TestUOR) MarshalPayload() []byte {
	return []byte{m.Test}
}

func (m *TestUOR) UnmarshalPayload(p []byte) {
	var buf [TestUORLen]byte
	copy(buf[:], p)
	m.Test = buf[0]
}

// ThermocoupleUOR is one page of thermocouple readings.
type ThermocoupleUOR struct {
	TC         [ChannelsPerPage]uint32
	TimeBootMs uint32 // ms since boot
	PageNum    uint8
	PageTotal  uint8
}

func (*ThermocoupleUOR) MessageID() uint32 { return MsgIDThermocoupleUOR }

func (m *ThermocoupleUOR) MarshalPayload() []byte {
	return putSensorPage(&m.TC, m.TimeBootMs, m.PageNum, m.PageTotal)
}

func (m *ThermocoupleUOR) UnmarshalPayload(p []byte) {
	getSensorPage(p, &m.TC, &m.TimeBootMs, &m.PageNum, &m.PageTotal)
}

func (m *ThermocoupleUOR) Readings() [ChannelsPerPage]uint32 { return m.TC }
func (m *ThermocoupleUOR) BootTime() uint32                   { return m.TimeBootMs }
func (m *ThermocoupleUOR) Page() (uint8, uint8)               { return m.PageNum, m.PageTotal }

// PressureUOR is one page of pressure sensor readings.
type PressureUOR struct {
	PS         [ChannelsPerPage]uint32
	TimeBootMs uint32 // ms since boot
	PageNum    uint8
	PageTotal  uint8
}

func (*PressureUOR) MessageID() uint32 { return MsgIDPressureUOR }

func (m *PressureUOR) MarshalPayload() []byte {
	return putSensorPage(&m.PS, m.TimeBootMs, m.PageNum, m.PageTotal)
}

func (m *PressureUOR) UnmarshalPayload(p []byte) {
	getSensorPage(p, &m.PS, &m.TimeBootMs, &m.PageNum, &m.PageTotal)
}

func (m *PressureUOR) Readings() [ChannelsPerPage]uint32 { return m.PS }
func (m *PressureUOR) BootTime() uint32                   { return m.TimeBootMs }
func (m *PressureUOR) Page() (uint8, uint8)               { return m.PageNum, m.PageTotal }

// StrainUOR is one page of strain gauge readings.
type StrainUOR struct {
	SG         [ChannelsPerPage]uint32
	TimeBootMs uint32 // ms since boot
	PageNum    uint8
	PageTotal  uint8
}

func (*StrainUOR) MessageID() uint32 { return MsgIDStrainUOR }

func (m *StrainUOR) MarshalPayload() []byte {
	return putSensorPage(&m.SG, m.TimeBootMs, m.PageNum, m.PageTotal)
}

func (m *StrainUOR) UnmarshalPayload(p []byte) {
	getSensorPage(p, &m.SG, &m.TimeBootMs, &m.PageNum, &m.PageTotal)
}

func (m *StrainUOR) Readings() [ChannelsPerPage]uint32 { return m.SG }
func (m *StrainUOR) BootTime() uint32                   { return m.TimeBootMs }
func (m *StrainUOR) Page() (uint8, uint8)               { return m.PageNum, m.PageTotal }

// Paged layout offsets, shared by the three sensor messages.
const (
	offReadings  = 0
	offTimeBoot  = 32
	offPageNum   = 36
	offPageTotal = 37
	sensorLen    = 38
)

func putSensorPage(readings *[ChannelsPerPage]uint32, timeBootMs uint32, pageNum, pageTotal uint8) []byte {
	buf := make([]byte, sensorLen)
	for i, v := range readings {
		binary.LittleEndian.PutUint32(buf[offReadings+4*i:], v)
	}
	binary.LittleEndian.PutUint32(buf[offTimeBoot:], timeBootMs)
	buf[offPageNum] = pageNum
	buf[offPageTotal] = pageTotal
	return buf
}

func getSensorPage(p []byte, readings *[ChannelsPerPage]uint32, timeBootMs *uint32, pageNum, pageTotal *uint8) {
	var buf [sensorLen]byte
	copy(buf[:], p)
	for i := range readings {
		readings[i] = binary.LittleEndian.Uint32(buf[offReadings+4*i:])
	}
	*timeBootMs = binary.LittleEndian.Uint32(buf[offTimeBoot:])
	*pageNum = buf[offPageNum]
	*pageTotal = buf[offPageTotal]
}

// DecodeTestUOR decodes a TEST_UOR payload.
func DecodeTestUOR(payload []byte) TestUOR {
	var m TestUOR
	m.UnmarshalPayload(payload)
	return m
}

// DecodeThermocoupleUOR decodes a THERMOCOUPLE_UOR payload.
func DecodeThermocoupleUOR(payload []byte) ThermocoupleUOR {
	var m ThermocoupleUOR
	m.UnmarshalPayload(payload)
	return m
}

// DecodePressureUOR decodes a PRESSURE_UOR payload.
func DecodePressureUOR(payload []byte) PressureUOR {
	var m PressureUOR
	m.UnmarshalPayload(payload)
	return m
}

// DecodeStrainUOR decodes a STRAIN_UOR payload.
func DecodeStrainUOR(payload []byte) StrainUOR {
	var m StrainUOR
	m.UnmarshalPayload(payload)
	return m
}

// New allocates an empty message for a dialect id.
func New(id uint32) (Message, error) {
	e, ok := entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMessage, id)
	}
	return e.new(), nil
}

// NewSensorPage builds a paged sensor message for one of the three sensor ids.
func NewSensorPage(id uint32, readings [ChannelsPerPage]uint32, timeBootMs uint32, pageNum, pageTotal uint8) (SensorPage, error) {
	switch id {
	case MsgIDThermocoupleUOR:
		return &ThermocoupleUOR{TC: readings, TimeBootMs: timeBootMs, PageNum: pageNum, PageTotal: pageTotal}, nil
	case MsgIDPressureUOR:
		return &PressureUOR{PS: readings, TimeBootMs: timeBootMs, PageNum: pageNum, PageTotal: pageTotal}, nil
	case MsgIDStrainUOR:
		return &StrainUOR{SG: readings, TimeBootMs: timeBootMs, PageNum: pageNum, PageTotal: pageTotal}, nil
	}
	return nil, fmt.Errorf("%w: %d is not a sensor page", ErrUnknownMessage, id)
}

// Pack marshals m and hands it to fin with the message's minimum length and
// CRC-extra byte. The returned frame reports its wire length via Len.
func Pack(fin Finalizer, m Message) (frame.Frame, error) {
	e, ok := entries[m.MessageID()]
	if !ok {
		return frame.Frame{}, fmt.Errorf("%w: %d", ErrUnknownMessage, m.MessageID())
	}
	f, err := fin.Finalize(m.MessageID(), m.MarshalPayload(), e.minLen, e.crc)
	if err != nil {
		return frame.Frame{}, fmt.Errorf("pack %s: %w", e.info.Name, err)
	}
	return f, nil
}

// Decode returns the typed message carried by f.
func Decode(f frame.Frame) (Message, error) {
	m, err := New(f.Header.MessageID)
	if err != nil {
		return nil, err
	}
	m.UnmarshalPayload(f.Payload)
	return m, nil
}

// GetField reads one named field from a frame through the message table.
func GetField(f frame.Frame, name string) (schema.Value, error) {
	info, ok := dialect.ByID(f.Header.MessageID)
	if !ok {
		return schema.Value{}, fmt.Errorf("%w: %d", ErrUnknownMessage, f.Header.MessageID)
	}
	for _, v := range schema.Decode(info, f.Payload) {
		if v.Field.Name == name {
			return v, nil
		}
	}
	return schema.Value{}, fmt.Errorf("%w: %s.%s", ErrUnknownField, info.Name, name)
}

// Fields decodes every field of f in declaration order.
func Fields(f frame.Frame) (schema.Message, []schema.Value, error) {
	info, ok := dialect.ByID(f.Header.MessageID)
	if !ok {
		return schema.Message{}, nil, fmt.Errorf("%w: %d", ErrUnknownMessage, f.Header.MessageID)
	}
	return info, schema.Decode(info, f.Payload), nil
}
