package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/uorlink/internal/protocol/checksum"
)

const (
	Magic          byte = 0xFD
	HeaderLen           = 10
	ChecksumLen         = 2
	SignatureLen        = 13
	MaxPayloadLen       = 255
	FlagSigned     uint8 = 0x01
	MaxMessageID        = 1<<24 - 1
	maxFrameLen         = HeaderLen + MaxPayloadLen + ChecksumLen + SignatureLen
)

var (
	ErrShortHeader     = errors.New("frame: short header")
	ErrBadMagic        = errors.New("frame: bad start marker")
	ErrTruncated       = errors.New("frame: truncated frame")
	ErrPayloadTooLarge = errors.New("frame: payload too large")
	ErrShortPayload    = errors.New("frame: payload shorter than minimum length")
	ErrMessageID       = errors.New("frame: message id out of range")
	ErrBadChecksum     = errors.New("frame: checksum mismatch")
	ErrUnknownMessage  = errors.New("frame: unknown message id")
	ErrSignedFrame     = errors.New("frame: signed frames are not supported")
	ErrIncompatFlags   = errors.New("frame: unsupported incompat flags")
)

// Header is the fixed v2 frame header. Len is the on-wire payload length.
type Header struct {
	Len           uint8
	IncompatFlags uint8
	CompatFlags   uint8
	Seq           uint8
	SystemID      uint8
	ComponentID   uint8
	MessageID     uint32
}

// Frame is one complete wire message.
type Frame struct {
	Header   Header
	Payload  []byte
	Checksum uint16
}

// Len is the total wire length of the frame.
func (f Frame) Len() int {
	n := HeaderLen + len(f.Payload) + ChecksumLen
	if f.Header.IncompatFlags&FlagSigned != 0 {
		n += SignatureLen
	}
	return n
}

// AppendBinary appends the wire bytes of f to b.
func (f Frame) AppendBinary(b []byte) ([]byte, error) {
	if len(f.Payload) > MaxPayloadLen {
		return b, ErrPayloadTooLarge
	}
	if f.Header.IncompatFlags&FlagSigned != 0 {
		return b, ErrSignedFrame
	}
	h := f.Header
	h.Len = uint8(len(f.Payload))
	b = append(b, EncodeHeader(h)...)
	b = append(b, f.Payload...)
	return binary.LittleEndian.AppendUint16(b, f.Checksum), nil
}

func (f Frame) MarshalBinary() ([]byte, error) {
	return f.AppendBinary(make([]byte, 0, f.Len()))
}

// WriteTo writes the wire bytes of f to w.
func (f Frame) WriteTo(w io.Writer) (int64, error) {
	b, err := f.MarshalBinary()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(b)
	return int64(n), err
}

// EncodeHeader returns the HeaderLen header bytes, start marker included.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderLen)
	buf[0] = Magic
	buf[1] = h.Len
	buf[2] = h.IncompatFlags
	buf[3] = h.CompatFlags
	buf[4] = h.Seq
	buf[5] = h.SystemID
	buf[6] = h.ComponentID
	buf[7] = byte(h.MessageID)
	buf[8] = byte(h.MessageID >> 8)
	buf[9] = byte(h.MessageID >> 16)
	return buf
}

func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, ErrShortHeader
	}
	if b[0] != Magic {
		return Header{}, fmt.Errorf("%w: 0x%02X", ErrBadMagic, b[0])
	}
	return Header{
		Len:           b[1],
		IncompatFlags: b[2],
		CompatFlags:   b[3],
		Seq:           b[4],
		SystemID:      b[5],
		ComponentID:   b[6],
		MessageID:     uint32(b[7]) | uint32(b[8])<<8 | uint32(b[9])<<16,
	}, nil
}

// ComputeChecksum covers the header after the start marker, the payload and
// the message's CRC-extra byte.
func ComputeChecksum(h Header, payload []byte, crcExtra byte) uint16 {
	c := checksum.New()
	_, _ = c.Write(EncodeHeader(h)[1:])
	_, _ = c.Write(payload)
	_ = c.WriteByte(crcExtra)
	return c.Sum16()
}

// TrimPayload drops trailing zero bytes, keeping at least one byte.
func TrimPayload(p []byte) []byte {
	n := len(p)
	for n > 1 && p[n-1] == 0 {
		n--
	}
	return p[:n]
}
