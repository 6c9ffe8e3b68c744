package frame

import "fmt"

// Channel stamps outgoing frames for one link. It tracks the sequence
// number and is not safe for concurrent use.
type Channel struct {
	SystemID    uint8
	ComponentID uint8
	seq         uint8
}

func NewChannel(systemID, componentID uint8) *Channel {
	return &Channel{SystemID: systemID, ComponentID: componentID}
}

// Sequence returns the sequence number the next frame will carry.
func (c *Channel) Sequence() uint8 { return c.seq }

// Finalize wraps a packed payload with header, sequence number and checksum.
// Trailing zero bytes are trimmed from the payload; receivers zero-fill them.
func (c *Channel) Finalize(msgID uint32, payload []byte, minLen int, crcExtra byte) (Frame, error) {
	if msgID > MaxMessageID {
		return Frame{}, fmt.Errorf("%w: %d", ErrMessageID, msgID)
	}
	if len(payload) > MaxPayloadLen {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}
	if len(payload) < minLen {
		return Frame{}, fmt.Errorf("%w: got=%d min=%d", ErrShortPayload, len(payload), minLen)
	}

	trimmed := TrimPayload(payload)
	body := make([]byte, len(trimmed))
	copy(body, trimmed)

	h := Header{
		Len:         uint8(len(body)),
		Seq:         c.seq,
		SystemID:    c.SystemID,
		ComponentID: c.ComponentID,
		MessageID:   msgID,
	}
	c.seq++

	return Frame{
		Header:   h,
		Payload:  body,
		Checksum: ComputeChecksum(h, body, crcExtra),
	}, nil
}
