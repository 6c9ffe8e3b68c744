package frame

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/uorlink/internal/logging"
)

// CRCLookup resolves the CRC-extra byte for a message id.
type CRCLookup interface {
	CRCExtra(msgID uint32) (byte, bool)
}

// Limits constrains what the reader accepts.
type Limits struct {
	MaxPayloadBytes int
	// StrictChecksum returns ErrBadChecksum instead of skipping the frame.
	StrictChecksum bool
}

func DefaultLimits() Limits {
	return Limits{MaxPayloadBytes: MaxPayloadLen}
}

// Stats counts reader outcomes.
type Stats struct {
	Frames       uint64
	DroppedBytes uint64
	BadChecksum  uint64
	Unknown      uint64
	Signed       uint64
}

// Reader pulls frames from a byte stream, resynchronising on the start
// marker after noise or a corrupt frame.
type Reader struct {
	br     *bufio.Reader
	lookup CRCLookup
	limits Limits
	stats  Stats

	// a start marker was dropped because the stream ended inside its frame
	truncated bool
}

func NewReader(r io.Reader, lookup CRCLookup, limits Limits) *Reader {
	if limits.MaxPayloadBytes <= 0 || limits.MaxPayloadBytes > MaxPayloadLen {
		limits.MaxPayloadBytes = MaxPayloadLen
	}
	return &Reader{
		br:     bufio.NewReaderSize(r, 2*maxFrameLen),
		lookup: lookup,
		limits: limits,
	}
}

func (r *Reader) Stats() Stats { return r.stats }

// Recoverable reports whether the reader can continue after err.
func Recoverable(err error) bool {
	return errors.Is(err, ErrUnknownMessage) ||
		errors.Is(err, ErrSignedFrame) ||
		errors.Is(err, ErrBadChecksum) ||
		errors.Is(err, ErrIncompatFlags) ||
		errors.Is(err, ErrPayloadTooLarge)
}

// ReadFrame returns the next valid frame. A start marker whose frame runs
// past the end of the stream is treated as noise and scanning resumes at the
// next byte. ReadFrame returns io.EOF at a clean end of stream and
// ErrTruncated when the stream ends with no complete frame after such a
// marker. Errors for which Recoverable is true leave the reader positioned
// after the offending frame.
func (r *Reader) ReadFrame() (Frame, error) {
	for {
		if err := r.seek(); err != nil {
			if errors.Is(err, io.EOF) && r.truncated {
				r.truncated = false
				return Frame{}, ErrTruncated
			}
			return Frame{}, err
		}

		head, err := r.br.Peek(HeaderLen)
		if err != nil {
			if r.dropPartial(err) {
				continue
			}
			return Frame{}, err
		}
		h, err := DecodeHeader(head)
		if err != nil {
			return Frame{}, err
		}

		total := HeaderLen + int(h.Len) + ChecksumLen
		if h.IncompatFlags&FlagSigned != 0 {
			total += SignatureLen
		}
		raw, err := r.br.Peek(total)
		if err != nil {
			if r.dropPartial(err) {
				continue
			}
			return Frame{}, err
		}
		r.truncated = false

		if h.IncompatFlags&^FlagSigned != 0 {
			r.skip(total)
			return Frame{}, fmt.Errorf("%w: 0x%02X", ErrIncompatFlags, h.IncompatFlags)
		}
		if h.IncompatFlags&FlagSigned != 0 {
			r.stats.Signed++
			r.skip(total)
			return Frame{}, fmt.Errorf("%w: msg_id=%d", ErrSignedFrame, h.MessageID)
		}

		crcExtra, ok := r.lookup.CRCExtra(h.MessageID)
		if !ok {
			r.stats.Unknown++
			r.skip(total)
			return Frame{}, fmt.Errorf("%w: %d", ErrUnknownMessage, h.MessageID)
		}

		payload := raw[HeaderLen : HeaderLen+int(h.Len)]
		want := uint16(raw[total-2]) | uint16(raw[total-1])<<8
		if got := ComputeChecksum(h, payload, crcExtra); got != want {
			r.stats.BadChecksum++
			lg := logging.Component("frame")
			lg.Debug().
				Uint32("msg_id", h.MessageID).
				Uint8("seq", h.Seq).
				Uint16("got", got).
				Uint16("want", want).
				Msg("checksum mismatch, resyncing")
			if r.limits.StrictChecksum {
				r.skip(total)
				return Frame{}, fmt.Errorf("%w: msg_id=%d seq=%d", ErrBadChecksum, h.MessageID, h.Seq)
			}
			// the marker may have been noise; rescan from the next byte
			r.skip(1)
			r.stats.DroppedBytes++
			continue
		}

		if int(h.Len) > r.limits.MaxPayloadBytes {
			r.skip(total)
			return Frame{}, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, h.Len)
		}

		body := make([]byte, len(payload))
		copy(body, payload)
		r.skip(total)
		r.stats.Frames++
		return Frame{Header: h, Payload: body, Checksum: want}, nil
	}
}

func (r *Reader) seek() error {
	for {
		b, err := r.br.Peek(1)
		if err != nil {
			return err
		}
		if b[0] == Magic {
			return nil
		}
		r.skip(1)
		r.stats.DroppedBytes++
	}
}

func (r *Reader) skip(n int) {
	_, _ = r.br.Discard(n)
}

// dropPartial discards the start marker of a frame cut off by the end of
// the stream.
func (r *Reader) dropPartial(err error) bool {
	if !errors.Is(err, io.EOF) {
		return false
	}
	r.skip(1)
	r.stats.DroppedBytes++
	r.truncated = true
	return true
}
