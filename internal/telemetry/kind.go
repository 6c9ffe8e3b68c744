package telemetry

import (
	"errors"
	"fmt"

	"github.com/danmuck/uorlink/internal/protocol/uorocketry"
)

var (
	ErrUnknownKind     = errors.New("telemetry: unknown sensor kind")
	ErrTooManyChannels = errors.New("telemetry: too many channels")
	ErrBadPage         = errors.New("telemetry: inconsistent page")
)

// MaxChannels is the largest bank a single cycle can carry.
const MaxChannels = 255 * uorocketry.ChannelsPerPage

// Kind is a sensor family with its own paged message.
type Kind uint8

const (
	Thermocouple Kind = iota + 1
	Pressure
	Strain
)

var kinds = []Kind{Thermocouple, Pressure, Strain}

// Kinds lists every sensor kind.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

func (k Kind) String() string {
	switch k {
	case Thermocouple:
		return "thermocouple"
	case Pressure:
		return "pressure"
	case Strain:
		return "strain"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// MessageID is the dialect message carrying this kind.
func (k Kind) MessageID() uint32 {
	switch k {
	case Thermocouple:
		return uorocketry.MsgIDThermocoupleUOR
	case Pressure:
		return uorocketry.MsgIDPressureUOR
	case Strain:
		return uorocketry.MsgIDStrainUOR
	}
	return 0
}

// KindOf maps a dialect message id back to its sensor kind.
func KindOf(msgID uint32) (Kind, bool) {
	for _, k := range kinds {
		if k.MessageID() == msgID {
			return k, true
		}
	}
	return 0, false
}

// Paginate splits readings into the messages of one publish cycle. Every
// page carries timeBootMs; the last page is zero-filled.
func Paginate(kind Kind, readings []uint32, timeBootMs uint32) ([]uorocketry.SensorPage, error) {
	id := kind.MessageID()
	if id == 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(kind))
	}
	if len(readings) > MaxChannels {
		return nil, fmt.Errorf("%w: %s has %d, max %d", ErrTooManyChannels, kind, len(readings), MaxChannels)
	}

	if len(readings) <= uorocketry.ChannelsPerPage {
		var page [uorocketry.ChannelsPerPage]uint32
		copy(page[:], readings)
		msg, err := uorocketry.NewSensorPage(id, page, timeBootMs, 0, 0)
		if err != nil {
			return nil, err
		}
		return []uorocketry.SensorPage{msg}, nil
	}

	total := (len(readings) + uorocketry.ChannelsPerPage - 1) / uorocketry.ChannelsPerPage
	out := make([]uorocketry.SensorPage, 0, total)
	for i := 0; i < total; i++ {
		var page [uorocketry.ChannelsPerPage]uint32
		copy(page[:], readings[i*uorocketry.ChannelsPerPage:])
		msg, err := uorocketry.NewSensorPage(id, page, timeBootMs, uint8(i+1), uint8(total))
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}
