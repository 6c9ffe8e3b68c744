package telemetry

import (
	"fmt"

	"github.com/danmuck/uorlink/internal/protocol/uorocketry"
)

// Snapshot is one reassembled sensor bank. Readings spans every page, so
// unused channels of the last page read as zero.
type Snapshot struct {
	Kind       Kind
	TimeBootMs uint32
	Readings   []uint32
}

type partial struct {
	timeBootMs uint32
	total      uint8
	pages      map[uint8][uorocketry.ChannelsPerPage]uint32
}

// Assembler collects pages per sensor kind. A page with a different
// timestamp or page count abandons the cycle in progress. Not safe for
// concurrent use.
type Assembler struct {
	pending map[Kind]*partial
	dropped int
}

func NewAssembler() *Assembler {
	return &Assembler{pending: make(map[Kind]*partial)}
}

// Dropped counts incomplete cycles abandoned so far.
func (a *Assembler) Dropped() int { return a.dropped }

// Add records page and returns a snapshot once its cycle is complete.
func (a *Assembler) Add(page uorocketry.SensorPage) (Snapshot, bool, error) {
	kind, ok := KindOf(page.MessageID())
	if !ok {
		return Snapshot{}, false, fmt.Errorf("%w: message %d", ErrUnknownKind, page.MessageID())
	}
	num, total := page.Page()
	readings := page.Readings()

	if total == 0 {
		if num != 0 {
			return Snapshot{}, false, fmt.Errorf("%w: %s page %d of 0", ErrBadPage, kind, num)
		}
		return Snapshot{Kind: kind, TimeBootMs: page.BootTime(), Readings: readings[:]}, true, nil
	}
	if num == 0 || num > total {
		return Snapshot{}, false, fmt.Errorf("%w: %s page %d of %d", ErrBadPage, kind, num, total)
	}

	p := a.pending[kind]
	if p != nil && (p.timeBootMs != page.BootTime() || p.total != total) {
		a.dropped++
		p = nil
	}
	if p == nil {
		p = &partial{
			timeBootMs: page.BootTime(),
			total:      total,
			pages:      make(map[uint8][uorocketry.ChannelsPerPage]uint32, total),
		}
		a.pending[kind] = p
	}
	p.pages[num] = readings

	if len(p.pages) < int(p.total) {
		return Snapshot{}, false, nil
	}
	delete(a.pending, kind)

	out := Snapshot{
		Kind:       kind,
		TimeBootMs: p.timeBootMs,
		Readings:   make([]uint32, 0, int(p.total)*uorocketry.ChannelsPerPage),
	}
	for n := 1; n <= int(p.total); n++ {
		r := p.pages[uint8(n)]
		out.Readings = append(out.Readings, r[:]...)
	}
	return out, true, nil
}
