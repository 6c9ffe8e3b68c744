package telemetry

import (
	"time"

	"github.com/danmuck/uorlink/internal/protocol/frame"
	"github.com/danmuck/uorlink/internal/protocol/uorocketry"
)

// Option configures a Publisher.
type Option func(*Publisher)

// WithClock replaces time.Now as the publisher's time source.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		p.now = now
	}
}

// WithBootTime sets the instant time_boot_ms counts from.
func WithBootTime(boot time.Time) Option {
	return func(p *Publisher) {
		p.boot = boot
	}
}

// Publisher emits one page per Next call, cycling through the pages of the
// latest readings. A cycle is snapshotted when its first page is emitted, so
// every page of a cycle shares readings and timestamp.
type Publisher struct {
	kind     Kind
	fin      uorocketry.Finalizer
	now      func() time.Time
	boot     time.Time
	readings []uint32
	cycle    []uorocketry.SensorPage
	next     int
	done     bool
}

func NewPublisher(kind Kind, fin uorocketry.Finalizer, opts ...Option) *Publisher {
	p := &Publisher{
		kind: kind,
		fin:  fin,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.boot.IsZero() {
		p.boot = p.now()
	}
	return p
}

func (p *Publisher) Kind() Kind { return p.kind }

// Update replaces the readings used from the next cycle on.
func (p *Publisher) Update(readings []uint32) {
	p.readings = append(p.readings[:0], readings...)
}

// Pages reports how many pages the current or next cycle spans.
func (p *Publisher) Pages() int {
	if p.next > 0 {
		return len(p.cycle)
	}
	n := (len(p.readings) + uorocketry.ChannelsPerPage - 1) / uorocketry.ChannelsPerPage
	if n == 0 {
		n = 1
	}
	return n
}

// Next packs the next page of the cycle.
func (p *Publisher) Next() (frame.Frame, error) {
	if p.next == 0 {
		cycle, err := Paginate(p.kind, p.readings, p.timeBootMs())
		if err != nil {
			return frame.Frame{}, err
		}
		p.cycle = cycle
	}

	f, err := uorocketry.Pack(p.fin, p.cycle[p.next])
	if err != nil {
		return frame.Frame{}, err
	}
	p.next++
	if p.next == len(p.cycle) {
		p.next = 0
		p.done = true
	}
	return f, nil
}

// Done reports whether a full cycle finished since the last call.
func (p *Publisher) Done() bool {
	d := p.done
	p.done = false
	return d
}

// time_boot_ms wraps after ~49.7 days, as on the boards.
func (p *Publisher) timeBootMs() uint32 {
	return uint32(p.now().Sub(p.boot).Milliseconds())
}
