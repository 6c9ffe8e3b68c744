// Package selftest exercises every uorocketry message through the codec,
// the framer and the stream reader, comparing each result against the
// message it started from.
package selftest

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/danmuck/uorlink/internal/logging"
	"github.com/danmuck/uorlink/internal/protocol/frame"
	"github.com/danmuck/uorlink/internal/protocol/uorocketry"
	"github.com/google/go-cmp/cmp"
)

var ErrFailed = errors.New("selftest: checks failed")

// Scenario values shared by the sensor messages.
const (
	sampleReading   uint32 = 963497464
	sampleStep      uint32 = 208
	sampleTimeBoot  uint32 = 963499128
	samplePageNum   uint8  = 113
	samplePageTotal uint8  = 180
	sampleTest      uint8  = 5
)

// Samples returns one populated message per dialect id, ordered by id.
func Samples() []uorocketry.Message {
	var readings [uorocketry.ChannelsPerPage]uint32
	for i := range readings {
		readings[i] = sampleReading + sampleStep*uint32(i)
	}
	return []uorocketry.Message{
		&uorocketry.TestUOR{Test: sampleTest},
		&uorocketry.ThermocoupleUOR{TC: readings, TimeBootMs: sampleTimeBoot, PageNum: samplePageNum, PageTotal: samplePageTotal},
		&uorocketry.PressureUOR{PS: readings, TimeBootMs: sampleTimeBoot, PageNum: samplePageNum, PageTotal: samplePageTotal},
		&uorocketry.StrainUOR{SG: readings, TimeBootMs: sampleTimeBoot, PageNum: samplePageNum, PageTotal: samplePageTotal},
	}
}

// Failure is one check that did not hold.
type Failure struct {
	Message string
	Check   string
	Detail  string
}

func (f Failure) String() string {
	return fmt.Sprintf("%s/%s: %s", f.Message, f.Check, f.Detail)
}

type Report struct {
	Checks   int
	Failures []Failure
}

func (r Report) Passed() int { return r.Checks - len(r.Failures) }

func (r Report) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d of %d", ErrFailed, len(r.Failures), r.Checks)
}

type runner struct {
	report Report
	name   string
}

func (r *runner) check(name, detail string, ok bool) {
	r.report.Checks++
	if !ok {
		r.report.Failures = append(r.report.Failures, Failure{Message: r.name, Check: name, Detail: detail})
	}
}

func (r *runner) fail(name string, err error) {
	r.check(name, err.Error(), false)
}

func (r *runner) same(name string, want, got uorocketry.Message) {
	diff := cmp.Diff(want, got)
	r.check(name, "(-want +got)\n"+diff, diff == "")
}

// Run checks every message in msgs.
func Run(msgs []uorocketry.Message) Report {
	lg := logging.Component("selftest")
	primary := frame.NewChannel(1, 1)
	secondary := frame.NewChannel(2, 3)

	var r runner
	for _, m := range msgs {
		info, ok := uorocketry.MessageInfoByID(m.MessageID())
		if !ok {
			r.name = fmt.Sprintf("id(%d)", m.MessageID())
			r.fail("lookup", fmt.Errorf("%w: %d", uorocketry.ErrUnknownMessage, m.MessageID()))
			continue
		}
		r.name = info.Name
		before := len(r.report.Failures)

		r.encodeDecode(m)
		r.packDecode("pack", primary, m)
		r.packDecode("pack-second-channel", secondary, m)
		r.stream(primary, m)
		r.info(m.MessageID(), info.Name)

		lg.Debug().
			Str("message", info.Name).
			Int("failures", len(r.report.Failures)-before).
			Msg("message checked")
	}
	lg.Info().
		Int("checks", r.report.Checks).
		Int("failed", len(r.report.Failures)).
		Msg("selftest done")
	return r.report
}

func (r *runner) encodeDecode(m uorocketry.Message) {
	got, err := uorocketry.New(m.MessageID())
	if err != nil {
		r.fail("encode-decode", err)
		return
	}
	got.UnmarshalPayload(m.MarshalPayload())
	r.same("encode-decode", m, got)
}

func (r *runner) packDecode(check string, ch *frame.Channel, m uorocketry.Message) {
	f, err := uorocketry.Pack(ch, m)
	if err != nil {
		r.fail(check, err)
		return
	}
	r.check(check+"-header", fmt.Sprintf("sys=%d comp=%d", f.Header.SystemID, f.Header.ComponentID),
		f.Header.SystemID == ch.SystemID && f.Header.ComponentID == ch.ComponentID)
	got, err := uorocketry.Decode(f)
	if err != nil {
		r.fail(check, err)
		return
	}
	r.same(check, m, got)
}

func (r *runner) stream(ch *frame.Channel, m uorocketry.Message) {
	f, err := uorocketry.Pack(ch, m)
	if err != nil {
		r.fail("stream", err)
		return
	}
	buf, err := f.MarshalBinary()
	if err != nil {
		r.fail("stream", err)
		return
	}
	r.check("stream-length", fmt.Sprintf("len=%d buf=%d", f.Len(), len(buf)), f.Len() == len(buf))

	rd := frame.NewReader(bytes.NewReader(buf), uorocketry.Dialect(), frame.DefaultLimits())
	out, err := rd.ReadFrame()
	if err != nil {
		r.fail("stream", err)
		return
	}
	r.check("stream-seq", fmt.Sprintf("seq=%d want=%d", out.Header.Seq, f.Header.Seq), out.Header.Seq == f.Header.Seq)
	got, err := uorocketry.Decode(out)
	if err != nil {
		r.fail("stream", err)
		return
	}
	r.same("stream", m, got)
}

func (r *runner) info(id uint32, name string) {
	byName, ok := uorocketry.MessageInfoByName(name)
	r.check("info-by-name", fmt.Sprintf("id=%d want=%d", byName.ID, id), ok && byName.ID == id)
	byID, ok := uorocketry.MessageInfoByID(id)
	r.check("info-by-id", fmt.Sprintf("name=%q want=%q", byID.Name, name), ok && byID.Name == name)
}
