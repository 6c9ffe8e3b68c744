package uorocketry

import (
	"bytes"
	"errors"
	"testing"

	"github.com/danmuck/uorlink/internal/protocol/frame"
	"github.com/danmuck/uorlink/internal/protocol/schema"
	"github.com/google/go-cmp/cmp"
)

// scenarioReadings are the reference values exchanged by the dialect self test.
var scenarioReadings = [ChannelsPerPage]uint32{
	963497464, 963497672, 963497880, 963498088,
	963498296, 963498504, 963498712, 963498920,
}

func samples() []Message {
	return []Message{
		&TestUOR{Test: 5},
		&ThermocoupleUOR{TC: scenarioReadings, TimeBootMs: 963499128, PageNum: 113, PageTotal: 180},
		&PressureUOR{PS: scenarioReadings, TimeBootMs: 963499128, PageNum: 113, PageTotal: 180},
		&StrainUOR{SG: scenarioReadings, TimeBootMs: 963499128, PageNum: 113, PageTotal: 180},
	}
}

func TestTablesMatchDeclaredConstants(t *testing.T) {
	for _, tc := range []struct {
		info   schema.Message
		id     uint32
		length int
		crc    byte
	}{
		{TestUORInfo, 60000, 1, 57},
		{ThermocoupleUORInfo, 60001, 38, 223},
		{PressureUORInfo, 60002, 38, 194},
		{StrainUORInfo, 60003, 38, 166},
	} {
		t.Run(tc.info.Name, func(t *testing.T) {
			if tc.info.ID != tc.id {
				t.Fatalf("id=%d want=%d", tc.info.ID, tc.id)
			}
			if err := tc.info.Validate(tc.length, tc.crc); err != nil {
				t.Fatalf("validate: %v", err)
			}
			if c, ok := Dialect().CRCExtra(tc.id); !ok || c != tc.crc {
				t.Fatalf("dialect crc=%d,%v want=%d", c, ok, tc.crc)
			}
		})
	}
}

func TestCheckEntryRejectsMismatch(t *testing.T) {
	for id, e := range entries {
		if err := checkEntry(e); err != nil {
			t.Fatalf("entry %d: %v", id, err)
		}
	}

	badCRC := entries[MsgIDThermocoupleUOR]
	badCRC.crc = PressureUORCRC
	var verr schema.ValidationError
	if err := checkEntry(badCRC); !errors.As(err, &verr) || verr.Message != "THERMOCOUPLE_UOR" {
		t.Fatalf("expected ValidationError for crc mismatch, got %v", err)
	}

	badMin := entries[MsgIDTestUOR]
	badMin.minLen = 2
	if err := checkEntry(badMin); err == nil {
		t.Fatalf("expected min length mismatch")
	}
}

func TestSensorLayoutOffsets(t *testing.T) {
	for _, info := range []schema.Message{ThermocoupleUORInfo, PressureUORInfo, StrainUORInfo} {
		l := info.Layout()
		for i, s := range l.Slots[:ChannelsPerPage] {
			if s.Offset != 4*i || s.Type != schema.Uint32 {
				t.Fatalf("%s slot %d: %s at %d", info.Name, i, s.Name, s.Offset)
			}
		}
		rest := []struct {
			name   string
			offset int
		}{{"time_boot_ms", 32}, {"PAGE_NUM", 36}, {"PAGE_TOTAL", 37}}
		for _, want := range rest {
			s, ok := l.Slot(want.name)
			if !ok || s.Offset != want.offset {
				t.Fatalf("%s %s offset=%d want=%d", info.Name, want.name, s.Offset, want.offset)
			}
		}
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	for _, in := range samples() {
		out, err := New(in.MessageID())
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		out.UnmarshalPayload(in.MarshalPayload())
		if diff := cmp.Diff(in, out); diff != "" {
			t.Fatalf("round trip mismatch (-in +out):\n%s", diff)
		}
	}
}

func TestThermocoupleScenarioWireBytes(t *testing.T) {
	m := samples()[1].(*ThermocoupleUOR)
	p := m.MarshalPayload()
	if len(p) != ThermocoupleUORLen {
		t.Fatalf("payload len=%d", len(p))
	}
	// 963497464 = 0x396DCDF8
	if !bytes.Equal(p[0:4], []byte{0xF8, 0xCD, 0x6D, 0x39}) {
		t.Fatalf("TC_1 not little-endian: % x", p[0:4])
	}
	if p[36] != 113 || p[37] != 180 {
		t.Fatalf("paging bytes: %d %d", p[36], p[37])
	}
	if got := DecodeThermocoupleUOR(p); got != *m {
		t.Fatalf("decode mismatch: %+v", got)
	}
}

func TestPackDecodeThroughStream(t *testing.T) {
	ch := frame.NewChannel(1, 1)
	var stream bytes.Buffer
	for _, in := range samples() {
		f, err := Pack(ch, in)
		if err != nil {
			t.Fatalf("pack: %v", err)
		}
		n, err := f.WriteTo(&stream)
		if err != nil {
			t.Fatalf("write: %v", err)
		}
		if int(n) != f.Len() {
			t.Fatalf("wrote %d bytes, frame len %d", n, f.Len())
		}
	}

	r := frame.NewReader(&stream, Dialect(), frame.DefaultLimits())
	for i, in := range samples() {
		f, err := r.ReadFrame()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if f.Header.Seq != uint8(i) {
			t.Fatalf("seq=%d want=%d", f.Header.Seq, i)
		}
		out, err := Decode(f)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if diff := cmp.Diff(in, out); diff != "" {
			t.Fatalf("stream round trip mismatch (-in +out):\n%s", diff)
		}
	}
}

func TestTrimmedFrameDecodesZeroTail(t *testing.T) {
	in := &StrainUOR{SG: [ChannelsPerPage]uint32{1, 2, 3}}
	f, err := Pack(frame.NewChannel(1, 1), in)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if f.Header.Len != 9 {
		t.Fatalf("expected trailing zeros trimmed to 9 bytes, got %d", f.Header.Len)
	}
	out, err := Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(Message(in), out); diff != "" {
		t.Fatalf("trimmed decode mismatch (-in +out):\n%s", diff)
	}
}

func TestTruncatedPayloadZeroFills(t *testing.T) {
	in := samples()[2].(*PressureUOR)
	p := in.MarshalPayload()

	got := DecodePressureUOR(p[:20])
	want := PressureUOR{}
	copy(want.PS[:5], in.PS[:5])
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("truncated decode mismatch (-want +got):\n%s", diff)
	}

	if got := DecodeTestUOR(nil); got.Test != 0 {
		t.Fatalf("empty TEST_UOR decoded %d", got.Test)
	}
	if got := DecodeStrainUOR(append(p, 0xFF)); got.SG != in.PS {
		t.Fatalf("oversized payload changed readings: %+v", got)
	}
}

func TestTypedCodecMatchesTable(t *testing.T) {
	for _, in := range samples() {
		info, ok := MessageInfoByID(in.MessageID())
		if !ok {
			t.Fatalf("no info for %d", in.MessageID())
		}
		values := schema.Decode(info, in.MarshalPayload())
		generic, err := schema.Encode(info, values)
		if err != nil {
			t.Fatalf("encode %s: %v", info.Name, err)
		}
		if !bytes.Equal(generic, in.MarshalPayload()) {
			t.Fatalf("%s: table codec disagrees with typed codec", info.Name)
		}
	}
}

func TestGetField(t *testing.T) {
	f, err := Pack(frame.NewChannel(1, 1), samples()[1])
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	for name, want := range map[string]uint64{
		"TC_1":         963497464,
		"TC_8":         963498920,
		"time_boot_ms": 963499128,
		"PAGE_NUM":     113,
		"PAGE_TOTAL":   180,
	} {
		v, err := GetField(f, name)
		if err != nil {
			t.Fatalf("get %s: %v", name, err)
		}
		if v.Uint() != want {
			t.Fatalf("%s=%d want=%d", name, v.Uint(), want)
		}
	}
	if _, err := GetField(f, "TC_9"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}

	info, values, err := Fields(f)
	if err != nil || info.Name != "THERMOCOUPLE_UOR" || len(values) != 11 {
		t.Fatalf("fields: %s %d %v", info.Name, len(values), err)
	}
}

func TestMessageInfoLookups(t *testing.T) {
	for _, name := range []string{"TEST_UOR", "THERMOCOUPLE_UOR", "PRESSURE_UOR", "STRAIN_UOR"} {
		byName, ok := MessageInfoByName(name)
		if !ok {
			t.Fatalf("missing %s by name", name)
		}
		byID, ok := MessageInfoByID(byName.ID)
		if !ok || byID.Name != name {
			t.Fatalf("id lookup for %s returned %q", name, byID.Name)
		}
	}
	if _, ok := MessageInfoByName("HEARTBEAT"); ok {
		t.Fatalf("HEARTBEAT is not part of the dialect")
	}
}

func TestUnknownIDs(t *testing.T) {
	if _, err := New(1); !errors.Is(err, ErrUnknownMessage) {
		t.Fatalf("expected ErrUnknownMessage, got %v", err)
	}
	if _, err := Decode(frame.Frame{Header: frame.Header{MessageID: 0}}); !errors.Is(err, ErrUnknownMessage) {
		t.Fatalf("expected ErrUnknownMessage, got %v", err)
	}
	if _, err := NewSensorPage(MsgIDTestUOR, scenarioReadings, 0, 0, 0); !errors.Is(err, ErrUnknownMessage) {
		t.Fatalf("expected ErrUnknownMessage, got %v", err)
	}
}

func TestNewSensorPage(t *testing.T) {
	for _, id := range []uint32{MsgIDThermocoupleUOR, MsgIDPressureUOR, MsgIDStrainUOR} {
		p, err := NewSensorPage(id, scenarioReadings, 42, 2, 3)
		if err != nil {
			t.Fatalf("new sensor page %d: %v", id, err)
		}
		num, total := p.Page()
		if p.MessageID() != id || p.Readings() != scenarioReadings || p.BootTime() != 42 || num != 2 || total != 3 {
			t.Fatalf("unexpected page for %d: %+v", id, p)
		}
	}
}
