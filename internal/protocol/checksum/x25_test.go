package checksum

import (
	"bytes"
	"testing"
)

func TestChecksumCheckValue(t *testing.T) {
	if got, want := Checksum([]byte("123456789")), uint16(0x6F91); got != want {
		t.Fatalf("invalid check value: got=0x%04x, want=0x%04x", got, want)
	}
}

func TestHashMatchesOneShot(t *testing.T) {
	raw := []byte{0x01, 0x00, 0x00, 0x00, 0x01, 0x01, 0x60, 0xEA, 0x00, 0x05, 57}

	h := New()
	if got, want := h.BlockSize(), 1; got != want {
		t.Fatalf("invalid block size: got=%d, want=%d", got, want)
	}
	if _, err := h.Write(raw[:4]); err != nil {
		t.Fatalf("write: %v", err)
	}
	for _, b := range raw[4:] {
		if err := h.WriteByte(b); err != nil {
			t.Fatalf("write byte: %v", err)
		}
	}
	if got, want := h.Sum16(), Checksum(raw); got != want {
		t.Fatalf("streamed checksum mismatch: got=0x%04x, want=0x%04x", got, want)
	}
	if got, want := h.Sum16(), uint16(0x2529); got != want {
		t.Fatalf("invalid frame checksum: got=0x%04x, want=0x%04x", got, want)
	}
	if got, want := h.Sum(nil), []byte{0x29, 0x25}; !bytes.Equal(got, want) {
		t.Fatalf("invalid sum bytes: got=%x, want=%x", got, want)
	}

	h.Reset()
	if h.Sum16() != Init {
		t.Fatalf("reset did not restore seed: 0x%04x", h.Sum16())
	}
}

func TestWriteStringMatchesWrite(t *testing.T) {
	a, b := New(), New()
	_, _ = a.WriteString("TEST_UOR ")
	_, _ = b.Write([]byte("TEST_UOR "))
	if a.Sum16() != b.Sum16() {
		t.Fatalf("string/bytes mismatch: 0x%04x != 0x%04x", a.Sum16(), b.Sum16())
	}
}

func TestChecksumKnownValues(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want uint16
	}{
		{in: "", want: 0xFFFF},
		{in: "123456789", want: 0x6F91},
		{in: "THERMOCOUPLE_UOR uint32_t TC_1 ", want: 0x343C},
	} {
		if got := Checksum([]byte(tc.in)); got != tc.want {
			t.Fatalf("Checksum(%q): got=0x%04x, want=0x%04x", tc.in, got, tc.want)
		}
		crc := Init
		for i := 0; i < len(tc.in); i++ {
			crc = Accumulate(crc, tc.in[i])
		}
		if crc != tc.want {
			t.Fatalf("Accumulate(%q): got=0x%04x, want=0x%04x", tc.in, crc, tc.want)
		}
	}
}
