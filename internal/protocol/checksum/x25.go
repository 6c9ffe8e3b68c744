// Package checksum implements the X.25 CRC-16 used by the link protocol
// (CRC-16/MCRF4XX: reflected 0x1021, seed 0xFFFF, no final xor).
package checksum

import (
	"hash"

	"github.com/sigurn/crc16"
)

// Size is the checksum size in bytes.
const Size = 2

var table = crc16.MakeTable(crc16.CRC16_MCRF4XX)

// Init is the accumulator seed.
var Init = crc16.Init(table)

// Hash accumulates an X.25 checksum. The zero value is not ready for use;
// call New.
type Hash struct {
	crc uint16
}

var _ hash.Hash = (*Hash)(nil)

// New returns a Hash seeded with Init.
func New() *Hash {
	return &Hash{crc: Init}
}

// Accumulate folds one byte into crc.
func Accumulate(crc uint16, b byte) uint16 {
	return crc16.Update(crc, []byte{b}, table)
}

// Checksum returns the X.25 checksum of p.
func Checksum(p []byte) uint16 {
	return crc16.Checksum(p, table)
}

func (h *Hash) Write(p []byte) (int, error) {
	h.crc = crc16.Update(h.crc, p, table)
	return len(p), nil
}

// WriteByte folds a single byte.
func (h *Hash) WriteByte(b byte) error {
	h.crc = Accumulate(h.crc, b)
	return nil
}

// WriteString folds the bytes of s.
func (h *Hash) WriteString(s string) (int, error) {
	h.crc = crc16.Update(h.crc, []byte(s), table)
	return len(s), nil
}

// Sum appends the checksum to b in wire (little-endian) order.
func (h *Hash) Sum(b []byte) []byte {
	crc := h.Sum16()
	return append(b, byte(crc), byte(crc>>8))
}

// Sum16 returns the current checksum.
func (h *Hash) Sum16() uint16 { return crc16.Complete(h.crc, table) }

func (h *Hash) Reset() { h.crc = Init }

func (h *Hash) Size() int { return Size }

func (h *Hash) BlockSize() int { return 1 }
