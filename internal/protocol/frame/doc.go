// Package frame owns the v2 link framing: header layout, checksum
// finalisation and a resynchronising stream reader.
//
// Ownership boundary:
// - frame/header primitives
// - sequence numbering per channel
// - checksum validation against a CRC-extra lookup
package frame
