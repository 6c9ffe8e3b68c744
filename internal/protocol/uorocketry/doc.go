// Package uorocketry is the uorocketry telemetry dialect: test and paged
// sensor messages (thermocouple, pressure, strain gauge) with their field
// tables, fixed-offset payload codecs and CRC-extra constants.
//
// Encoding produces the full declared payload; framing is delegated to a
// Finalizer. Decoding zero-fills any bytes the sender did not transmit, so
// frames with trimmed payloads and senders on an older, shorter schema decode
// cleanly.
package uorocketry
