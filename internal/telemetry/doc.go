// Package telemetry splits sensor arrays into paged dialect messages and
// reassembles them on the receiving side.
//
// A sensor bank with up to eight channels travels as a single message with
// PAGE_NUM and PAGE_TOTAL set to zero. Larger banks are split into pages
// numbered 1..N, each carrying PAGE_TOTAL=N and the same boot timestamp.
package telemetry
