package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/danmuck/uorlink/internal/logging"
	"github.com/danmuck/uorlink/internal/observability"
	"github.com/danmuck/uorlink/internal/protocol/frame"
	"github.com/danmuck/uorlink/internal/protocol/uorocketry"
	"github.com/danmuck/uorlink/internal/telemetry"
)

type options struct {
	strict    bool
	snapshots bool
}

func main() {
	input := flag.String("input", "-", "frame stream to read, - for stdin")
	strict := flag.Bool("strict", false, "stop at the first checksum mismatch")
	snapshots := flag.Bool("snapshots", false, "print reassembled sensor banks")
	metricsAddr := flag.String("metrics-addr", "", "serve prometheus metrics on this address")
	flag.Parse()

	logging.ConfigureRuntime()
	lg := logging.Component("uordump")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *metricsAddr != "" {
		go func() {
			if err := observability.Serve(ctx, *metricsAddr); err != nil {
				lg.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	err := run(*input, os.Stdout, options{strict: *strict, snapshots: *snapshots})
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "uordump: %v\n", err)
		os.Exit(1)
	}
}

// run dumps the stream at input ("-" for stdin) to w and logs reader stats.
func run(input string, w io.Writer, opts options) error {
	lg := logging.Component("uordump")

	in := io.Reader(os.Stdin)
	if input != "-" {
		f, err := os.Open(input)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	stats, err := dump(in, w, opts)
	lg.Info().
		Uint64("frames", stats.Frames).
		Uint64("dropped_bytes", stats.DroppedBytes).
		Uint64("bad_checksum", stats.BadChecksum).
		Uint64("unknown", stats.Unknown).
		Uint64("signed", stats.Signed).
		Msg("stream done")
	return err
}

// dump prints every frame in r as one line of named fields. Frames the
// reader can skip are logged and counted; anything else ends the dump.
func dump(r io.Reader, w io.Writer, opts options) (frame.Stats, error) {
	lg := logging.Component("uordump")
	rd := frame.NewReader(r, uorocketry.Dialect(), frame.Limits{StrictChecksum: opts.strict})
	asm := telemetry.NewAssembler()

	defer func() {
		observability.RecordDroppedBytes(rd.Stats().DroppedBytes)
	}()

	for {
		f, err := rd.ReadFrame()
		if errors.Is(err, io.EOF) {
			return rd.Stats(), nil
		}
		if err != nil {
			observability.RecordFrameError(err)
			if frame.Recoverable(err) && !(opts.strict && errors.Is(err, frame.ErrBadChecksum)) {
				lg.Warn().Err(err).Msg("frame skipped")
				continue
			}
			return rd.Stats(), err
		}

		info, values, err := uorocketry.Fields(f)
		if err != nil {
			return rd.Stats(), err
		}
		observability.RecordFrame(info.Name)

		var sb strings.Builder
		fmt.Fprintf(&sb, "seq=%d sys=%d comp=%d %s", f.Header.Seq, f.Header.SystemID, f.Header.ComponentID, info.Name)
		for _, v := range values {
			fmt.Fprintf(&sb, " %s=%s", v.Field.Name, v)
		}
		if _, err := fmt.Fprintln(w, sb.String()); err != nil {
			return rd.Stats(), err
		}

		if !opts.snapshots {
			continue
		}
		if _, ok := telemetry.KindOf(f.Header.MessageID); !ok {
			continue
		}
		msg, err := uorocketry.Decode(f)
		if err != nil {
			return rd.Stats(), err
		}
		snap, ok, err := asm.Add(msg.(uorocketry.SensorPage))
		if err != nil {
			lg.Warn().Err(err).Str("message", info.Name).Msg("page rejected")
			continue
		}
		if ok {
			if _, err := fmt.Fprintf(w, "snapshot %s time_boot_ms=%d readings=%v\n", snap.Kind, snap.TimeBootMs, snap.Readings); err != nil {
				return rd.Stats(), err
			}
		}
	}
}
