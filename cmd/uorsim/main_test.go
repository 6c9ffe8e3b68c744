package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/uorlink/internal/config"
	"github.com/danmuck/uorlink/internal/protocol/frame"
	"github.com/danmuck/uorlink/internal/protocol/uorocketry"
	"github.com/danmuck/uorlink/internal/telemetry"
	"github.com/danmuck/uorlink/internal/testutil/testlog"
)

func TestRunWritesAssemblableCycles(t *testing.T) {
	testlog.Start(t)

	cfg := config.DefaultSimConfig()
	cfg.Interval = 0
	cfg.Cycles = 2
	cfg.Sensors = config.SensorCounts{Thermocouples: 20, Pressure: 3, Strain: 0}

	var out bytes.Buffer
	if err := run(context.Background(), cfg, &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	r := frame.NewReader(&out, uorocketry.Dialect(), frame.DefaultLimits())
	asm := telemetry.NewAssembler()
	snapshots := map[telemetry.Kind]int{}
	frames := 0
	for {
		f, err := r.ReadFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if f.Header.SystemID != cfg.SystemID || f.Header.Seq != uint8(frames) {
			t.Fatalf("frame %d header %+v", frames, f.Header)
		}
		frames++
		msg, err := uorocketry.Decode(f)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		snap, ok, err := asm.Add(msg.(uorocketry.SensorPage))
		if err != nil {
			t.Fatalf("assemble: %v", err)
		}
		if ok {
			snapshots[snap.Kind]++
			if snap.Readings[0] != simulate(snap.Kind, 1, snapshots[snap.Kind]-1)[0] {
				t.Fatalf("%s cycle %d first reading %d", snap.Kind, snapshots[snap.Kind], snap.Readings[0])
			}
		}
	}

	// 3 thermocouple pages and 1 pressure page per cycle
	if frames != 8 {
		t.Fatalf("frames=%d want=8", frames)
	}
	if snapshots[telemetry.Thermocouple] != 2 || snapshots[telemetry.Pressure] != 2 || snapshots[telemetry.Strain] != 0 {
		t.Fatalf("unexpected snapshots: %v", snapshots)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	testlog.Start(t)

	cfg := config.DefaultSimConfig()
	cfg.Cycles = 0
	cfg.Interval = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := run(ctx, cfg, io.Discard)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
}

func TestRunBoundedSkipsFinalWait(t *testing.T) {
	testlog.Start(t)

	cfg := config.DefaultSimConfig()
	cfg.Cycles = 2
	cfg.Interval = 300 * time.Millisecond
	cfg.Sensors = config.SensorCounts{Thermocouples: 1}

	start := time.Now()
	if err := run(context.Background(), cfg, io.Discard); err != nil {
		t.Fatalf("run: %v", err)
	}
	// one wait between the two cycles, none after the last
	if elapsed := time.Since(start); elapsed >= 550*time.Millisecond {
		t.Fatalf("bounded run took %s", elapsed)
	}
}

func TestPublishWritesOutputFile(t *testing.T) {
	testlog.Start(t)

	cfg := config.DefaultSimConfig()
	cfg.Cycles = 1
	cfg.Interval = 0
	cfg.Output = filepath.Join(t.TempDir(), "frames.bin")
	if err := publish(context.Background(), cfg); err != nil {
		t.Fatalf("publish: %v", err)
	}
	raw, err := os.ReadFile(cfg.Output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	r := frame.NewReader(bytes.NewReader(raw), uorocketry.Dialect(), frame.DefaultLimits())
	n := 0
	for {
		if _, err := r.ReadFrame(); err != nil {
			if !errors.Is(err, io.EOF) {
				t.Fatalf("read: %v", err)
			}
			break
		}
		n++
	}
	if n != 3 {
		t.Fatalf("frames=%d want=3", n)
	}
}
