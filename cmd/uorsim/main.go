package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/uorlink/internal/config"
	"github.com/danmuck/uorlink/internal/logging"
	"github.com/danmuck/uorlink/internal/observability"
	"github.com/danmuck/uorlink/internal/protocol/frame"
	"github.com/danmuck/uorlink/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to uorsim TOML config")
	output := flag.String("output", "", "output path, - for stdout")
	cycles := flag.Int("cycles", -1, "publish cycles, 0 runs until interrupted")
	interval := flag.Duration("interval", -1, "delay between cycles")
	metricsAddr := flag.String("metrics-addr", "", "serve prometheus metrics on this address")
	flag.Parse()

	logging.ConfigureRuntime()
	lg := logging.Component("uorsim")

	cfg := config.DefaultSimConfig()
	if *configPath != "" {
		loaded, err := config.LoadSimConfig(*configPath)
		if err != nil {
			fatalf("%v", err)
		}
		cfg = loaded
	}
	if *output != "" {
		cfg.Output = *output
	}
	if *cycles >= 0 {
		cfg.Cycles = *cycles
	}
	if *interval >= 0 {
		cfg.Interval = *interval
	}
	if err := cfg.Validate(); err != nil {
		fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *metricsAddr != "" {
		go func() {
			if err := observability.Serve(ctx, *metricsAddr); err != nil {
				lg.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	err := publish(ctx, cfg)
	interrupted := ctx.Err() != nil
	stop()
	if err != nil && !interrupted {
		fatalf("%v", err)
	}
}

// publish runs the simulator into cfg.Output ("-" for stdout).
func publish(ctx context.Context, cfg config.SimConfig) error {
	if cfg.Output == "-" {
		return run(ctx, cfg, os.Stdout)
	}
	f, err := os.Create(cfg.Output)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	if err := run(ctx, cfg, f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// run publishes cfg.Cycles full cycles of every configured sensor bank.
func run(ctx context.Context, cfg config.SimConfig, w io.Writer) error {
	lg := logging.Component("uorsim")
	ch := frame.NewChannel(cfg.SystemID, cfg.ComponentID)

	var pubs []*telemetry.Publisher
	for _, k := range telemetry.Kinds() {
		if cfg.Sensors.Of(k) == 0 {
			continue
		}
		pubs = append(pubs, telemetry.NewPublisher(k, ch))
	}
	lg.Info().
		Uint8("system_id", cfg.SystemID).
		Uint8("component_id", cfg.ComponentID).
		Int("banks", len(pubs)).
		Int("cycles", cfg.Cycles).
		Dur("interval", cfg.Interval).
		Msg("simulator starting")

	var ticker *time.Ticker
	if cfg.Interval > 0 {
		ticker = time.NewTicker(cfg.Interval)
		defer ticker.Stop()
	}

	frames := 0
	for cycle := 0; cfg.Cycles == 0 || cycle < cfg.Cycles; cycle++ {
		for _, p := range pubs {
			p.Update(simulate(p.Kind(), cfg.Sensors.Of(p.Kind()), cycle))
			n, err := publishCycle(p, w)
			if err != nil {
				return err
			}
			frames += n
		}
		lg.Debug().Int("cycle", cycle).Int("frames", frames).Msg("cycle written")

		if cfg.Cycles > 0 && cycle == cfg.Cycles-1 {
			break
		}
		if ticker == nil {
			if err := ctx.Err(); err != nil {
				return err
			}
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	lg.Info().Int("frames", frames).Msg("simulator done")
	return nil
}

func publishCycle(p *telemetry.Publisher, w io.Writer) (int, error) {
	start := time.Now()
	n := 0
	for {
		f, err := p.Next()
		if err != nil {
			return n, fmt.Errorf("publish %s: %w", p.Kind(), err)
		}
		if _, err := f.WriteTo(w); err != nil {
			return n, fmt.Errorf("write %s: %w", p.Kind(), err)
		}
		n++
		if p.Done() {
			observability.RecordPublished(p.Kind().String(), n, time.Since(start))
			return n, nil
		}
	}
}

// simulate produces deterministic raw ADC style readings that drift with
// the cycle so consecutive snapshots differ.
func simulate(kind telemetry.Kind, channels, cycle int) []uint32 {
	base := uint32(kind) * 100000
	out := make([]uint32, channels)
	for i := range out {
		out[i] = base + uint32(i)*208 + uint32(cycle)
	}
	return out
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "uorsim: "+format+"\n", args...)
	os.Exit(1)
}
