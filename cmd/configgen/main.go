package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danmuck/uorlink/internal/config"
	"github.com/danmuck/uorlink/internal/logging"
)

const defaultSimPath = "cmd/uorsim/config.toml"

func main() {
	kind := flag.String("kind", "uorsim", "config kind: uorsim")
	output := flag.String("output", "", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "", "config path for validation (defaults to the uorsim cmd path)")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	logging.ConfigureRuntime()
	lg := logging.Component("configgen")

	if _, err := config.Template(*kind); err != nil {
		fatalf("%v", err)
	}

	if *validate {
		path := *input
		if path == "" {
			path = defaultSimPath
		}
		cfg, err := config.LoadSimConfig(path)
		if err != nil {
			fatalf("%v", err)
		}
		lg.Info().
			Str("path", path).
			Int("thermocouples", cfg.Sensors.Thermocouples).
			Int("pressure", cfg.Sensors.Pressure).
			Int("strain", cfg.Sensors.Strain).
			Msg("validated config")
		return
	}

	target := *output
	if target == "" {
		target = defaultSimPath
	}
	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		fatalf("%v", err)
	}
	lg.Info().Str("kind", *kind).Str("path", target).Msg("wrote config template")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "configgen: "+format+"\n", args...)
	os.Exit(1)
}
