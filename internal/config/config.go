package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/uorlink/internal/telemetry"
)

var ErrInvalid = errors.New("config: invalid")

// SensorCounts is the number of channels simulated per sensor bank.
type SensorCounts struct {
	Thermocouples int
	Pressure      int
	Strain        int
}

// Of returns the channel count for one bank.
func (s SensorCounts) Of(kind telemetry.Kind) int {
	switch kind {
	case telemetry.Thermocouple:
		return s.Thermocouples
	case telemetry.Pressure:
		return s.Pressure
	case telemetry.Strain:
		return s.Strain
	}
	return 0
}

// SimConfig drives the telemetry simulator.
type SimConfig struct {
	SystemID    uint8
	ComponentID uint8
	// Output is a file path, or "-" for stdout.
	Output   string
	Interval time.Duration
	// Cycles is the number of publish cycles; 0 runs until cancelled.
	Cycles  int
	Sensors SensorCounts
}

func DefaultSimConfig() SimConfig {
	return SimConfig{
		SystemID:    1,
		ComponentID: 1,
		Output:      "-",
		Interval:    100 * time.Millisecond,
		Cycles:      10,
		Sensors: SensorCounts{
			Thermocouples: 8,
			Pressure:      8,
			Strain:        8,
		},
	}
}

// uorsim config.toml key mapping.
type simFileConfig struct {
	SystemID    int    `toml:"system_id"`
	ComponentID int    `toml:"component_id"`
	Output      string `toml:"output"`
	Interval    string `toml:"interval"`
	Cycles      int    `toml:"cycles"`
	Sensors     struct {
		Thermocouples int `toml:"thermocouples"`
		Pressure      int `toml:"pressure"`
		Strain        int `toml:"strain"`
	} `toml:"sensors"`
}

// LoadSimConfig overlays the keys present in path onto DefaultSimConfig.
func LoadSimConfig(path string) (SimConfig, error) {
	cfg := DefaultSimConfig()

	var raw simFileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return SimConfig{}, fmt.Errorf("load sim config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return SimConfig{}, fmt.Errorf("load sim config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("system_id") {
		id, err := idByte("system_id", raw.SystemID)
		if err != nil {
			return SimConfig{}, err
		}
		cfg.SystemID = id
	}
	if meta.IsDefined("component_id") {
		id, err := idByte("component_id", raw.ComponentID)
		if err != nil {
			return SimConfig{}, err
		}
		cfg.ComponentID = id
	}
	if meta.IsDefined("output") {
		cfg.Output = strings.TrimSpace(raw.Output)
	}
	if meta.IsDefined("interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Interval))
		if err != nil {
			return SimConfig{}, fmt.Errorf("load sim config: interval: %w", err)
		}
		cfg.Interval = d
	}
	if meta.IsDefined("cycles") {
		cfg.Cycles = raw.Cycles
	}
	if meta.IsDefined("sensors", "thermocouples") {
		cfg.Sensors.Thermocouples = raw.Sensors.Thermocouples
	}
	if meta.IsDefined("sensors", "pressure") {
		cfg.Sensors.Pressure = raw.Sensors.Pressure
	}
	if meta.IsDefined("sensors", "strain") {
		cfg.Sensors.Strain = raw.Sensors.Strain
	}

	if err := cfg.Validate(); err != nil {
		return SimConfig{}, fmt.Errorf("load sim config: %w", err)
	}
	return cfg, nil
}

func idByte(key string, v int) (uint8, error) {
	if v < 0 || v > 255 {
		return 0, fmt.Errorf("load sim config: %s %d out of range 0..255", key, v)
	}
	return uint8(v), nil
}

func (c SimConfig) Validate() error {
	if strings.TrimSpace(c.Output) == "" {
		return fmt.Errorf("%w: output is required", ErrInvalid)
	}
	if c.Interval < 0 {
		return fmt.Errorf("%w: interval %s is negative", ErrInvalid, c.Interval)
	}
	if c.Cycles < 0 {
		return fmt.Errorf("%w: cycles %d is negative", ErrInvalid, c.Cycles)
	}
	for _, k := range telemetry.Kinds() {
		n := c.Sensors.Of(k)
		if n < 0 || n > telemetry.MaxChannels {
			return fmt.Errorf("%w: %s channels %d out of range 0..%d", ErrInvalid, k, n, telemetry.MaxChannels)
		}
	}
	return nil
}
