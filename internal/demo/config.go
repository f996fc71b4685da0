package demo

import (
	"fmt"
	"strings"
	"time"
)

// Preset controls how long each simulated request takes.
type Preset string

const (
	PresetQuick  Preset = "quick"
	PresetMedium Preset = "medium"
	PresetSlow   Preset = "slow"
)

func ParsePreset(value string) (Preset, error) {
	switch Preset(strings.ToLower(strings.TrimSpace(value))) {
	case PresetQuick, PresetMedium, PresetSlow:
		return Preset(strings.ToLower(strings.TrimSpace(value))), nil
	default:
		return "", fmt.Errorf("invalid demo preset %q (valid: quick, medium, slow)", value)
	}
}

// Config controls demo predictor behavior.
type Config struct {
	Scenario Scenario
	Preset   Preset
	// Latency is the base time one request takes. Later launch hours take
	// slightly longer so results arrive out of order.
	Latency time.Duration
	Jitter  time.Duration
}

func latencyForPreset(preset Preset) (time.Duration, error) {
	switch preset {
	case PresetQuick:
		return 300 * time.Millisecond, nil
	case PresetMedium:
		return 1200 * time.Millisecond, nil
	case PresetSlow:
		return 3 * time.Second, nil
	default:
		return 0, fmt.Errorf("unknown demo preset %q", preset)
	}
}

// NewConfig returns the demo config for a preset and scenario.
func NewConfig(preset Preset, scenario Scenario) (Config, error) {
	latency, err := latencyForPreset(preset)
	if err != nil {
		return Config{}, err
	}
	if _, err := ParseScenario(string(scenario)); err != nil {
		return Config{}, err
	}
	return Config{
		Scenario: scenario,
		Preset:   preset,
		Latency:  latency,
		Jitter:   latency / 2,
	}, nil
}

// DefaultConfig is the quick success demo.
func DefaultConfig() Config {
	cfg, _ := NewConfig(PresetQuick, ScenarioSuccess)
	return cfg
}
