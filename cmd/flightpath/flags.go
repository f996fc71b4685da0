package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/pablasso/flightpath/internal/demo"
	"github.com/pablasso/flightpath/internal/tui"
)

type parseResult struct {
	Options     tui.Options
	ConfigPath  string
	ShowHelp    bool
	ShowVersion bool
	HelpText    string
	// Command is set when args name a subcommand, which the CLI handles.
	Command bool
}

func parseArgs(args []string) (parseResult, error) {
	fs := flag.NewFlagSet("flightpath", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	configPath := fs.String("config", "", "Config file")
	demoEnabled := fs.Bool("demo", false, "Use the offline simulator and submit a sweep on start")
	demoPreset := fs.String("demo-preset", string(demo.PresetMedium), "Demo preset: quick|medium|slow")
	demoScenario := fs.String("demo-scenario", string(demo.ScenarioSuccess), "Demo scenario: success|flaky|fail")
	showVersion := fs.Bool("version", false, "Show version information")
	showVersionShort := fs.Bool("v", false, "Show version information")

	usage := func() string {
		var b strings.Builder
		fmt.Fprintln(&b, "Usage: flightpath [flags]")
		fmt.Fprintln(&b, "       flightpath <command> [flags]")
		fmt.Fprintln(&b, "")
		fmt.Fprintln(&b, "Flightpath predicts where a high altitude balloon will fly.")
		fmt.Fprintln(&b, "Without a command it opens the interactive planner.")
		fmt.Fprintln(&b, "")
		fmt.Fprintln(&b, "Commands:")
		fmt.Fprintln(&b, "  predict    Predict flight paths and print or export them")
		fmt.Fprintln(&b, "  version    Print version information")
		fmt.Fprintln(&b, "")
		fmt.Fprintln(&b, "Flags:")
		fs.SetOutput(&b)
		fs.PrintDefaults()
		fs.SetOutput(io.Discard)
		return b.String()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return parseResult{ShowHelp: true, HelpText: usage()}, nil
		}
		return parseResult{}, fmt.Errorf("%v\n\n%s", err, usage())
	}

	if fs.NArg() > 0 {
		return parseResult{Command: true}, nil
	}

	if *showVersion || *showVersionShort {
		return parseResult{ShowVersion: true}, nil
	}

	var presetProvided bool
	var scenarioProvided bool
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "demo-preset":
			presetProvided = true
		case "demo-scenario":
			scenarioProvided = true
		}
	})

	if !*demoEnabled && (presetProvided || scenarioProvided) {
		return parseResult{}, fmt.Errorf("--demo-preset/--demo-scenario require --demo\n\n%s", usage())
	}

	if !*demoEnabled {
		return parseResult{ConfigPath: *configPath}, nil
	}

	preset, err := demo.ParsePreset(*demoPreset)
	if err != nil {
		return parseResult{}, fmt.Errorf("%v\n\n%s", err, usage())
	}

	scenario, err := demo.ParseScenario(*demoScenario)
	if err != nil {
		return parseResult{}, fmt.Errorf("%v\n\n%s", err, usage())
	}

	return parseResult{
		ConfigPath: *configPath,
		Options: tui.Options{
			Demo: &tui.DemoOptions{
				Preset:   preset,
				Scenario: scenario,
			},
		},
	}, nil
}
