package demo

import (
	"fmt"
	"strings"
	"time"
)

// Scenario controls request outcomes during a demo sweep.
type Scenario string

const (
	ScenarioSuccess Scenario = "success"
	ScenarioFlaky   Scenario = "flaky"
	ScenarioFail    Scenario = "fail"
)

func ParseScenario(value string) (Scenario, error) {
	switch Scenario(strings.ToLower(strings.TrimSpace(value))) {
	case ScenarioSuccess, ScenarioFlaky, ScenarioFail:
		return Scenario(strings.ToLower(strings.TrimSpace(value))), nil
	default:
		return "", fmt.Errorf("invalid demo scenario %q (valid: success, flaky, fail)", value)
	}
}

// slot places a launch time in a repeating cycle of five hours, so every
// sweep of five or more hours hits each scenario target.
func slot(launch time.Time) int {
	return launch.UTC().Hour()%5 + 1
}

// shouldFail decides whether an attempt fails.
//
// Scenario behavior:
//   - success: every attempt succeeds
//   - flaky: slots 2 and 4 fail their first attempt, then succeed
//   - fail: slot 3 always fails, others succeed
func shouldFail(scenario Scenario, launch time.Time, attempt int) bool {
	switch scenario {
	case ScenarioFlaky:
		s := slot(launch)
		return (s == 2 || s == 4) && attempt < 2
	case ScenarioFail:
		return slot(launch) == 3
	default:
		return false
	}
}
