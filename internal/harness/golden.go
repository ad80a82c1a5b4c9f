package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// FormatTrace renders a result as the stable text compared against golden
// files: one line per step, its journal events indented below it, then the
// destroyed natives.
//
//	scenario: parent_child
//	1 call Widget.Widget() -> Widget w-1
//	    1 wrap w-1 type=Widget
//	destroyed: Widget:widget
func FormatTrace(name string, result *Result) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "scenario: %s\n", name)
	for _, ev := range result.Trace {
		sb.WriteString(ev.String())
		sb.WriteByte('\n')
		for _, j := range ev.Journal {
			fmt.Fprintf(&sb, "    %s\n", j)
		}
	}
	destroyed := "none"
	if len(result.Destroyed) > 0 {
		destroyed = strings.Join(result.Destroyed, ", ")
	}
	fmt.Fprintf(&sb, "destroyed: %s\n", destroyed)
	return []byte(sb.String())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, FormatTrace(scenarioName, result))
}
