package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crossbind/internal/ownership"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yaml")
	content := `
name: test_scenario
description: "Test scenario for validation"
library: widgets
heuristics:
  return_value: false
steps:
  - call: Widget.Widget
    bind: w
  - call: Widget.resize
    self: w
    args: [4, 3]
  - call: Widget.area
    self: w
    expect:
      value: 12
assertions:
  - type: trace_contains
    action: Widget.resize
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "widgets", scenario.Library)
	assert.Len(t, scenario.Steps, 3)
	assert.Len(t, scenario.Assertions, 1)
	assert.Equal(t, OpCall, scenario.Steps[1].Op())
	assert.Equal(t, []any{4, 3}, scenario.Steps[1].Args)
	require.NotNil(t, scenario.Steps[2].Expect)
	require.NotNil(t, scenario.Steps[2].Expect.Value)

	h := scenario.heuristics(ownership.DefaultHeuristics())
	assert.False(t, h.ReturnValue)
	assert.Equal(t, "parent", h.ParentArgument)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "unknown field",
			yaml: `
name: x
description: d
library: widgets
steps:
  - call: describe
assertion: []
`,
			wantErr: "field assertion not found",
		},
		{
			name: "missing name",
			yaml: `
description: d
library: widgets
steps:
  - call: describe
`,
			wantErr: "name is required",
		},
		{
			name: "missing library",
			yaml: `
name: x
description: d
steps:
  - call: describe
`,
			wantErr: "library is required",
		},
		{
			name: "no steps",
			yaml: `
name: x
description: d
library: widgets
`,
			wantErr: "steps list is required",
		},
		{
			name: "two operations in one step",
			yaml: `
name: x
description: d
library: widgets
steps:
  - call: Widget.Widget
    bind: w
  - call: Widget.area
    collect: w
`,
			wantErr: "steps[1]: exactly one of",
		},
		{
			name: "unbound ref",
			yaml: `
name: x
description: d
library: widgets
steps:
  - call: Widget.area
    self: w
`,
			wantErr: `steps[0]: "w" is not bound by an earlier step`,
		},
		{
			name: "destroyed on a call",
			yaml: `
name: x
description: d
library: widgets
steps:
  - call: Widget.Widget
    expect:
      destroyed: true
`,
			wantErr: "destroyed only applies to collect",
		},
		{
			name: "error with value",
			yaml: `
name: x
description: d
library: widgets
steps:
  - call: describe
    expect:
      error: TypeError
      value: 1
`,
			wantErr: "error excludes value and type",
		},
		{
			name: "unknown assertion type",
			yaml: `
name: x
description: d
library: widgets
steps:
  - call: describe
assertions:
  - type: eventually
`,
			wantErr: `unknown assertion type "eventually"`,
		},
		{
			name: "destroyed assertion without objects",
			yaml: `
name: x
description: d
library: widgets
steps:
  - call: describe
assertions:
  - type: destroyed
`,
			wantErr: "objects is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStepOp(t *testing.T) {
	assert.Equal(t, OpCall, (&Step{Call: "f"}).Op())
	assert.Equal(t, OpOverride, (&Step{Override: &OverrideStep{}}).Op())
	assert.Equal(t, OpVirtual, (&Step{Virtual: &VirtualStep{}}).Op())
	assert.Equal(t, OpCollect, (&Step{Collect: "w"}).Op())
	assert.Equal(t, OpDestroy, (&Step{Destroy: "w"}).Op())
	assert.Equal(t, OpOwner, (&Step{Owner: &OwnerStep{}}).Op())
	assert.Empty(t, (&Step{}).Op())
}

func TestLoadScenarios_Sorted(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)

	names := make([]string, len(scenarios))
	for i, s := range scenarios {
		names[i] = s.Name
	}
	assert.Equal(t, []string{"overloads", "parent_child", "virtual_override"}, names)
}
