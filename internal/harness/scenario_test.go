package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/multiio/internal/config"
)

func TestLoadScenario(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/accumulate_input_failures.yaml")
	require.NoError(t, err)

	assert.Equal(t, "accumulate_input_failures", scenario.Name)
	assert.Equal(t, config.Accumulate, scenario.Pipeline.Policy())
	assert.Len(t, scenario.Pipeline.Inputs, 3)
	assert.Equal(t, `{"a": `, scenario.Files["bad.json"])
	assert.Equal(t, []string{ModeSync, ModeAsync}, scenario.RunModes())
	assert.False(t, scenario.Expect.OK)
	assert.Equal(t, []FailureExpect{
		{Direction: "input", Position: 1, Stage: "decode"},
		{Direction: "input", Position: 2, Stage: "open"},
	}, scenario.Expect.Failures)
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenarioErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown field",
			yaml: "name: x\ndescription: d\nassertions: []\n",
			want: "failed to parse YAML",
		},
		{
			name: "missing name",
			yaml: "description: d\n",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: x\n",
			want: "description is required",
		},
		{
			name: "unknown mode",
			yaml: "name: x\ndescription: d\nmodes: [parallel]\n",
			want: `modes[0]: unknown mode "parallel"`,
		},
		{
			name: "failures on success",
			yaml: "name: x\ndescription: d\nexpect:\n  ok: true\n  failures:\n    - { direction: input, position: 0 }\n",
			want: "failures given for a successful run",
		},
		{
			name: "bad direction",
			yaml: "name: x\ndescription: d\nexpect:\n  failures:\n    - { direction: sideways, position: 0 }\n",
			want: "expect.failures[0]: direction must be input or output",
		},
		{
			name: "negative position",
			yaml: "name: x\ndescription: d\nexpect:\n  failures:\n    - { direction: input, position: -1 }\n",
			want: "position must be non-negative",
		},
		{
			name: "unknown stage",
			yaml: "name: x\ndescription: d\nexpect:\n  failures:\n    - { direction: output, position: 0, stage: flush }\n",
			want: `unknown stage "flush"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEveryScenarioFileParses(t *testing.T) {
	entries, err := os.ReadDir("testdata/scenarios")
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		scenario, err := LoadScenario(filepath.Join("testdata/scenarios", e.Name()))
		require.NoError(t, err, e.Name())
		assert.False(t, names[scenario.Name], "duplicate scenario name %s", scenario.Name)
		names[scenario.Name] = true
		assert.FileExists(t, filepath.Join("testdata/scenarios/golden", scenario.Name+".golden"))
	}
}
