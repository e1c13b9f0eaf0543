package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: json_to_yaml
description: "One memory input written as YAML to a file"
pipeline:
  inputs:
    - { id: in, kind: memory, path: in.json, content: '{"a": 1}' }
  outputs:
    - { id: out, kind: file, path: out.yaml }
expect:
  ok: true
  outputs:
    out.yaml: "a: 1\n"
`

const failingScenario = `name: wrong_output
description: "Expects output the pipeline does not produce"
modes: [sync]
pipeline:
  inputs:
    - { id: in, kind: memory, path: in.json, content: '{"a": 1}' }
  outputs:
    - { id: out, kind: file, path: out.yaml }
expect:
  ok: true
  outputs:
    out.yaml: "a: 2\n"
`

func TestTestCommandMissingArgs(t *testing.T) {
	res := execute(t, "", "test")
	assert.Equal(t, ExitCommandError, res.code)
	assert.Contains(t, res.stderr, "accepts 1 arg")
}

func TestTestCommandNonExistentDir(t *testing.T) {
	res := execute(t, "", "test", "/nonexistent/scenarios")
	assert.Equal(t, ExitCommandError, res.code)
	assert.Contains(t, res.stderr, "scenarios directory not found")
}

func TestTestCommandEmptyDir(t *testing.T) {
	res := execute(t, "", "test", t.TempDir())
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Equal(t, "No scenarios found.\n", res.stdout)
}

func TestTestCommandPassing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "json_to_yaml.yaml", passingScenario)

	res := execute(t, "", "test", dir)
	require.Equal(t, ExitSuccess, res.code, res.stdout)
	assert.Contains(t, res.stdout, "✓ json_to_yaml")
	assert.Contains(t, res.stdout, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestTestCommandFailing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "json_to_yaml.yaml", passingScenario)
	writeFile(t, dir, "wrong_output.yaml", failingScenario)

	res := execute(t, "", "test", dir)
	assert.Equal(t, ExitFailure, res.code)
	assert.Contains(t, res.stdout, "✓ json_to_yaml")
	assert.Contains(t, res.stdout, "✗ wrong_output")
	assert.Contains(t, res.stdout, "sync: output out.yaml:")
	assert.Contains(t, res.stdout, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTestCommandFilter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "json_to_yaml.yaml", passingScenario)
	writeFile(t, dir, "wrong_output.yaml", failingScenario)

	res := execute(t, "", "test", "--filter", "json_*", dir)
	require.Equal(t, ExitSuccess, res.code, res.stdout)
	assert.NotContains(t, res.stdout, "wrong_output")
}

func TestTestCommandLoadError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.yaml", "name: broken\n")

	res := execute(t, "", "test", "--format", "json", dir)
	assert.Equal(t, ExitFailure, res.code)

	var resp struct {
		Status string `json:"status"`
		Error  struct {
			Details TestResult `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.Len(t, resp.Error.Details.Scenarios, 1)
	assert.Equal(t, "broken.yaml", resp.Error.Details.Scenarios[0].Name)
	assert.Contains(t, resp.Error.Details.Scenarios[0].Errors[0], "description is required")
}

func TestTestCommandGoldenUpdateAndCompare(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "json_to_yaml.yaml", passingScenario)
	golden := filepath.Join(dir, "golden", "json_to_yaml.golden")

	res := execute(t, "", "test", "--update", dir)
	require.Equal(t, ExitSuccess, res.code, res.stdout)
	data := readFile(t, golden)
	assert.Contains(t, data, `"scenario_name": "json_to_yaml"`)
	assert.Contains(t, data, `"out.yaml": "a: 1\n"`)

	res = execute(t, "", "test", dir)
	require.Equal(t, ExitSuccess, res.code, res.stdout)

	require.NoError(t, os.WriteFile(golden, []byte("{}\n"), 0o644))
	res = execute(t, "", "test", dir)
	assert.Equal(t, ExitFailure, res.code)
	assert.Contains(t, res.stdout, "golden file mismatch")
}

func TestTestCommandRunsHarnessScenarios(t *testing.T) {
	dir := filepath.Join("..", "harness", "testdata", "scenarios")

	res := execute(t, "", "test", dir)
	require.Equal(t, ExitSuccess, res.code, res.stdout)
	assert.Contains(t, res.stdout, "✓ csv_fan_out")
	assert.Contains(t, res.stdout, "✓ positional_streams")
}
