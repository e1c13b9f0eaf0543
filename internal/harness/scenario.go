package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/multiio/internal/config"
	"github.com/roach88/multiio/internal/engine"
)

// Run modes.
const (
	ModeSync  = "sync"
	ModeAsync = "async"
)

// Stream output keys used in ExpectClause.Outputs and Result.Outputs.
const (
	StdoutKey = "<stdout>"
	StderrKey = "<stderr>"
)

// Scenario defines a pipeline conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Files are written to the run directory before the pipeline runs.
	// Keys are relative paths.
	Files map[string]string `yaml:"files,omitempty"`

	// Stdin is the content served to stdin inputs.
	Stdin string `yaml:"stdin,omitempty"`

	// Pipeline is the pipeline under test.
	Pipeline config.PipelineConfig `yaml:"pipeline"`

	// Modes lists the engines to run; empty means both.
	Modes []string `yaml:"modes,omitempty"`

	Expect ExpectClause `yaml:"expect"`
}

// ExpectClause specifies what a run must produce.
type ExpectClause struct {
	// OK is whether the run succeeds.
	OK bool `yaml:"ok"`

	// Outputs holds the exact expected content per output key. Outputs
	// not listed are not checked. An empty string asserts the output was
	// never written.
	Outputs map[string]string `yaml:"outputs,omitempty"`

	// Failures lists the failed items in order. Checked only when OK is
	// false.
	Failures []FailureExpect `yaml:"failures,omitempty"`
}

// FailureExpect describes one expected failed item.
type FailureExpect struct {
	Direction string `yaml:"direction"`
	Position  int    `yaml:"position"`

	// Stage is optional; empty matches any stage.
	Stage string `yaml:"stage,omitempty"`
}

// RunModes returns the modes this scenario runs in.
func (s *Scenario) RunModes() []string {
	if len(s.Modes) == 0 {
		return []string{ModeSync, ModeAsync}
	}
	return s.Modes
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields, or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
// The pipeline itself is validated by the builder when the scenario runs.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	for i, mode := range s.Modes {
		if mode != ModeSync && mode != ModeAsync {
			return fmt.Errorf("modes[%d]: unknown mode %q", i, mode)
		}
	}

	if s.Expect.OK && len(s.Expect.Failures) > 0 {
		return fmt.Errorf("expect: failures given for a successful run")
	}

	for i, f := range s.Expect.Failures {
		if f.Direction != "input" && f.Direction != "output" {
			return fmt.Errorf("expect.failures[%d]: direction must be input or output", i)
		}
		if f.Position < 0 {
			return fmt.Errorf("expect.failures[%d]: position must be non-negative", i)
		}
		if f.Stage != "" && !slices.Contains(knownStages, engine.Stage(f.Stage)) {
			return fmt.Errorf("expect.failures[%d]: unknown stage %q", i, f.Stage)
		}
	}

	return nil
}

var knownStages = []engine.Stage{
	engine.StageResolve,
	engine.StageOpen,
	engine.StageRead,
	engine.StageDecode,
	engine.StageConvert,
	engine.StageEncode,
	engine.StageWrite,
}
