package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot is the golden form of a scenario run. It leaves out timing and
// the run sequence so it is identical across runs and modes.
type Snapshot struct {
	ScenarioName string            `json:"scenario_name"`
	OK           bool              `json:"ok"`
	Outcomes     []ItemOutcome     `json:"outcomes"`
	Outputs      map[string]string `json:"outputs"`
}

// SnapshotOf builds the snapshot of one result.
func SnapshotOf(name string, r *Result) Snapshot {
	return Snapshot{
		ScenarioName: name,
		OK:           r.Err == nil,
		Outcomes:     r.Outcomes,
		Outputs:      r.Outputs,
	}
}

// MarshalSnapshot renders s as indented JSON with a trailing newline.
// Map keys are sorted, so the bytes are stable.
func MarshalSnapshot(s Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RunWithGolden runs scenario in every mode, fails t for any unmet
// expectation, and compares the first mode's snapshot against
// testdata/scenarios/golden/{scenario.Name}.golden. The other modes are
// held to the same snapshot by the parity check.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, h *Harness, scenario *Scenario) []*Result {
	t.Helper()

	results, err := h.RunScenario(context.Background(), scenario)
	if err != nil {
		t.Fatalf("run scenario: %v", err)
	}
	for _, r := range results {
		for _, msg := range r.Errors {
			t.Errorf("%s: %s", r.Mode, msg)
		}
	}

	data, err := MarshalSnapshot(SnapshotOf(scenario.Name, results[0]))
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/scenarios/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return results
}
