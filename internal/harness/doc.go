// Package harness runs pipeline conformance scenarios.
//
// A scenario is a YAML file describing the files a pipeline starts from,
// the pipeline itself and what the run must produce:
//
//	name: csv_fan_out
//	description: "One CSV input broadcast to JSON and YAML"
//	files:
//	  people.csv: |
//	    name,age
//	    Ada,36
//	stdin: ""
//	pipeline:
//	  error_policy: accumulate
//	  inputs:
//	    - { id: people, kind: file, path: people.csv }
//	  outputs:
//	    - { id: js, kind: file, path: out/people.json }
//	expect:
//	  ok: true
//	  outputs:
//	    out/people.json: |
//	      [ ... ]
//	  failures:
//	    - { direction: input, position: 1, stage: decode }
//
// Relative paths in files and pipeline are resolved against a fresh
// directory per run. Output keys name a file path, or "<stdout>" and
// "<stderr>" for the standard streams.
//
// # Modes
//
// Every scenario runs once per mode (sync and async unless modes narrows
// it). Beyond its own expectations, each run must produce the same
// outputs and outcomes as the first mode, so a scenario also checks that
// both engines agree.
//
// # Golden Snapshots
//
// RunWithGolden compares the canonical snapshot of a run (outcomes and
// outputs) against testdata/scenarios/golden/{name}.golden, the layout
// the test command also reads. Regenerate with:
//
//	go test ./internal/harness -update
package harness
