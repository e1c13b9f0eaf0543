package engine

import (
	"context"
	"time"

	"github.com/roach88/multiio/internal/config"
)

// Status is the outcome of one item in a run.
type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Outcome describes what happened to one input or output during a run.
type Outcome struct {
	// Direction is "input" or "output".
	Direction string
	ID        string
	Position  int
	Format    string
	Status    Status
	Err       *ItemError
}

// RunReport summarizes a Run for diagnostics and the run journal.
type RunReport struct {
	// Seq is the run's sequence number from the engine clock.
	Seq      int64
	Policy   config.ErrorPolicy
	Async    bool
	Started  time.Time
	Finished time.Time
	Outcomes []Outcome

	// Err is the error Run returned, nil on success.
	Err error
}

// OK reports whether the run succeeded.
func (r *RunReport) OK() bool {
	return r.Err == nil
}

// Failed returns the failed outcomes in order.
func (r *RunReport) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			out = append(out, o)
		}
	}
	return out
}

// Run reads every input and writes the routed batches to every output.
//
// When reading fails nothing is written. The report lists every input and
// output with its status; items the policy never reached are skipped.
func (e *Engine) Run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{
		Seq:     e.clock.Next(),
		Policy:  e.policy,
		Async:   e.async,
		Started: time.Now().UTC(),
	}
	e.logger.Info("pipeline run starting", "seq", report.Seq, "engine", e.String())

	vals, readResults, err := e.readAll(ctx)
	report.Outcomes = append(report.Outcomes, e.outcomes("input", readResults, e.inputID)...)
	if err != nil {
		report.Outcomes = append(report.Outcomes, e.outcomes("output", make([]itemResult, len(e.outputs)), e.outputID)...)
		return e.finish(report, err)
	}

	batches := make([]Batch, len(vals))
	for i, v := range vals {
		batches[i] = BatchOf(e.inputs[i].Provider.ID(), v)
	}
	writeResults, err := e.writeAll(ctx, batches)
	report.Outcomes = append(report.Outcomes, e.outcomes("output", writeResults, e.outputID)...)
	return e.finish(report, err)
}

func (e *Engine) finish(report *RunReport, err error) (*RunReport, error) {
	report.Finished = time.Now().UTC()
	report.Err = err
	if err != nil {
		e.logger.Info("pipeline run failed", "seq", report.Seq, "failures", len(Failures(err)),
			"duration", report.Finished.Sub(report.Started))
	} else {
		e.logger.Info("pipeline run finished", "seq", report.Seq,
			"inputs", len(e.inputs), "outputs", len(e.outputs),
			"duration", report.Finished.Sub(report.Started))
	}
	return report, err
}

func (e *Engine) outcomes(direction string, results []itemResult, id func(int) string) []Outcome {
	out := make([]Outcome, len(results))
	for i, r := range results {
		o := Outcome{Direction: direction, ID: id(i), Position: i, Format: r.kind.String()}
		switch {
		case r.err != nil:
			o.Status, o.Err = StatusFailed, r.err
		case r.attempted:
			o.Status = StatusOK
		default:
			o.Status = StatusSkipped
		}
		out[i] = o
	}
	return out
}

func (e *Engine) inputID(i int) string  { return e.inputs[i].Provider.ID() }
func (e *Engine) outputID(i int) string { return e.outputs[i].Target.ID() }
