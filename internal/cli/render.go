package cli

import (
	"fmt"
	"io"

	"github.com/roach88/multiio/internal/engine"
	"github.com/roach88/multiio/internal/pipeline"
)

// runView is the JSON form of a run report.
type runView struct {
	Seq      int64         `json:"seq"`
	RunID    string        `json:"run_id,omitempty"`
	Status   string        `json:"status"`
	Policy   string        `json:"policy"`
	Async    bool          `json:"async"`
	Duration string        `json:"duration"`
	Items    []outcomeView `json:"items"`
}

type outcomeView struct {
	Direction string `json:"direction"`
	ID        string `json:"id"`
	Position  int    `json:"position"`
	Format    string `json:"format,omitempty"`
	Status    string `json:"status"`
	Stage     string `json:"stage,omitempty"`
	Error     string `json:"error,omitempty"`
}

func newRunView(r *engine.RunReport, runID string) runView {
	v := runView{
		Seq:      r.Seq,
		RunID:    runID,
		Status:   "ok",
		Policy:   r.Policy.String(),
		Async:    r.Async,
		Duration: r.Finished.Sub(r.Started).String(),
	}
	if !r.OK() {
		v.Status = "failed"
	}
	for _, o := range r.Outcomes {
		ov := outcomeView{
			Direction: o.Direction,
			ID:        o.ID,
			Position:  o.Position,
			Format:    o.Format,
			Status:    string(o.Status),
		}
		if o.Err != nil {
			ov.Stage = string(o.Err.Stage)
			ov.Error = fmt.Sprint(o.Err.Err)
		}
		v.Items = append(v.Items, ov)
	}
	return v
}

// renderFailures writes one line per failed item of err.
func renderFailures(w io.Writer, err error) {
	failures := engine.Failures(err)
	if len(failures) == 0 {
		fmt.Fprintf(w, "  %v\n", err)
		return
	}
	for _, ie := range failures {
		fmt.Fprintf(w, "  - %s\n", ie.Error())
	}
}

// renderReport writes a failed run's summary and failures.
func renderReport(w io.Writer, r *engine.RunReport) {
	mode := "sync"
	if r.Async {
		mode = "async"
	}
	failed := r.Failed()
	fmt.Fprintf(w, "run %d failed (%s, %s): %d of %d items failed\n", r.Seq, r.Policy, mode, len(failed), len(r.Outcomes))
	for _, o := range failed {
		fmt.Fprintf(w, "  - %s\n", o.Err.Error())
	}
	var skipped int
	for _, o := range r.Outcomes {
		if o.Status == engine.StatusSkipped {
			skipped++
		}
	}
	if skipped > 0 {
		fmt.Fprintf(w, "  (%d items skipped)\n", skipped)
	}
}

// problemDetails returns the problems of a config error for JSON output.
func problemDetails(err error) any {
	ce, ok := err.(*pipeline.ConfigError)
	if !ok {
		return nil
	}
	out := make([]map[string]string, len(ce.Problems))
	for i, p := range ce.Problems {
		out[i] = map[string]string{"code": string(p.Code), "field": p.Field, "message": p.Message}
	}
	return out
}
