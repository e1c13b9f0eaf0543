package harness

import (
	"fmt"

	"github.com/roach88/multiio/internal/engine"
)

// ItemOutcome is the snapshot form of one engine outcome.
type ItemOutcome struct {
	Direction string `json:"direction"`
	ID        string `json:"id"`
	Position  int    `json:"position"`
	Format    string `json:"format,omitempty"`
	Status    string `json:"status"`
	Stage     string `json:"stage,omitempty"`
}

// Result is the outcome of one scenario run in one mode.
type Result struct {
	Mode string `json:"mode"`

	// Pass indicates every expectation held.
	Pass bool `json:"pass"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Report is the engine's run report; nil when the pipeline did not
	// build.
	Report *engine.RunReport `json:"-"`

	// Err is the error the run returned.
	Err error `json:"-"`

	Outcomes []ItemOutcome `json:"outcomes"`

	// Outputs holds what each output wrote, keyed like
	// ExpectClause.Outputs. Unwritten outputs are absent.
	Outputs map[string]string `json:"outputs"`
}

// NewResult creates a new passing result.
func NewResult(mode string) *Result {
	return &Result{
		Mode:     mode,
		Pass:     true,
		Errors:   []string{},
		Outcomes: []ItemOutcome{},
		Outputs:  make(map[string]string),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// setOutcomes copies the report's outcomes into the snapshot form.
func (r *Result) setOutcomes(report *engine.RunReport) {
	for _, o := range report.Outcomes {
		item := ItemOutcome{
			Direction: o.Direction,
			ID:        o.ID,
			Position:  o.Position,
			Format:    o.Format,
			Status:    string(o.Status),
		}
		if o.Err != nil {
			item.Stage = string(o.Err.Stage)
		}
		r.Outcomes = append(r.Outcomes, item)
	}
}
