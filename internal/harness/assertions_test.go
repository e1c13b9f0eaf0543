package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failedResult() *Result {
	r := NewResult(ModeSync)
	r.Err = assert.AnError
	r.Outcomes = []ItemOutcome{
		{Direction: "input", ID: "a", Position: 0, Status: "ok"},
		{Direction: "input", ID: "b", Position: 1, Status: "failed", Stage: "decode"},
		{Direction: "output", ID: "c", Position: 0, Status: "skipped"},
	}
	return r
}

func TestCheckExpectPasses(t *testing.T) {
	r := failedResult()
	checkExpect(r, &ExpectClause{
		Failures: []FailureExpect{{Direction: "input", Position: 1, Stage: "decode"}},
		Outputs:  map[string]string{"out.json": ""},
	})
	assert.True(t, r.Pass, r.Errors)
}

func TestCheckExpectStatus(t *testing.T) {
	r := failedResult()
	checkExpect(r, &ExpectClause{OK: true})
	require.Len(t, r.Errors, 1)
	assert.Contains(t, r.Errors[0], "run ok=false, expected ok=true")
}

func TestCheckExpectFailures(t *testing.T) {
	tests := []struct {
		name string
		want []FailureExpect
		msg  string
	}{
		{
			name: "any failure accepted",
			want: nil,
		},
		{
			name: "count",
			want: []FailureExpect{{Direction: "input", Position: 1}, {Direction: "output", Position: 0}},
			msg:  "expected 2 failures, got 1: [input #1 (decode)]",
		},
		{
			name: "position",
			want: []FailureExpect{{Direction: "input", Position: 0}},
			msg:  "failures[0]: expected input #0, got input #1",
		},
		{
			name: "stage",
			want: []FailureExpect{{Direction: "input", Position: 1, Stage: "open"}},
			msg:  "failures[0]: expected stage open, got decode",
		},
		{
			name: "any stage",
			want: []FailureExpect{{Direction: "input", Position: 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := failedResult()
			checkFailures(r, tt.want)
			if tt.msg == "" {
				assert.True(t, r.Pass, r.Errors)
				return
			}
			assert.Equal(t, []string{tt.msg}, r.Errors)
		})
	}
}

func TestCheckExpectOutputs(t *testing.T) {
	r := NewResult(ModeSync)
	r.Outputs["written.json"] = "1\n"
	r.Outputs["other.json"] = "a\nb\n"

	checkExpect(r, &ExpectClause{
		OK: true,
		Outputs: map[string]string{
			"written.json": "",
			"absent.json":  "x\n",
			"other.json":   "a\nc\n",
		},
	})

	assert.Equal(t, []string{
		"output absent.json: expected \"x\\n\", nothing written",
		"output other.json:\n  line 2\n  want: \"c\"\n  got:  \"b\"",
		"output written.json: expected nothing written, got \"1\\n\"",
	}, r.Errors)
}

func TestDiffLinesLengthMismatch(t *testing.T) {
	assert.Equal(t, "  line 2\n  want: \"\"\n  got:  \"b\"", diffLines("a", "a\nb"))
}
