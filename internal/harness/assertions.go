package harness

import (
	"fmt"
	"slices"
	"strings"
)

// checkExpect records on r every way the run differs from expect.
func checkExpect(r *Result, expect *ExpectClause) {
	ok := r.Err == nil
	if ok != expect.OK {
		r.AddError("run ok=%t, expected ok=%t (err: %v)", ok, expect.OK, r.Err)
	}

	for _, key := range sortedKeys(expect.Outputs) {
		want := expect.Outputs[key]
		got, written := r.Outputs[key]
		switch {
		case want == "" && written:
			r.AddError("output %s: expected nothing written, got %q", key, got)
		case want != "" && !written:
			r.AddError("output %s: expected %q, nothing written", key, want)
		case got != want:
			r.AddError("output %s:\n%s", key, diffLines(want, got))
		}
	}

	if !expect.OK {
		checkFailures(r, expect.Failures)
	}
}

// checkFailures compares the failed outcomes against want, in order.
// An empty want accepts any failures.
func checkFailures(r *Result, want []FailureExpect) {
	if len(want) == 0 {
		return
	}
	var failed []ItemOutcome
	for _, o := range r.Outcomes {
		if o.Status == "failed" {
			failed = append(failed, o)
		}
	}
	if len(failed) != len(want) {
		r.AddError("expected %d failures, got %d: %s", len(want), len(failed), describeFailures(failed))
		return
	}
	for i, w := range want {
		got := failed[i]
		if got.Direction != w.Direction || got.Position != w.Position {
			r.AddError("failures[%d]: expected %s #%d, got %s #%d", i, w.Direction, w.Position, got.Direction, got.Position)
			continue
		}
		if w.Stage != "" && got.Stage != w.Stage {
			r.AddError("failures[%d]: expected stage %s, got %s", i, w.Stage, got.Stage)
		}
	}
}

func describeFailures(failed []ItemOutcome) string {
	parts := make([]string, len(failed))
	for i, f := range failed {
		parts[i] = fmt.Sprintf("%s #%d (%s)", f.Direction, f.Position, f.Stage)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// diffLines renders the first differing line of want and got.
func diffLines(want, got string) string {
	wl := strings.Split(want, "\n")
	gl := strings.Split(got, "\n")
	for i := 0; i < max(len(wl), len(gl)); i++ {
		var w, g string
		if i < len(wl) {
			w = wl[i]
		}
		if i < len(gl) {
			g = gl[i]
		}
		if w != g || i >= len(wl) || i >= len(gl) {
			return fmt.Sprintf("  line %d\n  want: %q\n  got:  %q", i+1, w, g)
		}
	}
	return "  (identical)"
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
