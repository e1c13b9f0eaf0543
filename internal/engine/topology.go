package engine

import (
	"slices"

	"github.com/roach88/multiio/internal/value"
)

// Batch is the record list decoded from one input.
type Batch struct {
	// SourceID is the id of the input the records came from.
	SourceID string

	Records []value.Value

	// Single marks a batch decoded from a non-array value. A lone single
	// batch is written back as that value instead of a one-element array.
	Single bool
}

// BatchOf splits a decoded input value into its records: the elements of
// an Array, otherwise the value itself.
func BatchOf(sourceID string, v value.Value) Batch {
	if arr, ok := v.(value.Array); ok {
		return Batch{SourceID: sourceID, Records: slices.Clone(arr)}
	}
	return Batch{SourceID: sourceID, Records: []value.Value{v}, Single: true}
}

// Route pairs n input batches with m outputs and returns, for each output,
// the batch positions it receives in order:
//
//   - n == m: positional, output j receives batch j;
//   - m == 1: the single output receives every batch, concatenated;
//   - otherwise every output receives every batch, concatenated
//     (broadcast).
func Route(n, m int) [][]int {
	routes := make([][]int, m)
	for j := range routes {
		if n == m {
			routes[j] = []int{j}
			continue
		}
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		routes[j] = all
	}
	return routes
}

// Payload assembles the value written to an output from the routed
// batches: the concatenated records as an Array, or the bare value when the
// route is one single-value batch.
func Payload(batches []Batch, route []int) value.Value {
	if len(route) == 1 {
		b := batches[route[0]]
		if b.Single && len(b.Records) == 1 {
			return b.Records[0]
		}
	}
	var records value.Array
	for _, i := range route {
		records = append(records, batches[i].Records...)
	}
	if records == nil {
		records = value.Array{}
	}
	return records
}
