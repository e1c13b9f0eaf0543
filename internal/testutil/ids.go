package testutil

import "fmt"

// SequenceIDs generates run ids "run-0001", "run-0002", ... so journal
// contents are stable across test runs.
//
// Not safe for concurrent use.
type SequenceIDs struct {
	prefix string
	n      int
}

// NewSequenceIDs creates a generator. An empty prefix means "run".
func NewSequenceIDs(prefix string) *SequenceIDs {
	if prefix == "" {
		prefix = "run"
	}
	return &SequenceIDs{prefix: prefix}
}

// Generate implements journal.IDGenerator.
func (g *SequenceIDs) Generate() string {
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
