// Package engine moves values between N inputs and M outputs.
//
// An Engine owns a frozen format registry, an ordered list of inputs and
// outputs, and one error policy. Reading resolves each input's format,
// opens it, decodes it and returns the values in declaration order.
// Writing routes the decoded batches to the outputs (see Route) and
// encodes each payload in the output's format.
//
// EXECUTION:
//
// A sync engine handles items one at a time in declaration order. An
// async engine overlaps items under Accumulate, bounded by
// WithConcurrency, and still reports results in declaration order. Under
// FastFail both engines are sequential: the first failure stops the
// operation and no later item is opened.
//
// FAILURES:
//
// Every failure is an *ItemError naming the stage, id and position of
// the item. FastFail returns the first one; Accumulate returns a
// *PipelineError holding all of them, and nothing is written when any
// input failed.
//
// Every Run is stamped with the next value of the engine Clock, so runs
// recorded in a journal keep their execution order.
package engine
