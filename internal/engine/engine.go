package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/multiio/internal/config"
	"github.com/roach88/multiio/internal/endpoint"
	"github.com/roach88/multiio/internal/format"
	"github.com/roach88/multiio/internal/value"
)

// Input binds a provider to an optional explicit format. A zero Format
// means the format is inferred from the provider's location.
type Input struct {
	Provider endpoint.Provider
	Format   format.Kind
}

// Output binds a target to an optional explicit format.
type Output struct {
	Target endpoint.Target
	Format format.Kind
}

// Engine executes read and write plans over a fixed set of inputs and
// outputs under one error policy.
//
// The sync engine (New) runs every item in declaration order on the
// calling goroutine. The async engine (NewAsync) overlaps independent items
// under the accumulate policy. Both produce the same results, in the same
// order, with the same error classification for the same configuration.
//
// Thread-safety: an Engine holds no per-call state; concurrent calls are
// safe as long as the providers and targets tolerate it.
type Engine struct {
	registry *format.Registry
	policy   config.ErrorPolicy
	inputs   []Input
	outputs  []Output
	order    []format.Kind
	logger   *slog.Logger
	clock    *Clock

	// concurrency <= 1 runs items sequentially; 0 on an async engine
	// means no limit.
	concurrency int
	async       bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithConcurrency bounds how many items an async engine runs at once.
// n <= 0 means unbounded. It has no effect on a sync engine.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		e.concurrency = n
	}
}

// WithClock sets the clock used to stamp runs.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithFormatOrder sets the tie-break order for ambiguous extensions,
// overriding the registry's own order.
func WithFormatOrder(order ...format.Kind) Option {
	return func(e *Engine) {
		e.order = slices.Clone(order)
	}
}

// New creates a sync engine. The registry is frozen: formats registered
// from now on would be invisible to engines already built from it.
func New(reg *format.Registry, policy config.ErrorPolicy, inputs []Input, outputs []Output, opts ...Option) *Engine {
	return newEngine(reg, policy, inputs, outputs, false, opts)
}

// NewAsync creates an async engine. See New.
func NewAsync(reg *format.Registry, policy config.ErrorPolicy, inputs []Input, outputs []Output, opts ...Option) *Engine {
	return newEngine(reg, policy, inputs, outputs, true, opts)
}

func newEngine(reg *format.Registry, policy config.ErrorPolicy, inputs []Input, outputs []Output, async bool, opts []Option) *Engine {
	reg.Freeze()
	if policy == "" {
		policy = config.DefaultPolicy
	}
	e := &Engine{
		registry: reg,
		policy:   policy,
		inputs:   slices.Clone(inputs),
		outputs:  slices.Clone(outputs),
		logger:   slog.Default(),
		clock:    NewClock(),
		async:    async,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the engine's error policy.
func (e *Engine) Policy() config.ErrorPolicy { return e.policy }

// Async reports whether the engine overlaps independent items.
func (e *Engine) Async() bool { return e.async }

// Inputs returns the number of inputs.
func (e *Engine) Inputs() int { return len(e.inputs) }

// Outputs returns the number of outputs.
func (e *Engine) Outputs() int { return len(e.outputs) }

// ReadAll reads and decodes every input, returning one value per input in
// declaration order.
//
// Under FastFail the first failure is returned as an *ItemError and no
// later input is opened. Under Accumulate every input is attempted; any
// failure yields a *PipelineError listing all of them and no values.
func (e *Engine) ReadAll(ctx context.Context) ([]value.Value, error) {
	vals, _, err := e.readAll(ctx)
	return vals, err
}

func (e *Engine) readAll(ctx context.Context) ([]value.Value, []itemResult, error) {
	vals := make([]value.Value, len(e.inputs))
	results := e.each(ctx, len(e.inputs), func(ctx context.Context, i int) (format.Kind, *ItemError) {
		v, kind, ie := e.readOne(ctx, i)
		vals[i] = v
		return kind, ie
	}, e.inputError)

	if err := e.outcome(results); err != nil {
		return nil, results, err
	}
	return vals, results, nil
}

func (e *Engine) readOne(ctx context.Context, i int) (value.Value, format.Kind, *ItemError) {
	in := e.inputs[i]
	fail := func(stage Stage, kind format.Kind, err error) (value.Value, format.Kind, *ItemError) {
		e.logger.Debug("input failed", "id", in.Provider.ID(), "position", i, "stage", stage, "error", err)
		return nil, kind, &ItemError{Stage: stage, ID: in.Provider.ID(), Position: i, Location: in.Provider.Location(), Err: err}
	}

	// Resolve before opening so an unresolvable stdin input is not consumed.
	codec, err := e.codecFor(in.Provider.Location(), in.Format)
	if err != nil {
		return fail(StageResolve, format.Kind{}, err)
	}
	kind := codec.Kind()

	data, err := endpoint.ReadAll(ctx, in.Provider)
	if err != nil {
		stage := StageOpen
		if endpoint.IsReadFailure(err) {
			stage = StageRead
		}
		return fail(stage, kind, err)
	}

	v, err := codec.Decode(data)
	if err != nil {
		return fail(StageDecode, kind, err)
	}
	e.logger.Debug("input read", "id", in.Provider.ID(), "position", i, "format", kind.String(), "bytes", len(data))
	return v, kind, nil
}

func (e *Engine) codecFor(location string, explicit format.Kind) (format.Codec, error) {
	kind, err := e.registry.ResolveWithOrder(location, explicit, e.order)
	if err != nil {
		return nil, err
	}
	return e.registry.Codec(kind)
}

func (e *Engine) inputError(i int, err error) *ItemError {
	in := e.inputs[i]
	return &ItemError{Stage: StageOpen, ID: in.Provider.ID(), Position: i, Location: in.Provider.Location(), Err: err}
}

func (e *Engine) outputError(i int, err error) *ItemError {
	out := e.outputs[i]
	return &ItemError{Stage: StageWrite, ID: out.Target.ID(), Position: i, Location: out.Target.Location(), Err: err}
}

// ReadAllInto reads every input and converts each decoded value into T by
// structural field matching. Conversion failures follow the engine's error
// policy like any other input failure.
func ReadAllInto[T any](ctx context.Context, e *Engine) ([]T, error) {
	vals, err := e.ReadAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]T, len(vals))
	var failed []*ItemError
	for i, v := range vals {
		t, err := value.Decode[T](v)
		if err != nil {
			in := e.inputs[i]
			ie := &ItemError{Stage: StageConvert, ID: in.Provider.ID(), Position: i, Location: in.Provider.Location(), Err: err}
			if e.policy.IsFastFail() {
				return nil, ie
			}
			failed = append(failed, ie)
			continue
		}
		out[i] = t
	}
	if len(failed) > 0 {
		return nil, &PipelineError{Errors: failed}
	}
	return out, nil
}

// WriteAll routes batches to outputs by the topology rule (see Route),
// encodes each payload in its output's format, and writes it.
//
// Every payload is fully encoded before its target is touched, so a target
// receives a complete payload or nothing. Error policy semantics mirror
// ReadAll.
func (e *Engine) WriteAll(ctx context.Context, batches []Batch) error {
	_, err := e.writeAll(ctx, batches)
	return err
}

func (e *Engine) writeAll(ctx context.Context, batches []Batch) ([]itemResult, error) {
	routes := Route(len(batches), len(e.outputs))
	payloads := make([]value.Value, len(e.outputs))
	for j, route := range routes {
		payloads[j] = Payload(batches, route)
	}
	return e.writePayloads(ctx, payloads)
}

// WriteValues broadcasts records to every output as one array.
func (e *Engine) WriteValues(ctx context.Context, records []value.Value) error {
	payloads := make([]value.Value, len(e.outputs))
	for j := range payloads {
		payloads[j] = append(value.Array{}, records...)
	}
	_, err := e.writePayloads(ctx, payloads)
	return err
}

// WriteValue broadcasts v to every output as-is.
func (e *Engine) WriteValue(ctx context.Context, v value.Value) error {
	payloads := make([]value.Value, len(e.outputs))
	for j := range payloads {
		payloads[j] = v
	}
	_, err := e.writePayloads(ctx, payloads)
	return err
}

func (e *Engine) writePayloads(ctx context.Context, payloads []value.Value) ([]itemResult, error) {
	results := e.each(ctx, len(e.outputs), func(ctx context.Context, j int) (format.Kind, *ItemError) {
		return e.writeOne(ctx, j, payloads[j])
	}, e.outputError)
	return results, e.outcome(results)
}

func (e *Engine) writeOne(ctx context.Context, j int, payload value.Value) (format.Kind, *ItemError) {
	out := e.outputs[j]
	fail := func(stage Stage, kind format.Kind, err error) (format.Kind, *ItemError) {
		e.logger.Debug("output failed", "id", out.Target.ID(), "position", j, "stage", stage, "error", err)
		return kind, &ItemError{Stage: stage, ID: out.Target.ID(), Position: j, Location: out.Target.Location(), Err: err}
	}

	codec, err := e.codecFor(out.Target.Location(), out.Format)
	if err != nil {
		return fail(StageResolve, format.Kind{}, err)
	}
	kind := codec.Kind()

	data, err := codec.Encode(payload)
	if err != nil {
		return fail(StageEncode, kind, err)
	}
	if err := out.Target.Write(ctx, data); err != nil {
		return fail(StageWrite, kind, err)
	}
	e.logger.Debug("output written", "id", out.Target.ID(), "position", j, "format", kind.String(), "bytes", len(data))
	return kind, nil
}

// outcome turns per-item results into the policy's error shape.
func (e *Engine) outcome(results []itemResult) error {
	var failed []*ItemError
	for _, r := range results {
		if r.err != nil {
			failed = append(failed, r.err)
		}
	}
	switch {
	case len(failed) == 0:
		return nil
	case e.policy.IsFastFail():
		return failed[0]
	default:
		return &PipelineError{Errors: failed}
	}
}

// String describes the engine for logs.
func (e *Engine) String() string {
	mode := "sync"
	if e.async {
		mode = "async"
	}
	return fmt.Sprintf("%s engine (%s, %d inputs, %d outputs)", mode, e.policy, len(e.inputs), len(e.outputs))
}
