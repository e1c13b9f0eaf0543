// Package pipeline validates declarative or programmatic pipeline
// configurations and assembles engines from them.
package pipeline

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/multiio/internal/config"
	"github.com/roach88/multiio/internal/endpoint"
	"github.com/roach88/multiio/internal/engine"
	"github.com/roach88/multiio/internal/format"
)

// inputEntry is either a declarative spec or a ready-made provider.
type inputEntry struct {
	spec     config.InputSpec
	provider endpoint.Provider
	format   format.Kind
}

func (e inputEntry) id() string {
	if e.provider != nil {
		return e.provider.ID()
	}
	return e.spec.ID
}

func (e inputEntry) location() string {
	if e.provider != nil {
		return e.provider.Location()
	}
	return e.spec.Location()
}

type outputEntry struct {
	spec   config.OutputSpec
	target endpoint.Target
	format format.Kind
}

func (e outputEntry) id() string {
	if e.target != nil {
		return e.target.ID()
	}
	return e.spec.ID
}

func (e outputEntry) location() string {
	if e.target != nil {
		return e.target.Location()
	}
	return e.spec.Location()
}

// Builder accumulates inputs, outputs and settings, validates them as a
// whole, and builds an engine.
//
// A Builder is not safe for concurrent use.
type Builder struct {
	registry *format.Registry
	policy   config.ErrorPolicy
	inputs   []inputEntry
	outputs  []outputEntry
	customs  []format.Codec

	order      []format.Kind
	orderNames []string

	logger *slog.Logger
	opts   []engine.Option

	stdin          *endpoint.StreamSource
	stdout, stderr io.Writer

	// registered is set once the custom codecs have been added to the
	// registry; problems holds what that produced.
	registered  bool
	regProblems []Problem

	memory map[string]*endpoint.MemoryTarget
}

// NewBuilder returns an empty builder over reg. A nil reg means a fresh
// registry with every builtin format.
func NewBuilder(reg *format.Registry) *Builder {
	if reg == nil {
		reg = format.NewDefault()
	}
	return &Builder{
		registry: reg,
		policy:   config.DefaultPolicy,
		memory:   make(map[string]*endpoint.MemoryTarget),
	}
}

// FromConfig returns a builder holding every input and output of cfg.
func FromConfig(cfg *config.PipelineConfig, reg *format.Registry) *Builder {
	b := NewBuilder(reg).WithPolicy(cfg.Policy())
	for _, in := range cfg.Inputs {
		b.AddInput(in)
	}
	for _, out := range cfg.Outputs {
		b.AddOutput(out)
	}
	b.orderNames = append(b.orderNames, cfg.FormatOrder...)
	return b
}

// AddInput appends a declarative input.
func (b *Builder) AddInput(spec config.InputSpec) *Builder {
	b.inputs = append(b.inputs, inputEntry{spec: spec})
	return b
}

// AddProvider appends a ready-made provider with an optional explicit
// format.
func (b *Builder) AddProvider(p endpoint.Provider, f format.Kind) *Builder {
	b.inputs = append(b.inputs, inputEntry{provider: p, format: f})
	return b
}

// AddOutput appends a declarative output.
func (b *Builder) AddOutput(spec config.OutputSpec) *Builder {
	b.outputs = append(b.outputs, outputEntry{spec: spec})
	return b
}

// AddTarget appends a ready-made target with an optional explicit format.
func (b *Builder) AddTarget(t endpoint.Target, f format.Kind) *Builder {
	b.outputs = append(b.outputs, outputEntry{target: t, format: f})
	return b
}

// WithPolicy sets the error policy. Validation ignores it.
func (b *Builder) WithPolicy(p config.ErrorPolicy) *Builder {
	b.policy = p
	return b
}

// WithFormatOrder sets the extension tie-break order.
func (b *Builder) WithFormatOrder(order ...format.Kind) *Builder {
	b.order = append(b.order, order...)
	return b
}

// WithCustom registers a custom codec when the builder is validated.
func (b *Builder) WithCustom(codec format.Codec) *Builder {
	b.customs = append(b.customs, codec)
	return b
}

// WithLogger sets the logger handed to the engine.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithEngineOptions passes extra options to the engine constructor.
func (b *Builder) WithEngineOptions(opts ...engine.Option) *Builder {
	b.opts = append(b.opts, opts...)
	return b
}

// WithStdio replaces the process standard streams for stdin, stdout and
// stderr endpoints. A nil argument keeps the process stream. Every stdin
// input shares in, so only one of them can be read.
func (b *Builder) WithStdio(in io.Reader, out, errOut io.Writer) *Builder {
	b.stdin = nil
	if in != nil {
		b.stdin = endpoint.NewStreamSource(in)
	}
	b.stdout, b.stderr = out, errOut
	return b
}

// MemoryOutput returns the target built for the memory output id.
// Only valid after Build.
func (b *Builder) MemoryOutput(id string) (*endpoint.MemoryTarget, bool) {
	t, ok := b.memory[id]
	return t, ok
}

// Build validates the configuration and returns a sync engine.
func (b *Builder) Build() (*engine.Engine, error) {
	return b.build(engine.New)
}

// BuildAsync validates the configuration and returns an async engine.
func (b *Builder) BuildAsync() (*engine.Engine, error) {
	return b.build(engine.NewAsync)
}

type engineConstructor func(*format.Registry, config.ErrorPolicy, []engine.Input, []engine.Output, ...engine.Option) *engine.Engine

func (b *Builder) build(newEngine engineConstructor) (*engine.Engine, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	inputs := make([]engine.Input, len(b.inputs))
	for i, in := range b.inputs {
		inputs[i] = b.input(in)
	}
	outputs := make([]engine.Output, len(b.outputs))
	for j, out := range b.outputs {
		outputs[j] = b.output(out)
	}

	opts := []engine.Option{engine.WithFormatOrder(b.formatOrder()...)}
	if b.logger != nil {
		opts = append(opts, engine.WithLogger(b.logger))
	}
	opts = append(opts, b.opts...)
	return newEngine(b.registry, b.policy, inputs, outputs, opts...), nil
}

func (b *Builder) input(in inputEntry) engine.Input {
	if in.provider != nil {
		return engine.Input{Provider: in.provider, Format: in.format}
	}
	s := in.spec
	var p endpoint.Provider
	switch s.Kind {
	case config.KindStdin:
		if b.stdin != nil {
			p = b.stdin.Provider(s.ID, "")
		} else {
			p = endpoint.NewStdin(s.ID)
		}
	case config.KindMemory:
		p = endpoint.NewMemory(s.ID, s.Path, []byte(s.Content))
	default:
		p = endpoint.NewFile(s.ID, s.Path)
	}
	return engine.Input{Provider: p, Format: format.ParseKind(s.Format)}
}

func (b *Builder) output(out outputEntry) engine.Output {
	if out.target != nil {
		return engine.Output{Target: out.target, Format: out.format}
	}
	s := out.spec
	var t endpoint.Target
	switch s.Kind {
	case config.KindStdout:
		t = b.stream(s.ID, b.stdout, endpoint.NewStdout)
	case config.KindStderr:
		t = b.stream(s.ID, b.stderr, endpoint.NewStderr)
	case config.KindMemory:
		m := endpoint.NewMemoryTarget(s.ID, s.Path)
		b.memory[s.ID] = m
		t = m
	default:
		policy, _ := endpoint.ParseExistsPolicy(s.FileExists) // checked by Validate
		t = endpoint.NewFileTarget(s.ID, s.Path, policy)
	}
	return engine.Output{Target: t, Format: format.ParseKind(s.Format)}
}

func (b *Builder) stream(id string, w io.Writer, process func(string) *endpoint.StreamTarget) endpoint.Target {
	if w != nil {
		return endpoint.NewWriterTarget(id, "", w)
	}
	return process(id)
}

func (b *Builder) formatOrder() []format.Kind {
	order := append([]format.Kind(nil), b.order...)
	for _, name := range b.orderNames {
		order = append(order, format.ParseKind(name))
	}
	return order
}

// String summarizes the builder for logs.
func (b *Builder) String() string {
	return fmt.Sprintf("pipeline (%d inputs, %d outputs, %s)", len(b.inputs), len(b.outputs), b.policy)
}
