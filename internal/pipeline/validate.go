package pipeline

import (
	"fmt"
	"strings"

	"github.com/roach88/multiio/internal/config"
	"github.com/roach88/multiio/internal/endpoint"
	"github.com/roach88/multiio/internal/format"
)

// Validate checks the whole configuration and returns a *ConfigError
// listing every problem, or nil. Custom codecs are registered on the first
// call; the registry is not frozen until an engine is built.
func (b *Builder) Validate() error {
	var problems []Problem
	add := func(code ConfigErrorCode, field, msg string, err error) {
		problems = append(problems, Problem{Code: code, Field: field, Message: msg, Err: err})
	}

	problems = append(problems, b.registerCustoms()...)

	order := b.formatOrder()
	for i, k := range order {
		if !b.registry.Has(k) {
			add(ErrCodeInvalidFormat, fmt.Sprintf("format_order[%d]", i),
				fmt.Sprintf("format %q is not registered", k), nil)
		}
	}

	if len(b.inputs) == 0 {
		add(ErrCodeEmptyInputs, "inputs", "at least one input is required", nil)
	}
	if len(b.outputs) == 0 {
		add(ErrCodeEmptyOutputs, "outputs", "at least one output is required", nil)
	}

	seen := make(map[string]int)
	stdinAt := -1
	for i, in := range b.inputs {
		field := fmt.Sprintf("inputs[%d]", i)
		problems = append(problems, checkID(field, in.id(), seen, i)...)
		if in.provider == nil {
			problems = append(problems, checkInputSpec(field, in.spec)...)
			if in.spec.Kind == config.KindStdin {
				if stdinAt >= 0 {
					add(ErrCodeInvalidEndpoint, field+".kind",
						fmt.Sprintf("stdin can be read once and is already used by inputs[%d]", stdinAt), nil)
				} else {
					stdinAt = i
				}
			}
		}
		explicit := in.format
		if in.provider == nil {
			explicit = format.ParseKind(in.spec.Format)
		}
		if p, ok := b.checkFormat(field, in.location(), explicit, order); !ok {
			problems = append(problems, p)
		}
	}

	seen = make(map[string]int)
	for j, out := range b.outputs {
		field := fmt.Sprintf("outputs[%d]", j)
		problems = append(problems, checkID(field, out.id(), seen, j)...)
		if out.target == nil {
			problems = append(problems, checkOutputSpec(field, out.spec)...)
		}
		explicit := out.format
		if out.target == nil {
			explicit = format.ParseKind(out.spec.Format)
		}
		if p, ok := b.checkFormat(field, out.location(), explicit, order); !ok {
			problems = append(problems, p)
		}
	}

	if len(problems) > 0 {
		return &ConfigError{Problems: problems}
	}
	return nil
}

func (b *Builder) registerCustoms() []Problem {
	if b.registered {
		return b.regProblems
	}
	b.registered = true
	for i, codec := range b.customs {
		if err := b.registry.RegisterCustom(codec); err != nil {
			b.regProblems = append(b.regProblems, Problem{
				Code:    ErrCodeInvalidFormat,
				Field:   fmt.Sprintf("custom[%d]", i),
				Message: fmt.Sprintf("cannot register %q", codec.Kind()),
				Err:     err,
			})
		}
	}
	return b.regProblems
}

func checkID(field, id string, seen map[string]int, pos int) []Problem {
	if strings.TrimSpace(id) == "" {
		return []Problem{{Code: ErrCodeInvalidEndpoint, Field: field + ".id", Message: "id is required"}}
	}
	if first, dup := seen[id]; dup {
		return []Problem{{
			Code:    ErrCodeDuplicateID,
			Field:   field + ".id",
			Message: fmt.Sprintf("id %q already used at position %d", id, first),
		}}
	}
	seen[id] = pos
	return nil
}

func checkInputSpec(field string, s config.InputSpec) []Problem {
	switch s.Kind {
	case config.KindFile:
		if s.Path == "" {
			return []Problem{{Code: ErrCodeInvalidEndpoint, Field: field + ".path", Message: "file input requires a path"}}
		}
	case config.KindStdin, config.KindMemory:
	default:
		return []Problem{{
			Code:    ErrCodeInvalidEndpoint,
			Field:   field + ".kind",
			Message: fmt.Sprintf("unknown input kind %q (want file, stdin or memory)", s.Kind),
		}}
	}
	return nil
}

func checkOutputSpec(field string, s config.OutputSpec) []Problem {
	var problems []Problem
	switch s.Kind {
	case config.KindFile:
		if s.Path == "" {
			problems = append(problems, Problem{Code: ErrCodeInvalidEndpoint, Field: field + ".path", Message: "file output requires a path"})
		}
	case config.KindStdout, config.KindStderr, config.KindMemory:
	default:
		problems = append(problems, Problem{
			Code:    ErrCodeInvalidEndpoint,
			Field:   field + ".kind",
			Message: fmt.Sprintf("unknown output kind %q (want file, stdout, stderr or memory)", s.Kind),
		})
	}
	if _, err := endpoint.ParseExistsPolicy(s.FileExists); err != nil {
		problems = append(problems, Problem{Code: ErrCodeInvalidEndpoint, Field: field + ".file_exists", Message: err.Error(), Err: err})
	}
	return problems
}

// checkFormat resolves location and explicit against the registry the same
// way the engine will at run time.
func (b *Builder) checkFormat(field, location string, explicit format.Kind, order []format.Kind) (Problem, bool) {
	if !explicit.IsZero() {
		if b.registry.Has(explicit) {
			return Problem{}, true
		}
		return Problem{
			Code:    ErrCodeUnresolvableFormat,
			Field:   field + ".format",
			Message: fmt.Sprintf("format %q is not registered", explicit),
			Err:     &format.FormatError{Code: format.ErrCodeUnsupportedFormat, Kind: explicit},
		}, false
	}
	if _, err := b.registry.ResolveWithOrder(location, explicit, order); err != nil {
		return Problem{Code: ErrCodeUnresolvableFormat, Field: field, Message: err.Error(), Err: err}, false
	}
	return Problem{}, true
}
