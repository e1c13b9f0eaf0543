package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrEmptyArg is returned for blank command-line endpoint arguments.
var ErrEmptyArg = errors.New("empty endpoint argument")

// inlineNamespace scopes the name-based UUIDs of inline inputs.
var inlineNamespace = uuid.MustParse("6f1d3c2e-8b9a-4e57-a0c4-2d7b1f6e9a35")

// ParseInputArg turns a command-line input argument into an InputSpec:
//
//	-, stdin   standard input
//	@path      file at path (the prefix allows paths starting with - or =)
//	=text      inline content
//	path       file at path
//
// Inline inputs get a stable id derived from their content. Every other
// input uses its raw argument as id.
func ParseInputArg(raw string) (InputSpec, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return InputSpec{}, ErrEmptyArg
	case raw == "-" || strings.EqualFold(raw, "stdin"):
		return InputSpec{ID: "-", Kind: KindStdin}, nil
	case strings.HasPrefix(raw, "@"):
		path := raw[1:]
		if path == "" {
			return InputSpec{}, fmt.Errorf("%w: expected a path after '@'", ErrEmptyArg)
		}
		return InputSpec{ID: path, Kind: KindFile, Path: path}, nil
	case strings.HasPrefix(raw, "="):
		content := raw[1:]
		id := "inline:" + uuid.NewSHA1(inlineNamespace, []byte(content)).String()[:8]
		return InputSpec{ID: id, Kind: KindMemory, Content: content}, nil
	default:
		return InputSpec{ID: raw, Kind: KindFile, Path: raw}, nil
	}
}

// ParseOutputArg turns a command-line output argument into an OutputSpec:
// "-" or "stdout", "stderr", "@path" or a plain path.
func ParseOutputArg(raw string) (OutputSpec, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return OutputSpec{}, ErrEmptyArg
	case raw == "-" || strings.EqualFold(raw, "stdout"):
		return OutputSpec{ID: "-", Kind: KindStdout}, nil
	case strings.EqualFold(raw, "stderr"):
		return OutputSpec{ID: "stderr", Kind: KindStderr}, nil
	case strings.HasPrefix(raw, "@"):
		path := raw[1:]
		if path == "" {
			return OutputSpec{}, fmt.Errorf("%w: expected a path after '@'", ErrEmptyArg)
		}
		return OutputSpec{ID: path, Kind: KindFile, Path: path}, nil
	default:
		return OutputSpec{ID: raw, Kind: KindFile, Path: raw}, nil
	}
}
