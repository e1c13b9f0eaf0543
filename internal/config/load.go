package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// ErrUnknownConfigType is returned by Load for files that are not YAML,
// JSON or CUE.
var ErrUnknownConfigType = errors.New("unknown config file type")

// Load reads a pipeline config file. The decoder is chosen by extension:
// .yaml/.yml, .json or .cue. Unknown fields are rejected so typos such as
// "ouputs" fail loudly instead of yielding an empty list.
func Load(path string) (*PipelineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".json":
		return ParseJSON(data)
	case ".cue":
		return ParseCUE(path, data)
	default:
		return nil, fmt.Errorf("%w: %q (want .yaml, .yml, .json or .cue)", ErrUnknownConfigType, ext)
	}
}

// ParseYAML decodes a YAML pipeline config with strict field checking.
func ParseYAML(data []byte) (*PipelineConfig, error) {
	var cfg PipelineConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &cfg, nil
}

// ParseJSON decodes a JSON pipeline config with strict field checking.
func ParseJSON(data []byte) (*PipelineConfig, error) {
	var cfg PipelineConfig
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return &cfg, nil
}

// ParseCUE evaluates a CUE pipeline config. The file must evaluate to a
// concrete struct with the same fields as the JSON form; filename is used
// in error positions only.
func ParseCUE(filename string, data []byte) (*PipelineConfig, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile CUE: %w", err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid CUE config: %w", err)
	}
	if err := rejectUnknownCUEFields(v); err != nil {
		return nil, err
	}

	var cfg PipelineConfig
	if err := v.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode CUE: %w", err)
	}
	return &cfg, nil
}

var (
	topLevelFields = []string{"inputs", "outputs", "error_policy", "format_order"}
	inputFields    = []string{"id", "kind", "path", "content", "format"}
	outputFields   = []string{"id", "kind", "path", "format", "file_exists"}
)

// rejectUnknownCUEFields gives CUE configs the same strictness as the
// YAML and JSON loaders.
func rejectUnknownCUEFields(v cue.Value) error {
	if err := checkFields(v, "", topLevelFields); err != nil {
		return err
	}
	for list, allowed := range map[string][]string{"inputs": inputFields, "outputs": outputFields} {
		items, err := v.LookupPath(cue.ParsePath(list)).List()
		if err != nil {
			continue // absent, or not a list: Decode reports the latter
		}
		for i := 0; items.Next(); i++ {
			if err := checkFields(items.Value(), fmt.Sprintf("%s[%d].", list, i), allowed); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkFields(v cue.Value, prefix string, allowed []string) error {
	iter, err := v.Fields()
	if err != nil {
		return nil
	}
	for iter.Next() {
		name := iter.Selector().Unquoted()
		if !slices.Contains(allowed, name) {
			return fmt.Errorf("invalid CUE config: unknown field %s%s", prefix, name)
		}
	}
	return nil
}
