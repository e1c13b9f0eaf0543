// Package config holds the declarative description of a pipeline: its
// inputs, outputs, error policy and format tie-break order, plus loaders
// for YAML, JSON and CUE pipeline files.
package config

import "fmt"

// Endpoint kinds accepted in InputSpec.Kind and OutputSpec.Kind.
const (
	KindFile   = "file"
	KindStdin  = "stdin"
	KindStdout = "stdout"
	KindStderr = "stderr"
	KindMemory = "memory"
)

// PipelineConfig describes a full pipeline.
//
// Invariant (checked by the pipeline builder, not here): ids are unique
// within Inputs and within Outputs, and neither list is empty.
type PipelineConfig struct {
	Inputs      []InputSpec  `yaml:"inputs" json:"inputs"`
	Outputs     []OutputSpec `yaml:"outputs" json:"outputs"`
	ErrorPolicy ErrorPolicy  `yaml:"error_policy,omitempty" json:"error_policy,omitempty"`

	// FormatOrder breaks ties when an extension is claimed by several
	// formats. Names are parsed like explicit formats.
	FormatOrder []string `yaml:"format_order,omitempty" json:"format_order,omitempty"`
}

// InputSpec declares one input.
type InputSpec struct {
	ID   string `yaml:"id" json:"id"`
	Kind string `yaml:"kind" json:"kind"`

	// Path is the file path for file inputs. For memory inputs it is an
	// optional name whose extension drives format inference.
	Path string `yaml:"path,omitempty" json:"path,omitempty"`

	// Content is the inline payload of a memory input.
	Content string `yaml:"content,omitempty" json:"content,omitempty"`

	// Format overrides extension inference when set.
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
}

// Location returns the path used for format inference and diagnostics.
func (s InputSpec) Location() string {
	if s.Kind == KindStdin {
		return "-"
	}
	return s.Path
}

// OutputSpec declares one output.
type OutputSpec struct {
	ID     string `yaml:"id" json:"id"`
	Kind   string `yaml:"kind" json:"kind"`
	Path   string `yaml:"path,omitempty" json:"path,omitempty"`
	Format string `yaml:"format,omitempty" json:"format,omitempty"`

	// FileExists is the policy for an existing file target:
	// overwrite (default), append or error.
	FileExists string `yaml:"file_exists,omitempty" json:"file_exists,omitempty"`
}

// Location returns the path used for format inference and diagnostics.
func (s OutputSpec) Location() string {
	switch s.Kind {
	case KindStdout, KindStderr:
		return "-"
	}
	return s.Path
}

// Policy returns the configured error policy, or DefaultPolicy.
func (c *PipelineConfig) Policy() ErrorPolicy {
	if c.ErrorPolicy == "" {
		return DefaultPolicy
	}
	return c.ErrorPolicy
}

// String summarizes the config for logs.
func (c *PipelineConfig) String() string {
	return fmt.Sprintf("%d inputs, %d outputs, %s", len(c.Inputs), len(c.Outputs), c.Policy())
}
