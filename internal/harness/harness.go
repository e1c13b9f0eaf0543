package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/roach88/multiio/internal/config"
	"github.com/roach88/multiio/internal/engine"
	"github.com/roach88/multiio/internal/format"
	"github.com/roach88/multiio/internal/pipeline"
)

// Harness runs scenarios. The zero value is ready to use.
type Harness struct {
	// Logger receives the engine's logs; nil discards them.
	Logger *slog.Logger

	// TempDir creates the per-run directory; nil means os.MkdirTemp.
	// Tests pass t.TempDir.
	TempDir func() (string, error)

	// Registry returns a fresh registry for each run; nil means
	// format.NewDefault. Building an engine freezes its registry.
	Registry func() *format.Registry
}

// RunScenario runs s in every mode and checks that the modes agree.
// The returned error is reserved for scenarios that cannot run at all;
// failed expectations are reported in each Result.
func (h *Harness) RunScenario(ctx context.Context, s *Scenario) ([]*Result, error) {
	var results []*Result
	for _, mode := range s.RunModes() {
		dir, cleanup, err := h.tempDir()
		if err != nil {
			return nil, err
		}
		res, err := h.Run(ctx, s, mode, dir)
		cleanup()
		if err != nil {
			return nil, fmt.Errorf("scenario %s (%s): %w", s.Name, mode, err)
		}
		results = append(results, res)
	}

	for _, res := range results[1:] {
		checkParity(results[0], res)
	}
	return results, nil
}

// Run executes s once in mode with dir as the working directory for
// relative paths.
//
// Execution flow:
// 1. Write the scenario files under dir
// 2. Build the pipeline with captured standard streams
// 3. Run it and collect every output
// 4. Check the expect clause
func (h *Harness) Run(ctx context.Context, s *Scenario, mode, dir string) (*Result, error) {
	for name, content := range s.Files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("write file %s: %w", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return nil, fmt.Errorf("write file %s: %w", name, err)
		}
	}

	cfg := resolvePaths(s.Pipeline, dir)
	var stdout, stderr bytes.Buffer
	b := pipeline.FromConfig(&cfg, h.registry()).
		WithStdio(strings.NewReader(s.Stdin), &stdout, &stderr).
		WithLogger(h.logger())

	var (
		eng *engine.Engine
		err error
	)
	if mode == ModeAsync {
		eng, err = b.BuildAsync()
	} else {
		eng, err = b.Build()
	}
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}

	result := NewResult(mode)
	report, runErr := eng.Run(ctx)
	result.Report, result.Err = report, runErr
	result.setOutcomes(report)

	for i, out := range cfg.Outputs {
		key, data, ok := collect(b, s.Pipeline.Outputs[i], out, &stdout, &stderr)
		if ok {
			result.Outputs[key] = data
		}
	}

	checkExpect(result, &s.Expect)
	return result, nil
}

func (h *Harness) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (h *Harness) registry() *format.Registry {
	if h.Registry != nil {
		return h.Registry()
	}
	return format.NewDefault()
}

func (h *Harness) tempDir() (string, func(), error) {
	if h.TempDir != nil {
		dir, err := h.TempDir()
		return dir, func() {}, err
	}
	dir, err := os.MkdirTemp("", "multiio-scenario-")
	if err != nil {
		return "", nil, err
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}

// resolvePaths returns a copy of cfg with relative file paths joined to dir.
func resolvePaths(cfg config.PipelineConfig, dir string) config.PipelineConfig {
	cfg.Inputs = slices.Clone(cfg.Inputs)
	for i, in := range cfg.Inputs {
		if in.Kind == config.KindFile && !filepath.IsAbs(in.Path) {
			cfg.Inputs[i].Path = filepath.Join(dir, in.Path)
		}
	}
	cfg.Outputs = slices.Clone(cfg.Outputs)
	for i, out := range cfg.Outputs {
		if out.Kind == config.KindFile && !filepath.IsAbs(out.Path) {
			cfg.Outputs[i].Path = filepath.Join(dir, out.Path)
		}
	}
	return cfg
}

// collect returns the key and content of what one output wrote. declared
// is the output as the scenario wrote it, resolved the one actually used.
func collect(b *pipeline.Builder, declared, resolved config.OutputSpec, stdout, stderr *bytes.Buffer) (string, string, bool) {
	switch resolved.Kind {
	case config.KindStdout:
		return StdoutKey, stdout.String(), stdout.Len() > 0
	case config.KindStderr:
		return StderrKey, stderr.String(), stderr.Len() > 0
	case config.KindMemory:
		m, ok := b.MemoryOutput(resolved.ID)
		if !ok || !m.Written() {
			return "", "", false
		}
		return "memory:" + resolved.ID, string(m.Bytes()), true
	default:
		data, err := os.ReadFile(resolved.Path)
		if errors.Is(err, os.ErrNotExist) {
			return "", "", false
		}
		if err != nil {
			return declared.Path, fmt.Sprintf("<unreadable: %v>", err), true
		}
		return filepath.ToSlash(declared.Path), string(data), true
	}
}

// checkParity records on res every way it differs from base.
func checkParity(base, res *Result) {
	if (base.Err == nil) != (res.Err == nil) {
		res.AddError("parity: %s run ok=%t, %s run ok=%t", base.Mode, base.Err == nil, res.Mode, res.Err == nil)
	}
	if !slices.Equal(base.Outcomes, res.Outcomes) {
		res.AddError("parity: outcomes differ from %s run:\n  %s: %v\n  %s: %v",
			base.Mode, base.Mode, base.Outcomes, res.Mode, res.Outcomes)
	}
	if !maps.Equal(base.Outputs, res.Outputs) {
		keys := slices.Sorted(maps.Keys(res.Outputs))
		res.AddError("parity: outputs differ from %s run (%s has %v)", base.Mode, res.Mode, keys)
	}
}
