package converter

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ekisa-team/litegen/internal/artifact"
	"github.com/ekisa-team/litegen/internal/execx"
	"github.com/ekisa-team/litegen/internal/mapsafe"
)

// stderrTailLines bounds how much converter stderr ends up in error messages.
const stderrTailLines = 15

var (
	//go:embed scripts/load.py
	loadScript []byte

	//go:embed scripts/convert.py
	convertScript []byte
)

// PythonConverter drives the TensorFlow converter through a Python interpreter.
// Helper programs are fed on stdin, so only TensorFlow needs to be installed.
type PythonConverter struct {
	python     string
	timeout    time.Duration
	mu         sync.Mutex
	executor   *execx.Executor
	tempDir    string
	onProgress func(line string)
}

// NewPythonConverter creates a converter using the given interpreter.
// The interpreter is looked up on first use.
func NewPythonConverter(python string, timeout time.Duration) *PythonConverter {
	return &PythonConverter{
		python:  python,
		timeout: timeout,
		tempDir: os.TempDir(),
	}
}

// NewPythonConverterWithExecutor creates a converter with a custom executor.
func NewPythonConverterWithExecutor(executor *execx.Executor) *PythonConverter {
	return &PythonConverter{
		executor: executor,
		tempDir:  os.TempDir(),
	}
}

// OnProgress registers a callback receiving converter progress lines.
func (c *PythonConverter) OnProgress(fn func(line string)) {
	c.onProgress = fn
}

// interpreter returns the executor, resolving the interpreter path once.
func (c *PythonConverter) interpreter() (*execx.Executor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.executor == nil {
		executor, err := execx.NewExecutor(c.python, c.timeout)
		if err != nil {
			return nil, fmt.Errorf("python interpreter %q: %w", c.python, err)
		}
		c.executor = executor
	}

	return c.executor, nil
}

// Load implements Converter.
func (c *PythonConverter) Load(ctx context.Context, model *artifact.ModelArtifact) (*ModelHandle, error) {
	executor, err := c.interpreter()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	args := []string{"-", model.Path}

	slog.Debug("Loading model", "python", executor.BinaryPath(), "path", model.Path)

	stdout, stderr, err := executor.Execute(ctx, args, bytes.NewReader(loadScript))
	if err != nil {
		return nil, fmt.Errorf("%w: %w\nstderr: %s", ErrLoad, err, tail(stderr, stderrTailLines))
	}

	info, err := parseLoadOutput(stdout)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	return &ModelHandle{
		Artifact:         model,
		FrameworkVersion: mapsafe.Get(info, "framework_version", ""),
		InputShape:       mapsafe.Get(info, "input_shape", ""),
		OutputShape:      mapsafe.Get(info, "output_shape", ""),
		ParamCount:       mapsafe.Get(info, "param_count", int64(0)),
	}, nil
}

// Convert implements Converter.
func (c *PythonConverter) Convert(ctx context.Context, handle *ModelHandle, cfg ConversionConfig) ([]byte, error) {
	executor, err := c.interpreter()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConversion, err)
	}

	// The converter writes to a file, which is read back afterwards.
	tmp, err := os.CreateTemp(c.tempDir, "litegen_*.tflite")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create temp file: %w", ErrConversion, err)
	}
	outputFile := tmp.Name()
	tmp.Close()
	defer os.Remove(outputFile)

	args := buildConvertArgs(handle.Artifact.Path, outputFile, cfg)

	slog.Debug("Converting model", "python", executor.BinaryPath(), "args", strings.Join(args, " "))

	stream, err := executor.Stream(ctx, args, bytes.NewReader(convertScript))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConversion, err)
	}

	for chunk := range stream {
		if chunk.Done {
			if chunk.Error != nil {
				return nil, fmt.Errorf("%w: %w", ErrConversion, chunk.Error)
			}
			continue
		}

		line := string(chunk.Data)
		slog.Debug("Converter progress", "line", line)
		if c.onProgress != nil {
			c.onProgress(line)
		}
	}

	data, err := os.ReadFile(outputFile)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read converted model: %w", ErrConversion, err)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: converter produced no output", ErrConversion)
	}

	return data, nil
}

// buildConvertArgs builds the convert helper's positional arguments.
func buildConvertArgs(source, target string, cfg ConversionConfig) []string {
	optimize := "0"
	if cfg.Optimize {
		optimize = "1"
	}

	lower := ""
	if cfg.LowerTensorListOps != nil {
		lower = "0"
		if *cfg.LowerTensorListOps {
			lower = "1"
		}
	}

	return []string{"-", source, target, cfg.OpsString(), optimize, lower}
}

// parseLoadOutput decodes the last non-empty stdout line as a JSON object.
func parseLoadOutput(stdout []byte) (map[string]any, error) {
	lines := strings.Split(strings.TrimSpace(string(stdout)), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if last == "" {
		return nil, fmt.Errorf("load helper printed nothing")
	}

	var info map[string]any
	if err := json.Unmarshal([]byte(last), &info); err != nil {
		return nil, fmt.Errorf("unexpected load helper output %q: %w", last, err)
	}

	return info, nil
}

// tail returns the last n lines of b.
func tail(b []byte, n int) string {
	lines := strings.Split(strings.TrimRight(string(b), "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
