package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Manifest is the JSON sidecar written next to a converted model.
type Manifest struct {
	RunID            string    `json:"run_id"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
	Source           string    `json:"source"`
	SourceKind       string    `json:"source_kind"`
	Output           string    `json:"output"`
	Copy             string    `json:"copy,omitempty"`
	CopyError        string    `json:"copy_error,omitempty"`
	SizeBytes        int64     `json:"size_bytes"`
	FrameworkVersion string    `json:"framework_version"`
	RuntimeVersion   string    `json:"runtime_version"`
	RuntimeSource    string    `json:"runtime_source"`
	Compatibility    string    `json:"compatibility"`
	Profile          string    `json:"profile"`
	SupportedOps     []string  `json:"supported_ops"`
	Optimize         bool      `json:"optimize"`
	InputShape       string    `json:"input_shape,omitempty"`
	OutputShape      string    `json:"output_shape,omitempty"`
	ParamCount       int64     `json:"param_count,omitempty"`
}

// NewManifest describes a successful run.
func NewManifest(r *Result, opts Options) *Manifest {
	m := &Manifest{
		RunID:          r.RunID,
		StartedAt:      r.StartedAt,
		FinishedAt:     r.FinishedAt,
		Source:         r.Model.Path,
		SourceKind:     string(r.Model.Kind),
		Output:         r.Output.PrimaryPath,
		SizeBytes:      r.Output.Size(),
		RuntimeVersion: opts.Runtime.Version,
		RuntimeSource:  opts.Runtime.Source,
		Compatibility:  string(r.Verdict.Status),
		Profile:        opts.Profile.Name,
		Optimize:       opts.Conversion.Optimize,
	}

	if r.CopyErr == nil {
		m.Copy = r.Output.SecondaryPath
	} else {
		m.CopyError = r.CopyErr.Error()
	}

	for _, op := range opts.Conversion.SupportedOps {
		m.SupportedOps = append(m.SupportedOps, string(op))
	}

	if r.Handle != nil {
		m.FrameworkVersion = r.Handle.FrameworkVersion
		m.InputShape = r.Handle.InputShape
		m.OutputShape = r.Handle.OutputShape
		m.ParamCount = r.Handle.ParamCount
	}

	return m
}

// ManifestPath returns the sidecar path for a converted model.
func ManifestPath(output string) string {
	return strings.TrimSuffix(output, ".tflite") + ".json"
}

// WriteManifest writes m next to its output and returns the file path.
func WriteManifest(m *Manifest) (string, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}

	path := ManifestPath(m.Output)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}

	return path, nil
}
