package converter

import (
	"context"
	"strings"

	"github.com/ekisa-team/litegen/internal/artifact"
)

// OpsSet names an operation set the converted model may use.
type OpsSet string

const (
	// OpsSetBuiltins are the ops natively implemented by the mobile runtime.
	OpsSetBuiltins OpsSet = "TFLITE_BUILTINS"

	// OpsSetSelectTF are framework ops passed through to the flex delegate.
	OpsSetSelectTF OpsSet = "SELECT_TF_OPS"
)

// ConversionConfig is the small fixed configuration handed to the converter.
type ConversionConfig struct {
	SupportedOps []OpsSet
	Optimize     bool

	// LowerTensorListOps toggles the converter's tensor list lowering.
	// Nil leaves the converter default untouched.
	LowerTensorListOps *bool
}

// DefaultConversionConfig returns builtins plus select TF ops with default optimization.
func DefaultConversionConfig() ConversionConfig {
	return ConversionConfig{
		SupportedOps: []OpsSet{OpsSetBuiltins, OpsSetSelectTF},
		Optimize:     true,
	}
}

// UsesSelectOps reports whether the flex fallback is enabled.
func (c ConversionConfig) UsesSelectOps() bool {
	for _, op := range c.SupportedOps {
		if op == OpsSetSelectTF {
			return true
		}
	}
	return false
}

// OpsString renders the op sets as a comma separated list.
func (c ConversionConfig) OpsString() string {
	names := make([]string, 0, len(c.SupportedOps))
	for _, op := range c.SupportedOps {
		names = append(names, string(op))
	}
	return strings.Join(names, ",")
}

// ModelHandle is a model the converter has successfully loaded.
type ModelHandle struct {
	Artifact         *artifact.ModelArtifact
	FrameworkVersion string
	InputShape       string
	OutputShape      string
	ParamCount       int64
}

// Converter is the external model conversion toolchain.
type Converter interface {
	// Load opens the artifact and reports what the framework sees.
	Load(ctx context.Context, model *artifact.ModelArtifact) (*ModelHandle, error)

	// Convert produces the mobile flatbuffer for a loaded model.
	Convert(ctx context.Context, handle *ModelHandle, cfg ConversionConfig) ([]byte, error)
}
