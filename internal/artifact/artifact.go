package artifact

import (
	"path/filepath"
	"strings"
)

// Kind identifies the serialization format of a model artifact.
type Kind string

const (
	// KindKeras is the native Keras v3 zip format.
	KindKeras Kind = "keras"

	// KindH5 is the legacy HDF5 format.
	KindH5 Kind = "h5"

	// KindUnknown is anything else, e.g. a SavedModel directory.
	KindUnknown Kind = "unknown"
)

// KindFromPath infers the artifact kind from its extension.
func KindFromPath(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".keras":
		return KindKeras
	case ".h5", ".hdf5":
		return KindH5
	default:
		return KindUnknown
	}
}

// ModelArtifact is a serialized model on disk produced by a training run.
type ModelArtifact struct {
	Path string
	Kind Kind
}

// NewModelArtifact creates a ModelArtifact for path.
func NewModelArtifact(path string) *ModelArtifact {
	return &ModelArtifact{
		Path: path,
		Kind: KindFromPath(path),
	}
}

// ConvertedArtifact is the converter output and where it is placed.
// It is created once per run and never mutated afterwards.
type ConvertedArtifact struct {
	data          []byte
	PrimaryPath   string
	SecondaryPath string
}

// NewConvertedArtifact wraps converted bytes with their destinations.
func NewConvertedArtifact(data []byte, primary, secondary string) *ConvertedArtifact {
	return &ConvertedArtifact{
		data:          append([]byte(nil), data...),
		PrimaryPath:   primary,
		SecondaryPath: secondary,
	}
}

// Bytes returns a copy of the converted bytes.
func (c *ConvertedArtifact) Bytes() []byte {
	return append([]byte(nil), c.data...)
}

// Size returns the size of the converted bytes.
func (c *ConvertedArtifact) Size() int64 {
	return int64(len(c.data))
}

// SizeMB returns the size in mebibytes.
func (c *ConvertedArtifact) SizeMB() float64 {
	return float64(len(c.data)) / (1024 * 1024)
}
