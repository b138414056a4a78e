package config

import (
	"errors"
	"time"
)

// SourceType represents the type of model source.
type SourceType string

const (
	// SourceTypeLocal represents a model artifact already on disk.
	SourceTypeLocal SourceType = "local"

	// SourceTypeHuggingFace represents a Hugging Face model repository source.
	SourceTypeHuggingFace SourceType = "huggingface"
)

// Config holds the main configuration for the application.
type Config struct {
	Version    string           `json:"version"           yaml:"version"`
	Input      InputConfig      `json:"input"             yaml:"input"`
	Output     OutputConfig     `json:"output"            yaml:"output"`
	Conversion ConversionConfig `json:"conversion"        yaml:"conversion"`
	Android    AndroidConfig    `json:"android"           yaml:"android"`
	Compat     []CompatEntry    `json:"compat,omitempty"  yaml:"compat,omitempty"`
}

// InputConfig describes where the model artifact comes from.
type InputConfig struct {
	// Path is the expected artifact path. Empty means ask interactively.
	Path string `json:"path,omitempty"        yaml:"path,omitempty"`

	// SearchDir is scanned for a recognized artifact when Path does not exist.
	SearchDir string `json:"search_dir,omitempty"  yaml:"search_dir,omitempty"`

	// Extensions lists recognized artifact suffixes, most preferred first.
	Extensions []string `json:"extensions,omitempty"  yaml:"extensions,omitempty"`

	HuggingFace *HuggingFaceSource `json:"huggingface,omitempty" yaml:"huggingface,omitempty"`
}

// OutputConfig describes where converted bytes are written.
type OutputConfig struct {
	Dir      string `json:"dir,omitempty"      yaml:"dir,omitempty"`
	Name     string `json:"name,omitempty"     yaml:"name,omitempty"`
	Suffix   string `json:"suffix,omitempty"   yaml:"suffix,omitempty"`
	CopyTo   string `json:"copy_to,omitempty"  yaml:"copy_to,omitempty"`
	Manifest bool   `json:"manifest,omitempty" yaml:"manifest,omitempty"`
}

// ConversionConfig holds converter settings.
type ConversionConfig struct {
	Profile            string        `json:"profile,omitempty"               yaml:"profile,omitempty"`
	Python             string        `json:"python,omitempty"                yaml:"python,omitempty"`
	Timeout            time.Duration `json:"timeout,omitempty"               yaml:"timeout,omitempty"`
	SelectTFOps        *bool         `json:"select_tf_ops,omitempty"         yaml:"select_tf_ops,omitempty"`
	Optimize           *bool         `json:"optimize,omitempty"              yaml:"optimize,omitempty"`
	LowerTensorListOps *bool         `json:"lower_tensor_list_ops,omitempty" yaml:"lower_tensor_list_ops,omitempty"`
	StrictCompat       bool          `json:"strict_compat,omitempty"         yaml:"strict_compat,omitempty"`
}

// AndroidConfig describes the downstream Android project.
type AndroidConfig struct {
	ProjectDir     string `json:"project_dir,omitempty"     yaml:"project_dir,omitempty"`
	AssetsDir      string `json:"assets_dir,omitempty"      yaml:"assets_dir,omitempty"`
	AssetName      string `json:"asset_name,omitempty"      yaml:"asset_name,omitempty"`
	RuntimeVersion string `json:"runtime_version,omitempty" yaml:"runtime_version,omitempty"`
}

// CompatEntry is a user supplied row of the version-compatibility matrix.
type CompatEntry struct {
	Name      string   `json:"name"            yaml:"name"`
	Framework string   `json:"framework"       yaml:"framework"`
	Runtime   string   `json:"runtime"         yaml:"runtime"`
	Setup     []string `json:"setup,omitempty" yaml:"setup,omitempty"`
	Notes     string   `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// -------------------------
// Source definitions
// -------------------------

// ModelSource represents a source for a model artifact.
type ModelSource interface {
	Type() SourceType
}

// LocalSource is an artifact addressed by a filesystem path.
type LocalSource struct {
	Path      string
	SearchDir string
}

// Type returns the local source type.
func (l LocalSource) Type() SourceType {
	return SourceTypeLocal
}

// HuggingFaceSource represents a Hugging Face model repository source.
type HuggingFaceSource struct {
	Repo          string   `json:"repo"                     yaml:"repo"`
	Revision      string   `json:"revision,omitempty"       yaml:"revision,omitempty"`
	RepoType      string   `json:"repo_type,omitempty"      yaml:"repo_type,omitempty"`
	Token         string   `json:"token,omitempty"          yaml:"token,omitempty"`
	Include       []string `json:"include,omitempty"        yaml:"include,omitempty"`
	ForceDownload bool     `json:"force_download,omitempty" yaml:"force_download,omitempty"`
}

// Type returns the Hugging Face source type.
func (h HuggingFaceSource) Type() SourceType {
	return SourceTypeHuggingFace
}

// GetSource returns the active source for the input.
func (i *InputConfig) GetSource() (ModelSource, error) {
	if i.HuggingFace != nil {
		if i.HuggingFace.Repo == "" {
			return nil, errors.New("huggingface source has no repo")
		}
		return *i.HuggingFace, nil
	}

	return LocalSource{Path: i.Path, SearchDir: i.SearchDir}, nil
}

// SelectOpsEnabled reports whether the select TF ops fallback is enabled.
func (c ConversionConfig) SelectOpsEnabled() bool {
	return c.SelectTFOps == nil || *c.SelectTFOps
}

// OptimizeEnabled reports whether size/latency optimization is enabled.
func (c ConversionConfig) OptimizeEnabled() bool {
	return c.Optimize == nil || *c.Optimize
}
