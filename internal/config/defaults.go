package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/ekisa-team/litegen/internal/envvar"
	"github.com/ekisa-team/litegen/internal/xfs"
)

const (
	// DefaultProfile is the compatibility profile used when none is configured.
	DefaultProfile = "tf216"

	// DefaultPython is the interpreter that hosts the TensorFlow converter.
	DefaultPython = "python3"

	// DefaultSuffix is appended to the input stem to name the output.
	DefaultSuffix = "_fixed"

	// DefaultTimeout bounds each converter invocation.
	DefaultTimeout = 10 * time.Minute

	// DefaultAssetsDir is the Android assets directory relative to the project.
	DefaultAssetsDir = "app/src/main/assets"

	// DefaultAssetName is the file name the Android app loads.
	DefaultAssetName = "final_stress_model_flex.tflite"
)

// DefaultExtensions lists the recognized artifact suffixes, most preferred first.
func DefaultExtensions() []string {
	return []string{".keras", ".h5"}
}

// Defaults returns a configuration usable without any config file.
func Defaults() *Config {
	return &Config{
		Version: "1",
		Input: InputConfig{
			Extensions: DefaultExtensions(),
		},
		Output: OutputConfig{
			Suffix: DefaultSuffix,
		},
		Conversion: ConversionConfig{
			Profile: DefaultProfile,
			Python:  DefaultPython,
			Timeout: DefaultTimeout,
		},
		Android: AndroidConfig{
			AssetsDir: DefaultAssetsDir,
			AssetName: DefaultAssetName,
		},
	}
}

// ApplyDefaults fills unset fields with their defaults and expands tildes.
func (c *Config) ApplyDefaults() {
	d := Defaults()

	if c.Version == "" {
		c.Version = d.Version
	}
	if len(c.Input.Extensions) == 0 {
		c.Input.Extensions = d.Input.Extensions
	}
	if c.Output.Suffix == "" && c.Output.Name == "" {
		c.Output.Suffix = d.Output.Suffix
	}
	if c.Conversion.Profile == "" {
		c.Conversion.Profile = d.Conversion.Profile
	}
	if c.Conversion.Python == "" {
		c.Conversion.Python = d.Conversion.Python
	}
	if c.Conversion.Timeout <= 0 {
		c.Conversion.Timeout = d.Conversion.Timeout
	}
	if c.Android.AssetsDir == "" {
		c.Android.AssetsDir = d.Android.AssetsDir
	}
	if c.Android.AssetName == "" {
		c.Android.AssetName = d.Android.AssetName
	}

	c.Input.Path = xfs.ExpandTilde(c.Input.Path)
	c.Input.SearchDir = xfs.ExpandTilde(c.Input.SearchDir)
	c.Output.Dir = xfs.ExpandTilde(c.Output.Dir)
	c.Output.CopyTo = xfs.ExpandTilde(c.Output.CopyTo)
	c.Android.ProjectDir = xfs.ExpandTilde(c.Android.ProjectDir)
}

// ApplyEnv overrides configuration with environment variables.
func (c *Config) ApplyEnv() {
	if p := os.Getenv(envvar.LitegenModelPath); p != "" {
		c.Input.Path = xfs.ExpandTilde(p)
	}
	if p := os.Getenv(envvar.LitegenPython); p != "" {
		c.Conversion.Python = p
	}
	if v := os.Getenv(envvar.LitegenRuntimeVersion); v != "" {
		c.Android.RuntimeVersion = v
	}
}

// DefaultConfigPath returns the default path for the litegen config directory.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "litegen", "config")
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "litegen")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "litegen")
	default: // Linux, BSD, etc.
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "litegen")
		}
		return filepath.Join(home, ".config", "litegen")
	}
}

// DefaultCachePath returns the directory downloaded model artifacts are kept in.
// LITEGEN_CACHE_PATH takes precedence over the platform default.
func DefaultCachePath() string {
	if p := os.Getenv(envvar.LitegenCachePath); p != "" {
		return xfs.ExpandTilde(p)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "litegen", "models")
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "AppData", "Local", "litegen", "models")
	case "darwin":
		return filepath.Join(home, "Library", "Caches", "litegen", "models")
	default: // Linux, BSD, etc.
		if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
			return filepath.Join(xdg, "litegen", "models")
		}
		return filepath.Join(home, ".cache", "litegen", "models")
	}
}
