package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/ekisa-team/litegen/internal/artifact"
	"github.com/ekisa-team/litegen/internal/compat"
	"github.com/ekisa-team/litegen/internal/config"
	"github.com/ekisa-team/litegen/internal/converter"
	"github.com/ekisa-team/litegen/internal/resolver"
)

// ErrUnknownProfile is returned when the configured profile is not in the matrix.
var ErrUnknownProfile = errors.New("unknown compatibility profile")

// AndroidTarget describes where the Android app expects the model.
type AndroidTarget struct {
	ProjectDir string
	AssetsDir  string
	AssetName  string
}

// AssetPath returns the full path of the model inside the Android project.
func (a AndroidTarget) AssetPath() string {
	project := a.ProjectDir
	if project == "" {
		project = "<android-project>"
	}
	return filepath.Join(project, a.AssetsDir, a.AssetName)
}

// Runtime is the TFLite runtime the converted model is meant for.
type Runtime struct {
	Version string

	// Source says where Version came from: config, a Gradle file or the profile.
	Source string

	// SelectOps is nil when unknown, otherwise whether the app declares the
	// select TF ops runtime.
	SelectOps *bool
}

// Options configures a single pipeline run.
type Options struct {
	Input        string
	Resolver     *resolver.Resolver
	Output       artifact.OutputOptions
	CopyTo       string
	Conversion   converter.ConversionConfig
	Matrix       compat.Matrix
	Profile      compat.Entry
	Runtime      Runtime
	StrictCompat bool
	Manifest     bool
	Android      AndroidTarget
}

// OptionsFromConfig builds run options from configuration. input is the raw
// path given by the user and may be empty when a search directory is set.
func OptionsFromConfig(cfg *config.Config, input string) (Options, error) {
	matrix := MatrixFromConfig(cfg)
	profile, ok := matrix.Lookup(cfg.Conversion.Profile)
	if !ok {
		return Options{}, fmt.Errorf("%w %q (available: %s)", ErrUnknownProfile, cfg.Conversion.Profile, strings.Join(matrix.Names(), ", "))
	}

	conv := converter.DefaultConversionConfig()
	conv.Optimize = cfg.Conversion.OptimizeEnabled()
	conv.LowerTensorListOps = cfg.Conversion.LowerTensorListOps
	if !cfg.Conversion.SelectOpsEnabled() {
		conv.SupportedOps = []converter.OpsSet{converter.OpsSetBuiltins}
	}

	return Options{
		Input: input,
		Resolver: resolver.New(resolver.Options{
			SearchDir:  cfg.Input.SearchDir,
			Extensions: resolver.ExtensionsFromList(cfg.Input.Extensions),
		}),
		Output: artifact.OutputOptions{
			Dir:    cfg.Output.Dir,
			Name:   cfg.Output.Name,
			Suffix: cfg.Output.Suffix,
		},
		CopyTo:       cfg.Output.CopyTo,
		Conversion:   conv,
		Matrix:       matrix,
		Profile:      profile,
		Runtime:      resolveRuntime(cfg, profile),
		StrictCompat: cfg.Conversion.StrictCompat,
		Manifest:     cfg.Output.Manifest,
		Android: AndroidTarget{
			ProjectDir: cfg.Android.ProjectDir,
			AssetsDir:  cfg.Android.AssetsDir,
			AssetName:  cfg.Android.AssetName,
		},
	}, nil
}

// MatrixFromConfig returns the built-in matrix extended with configured entries.
func MatrixFromConfig(cfg *config.Config) compat.Matrix {
	extra := make([]compat.Entry, 0, len(cfg.Compat))
	for _, e := range cfg.Compat {
		extra = append(extra, compat.Entry{
			Name:      e.Name,
			Framework: e.Framework,
			Runtime:   e.Runtime,
			Setup:     e.Setup,
			Notes:     e.Notes,
		})
	}
	return compat.DefaultMatrix().With(extra...)
}

// resolveRuntime picks the target runtime version.
// Precedence: explicit config, the Android project's Gradle files, the profile.
func resolveRuntime(cfg *config.Config, profile compat.Entry) Runtime {
	var selectOps *bool

	if cfg.Android.ProjectDir != "" {
		detected, err := compat.DetectAndroidRuntime(cfg.Android.ProjectDir)
		if err != nil {
			slog.Warn("Could not detect TFLite runtime from Android project", "project", cfg.Android.ProjectDir, "error", err)
		} else {
			selectOps = &detected.SelectOps
			if cfg.Android.RuntimeVersion == "" {
				return Runtime{Version: detected.Version, Source: detected.Source, SelectOps: selectOps}
			}
		}
	}

	if cfg.Android.RuntimeVersion != "" {
		return Runtime{Version: cfg.Android.RuntimeVersion, Source: "config", SelectOps: selectOps}
	}

	return Runtime{Version: profile.Runtime, Source: "profile " + profile.Name, SelectOps: selectOps}
}
