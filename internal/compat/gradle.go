package compat

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	tfliteGroup     = "org.tensorflow"
	tfliteArtifact  = "tensorflow-lite"
	selectOpsModule = "tensorflow-lite-select-tf-ops"
)

// ErrNoRuntime is returned when the Android project does not declare a TFLite runtime.
var ErrNoRuntime = errors.New("no tensorflow-lite dependency found")

var dependencyPattern = regexp.MustCompile(`org\.tensorflow:(tensorflow-lite(?:-[a-z-]+)?):([0-9][0-9A-Za-z.\-]*)`)

// AndroidRuntime is the TFLite runtime an Android project links against.
type AndroidRuntime struct {
	// Version of the base tensorflow-lite runtime, or of the select ops
	// runtime when only that one is pinned.
	Version string

	// SelectOps reports whether the flex delegate runtime is declared.
	SelectOps        bool
	SelectOpsVersion string

	// Source is the file the version was read from.
	Source string
}

// DetectAndroidRuntime inspects the app module build file and, when the base
// runtime comes from the version catalog, gradle/libs.versions.toml.
func DetectAndroidRuntime(projectDir string) (*AndroidRuntime, error) {
	buildFile, data, err := readBuildFile(projectDir)
	if err != nil {
		return nil, err
	}

	rt := &AndroidRuntime{}
	for _, m := range dependencyPattern.FindAllStringSubmatch(data, -1) {
		switch m[1] {
		case tfliteArtifact:
			rt.Version = m[2]
			rt.Source = buildFile
		case selectOpsModule:
			rt.SelectOps = true
			rt.SelectOpsVersion = m[2]
		}
	}

	if rt.Version == "" && strings.Contains(data, "libs.tensorflow.lite") {
		catalog := filepath.Join(projectDir, "gradle", "libs.versions.toml")
		if v, err := catalogVersion(catalog, tfliteArtifact); err == nil {
			rt.Version = v
			rt.Source = catalog
		}
	}

	if rt.Version == "" && rt.SelectOps {
		rt.Version = rt.SelectOpsVersion
		rt.Source = buildFile
	}

	if rt.Version == "" {
		return nil, fmt.Errorf("%w in %s", ErrNoRuntime, buildFile)
	}

	return rt, nil
}

func readBuildFile(projectDir string) (string, string, error) {
	var lastErr error
	for _, name := range []string{"build.gradle.kts", "build.gradle"} {
		path := filepath.Join(projectDir, "app", name)
		data, err := os.ReadFile(path)
		if err == nil {
			return path, string(data), nil
		}
		lastErr = err
	}
	return "", "", fmt.Errorf("android build file not found: %w", lastErr)
}

// catalogVersion resolves the version of org.tensorflow:<artifact> in a
// Gradle version catalog.
func catalogVersion(path, artifact string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	var catalog struct {
		Versions  map[string]any `toml:"versions"`
		Libraries map[string]any `toml:"libraries"`
	}
	if err := toml.Unmarshal(data, &catalog); err != nil {
		return "", fmt.Errorf("parse %s: %w", path, err)
	}

	for _, lib := range catalog.Libraries {
		if v, ok := libraryVersion(lib, artifact, catalog.Versions); ok {
			return v, nil
		}
	}

	return "", fmt.Errorf("%w in %s", ErrNoRuntime, path)
}

// libraryVersion handles the three catalog notations:
// "group:name:version", { module = "group:name", version = ... } and
// { group = ..., name = ..., version.ref = ... }.
func libraryVersion(lib any, artifact string, versions map[string]any) (string, bool) {
	if s, ok := lib.(string); ok {
		parts := strings.Split(s, ":")
		if len(parts) == 3 && parts[0] == tfliteGroup && parts[1] == artifact {
			return parts[2], true
		}
		return "", false
	}

	table, ok := lib.(map[string]any)
	if !ok {
		return "", false
	}

	group, _ := table["group"].(string)
	name, _ := table["name"].(string)
	if module, ok := table["module"].(string); ok {
		group, name, _ = strings.Cut(module, ":")
	}
	if group != tfliteGroup || name != artifact {
		return "", false
	}

	switch v := table["version"].(type) {
	case string:
		return v, true
	case map[string]any:
		if ref, ok := v["ref"].(string); ok {
			return catalogRef(versions[ref])
		}
	}

	return "", false
}

// catalogRef reads a [versions] value, either "x.y.z" or { strictly = "x.y.z" }.
func catalogRef(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case map[string]any:
		for _, key := range []string{"strictly", "require", "prefer"} {
			if s, ok := x[key].(string); ok {
				return s, true
			}
		}
	}
	return "", false
}
