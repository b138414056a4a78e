package compat

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProjectFile(t *testing.T, root, rel, content string) {
	t.Helper()

	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

const catalogBuildFile = `
dependencies {
    // TensorFlow Lite
    implementation(libs.tensorflow.lite)
    // Flex ops
    implementation("org.tensorflow:tensorflow-lite-select-tf-ops:2.16.1")
}
`

func TestDetectAndroidRuntime_VersionCatalogRef(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "app/build.gradle.kts", catalogBuildFile)
	writeProjectFile(t, root, "gradle/libs.versions.toml", `
[versions]
tensorflowLite = "2.16.1"
agp = "8.2.0"

[libraries]
androidx-core-ktx = { group = "androidx.core", name = "core-ktx", version = "1.12.0" }
tensorflow-lite = { group = "org.tensorflow", name = "tensorflow-lite", version.ref = "tensorflowLite" }
`)

	rt, err := DetectAndroidRuntime(root)
	require.NoError(t, err)

	assert.Equal(t, "2.16.1", rt.Version)
	assert.True(t, rt.SelectOps)
	assert.Equal(t, "2.16.1", rt.SelectOpsVersion)
	assert.Equal(t, filepath.Join(root, "gradle", "libs.versions.toml"), rt.Source)
}

func TestDetectAndroidRuntime_CatalogModuleNotation(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "app/build.gradle.kts", "implementation(libs.tensorflow.lite)\n")
	writeProjectFile(t, root, "gradle/libs.versions.toml", `
[versions]
tflite = { strictly = "2.18.1" }

[libraries]
tensorflow-lite = { module = "org.tensorflow:tensorflow-lite", version.ref = "tflite" }
`)

	rt, err := DetectAndroidRuntime(root)
	require.NoError(t, err)

	assert.Equal(t, "2.18.1", rt.Version)
	assert.False(t, rt.SelectOps)
}

func TestDetectAndroidRuntime_CatalogStringNotation(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "app/build.gradle.kts", "implementation(libs.tensorflow.lite)\n")
	writeProjectFile(t, root, "gradle/libs.versions.toml", `
[libraries]
tensorflow-lite = "org.tensorflow:tensorflow-lite:2.17.0"
`)

	rt, err := DetectAndroidRuntime(root)
	require.NoError(t, err)
	assert.Equal(t, "2.17.0", rt.Version)
}

func TestDetectAndroidRuntime_InlineGroovy(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "app/build.gradle", `
dependencies {
    implementation 'org.tensorflow:tensorflow-lite:2.18.1'
    implementation 'org.tensorflow:tensorflow-lite-support:0.4.4'
}
`)

	rt, err := DetectAndroidRuntime(root)
	require.NoError(t, err)

	assert.Equal(t, "2.18.1", rt.Version)
	assert.False(t, rt.SelectOps)
	assert.Equal(t, filepath.Join(root, "app", "build.gradle"), rt.Source)
}

func TestDetectAndroidRuntime_SelectOpsOnly(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "app/build.gradle.kts", catalogBuildFile)

	rt, err := DetectAndroidRuntime(root)
	require.NoError(t, err)

	assert.Equal(t, "2.16.1", rt.Version)
	assert.True(t, rt.SelectOps)
}

func TestDetectAndroidRuntime_NoDependency(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "app/build.gradle.kts", "dependencies {}\n")

	_, err := DetectAndroidRuntime(root)
	require.ErrorIs(t, err, ErrNoRuntime)
}

func TestDetectAndroidRuntime_NoBuildFile(t *testing.T) {
	_, err := DetectAndroidRuntime(t.TempDir())
	require.Error(t, err)
}
