package artifact

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tfliteBytes returns a minimal buffer carrying the TFLite file identifier.
func tfliteBytes() []byte {
	return []byte{0x1c, 0x00, 0x00, 0x00, 'T', 'F', 'L', '3', 0x00, 0x00}
}

func TestKindFromPath(t *testing.T) {
	assert.Equal(t, KindKeras, KindFromPath("/tmp/model.keras"))
	assert.Equal(t, KindH5, KindFromPath("/tmp/MODEL.H5"))
	assert.Equal(t, KindUnknown, KindFromPath("/tmp/saved_model"))
}

func TestDeriveOutputPath(t *testing.T) {
	assert.Equal(t, "/tmp/model_fixed.tflite",
		DeriveOutputPath("/tmp/model.keras", OutputOptions{Suffix: "_fixed"}))
	assert.Equal(t, "/tmp/model_fixed.tflite",
		DeriveOutputPath("/tmp/model.h5", OutputOptions{Suffix: "_fixed"}))
	assert.Equal(t, "/content/model_fixed.tflite",
		DeriveOutputPath("/drive/outputs/model.keras", OutputOptions{Dir: "/content", Suffix: "_fixed"}))
	assert.Equal(t, "/drive/final_stress_model_flex_desktop.tflite",
		DeriveOutputPath("/drive/model.keras", OutputOptions{Name: "final_stress_model_flex_desktop.tflite"}))
	assert.Equal(t, "final.tflite",
		DeriveOutputPath("model.keras", OutputOptions{Name: "final.tflite"}))
}

func TestDeriveOutputPath_Idempotent(t *testing.T) {
	opts := OutputOptions{Suffix: "_fixed"}
	inputs := []string{"/tmp/model.keras", "rel/dir/best.h5", "noext", "/a/b.c.keras"}

	for _, in := range inputs {
		first := DeriveOutputPath(in, opts)
		second := DeriveOutputPath(in, opts)
		assert.Equal(t, first, second, in)
	}
}

func TestSecondaryPath(t *testing.T) {
	dir := t.TempDir()

	assert.Empty(t, SecondaryPath("/content/m.tflite", ""))
	assert.Equal(t, filepath.Join(dir, "m.tflite"), SecondaryPath("/content/m.tflite", dir))
	assert.Equal(t, "/drive/MyDrive/m.tflite", SecondaryPath("/content/m.tflite", "/drive/MyDrive/"))
	assert.Equal(t, "/drive/copy.tflite", SecondaryPath("/content/m.tflite", "/drive/copy.tflite"))
}

func TestConvertedArtifact_IsImmutable(t *testing.T) {
	data := tfliteBytes()
	c := NewConvertedArtifact(data, "/tmp/out.tflite", "")

	data[0] = 0xff
	out := c.Bytes()
	out[1] = 0xff

	assert.Equal(t, tfliteBytes(), c.Bytes())
	assert.Equal(t, int64(10), c.Size())
}

func TestVerify(t *testing.T) {
	require.NoError(t, Verify(tfliteBytes()))

	err := Verify([]byte("short"))
	require.ErrorIs(t, err, ErrInvalidOutput)

	err = Verify([]byte("PK\x03\x04zipfile"))
	require.ErrorIs(t, err, ErrInvalidOutput)
}

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "model_fixed.tflite")

	require.NoError(t, Write(NewConvertedArtifact(tfliteBytes(), path, "")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, tfliteBytes(), got)
}

func TestWrite_Unwritable(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	err := Write(NewConvertedArtifact(tfliteBytes(), filepath.Join(blocker, "out.tflite"), ""))
	require.ErrorIs(t, err, ErrWrite)
}

func TestCopy_PreservesContentAndModTime(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.tflite")
	dst := filepath.Join(dir, "drive", "dst.tflite")
	require.NoError(t, os.WriteFile(src, tfliteBytes(), 0o640))

	mtime := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(src, mtime, mtime))

	require.NoError(t, Copy(src, dst))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, tfliteBytes(), got)

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(mtime))
}

func TestCopy_OverwritesExistingModeAndContent(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.tflite")
	dst := filepath.Join(dir, "dst.tflite")
	require.NoError(t, os.WriteFile(src, tfliteBytes(), 0o640))
	require.NoError(t, os.WriteFile(dst, []byte("stale copy from an earlier run"), 0o600))
	require.NoError(t, os.Chmod(dst, 0o600))

	require.NoError(t, Copy(src, dst))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, tfliteBytes(), got)

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
}

func TestCopy_SameFileIsNoop(t *testing.T) {
	src := filepath.Join(t.TempDir(), "m.tflite")
	require.NoError(t, os.WriteFile(src, tfliteBytes(), 0o644))

	require.NoError(t, Copy(src, src))

	got, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, tfliteBytes(), got)
}

func TestCopy_MissingSource(t *testing.T) {
	err := Copy(filepath.Join(t.TempDir(), "absent"), filepath.Join(t.TempDir(), "dst"))
	require.ErrorIs(t, err, ErrCopy)
}
