package source

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ekisa-team/litegen/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mock types ---

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, name string, args []string, stdin io.Reader) ([]byte, []byte, error) {
	a := m.Called(ctx, name, args, stdin)
	stdout, _ := a.Get(0).([]byte)
	stderr, _ := a.Get(1).([]byte)
	return stdout, stderr, a.Error(2)
}

func (m *MockRunner) Start(ctx context.Context, name string, args []string, stdin io.Reader) (io.ReadCloser, io.ReadCloser, func() error, error) {
	a := m.Called(ctx, name, args, stdin)
	return nil, nil, nil, a.Error(3)
}

func newTestDownloader(runner *MockRunner) *HuggingFaceDownloader {
	d := NewHuggingFaceDownloaderWithRunner(runner)
	d.retryDelay = 0
	return d
}

// --- Tests ---

func TestHuggingFaceDownloader_Download(t *testing.T) {
	target := t.TempDir()
	local := filepath.Join(target, "ekisa", "stress-model")
	runner := new(MockRunner)
	runner.On("Run", mock.Anything, "hf", []string{
		"download", "ekisa/stress-model",
		"--local-dir", local,
		"--revision", "v2",
		"--include", "*.keras",
		"--token", "hf_secret",
	}, mock.Anything).Return([]byte("ok"), nil, nil).Once()

	d := newTestDownloader(runner)
	src := config.HuggingFaceSource{Repo: "ekisa/stress-model", Revision: "v2", Include: []string{"*.keras"}, Token: "hf_secret"}

	path, cached, err := d.Download(context.Background(), src, target)
	require.NoError(t, err)

	assert.Equal(t, local, path)
	assert.False(t, cached)
	assert.FileExists(t, filepath.Join(local, markerFilename))

	// Second call reuses the marker.
	path, cached, err = d.Download(context.Background(), src, target)
	require.NoError(t, err)
	assert.Equal(t, local, path)
	assert.True(t, cached)

	runner.AssertExpectations(t)
}

func TestHuggingFaceDownloader_RedownloadsOnRevisionChange(t *testing.T) {
	target := t.TempDir()
	runner := new(MockRunner)
	runner.On("Run", mock.Anything, "hf", mock.Anything, mock.Anything).Return(nil, nil, nil).Twice()

	d := newTestDownloader(runner)
	_, _, err := d.Download(context.Background(), config.HuggingFaceSource{Repo: "ekisa/m", Revision: "v1"}, target)
	require.NoError(t, err)

	_, cached, err := d.Download(context.Background(), config.HuggingFaceSource{Repo: "ekisa/m", Revision: "v2"}, target)
	require.NoError(t, err)
	assert.False(t, cached)

	runner.AssertExpectations(t)
}

func TestHuggingFaceDownloader_RetriesThenFails(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", mock.Anything, "hf", mock.Anything, mock.Anything).
		Return(nil, []byte("401 Unauthorized"), errors.New("exit status 1")).Times(defaultMaxRetries)

	d := newTestDownloader(runner)
	_, _, err := d.Download(context.Background(), config.HuggingFaceSource{Repo: "ekisa/private"}, t.TempDir())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
	runner.AssertExpectations(t)
}

func TestHuggingFaceDownloader_RetrySucceeds(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", mock.Anything, "hf", mock.Anything, mock.Anything).
		Return(nil, nil, errors.New("connection reset")).Once()
	runner.On("Run", mock.Anything, "hf", mock.Anything, mock.Anything).
		Return(nil, nil, nil).Once()

	d := newTestDownloader(runner)
	_, cached, err := d.Download(context.Background(), config.HuggingFaceSource{Repo: "ekisa/m"}, t.TempDir())

	require.NoError(t, err)
	assert.False(t, cached)
	runner.AssertExpectations(t)
}

func TestHuggingFaceDownloader_InvalidRepo(t *testing.T) {
	d := newTestDownloader(new(MockRunner))

	_, _, err := d.Download(context.Background(), config.HuggingFaceSource{Repo: "  "}, t.TempDir())
	require.ErrorIs(t, err, ErrInvalidRepo)

	_, _, err = d.Download(context.Background(), config.HuggingFaceSource{Repo: "../escape"}, t.TempDir())
	require.ErrorIs(t, err, ErrInvalidRepo)
}

func TestEnsureDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDirectory(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
