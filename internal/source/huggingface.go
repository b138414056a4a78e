package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ekisa-team/litegen/internal/config"
	"github.com/ekisa-team/litegen/internal/execx"
)

const (
	defaultRetryDelay = 2 * time.Second
	defaultMaxRetries = 3
	defaultTimeout    = 5 * time.Minute
	defaultBinary     = "hf"
	markerFilename    = ".litegen-downloaded"
)

// ErrInvalidRepo is returned for an empty or malformed repository name.
var ErrInvalidRepo = errors.New("invalid repo name")

// HuggingFaceDownloader downloads model artifacts with the `hf` CLI.
type HuggingFaceDownloader struct {
	runner     execx.CommandRunner
	binary     string
	retryDelay time.Duration
	maxRetries int
	timeout    time.Duration
}

// NewHuggingFaceDownloader creates a downloader backed by os/exec.
func NewHuggingFaceDownloader() *HuggingFaceDownloader {
	return NewHuggingFaceDownloaderWithRunner(execx.ExecCommandRunner{})
}

// NewHuggingFaceDownloaderWithRunner creates a downloader with a custom runner.
func NewHuggingFaceDownloaderWithRunner(runner execx.CommandRunner) *HuggingFaceDownloader {
	return &HuggingFaceDownloader{
		runner:     runner,
		binary:     defaultBinary,
		retryDelay: defaultRetryDelay,
		maxRetries: defaultMaxRetries,
		timeout:    defaultTimeout,
	}
}

// Download fetches the repository into targetDir/<repo> and returns that
// directory. The boolean reports whether an up-to-date copy was reused.
func (d *HuggingFaceDownloader) Download(ctx context.Context, hfSource config.HuggingFaceSource, targetDir string) (string, bool, error) {
	repo := strings.TrimSpace(hfSource.Repo)
	if repo == "" || strings.Contains(repo, "..") {
		return "", false, fmt.Errorf("%w: %q", ErrInvalidRepo, hfSource.Repo)
	}

	fullPath := filepath.Join(targetDir, repo)
	markerPath := filepath.Join(fullPath, markerFilename)
	markerContent := d.markerContent(repo, hfSource)

	if !hfSource.ForceDownload {
		if _, err := os.Stat(markerPath); err == nil && !d.shouldRedownload(markerPath, markerContent) {
			slog.Info("Model already downloaded and up-to-date (marker match), skipping", "repo", repo, "path", fullPath)
			return fullPath, true, nil
		}
	}

	if err := EnsureDirectory(fullPath); err != nil {
		return "", false, err
	}

	args := d.buildArgs(repo, fullPath, hfSource)

	var lastErr error
	for attempt := 0; attempt < d.maxRetries; attempt++ {
		if attempt > 0 {
			slog.Info("Retrying download", "repo", repo, "attempt", attempt+1, "last_error", lastErr)
			select {
			case <-ctx.Done():
				return "", false, fmt.Errorf("download canceled: %w", ctx.Err())
			case <-time.After(d.retryDelay):
			}
		} else {
			slog.Info("Downloading model", "repo", repo, "path", fullPath)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, d.timeout)
		stdout, stderr, err := d.runner.Run(attemptCtx, d.binary, args, nil)
		attemptErr := attemptCtx.Err()
		cancel()

		if err == nil {
			if err := os.WriteFile(markerPath, []byte(markerContent), 0o644); err != nil {
				slog.Warn("Failed to write download marker", "path", markerPath, "error", err)
			}

			slog.Info("Model downloaded successfully", "repo", repo, "path", fullPath, "attempt", attempt+1)
			return fullPath, false, nil
		}

		lastErr = err
		slog.Error("Failed to download model", "repo", repo, "attempt", attempt+1, "error", err,
			"stdout", string(stdout), "stderr", string(stderr))

		if errors.Is(attemptErr, context.DeadlineExceeded) {
			slog.Warn("Download timed out", "repo", repo, "attempt", attempt+1)
		} else if ctx.Err() != nil {
			return "", false, fmt.Errorf("download canceled: %w", err)
		}
	}

	return "", false, fmt.Errorf("download %s failed after %d attempts: %w", repo, d.maxRetries, lastErr)
}

// buildArgs builds `hf download` arguments.
func (d *HuggingFaceDownloader) buildArgs(repo, localDir string, hfSource config.HuggingFaceSource) []string {
	args := []string{
		"download",
		repo,
		"--local-dir", localDir,
	}

	if hfSource.Revision != "" {
		args = append(args, "--revision", hfSource.Revision)
	}
	if hfSource.RepoType != "" {
		args = append(args, "--repo-type", hfSource.RepoType)
	}
	for _, inc := range hfSource.Include {
		args = append(args, "--include", inc)
	}
	if hfSource.ForceDownload {
		args = append(args, "--force-download")
	}
	if hfSource.Token != "" {
		args = append(args, "--token", hfSource.Token)
	}

	return args
}

// markerContent generates the expected content of the marker file.
// Used to detect if we need to redownload due to config change.
func (d *HuggingFaceDownloader) markerContent(repo string, hfSource config.HuggingFaceSource) string {
	return fmt.Sprintf("repo: %s\nrevision: %s\ninclude: %s\n", repo, hfSource.Revision, strings.Join(hfSource.Include, ","))
}

// shouldRedownload checks if the model should be redownloaded by comparing marker content.
func (d *HuggingFaceDownloader) shouldRedownload(markerPath, expectedContent string) bool {
	content, err := os.ReadFile(markerPath)
	if err != nil {
		slog.Debug("Marker file missing or unreadable", "path", markerPath, "error", err)
		return true
	}

	if string(content) != expectedContent {
		slog.Info("Model config changed (marker mismatch), will redownload", "marker_path", markerPath)
		return true
	}

	return false
}

// EnsureDirectory creates path if it does not exist.
func EnsureDirectory(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}
