package artifact

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// flatbufferIdentifier is the file identifier of the TFLite schema.
var flatbufferIdentifier = []byte("TFL3")

// Verify checks that data looks like a TFLite flatbuffer.
func Verify(data []byte) error {
	if len(data) < 8 {
		return fmt.Errorf("%w: %d bytes", ErrInvalidOutput, len(data))
	}

	if !bytes.Equal(data[4:8], flatbufferIdentifier) {
		return fmt.Errorf("%w: identifier %q", ErrInvalidOutput, data[4:8])
	}

	return nil
}

// Write persists the converted bytes at the primary path.
func Write(c *ConvertedArtifact) error {
	if err := os.MkdirAll(filepath.Dir(c.PrimaryPath), 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	if err := os.WriteFile(c.PrimaryPath, c.data, 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	slog.Debug("Converted model written", "path", c.PrimaryPath, "bytes", len(c.data))
	return nil
}

// Copy duplicates src to dst, keeping its mode and modification time.
func Copy(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCopy, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCopy, err)
	}

	// Opening dst with O_TRUNC would wipe src when both name the same file.
	if dstInfo, err := os.Stat(dst); err == nil && os.SameFile(info, dstInfo) {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrCopy, err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCopy, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("%w: %w", ErrCopy, err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrCopy, err)
	}

	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return fmt.Errorf("%w: %w", ErrCopy, err)
	}

	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		slog.Warn("Failed to preserve modification time", "path", dst, "error", err)
	}

	return nil
}
