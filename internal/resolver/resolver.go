package resolver

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ekisa-team/litegen/internal/artifact"
	"github.com/ekisa-team/litegen/internal/xfs"
)

// Extension is a recognized artifact suffix. Lower priority wins.
type Extension struct {
	Suffix   string
	Priority int
}

// ExtensionsFromList turns an ordered suffix list into prioritized extensions.
func ExtensionsFromList(suffixes []string) []Extension {
	exts := make([]Extension, 0, len(suffixes))
	for i, s := range suffixes {
		exts = append(exts, Extension{Suffix: s, Priority: i})
	}
	return exts
}

// Options configures a Resolver.
type Options struct {
	// SearchDir is listed when the requested path does not exist.
	// Empty disables the fallback scan.
	SearchDir string

	// Extensions recognized during the fallback scan.
	Extensions []Extension
}

// Resolver turns a user supplied string into an existing model artifact path.
type Resolver struct {
	searchDir  string
	extensions []Extension
}

// New creates a Resolver.
func New(opts Options) *Resolver {
	return &Resolver{
		searchDir:  opts.SearchDir,
		extensions: opts.Extensions,
	}
}

// CleanInput trims whitespace and surrounding quote characters and expands a
// leading tilde.
func CleanInput(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"`)
	s = strings.Trim(s, `'`)
	return xfs.ExpandTilde(s)
}

// Resolve returns the artifact at input, or the best match in the search
// directory when input does not exist.
func (r *Resolver) Resolve(input string) (*artifact.ModelArtifact, error) {
	path := CleanInput(input)

	if path != "" && xfs.Exists(path) {
		return artifact.NewModelArtifact(path), nil
	}

	if r.searchDir == "" {
		if path == "" {
			return nil, ErrNoInput
		}
		return nil, fmt.Errorf("%w: %s", ErrMissingFile, path)
	}

	if path != "" {
		slog.Warn("Model file not found, scanning search directory", "path", path, "search_dir", r.searchDir)
	}

	found, err := r.Scan()
	if err != nil {
		return nil, err
	}

	slog.Info("Using model file found in search directory", "path", found)
	return artifact.NewModelArtifact(found), nil
}

// Scan lists the search directory and picks the file whose extension has the
// best priority, taking the first one in listing order within that priority.
func (r *Resolver) Scan() (string, error) {
	entries, err := os.ReadDir(r.searchDir)
	if err != nil {
		return "", fmt.Errorf("%w: search directory %s: %w", ErrMissingFile, r.searchDir, err)
	}

	best := ""
	bestPriority := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		priority, ok := r.priorityOf(entry.Name())
		if !ok {
			continue
		}

		if best == "" || priority < bestPriority {
			best = entry.Name()
			bestPriority = priority
		}
	}

	if best == "" {
		return "", fmt.Errorf("%w: %w in %s (looked for %s)", ErrMissingFile, ErrNoCandidates, r.searchDir, r.suffixList())
	}

	return filepath.Join(r.searchDir, best), nil
}

// priorityOf returns the best priority among extensions matching name.
func (r *Resolver) priorityOf(name string) (int, bool) {
	lower := strings.ToLower(name)
	found := false
	best := 0
	for _, ext := range r.extensions {
		if !strings.HasSuffix(lower, strings.ToLower(ext.Suffix)) {
			continue
		}
		if !found || ext.Priority < best {
			best = ext.Priority
			found = true
		}
	}
	return best, found
}

func (r *Resolver) suffixList() string {
	suffixes := make([]string, 0, len(r.extensions))
	for _, ext := range r.extensions {
		suffixes = append(suffixes, ext.Suffix)
	}
	return strings.Join(suffixes, ", ")
}
