package artifact

import (
	"path/filepath"
	"strings"

	"github.com/ekisa-team/litegen/internal/xfs"
)

// Extension is the file extension of converted models.
const Extension = ".tflite"

// OutputOptions controls where the converted model is placed.
type OutputOptions struct {
	// Dir overrides the output directory. Empty means the input's directory.
	Dir string

	// Name is a fixed output file name. Empty derives one from the input.
	Name string

	// Suffix is appended to the input stem when Name is empty.
	Suffix string
}

// DeriveOutputPath computes the primary output path for input.
// It only looks at its arguments, so calling it twice yields the same path.
func DeriveOutputPath(input string, opts OutputOptions) string {
	dir := opts.Dir
	if dir == "" {
		dir = filepath.Dir(input)
	}

	if opts.Name != "" {
		return filepath.Join(dir, opts.Name)
	}

	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	return filepath.Join(dir, stem+opts.Suffix+Extension)
}

// SecondaryPath computes where the duplicate copy goes.
// copyTo naming an existing directory, or ending in a separator, receives the
// primary file name; anything else is used as the destination file itself.
func SecondaryPath(primary, copyTo string) string {
	if copyTo == "" {
		return ""
	}

	if strings.HasSuffix(copyTo, "/") || strings.HasSuffix(copyTo, string(filepath.Separator)) || xfs.IsDir(copyTo) {
		return filepath.Join(copyTo, filepath.Base(primary))
	}

	return copyTo
}
