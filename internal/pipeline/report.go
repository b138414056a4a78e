package pipeline

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ekisa-team/litegen/internal/artifact"
	"github.com/ekisa-team/litegen/internal/compat"
	"github.com/ekisa-team/litegen/internal/converter"
)

const rule = "============================================================"

// Reporter prints human-readable progress for the person running the tool.
type Reporter struct {
	w io.Writer
}

// NewReporter creates a reporter writing to w. A nil w discards output.
func NewReporter(w io.Writer) *Reporter {
	if w == nil {
		w = io.Discard
	}
	return &Reporter{w: w}
}

func (r *Reporter) printf(format string, args ...any) {
	fmt.Fprintf(r.w, format, args...)
}

// Header prints the banner with the active profile and target runtime.
func (r *Reporter) Header(profile compat.Entry, runtime Runtime) {
	r.printf("%s\nTensorFlow Lite converter\n%s\n", rule, rule)
	r.printf("Profile:        %s (TensorFlow %s -> TFLite %s)\n", profile.Name, profile.Framework, profile.Runtime)
	r.printf("Target runtime: %s (%s)\n\n", runtime.Version, runtime.Source)
}

// Step announces a pipeline step.
func (r *Reporter) Step(what string) {
	r.printf("%s...\n", what)
}

// Progress relays a converter progress line.
func (r *Reporter) Progress(line string) {
	r.printf("   %s\n", line)
}

// Resolved prints the model path that will be used.
func (r *Reporter) Resolved(model *artifact.ModelArtifact) {
	r.printf("Model file found: %s\n", model.Path)
}

// Loaded prints the model summary.
func (r *Reporter) Loaded(h *converter.ModelHandle) {
	r.printf("Model loaded (TensorFlow %s)\n", h.FrameworkVersion)
	if h.InputShape != "" {
		r.printf("   Input shape:  %s\n", h.InputShape)
	}
	if h.OutputShape != "" {
		r.printf("   Output shape: %s\n", h.OutputShape)
	}
	if h.ParamCount > 0 {
		r.printf("   Parameters:   %s\n", groupDigits(h.ParamCount))
	}
}

// Compat prints the compatibility verdict.
func (r *Reporter) Compat(v compat.Verdict) {
	r.printf("Compatibility:  %s (%s)\n", v.Status, v.Reason)
}

// Written prints where the converted model was saved.
func (r *Reporter) Written(out *artifact.ConvertedArtifact) {
	r.printf("\nTFLite model saved: %s\n", out.PrimaryPath)
	r.printf("Size: %.2f MB\n", out.SizeMB())
}

// Copied prints the secondary copy location.
func (r *Reporter) Copied(path string) {
	r.printf("Copied to: %s\n", path)
}

// CopyFailed prints a non-fatal copy failure.
func (r *Reporter) CopyFailed(path string, err error) {
	r.printf("Warning: could not copy to %s: %v\n", path, err)
}

// ManifestWritten prints the manifest location.
func (r *Reporter) ManifestWritten(path string) {
	r.printf("Manifest: %s\n", path)
}

// Failure prints a fatal error and optional remediation profiles.
func (r *Reporter) Failure(what string, err error, suggestions []compat.Entry) {
	r.printf("\nError: %s: %v\n", what, err)
	if len(suggestions) == 0 {
		return
	}

	r.printf("\nTry converting with a matching TensorFlow version:\n")
	for _, e := range suggestions {
		r.printf("   %s (TensorFlow %s -> TFLite %s)\n", e.Name, e.Framework, e.Runtime)
		for _, cmd := range e.Setup {
			r.printf("      %s\n", cmd)
		}
		if e.Notes != "" {
			r.printf("      %s\n", e.Notes)
		}
	}
}

// NextSteps prints the Android hand-off instructions.
func (r *Reporter) NextSteps(out *artifact.ConvertedArtifact, opts Options) {
	r.printf("\n%s\nNext steps\n%s\n", rule, rule)

	step := 1
	r.printf("%d. Copy the model into the Android project:\n", step)
	r.printf("   cp '%s' '%s'\n", out.PrimaryPath, opts.Android.AssetPath())

	if opts.Conversion.UsesSelectOps() && (opts.Runtime.SelectOps == nil || !*opts.Runtime.SelectOps) {
		step++
		r.printf("%d. The model uses select TF ops; the app must declare:\n", step)
		r.printf("   implementation(\"org.tensorflow:tensorflow-lite-select-tf-ops:%s\")\n", opts.Runtime.Version)
	}

	step++
	r.printf("%d. In Android Studio:\n", step)
	r.printf("   - Build > Clean Project\n")
	r.printf("   - Build > Rebuild Project\n")
	r.printf("   - Run the app\n")
	r.printf("%s\n", rule)
}

// groupDigits formats n with thousands separators.
func groupDigits(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}

	if neg {
		return "-" + b.String()
	}
	return b.String()
}
