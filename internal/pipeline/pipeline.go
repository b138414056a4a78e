package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ekisa-team/litegen/internal/artifact"
	"github.com/ekisa-team/litegen/internal/compat"
	"github.com/ekisa-team/litegen/internal/converter"
	"github.com/google/uuid"
)

// Result describes a finished run.
type Result struct {
	RunID        string
	Model        *artifact.ModelArtifact
	Handle       *converter.ModelHandle
	Output       *artifact.ConvertedArtifact
	Verdict      compat.Verdict
	CopyErr      error
	ManifestPath string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Pipeline runs resolve -> load -> convert -> write -> copy, in that order,
// stopping at the first fatal error.
type Pipeline struct {
	converter converter.Converter
	reporter  *Reporter
	opts      Options
}

// New creates a pipeline.
func New(conv converter.Converter, reporter *Reporter, opts Options) *Pipeline {
	return &Pipeline{
		converter: conv,
		reporter:  reporter,
		opts:      opts,
	}
}

// Run executes the pipeline once.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	result := &Result{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	log := slog.With("run_id", result.RunID)

	p.reporter.Header(p.opts.Profile, p.opts.Runtime)

	model, err := p.opts.Resolver.Resolve(p.opts.Input)
	if err != nil {
		p.reporter.Failure("Model file not found", err, nil)
		return result, err
	}
	result.Model = model
	if model.Kind == artifact.KindUnknown {
		log.Warn("Model file has no recognized extension", "path", model.Path)
	}
	p.reporter.Resolved(model)

	p.reporter.Step("Loading model")
	handle, err := p.converter.Load(ctx, model)
	if err != nil {
		p.reporter.Failure("Model could not be loaded", err, nil)
		return result, err
	}
	result.Handle = handle
	p.reporter.Loaded(handle)

	result.Verdict = p.opts.Matrix.Check(handle.FrameworkVersion, p.opts.Runtime.Version)
	p.reporter.Compat(result.Verdict)
	if err := result.Verdict.Err(); err != nil {
		if p.opts.StrictCompat {
			p.reporter.Failure("Incompatible versions", err, p.remediation())
			return result, err
		}
		log.Warn("Converting despite incompatible versions", "framework", handle.FrameworkVersion, "runtime", p.opts.Runtime.Version)
	}

	p.reporter.Step("Converting to TFLite (" + p.opts.Conversion.OpsString() + ")")
	data, err := p.converter.Convert(ctx, handle, p.opts.Conversion)
	if err == nil {
		if verr := artifact.Verify(data); verr != nil {
			err = fmt.Errorf("%w: %w", converter.ErrConversion, verr)
		}
	}
	if err != nil {
		p.reporter.Failure("Conversion failed", err, p.remediation())
		return result, err
	}

	primary := artifact.DeriveOutputPath(model.Path, p.opts.Output)
	secondary := artifact.SecondaryPath(primary, p.opts.CopyTo)
	out := artifact.NewConvertedArtifact(data, primary, secondary)
	result.Output = out

	if err := artifact.Write(out); err != nil {
		p.reporter.Failure("Could not save the converted model", err, nil)
		return result, err
	}
	p.reporter.Written(out)

	if secondary != "" {
		if err := artifact.Copy(primary, secondary); err != nil {
			result.CopyErr = err
			log.Warn("Secondary copy failed", "path", secondary, "error", err)
			p.reporter.CopyFailed(secondary, err)
		} else {
			p.reporter.Copied(secondary)
		}
	}

	result.FinishedAt = time.Now()

	if p.opts.Manifest {
		path, err := WriteManifest(NewManifest(result, p.opts))
		if err != nil {
			log.Warn("Failed to write manifest", "error", err)
		} else {
			result.ManifestPath = path
			p.reporter.ManifestWritten(path)
		}
	}

	log.Info("Conversion finished",
		"source", model.Path,
		"output", primary,
		"bytes", out.Size(),
		"framework", handle.FrameworkVersion,
		"runtime", p.opts.Runtime.Version,
		"duration", result.FinishedAt.Sub(result.StartedAt))

	p.reporter.NextSteps(out, p.opts)
	return result, nil
}

// remediation lists setup commands worth trying after a failed conversion.
func (p *Pipeline) remediation() []compat.Entry {
	entries := p.opts.Matrix.ForRuntime(p.opts.Runtime.Version)
	if len(entries) == 0 {
		entries = []compat.Entry{p.opts.Profile}
	}
	return entries
}

// IsFatal reports whether err should stop the tool. Copy failures never are.
func IsFatal(err error) bool {
	return err != nil && !errors.Is(err, artifact.ErrCopy)
}
