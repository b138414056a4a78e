package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ekisa-team/litegen/internal/config"
	"github.com/ekisa-team/litegen/internal/converter"
	"github.com/ekisa-team/litegen/internal/env"
	"github.com/ekisa-team/litegen/internal/logger"
	"github.com/ekisa-team/litegen/internal/pipeline"
	"github.com/ekisa-team/litegen/internal/resolver"
	"github.com/ekisa-team/litegen/internal/source"
	"github.com/ekisa-team/litegen/internal/watch"
	"github.com/ekisa-team/litegen/internal/xfs"
)

type cliFlags struct {
	configPath     string
	schemaPath     string
	model          string
	searchDir      string
	outputDir      string
	outputName     string
	copyTo         string
	profile        string
	python         string
	androidProject string
	runtimeVersion string
	strict         bool
	manifest       bool
	watch          bool
	listProfiles   bool
	logLevel       string
	logFile        string
	noColor        bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var f cliFlags
	fs := flag.NewFlagSet("litegen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.configPath, "config", filepath.Join(config.DefaultConfigPath(), "config.yaml"), "Path to config file")
	fs.StringVar(&f.schemaPath, "schema", "", "Path to schema file (defaults to the embedded schema)")
	fs.StringVar(&f.model, "model", "", "Path to the .keras or .h5 model (or pass it as the first argument)")
	fs.StringVar(&f.searchDir, "search-dir", "", "Directory scanned for a model when the path does not exist")
	fs.StringVar(&f.outputDir, "output", "", "Output directory (defaults to the model's directory)")
	fs.StringVar(&f.outputName, "name", "", "Output file name (defaults to <model>_fixed.tflite)")
	fs.StringVar(&f.copyTo, "copy-to", "", "Also copy the converted model to this file or directory")
	fs.StringVar(&f.profile, "profile", "", "Compatibility profile (see -list-profiles)")
	fs.StringVar(&f.python, "python", "", "Python interpreter with TensorFlow installed")
	fs.StringVar(&f.androidProject, "android-project", "", "Android project used to detect the TFLite runtime")
	fs.StringVar(&f.runtimeVersion, "runtime", "", "Target TFLite runtime version")
	fs.BoolVar(&f.strict, "strict", false, "Fail when the converter and runtime versions are incompatible")
	fs.BoolVar(&f.manifest, "manifest", false, "Write a JSON manifest next to the converted model")
	fs.BoolVar(&f.watch, "watch", false, "Convert again whenever the model or config changes")
	fs.BoolVar(&f.listProfiles, "list-profiles", false, "Print the compatibility matrix and exit")
	fs.StringVar(&f.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.logFile, "log-file", "", "Also write JSON logs to this rotating file")
	fs.BoolVar(&f.noColor, "no-color", false, "Disable colored log output")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if f.model == "" {
		f.model = fs.Arg(0)
	}

	slog.SetDefault(logger.New(env.FromEnv(), append(logOptions(f), logger.WithWriter(stderr))...))

	cfg, err := loadConfig(f)
	if err != nil {
		slog.Error("Failed to load config", "path", f.configPath, "error", err)
		return 1
	}

	if f.listProfiles {
		listProfiles(stdout, cfg)
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	input, err := prepareInput(ctx, cfg, f.model, stdin, stdout)
	if err != nil {
		slog.Error("Failed to prepare model input", "error", err)
		return 1
	}

	reporter := pipeline.NewReporter(stdout)
	conv := converter.NewPythonConverter(cfg.Conversion.Python, cfg.Conversion.Timeout)
	conv.OnProgress(reporter.Progress)

	result, err := convertOnce(ctx, conv, reporter, cfg, input)
	if !f.watch {
		if pipeline.IsFatal(err) {
			return 1
		}
		return 0
	}

	if err := watchAndConvert(ctx, f, conv, reporter, cfg, input, result); err != nil {
		slog.Error("Watch mode stopped", "error", err)
		return 1
	}

	return 0
}

func logOptions(f cliFlags) []logger.Option {
	opts := []logger.Option{
		logger.WithLevel(logger.ParseLevel(f.logLevel)),
		logger.WithNoColor(f.noColor),
	}
	if f.logFile != "" {
		opts = append(opts, logger.WithLogToFile(true), logger.WithLogFile(f.logFile))
	}
	return opts
}

// loadConfig reads the config file and layers command-line flags on top.
func loadConfig(f cliFlags) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(f.configPath, f.schemaPath)
	if err != nil {
		return nil, err
	}

	if f.searchDir != "" {
		cfg.Input.SearchDir = xfs.ExpandTilde(f.searchDir)
	}
	if f.outputDir != "" {
		cfg.Output.Dir = xfs.ExpandTilde(f.outputDir)
	}
	if f.outputName != "" {
		cfg.Output.Name = f.outputName
	}
	if f.copyTo != "" {
		cfg.Output.CopyTo = xfs.ExpandTilde(f.copyTo)
	}
	if f.profile != "" {
		cfg.Conversion.Profile = f.profile
	}
	if f.python != "" {
		cfg.Conversion.Python = f.python
	}
	if f.androidProject != "" {
		cfg.Android.ProjectDir = xfs.ExpandTilde(f.androidProject)
	}
	if f.runtimeVersion != "" {
		cfg.Android.RuntimeVersion = f.runtimeVersion
	}
	if f.strict {
		cfg.Conversion.StrictCompat = true
	}
	if f.manifest {
		cfg.Output.Manifest = true
	}

	return cfg, nil
}

// prepareInput returns the raw model path for the pipeline. Hugging Face
// sources are downloaded first and become the search directory. With nothing
// configured the user is asked for a path.
func prepareInput(ctx context.Context, cfg *config.Config, model string, stdin io.Reader, stdout io.Writer) (string, error) {
	if model == "" {
		model = cfg.Input.Path
	}

	src, err := cfg.Input.GetSource()
	if err != nil {
		return "", err
	}

	if hf, ok := src.(config.HuggingFaceSource); ok {
		dir, cached, err := source.NewHuggingFaceDownloader().Download(ctx, hf, config.DefaultCachePath())
		if err != nil {
			return "", err
		}
		slog.Info("Hugging Face model ready", "repo", hf.Repo, "path", dir, "cached", cached)

		cfg.Input.SearchDir = dir
		if model != "" && !filepath.IsAbs(model) {
			model = filepath.Join(dir, model)
		}
		return model, nil
	}

	if model == "" && cfg.Input.SearchDir == "" {
		model, err = resolver.Prompt(stdin, stdout, "Path to the .keras or .h5 model: ")
		if err != nil {
			return "", err
		}
	}

	return model, nil
}

func convertOnce(ctx context.Context, conv converter.Converter, reporter *pipeline.Reporter, cfg *config.Config, input string) (*pipeline.Result, error) {
	opts, err := pipeline.OptionsFromConfig(cfg, input)
	if err != nil {
		slog.Error("Invalid conversion options", "error", err)
		return nil, err
	}

	return pipeline.New(conv, reporter, opts).Run(ctx)
}

// watchAndConvert converts again whenever a model file in the model's
// directory or the config file changes, until ctx is cancelled.
func watchAndConvert(ctx context.Context, f cliFlags, conv converter.Converter, reporter *pipeline.Reporter, cfg *config.Config, input string, last *pipeline.Result) error {
	dir := watchDir(cfg, input, last)
	if dir == "" {
		return errors.New("no directory to watch")
	}

	w := watch.New(watch.DefaultDebounce, func(paths []string) {
		if configChanged(paths, f.configPath) {
			next, err := loadConfig(f)
			if err != nil {
				slog.Error("Failed to reload config", "error", err)
				return
			}
			if next.Input.HuggingFace != nil {
				next.Input.SearchDir = cfg.Input.SearchDir
			}
			cfg = next
			slog.Info("Config reloaded", "path", f.configPath)
		}

		if _, err := convertOnce(ctx, conv, reporter, cfg, input); pipeline.IsFatal(err) {
			slog.Warn("Conversion failed, waiting for the next change", "error", err)
		}
	})

	w.AddDir(dir, hasExtension(cfg.Input.Extensions))
	if xfs.Exists(f.configPath) {
		w.AddFile(f.configPath)
	}

	slog.Info("Watching for changes", "dir", dir, "config", f.configPath)
	return w.Run(ctx)
}

// configChanged reports whether the config file is among the changed paths.
func configChanged(paths []string, configPath string) bool {
	configPath = filepath.Clean(configPath)
	for _, p := range paths {
		if filepath.Clean(p) == configPath {
			return true
		}
	}
	return false
}

func watchDir(cfg *config.Config, input string, last *pipeline.Result) string {
	if last != nil && last.Model != nil {
		return filepath.Dir(last.Model.Path)
	}
	if cfg.Input.SearchDir != "" {
		return cfg.Input.SearchDir
	}
	if path := resolver.CleanInput(input); path != "" {
		return filepath.Dir(path)
	}
	return ""
}

func hasExtension(extensions []string) func(string) bool {
	return func(name string) bool {
		lower := strings.ToLower(name)
		for _, ext := range extensions {
			if strings.HasSuffix(lower, strings.ToLower(ext)) {
				return true
			}
		}
		return false
	}
}

func listProfiles(w io.Writer, cfg *config.Config) {
	matrix := pipeline.MatrixFromConfig(cfg)
	for _, name := range matrix.Names() {
		e, _ := matrix.Lookup(name)

		marker := " "
		if name == cfg.Conversion.Profile {
			marker = "*"
		}

		fmt.Fprintf(w, "%s %-8s TensorFlow %-8s -> TFLite %s\n", marker, e.Name, e.Framework, e.Runtime)
		for _, cmd := range e.Setup {
			fmt.Fprintf(w, "      %s\n", cmd)
		}
		if e.Notes != "" {
			fmt.Fprintf(w, "      %s\n", e.Notes)
		}
	}
}
