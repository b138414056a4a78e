package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ekisa-team/litegen/internal/env"
	"github.com/lmittmann/tint"
	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultLogFile    = "logs/litegen.log"
	defaultMaxSizeMB  = 10
	defaultMaxBackups = 3
	defaultMaxAgeDays = 28
)

type options struct {
	writer    io.Writer
	level     slog.Level
	logToFile bool
	logFile   string
	noColor   bool
}

// Option configures the logger.
type Option func(*options)

// WithLevel sets the minimum level for console output.
func WithLevel(level slog.Level) Option {
	return func(o *options) {
		o.level = level
	}
}

// WithWriter replaces stderr as the console destination.
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		o.writer = w
	}
}

// WithLogToFile enables the rotating log file.
func WithLogToFile(enabled bool) Option {
	return func(o *options) {
		o.logToFile = enabled
	}
}

// WithLogFile sets the rotating log file path.
func WithLogFile(path string) Option {
	return func(o *options) {
		if path != "" {
			o.logFile = path
		}
	}
}

// WithNoColor disables ANSI colors in development output.
func WithNoColor(noColor bool) Option {
	return func(o *options) {
		o.noColor = noColor
	}
}

// New builds a logger for the given environment.
// Development logs go through tint, production logs are JSON. The optional
// log file always receives JSON at debug level.
func New(environment env.Environment, opts ...Option) *slog.Logger {
	o := &options{
		writer:  os.Stderr,
		level:   slog.LevelInfo,
		logFile: defaultLogFile,
	}
	for _, opt := range opts {
		opt(o)
	}

	var console slog.Handler
	if environment.IsProduction() {
		console = slog.NewJSONHandler(o.writer, &slog.HandlerOptions{Level: o.level})
	} else {
		console = tint.NewHandler(o.writer, &tint.Options{
			Level:      o.level,
			TimeFormat: time.Kitchen,
			NoColor:    o.noColor,
		})
	}

	if !o.logToFile {
		return slog.New(console)
	}

	file := &lumberjack.Logger{
		Filename:   o.logFile,
		MaxSize:    defaultMaxSizeMB,
		MaxBackups: defaultMaxBackups,
		MaxAge:     defaultMaxAgeDays,
		Compress:   true,
	}

	return slog.New(slogmulti.Fanout(
		console,
		slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug}),
	))
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
