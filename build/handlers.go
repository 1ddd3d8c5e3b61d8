package build

import (
	"io"
	"os"

	btclogv1 "github.com/btcsuite/btclog"
	"github.com/btcsuite/btclog/v2"
)

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
	ansiGray   = "\x1b[90m"
)

// NewDefaultLogHandler returns the log handler that we generally want to use.
// A single handler serves both outputs: lines are fanned out by a LogWriter
// to the console and the rotating log file, honoring each logger's Disable
// flag. Formatting options are taken from the console config unless the
// console is disabled, in which case the file config applies.
func NewDefaultLogHandler(cfg *LogConfig,
	rotator *RotatingLogWriter) btclog.Handler {

	return newLogHandler(cfg, os.Stdout, rotator)
}

// newLogHandler builds the handler over explicit console and file writers.
func newLogHandler(cfg *LogConfig, console io.Writer,
	rotator io.Writer) btclog.Handler {

	writer := &LogWriter{}
	if !cfg.Console.Disable {
		writer.Console = console
	}
	if !cfg.File.Disable && rotator != nil {
		writer.Rotator = rotator
	}

	opts := cfg.Console.HandlerOptions()
	if cfg.Console.Disable {
		opts = cfg.File.HandlerOptions()
	}
	if cfg.Console.Style && !cfg.Console.Disable {
		opts = append(opts, styledOutput()...)
	}

	return btclog.NewDefaultHandler(writer, opts...)
}

// styledOutput returns the handler options that color the level tag of each
// line and embolden the keys of structured attributes.
func styledOutput() []btclog.HandlerOption {
	return []btclog.HandlerOption{
		btclog.WithStyledLevel(func(level btclogv1.Level) string {
			return levelColor(level) + "[" + level.String() + "]" +
				ansiReset
		}),
		btclog.WithStyledKeys(func(key string) string {
			return ansiBold + key + ansiReset
		}),
	}
}

// levelColor maps a log level to its ANSI color.
func levelColor(level btclogv1.Level) string {
	switch level {
	case btclog.LevelCritical, btclog.LevelError:
		return ansiRed
	case btclog.LevelWarn:
		return ansiYellow
	case btclog.LevelInfo:
		return ansiBlue
	default:
		return ansiGray
	}
}
