// Package logging provides the structured logger every component in this
// module logs through, grounded on the zerolog-wrapper pattern
// (package-level configured Logger, With().Str(...) child loggers per
// component).
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Level names accepted by Configure.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config controls the process-wide logger.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Logger is the process-wide base logger. Configure replaces it;
// components should prefer a child obtained via Component/With* rather
// than logging through this value directly.
var Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Configure installs the process-wide logger per cfg. Call it once at
// startup; it is not safe to call concurrently with logging.
func Configure(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}
	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
		return
	}
	Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        output,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()
}

// Component returns a child logger tagged with the given component name,
// e.g. logging.Component("server"), logging.Component("client-engine").
func Component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}
