// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DebugEnv enables debug logging when set to "1" or "true"
const DebugEnv = "COLOROUT_DEBUG"

// Setup configures the global logger. Logs always go to w (stderr in the
// CLI) so they never mix with the colored output stream on stdout.
func Setup(verbose bool, w io.Writer) {
	level := zerolog.WarnLevel
	if verbose || DebugEnabled() {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if w == nil {
		w = os.Stderr
	}
	console := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.Kitchen,
	}
	log.Logger = zerolog.New(console).With().Timestamp().Logger()

	log.Debug().Str("level", level.String()).Msg("Logger initialized")
}

// DebugEnabled reports whether the debug environment variable is set
func DebugEnabled() bool {
	v := os.Getenv(DebugEnv)
	return v == "1" || v == "true"
}

// Get returns a logger tagged with the component name
func Get(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// LogDuration logs the duration of an operation
func LogDuration(logger zerolog.Logger, start time.Time, operation string) {
	logger.Debug().
		Str("operation", operation).
		Dur("duration", time.Since(start)).
		Msg("Operation completed")
}
