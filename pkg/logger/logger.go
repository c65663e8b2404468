// Package logger provides the process-wide structured logger backed by
// zerolog. Initialise once at startup with Init, then derive per-component
// loggers with For.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	root        zerolog.Logger
	once        sync.Once
	initialized bool
)

// Init builds the root logger. level is one of trace, debug, info, warn,
// error (info when empty or unrecognised); pretty switches from JSON to a
// coloured console writer for local development. Only the first call has
// any effect.
func Init(level string, pretty bool, output io.Writer) zerolog.Logger {
	once.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano

		if output == nil {
			output = os.Stdout
		}
		if pretty {
			output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
		}

		lvl := parseLevel(level)
		zerolog.SetGlobalLevel(lvl)

		root = zerolog.New(output).
			Level(lvl).
			With().
			Timestamp().
			Logger()
		initialized = true
	})
	return root
}

// For returns a child logger tagged with a component name, e.g.
// "securestore", "session", "remote". Panics if Init has not run.
func For(component string) zerolog.Logger {
	if !initialized {
		panic("logger: For() called before Init()")
	}
	return root.With().Str("component", component).Logger()
}

// Reset tears down the singleton so the next Init rebuilds it. Tests only.
func Reset() {
	once = sync.Once{}
	root = zerolog.Logger{}
	initialized = false
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
