package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

var root = zerolog.New(zerolog.ConsoleWriter{
	Out:        os.Stderr,
	TimeFormat: time.DateTime,
}).With().Timestamp().Logger().Level(zerolog.InfoLevel)

// SetDebug switches the global level between info and debug.
func SetDebug(debug bool) {
	if debug {
		root = root.Level(zerolog.DebugLevel)
	} else {
		root = root.Level(zerolog.InfoLevel)
	}
}

// SetOutput replaces the root logger's writer. Tests use this to silence output.
func SetOutput(l zerolog.Logger) {
	root = l
}

// For returns a component-scoped logger.
func For(component string) zerolog.Logger {
	return root.With().Str("component", component).Logger()
}
