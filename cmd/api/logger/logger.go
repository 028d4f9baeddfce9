package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const FormatText = "text"

// SetupLogger builds the application logger. Text format writes human readable
// lines to stdout, anything else writes JSON.
func SetupLogger(debug bool, format string) *zerolog.Logger {
	return newLogger(os.Stdout, debug, format)
}

func newLogger(out io.Writer, debug bool, format string) *zerolog.Logger {
	if format == FormatText {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	zlog := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return &zlog
}
