// Package logger configures the process-wide zerolog logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Formats supported by New.
const (
	ConsoleFormat = "console"
	JSONFormat    = "json"
)

// New builds a logger writing to stderr and installs it as log.Logger.
func New(level, format string) (zerolog.Logger, error) {
	return NewWithWriter(os.Stderr, level, format)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q, must be debug, info, warn or error", level)
	}

	var logger zerolog.Logger
	switch format {
	case ConsoleFormat, "":
		output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		logger = zerolog.New(output).With().Timestamp().Logger()
	case JSONFormat:
		zerolog.TimeFieldFormat = time.RFC3339
		logger = zerolog.New(w).With().Timestamp().Logger()
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format %q, must be console or json", format)
	}

	logger = logger.Level(lvl)
	log.Logger = logger
	return logger, nil
}
