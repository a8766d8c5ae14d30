// Package logger initializes the process-wide zerolog logger. Components
// derive child loggers from the returned logger via With().
package logger

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

var log zerolog.Logger

// Init initializes the file logger, writing to chatkit.log in the current
// directory. It should be called once at application startup. Log level is
// configured via the LOG_LEVEL environment variable (trace, debug, info,
// warn, error).
func Init() (zerolog.Logger, error) {
	return InitWithOptions("chatkit.log", false)
}

// InitWithOptions initializes the logger with the specified options.
// If logFile is empty, logs go to stdout; pretty switches stdout output to
// a human-readable console format.
func InitWithOptions(logFile string, pretty bool) (zerolog.Logger, error) {
	level := parseLogLevel(os.Getenv("LOG_LEVEL"))

	switch {
	case logFile != "":
		//nolint:gosec // G304: user-specified log file path is intentional
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return zerolog.Logger{}, fmt.Errorf("failed to open log file %s: %w", logFile, err)
		}
		log = zerolog.New(file).Level(level).With().Timestamp().Logger()
		log.Info().Str("path", logFile).Str("level", level.String()).Msg("Logger initialized")
	case pretty:
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).Level(level).With().Timestamp().Logger()
		log.Info().Str("output", "stdout").Str("format", "pretty").Str("level", level.String()).Msg("Logger initialized")
	default:
		log = zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
		log.Info().Str("output", "stdout").Str("level", level.String()).Msg("Logger initialized")
	}

	return log, nil
}

func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
