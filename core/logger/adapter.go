// Package logger is the logging surface of the CLI commands. It shares the
// level, tag filter and log file of core/infrastructure/logging.
package logger

import (
	"fmt"

	"github.com/semlayer/semlayer/core/infrastructure/logging"
)

const (
	LogLevelError = logging.LogLevelError
	LogLevelWarn  = logging.LogLevelWarn
	LogLevelInfo  = logging.LogLevelInfo
	LogLevelDebug = logging.LogLevelDebug
)

var (
	SetLogLevel  = logging.SetLogLevel
	GetLogLevel  = logging.GetLogLevel
	SetTagFilter = logging.SetTagFilter
	SetLogFile   = logging.SetLogFile
	CloseLogFile = logging.CloseLogFile
)

// Logger is the command-boundary logger. Its Errorf returns a tagged error
// instead of logging, so cli.Execute logs each failure exactly once.
type Logger struct {
	logging.Logger
	tag string
}

// New creates a logger for a command tag
func New(tag string) *Logger {
	return &Logger{Logger: logging.New(tag), tag: tag}
}

// Errorf builds an error carrying this logger's tag
func (l *Logger) Errorf(format string, args ...any) error {
	return WithTag(l.tag, fmt.Errorf(format, args...))
}

// ConfigErrorf is Errorf for configuration problems; the CLI exits with
// ExitConfig
func (l *Logger) ConfigErrorf(format string, args ...any) error {
	return WithExitCode(ExitConfig, l.Errorf(format, args...))
}
