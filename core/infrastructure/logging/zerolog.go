package logging

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/term"

	"github.com/semlayer/semlayer/core/domain/interfaces"
	sharedctx "github.com/semlayer/semlayer/core/shared/context"
)

// Levels use the numbering of the server.log_level config key
const (
	LogLevelError = 1
	LogLevelWarn  = 2
	LogLevelInfo  = 3
	LogLevelDebug = 4
)

// LogDirEnv overrides the directory SetLogFile writes to
const LogDirEnv = "SEMLAYER_LOG_DIR"

// Logger is the interface exported from this package
type Logger = interfaces.Logger

// sink is the process-wide logging state shared by every tagged logger
type sink struct {
	mu     sync.RWMutex
	level  int
	filter tagFilter
	out    io.Writer
	file   *os.File
}

var global = &sink{level: LogLevelInfo, out: os.Stdout}

// SetLogLevel sets the global log level. Out of range values are ignored.
func SetLogLevel(level int) {
	if level < LogLevelError || level > LogLevelDebug {
		return
	}
	global.mu.Lock()
	global.level = level
	global.mu.Unlock()
	zerolog.SetGlobalLevel(zerologLevel(level))
}

// GetLogLevel returns the current global log level
func GetLogLevel() int {
	global.mu.RLock()
	defer global.mu.RUnlock()
	return global.level
}

func enabled(level int) bool {
	return level <= GetLogLevel()
}

// tagFilter keeps or drops loggers by tag. A tag matches itself and its
// "tag:" children; exclusions win over inclusions.
type tagFilter struct {
	include []string
	exclude []string
}

func parseTagFilter(s string) tagFilter {
	var f tagFilter
	for _, tag := range strings.Split(s, ",") {
		tag = strings.TrimSpace(tag)
		if excluded, ok := strings.CutPrefix(tag, "-"); ok {
			if excluded != "" {
				f.exclude = append(f.exclude, excluded)
			}
		} else if tag != "" {
			f.include = append(f.include, tag)
		}
	}
	return f
}

func (f tagFilter) allows(tag string) bool {
	matches := func(filterTag string) bool {
		return tag == filterTag || strings.HasPrefix(tag, filterTag+":")
	}
	for _, t := range f.exclude {
		if matches(t) {
			return false
		}
	}
	if len(f.include) == 0 {
		return true
	}
	for _, t := range f.include {
		if matches(t) {
			return true
		}
	}
	return false
}

// SetTagFilter sets the tag filter from a comma-separated list such as
// "scheduler,semantic,-http"
func SetTagFilter(filterStr string) {
	f := parseTagFilter(filterStr)
	global.mu.Lock()
	global.filter = f
	global.mu.Unlock()
}

func shouldLogTag(tag string) bool {
	global.mu.RLock()
	defer global.mu.RUnlock()
	return global.filter.allows(tag)
}

// SetLogFile tees all loggers created afterwards into a new file under
// SEMLAYER_LOG_DIR (default <tmp>/semlayer/logs) and returns its path
func SetLogFile() (string, error) {
	dir := os.Getenv(LogDirEnv)
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "semlayer", "logs")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	name := "semlayer-" + time.Now().UTC().Format("20060102-150405") + "-" + uuid.NewString()[:8] + ".log"
	path := filepath.Join(dir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", err
	}

	global.mu.Lock()
	defer global.mu.Unlock()
	if global.file != nil {
		global.file.Close()
	}
	global.file = file
	global.setOutput(io.MultiWriter(os.Stdout, file))
	return path, nil
}

// CloseLogFile stops writing to the log file opened by SetLogFile
func CloseLogFile() error {
	global.mu.Lock()
	defer global.mu.Unlock()
	if global.file == nil {
		return nil
	}
	err := global.file.Close()
	global.file = nil
	global.setOutput(os.Stdout)
	return err
}

// SetOutput redirects all subsequently created loggers to w
func SetOutput(w io.Writer) {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.setOutput(w)
}

// setOutput must be called with mu held
func (s *sink) setOutput(w io.Writer) {
	s.out = w
	log.Logger = zerolog.New(consoleIfTerminal(w)).With().Timestamp().Logger()
}

func consoleIfTerminal(w io.Writer) io.Writer {
	if w == os.Stdout && term.IsTerminal(int(os.Stdout.Fd())) {
		return zerolog.ConsoleWriter{Out: w, TimeFormat: "2006-01-02T15:04:05.000Z"}
	}
	return w
}

func zerologLevel(level int) zerolog.Level {
	switch level {
	case LogLevelError:
		return zerolog.ErrorLevel
	case LogLevelWarn:
		return zerolog.WarnLevel
	case LogLevelDebug:
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

// ZerologLogger is a tagged logger writing through zerolog
type ZerologLogger struct {
	tag    string
	logger zerolog.Logger
}

// New creates a logger for tag. Tags dropped by the tag filter get a no-op logger.
func New(tag string) Logger {
	if !shouldLogTag(tag) {
		return noOpLogger{}
	}

	global.mu.RLock()
	w := global.out
	global.mu.RUnlock()

	return &ZerologLogger{
		tag:    tag,
		logger: zerolog.New(consoleIfTerminal(w)).With().Str("tag", tag).Timestamp().Logger(),
	}
}

// event returns nil when level is disabled; zerolog events are nil-safe
func (l *ZerologLogger) event(level int) *zerolog.Event {
	if !enabled(level) {
		return nil
	}
	switch level {
	case LogLevelError:
		return l.logger.Error()
	case LogLevelWarn:
		return l.logger.Warn()
	case LogLevelDebug:
		return l.logger.Debug()
	default:
		return l.logger.Info()
	}
}

func (l *ZerologLogger) Error(message string)              { l.event(LogLevelError).Msg(message) }
func (l *ZerologLogger) Errorf(format string, args ...any) { l.event(LogLevelError).Msgf(format, args...) }
func (l *ZerologLogger) Warn(message string)               { l.event(LogLevelWarn).Msg(message) }
func (l *ZerologLogger) Warnf(format string, args ...any)  { l.event(LogLevelWarn).Msgf(format, args...) }
func (l *ZerologLogger) Info(message string)               { l.event(LogLevelInfo).Msg(message) }
func (l *ZerologLogger) Infof(format string, args ...any)  { l.event(LogLevelInfo).Msgf(format, args...) }
func (l *ZerologLogger) Debug(message string)              { l.event(LogLevelDebug).Msg(message) }
func (l *ZerologLogger) Debugf(format string, args ...any) { l.event(LogLevelDebug).Msgf(format, args...) }

// Success is printed whatever the level
func (l *ZerologLogger) Success(message string) {
	l.logger.WithLevel(zerolog.NoLevel).Str("status", "success").Msg(message)
}

// Successf is printed whatever the level
func (l *ZerologLogger) Successf(format string, args ...any) {
	l.logger.WithLevel(zerolog.NoLevel).Str("status", "success").Msgf(format, args...)
}

// With returns a child logger with an extra field
func (l *ZerologLogger) With(key string, value any) Logger {
	return &ZerologLogger{
		tag:    l.tag,
		logger: l.logger.With().Interface(key, value).Logger(),
	}
}

// WithContext returns a child logger carrying the correlation ids of ctx
// (request, job, project, user) and its trace id
func (l *ZerologLogger) WithContext(ctx context.Context) Logger {
	if ctx == nil {
		return l
	}
	child := l.logger.With()
	for _, key := range sharedctx.CorrelationKeys {
		if v := sharedctx.Get(ctx, key); v != "" {
			child = child.Str(key.String(), v)
		}
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		child = child.Str("trace_id", sc.TraceID().String())
	}
	return &ZerologLogger{tag: l.tag, logger: child.Logger()}
}

type noOpLogger struct{}

func (noOpLogger) Error(string)                         {}
func (noOpLogger) Errorf(string, ...any)                {}
func (noOpLogger) Warn(string)                          {}
func (noOpLogger) Warnf(string, ...any)                 {}
func (noOpLogger) Info(string)                          {}
func (noOpLogger) Infof(string, ...any)                 {}
func (noOpLogger) Success(string)                       {}
func (noOpLogger) Successf(string, ...any)              {}
func (noOpLogger) Debug(string)                         {}
func (noOpLogger) Debugf(string, ...any)                {}
func (n noOpLogger) With(string, any) Logger            { return n }
func (n noOpLogger) WithContext(context.Context) Logger { return n }
