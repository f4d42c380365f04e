package interfaces

import "context"

// Logger is a tagged, leveled logger. Success messages are printed whatever
// the level.
type Logger interface {
	Error(message string)
	Errorf(format string, args ...any)
	Warn(message string)
	Warnf(format string, args ...any)
	Info(message string)
	Infof(format string, args ...any)
	Success(message string)
	Successf(format string, args ...any)
	Debug(message string)
	Debugf(format string, args ...any)

	// With returns a logger that attaches key/value to every entry
	With(key string, value any) Logger
	// WithContext returns a logger carrying the request, job, project and
	// user ids found in ctx
	WithContext(ctx context.Context) Logger
}
