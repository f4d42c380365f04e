package context

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

// Keys of the correlation values carried through a request or a job run.
// Loggers created with WithContext attach each one that is set.
const (
	RequestIDKey   contextKey = "request_id"
	JobIDKey       contextKey = "job_id"
	ProjectUUIDKey contextKey = "project_uuid"
	UserUUIDKey    contextKey = "user_uuid"
)

// CorrelationKeys lists the keys in the order loggers print them
var CorrelationKeys = []contextKey{RequestIDKey, JobIDKey, ProjectUUIDKey, UserUUIDKey}

func (k contextKey) String() string { return string(k) }

func with(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

// Get returns the string stored under key, or ""
func Get(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return with(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string { return Get(ctx, RequestIDKey) }

// WithJobID marks ctx as running the given scheduler job
func WithJobID(ctx context.Context, jobID string) context.Context {
	return with(ctx, JobIDKey, jobID)
}

// GetJobID retrieves the scheduler job ID from context
func GetJobID(ctx context.Context) string { return Get(ctx, JobIDKey) }

// WithProjectUUID records the project an operation acts on
func WithProjectUUID(ctx context.Context, projectUUID string) context.Context {
	return with(ctx, ProjectUUIDKey, projectUUID)
}

// GetProjectUUID retrieves the project UUID from context
func GetProjectUUID(ctx context.Context) string { return Get(ctx, ProjectUUIDKey) }

// WithUserUUID records the session user an operation runs for
func WithUserUUID(ctx context.Context, userUUID string) context.Context {
	return with(ctx, UserUUIDKey, userUUID)
}

// GetUserUUID retrieves the session user UUID from context
func GetUserUUID(ctx context.Context) string { return Get(ctx, UserUUIDKey) }

// GenerateRequestID generates a unique request ID
func GenerateRequestID() string {
	return uuid.NewString()
}
