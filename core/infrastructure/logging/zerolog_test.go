package logging

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sharedctx "github.com/semlayer/semlayer/core/shared/context"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	SetOutput(buf)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		SetTagFilter("")
		SetLogLevel(LogLevelInfo)
	})
	return buf
}

func TestShouldLogTag(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		tag    string
		want   bool
	}{
		{"no filter", "", "http", true},
		{"included", "http,scheduler", "scheduler", true},
		{"child of included", "semantic", "semantic:cube", true},
		{"not included", "http", "scheduler", false},
		{"excluded", "-http", "http", false},
		{"excluded child", "-semantic", "semantic:dbt", false},
		{"only exclusions keep others", "-http", "scheduler", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetTagFilter(tt.filter)
			defer SetTagFilter("")
			assert.Equal(t, tt.want, shouldLogTag(tt.tag))
		})
	}
}

func TestLogger_RespectsLevel(t *testing.T) {
	buf := captureOutput(t)
	SetLogLevel(LogLevelWarn)

	log := New("test")
	log.Info("hidden")
	log.Warn("visible")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "visible")
	assert.Contains(t, buf.String(), `"tag":"test"`)
}

func TestLogger_SuccessIgnoresLevel(t *testing.T) {
	buf := captureOutput(t)
	SetLogLevel(LogLevelError)

	New("test").Successf("server listening on %s", ":8080")
	assert.Contains(t, buf.String(), "server listening on :8080")
}

func TestLogger_WithContext(t *testing.T) {
	buf := captureOutput(t)

	ctx := sharedctx.WithRequestID(context.Background(), "req-42")
	ctx = sharedctx.WithJobID(ctx, "job-7")
	ctx = sharedctx.WithProjectUUID(ctx, "p1")
	ctx = sharedctx.WithUserUUID(ctx, "u1")
	New("scheduler").WithContext(ctx).With("format", "csv").Info("running")

	out := buf.String()
	assert.Contains(t, out, `"request_id":"req-42"`)
	assert.Contains(t, out, `"job_id":"job-7"`)
	assert.Contains(t, out, `"project_uuid":"p1"`)
	assert.Contains(t, out, `"user_uuid":"u1"`)
	assert.Contains(t, out, `"format":"csv"`)
}

func TestLogger_FilteredTagIsNoop(t *testing.T) {
	buf := captureOutput(t)
	SetTagFilter("-noisy")

	New("noisy").Error("should not appear")
	assert.Empty(t, buf.String())
}

func TestSetLogFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(LogDirEnv, dir)
	t.Cleanup(func() { CloseLogFile() })

	path, err := SetLogFile()
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))

	New("file").Warn("written to file")
	require.NoError(t, CloseLogFile())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
	assert.NoError(t, CloseLogFile())
}

func TestSetLogLevel_IgnoresOutOfRange(t *testing.T) {
	SetLogLevel(LogLevelWarn)
	t.Cleanup(func() { SetLogLevel(LogLevelInfo) })

	SetLogLevel(9)
	assert.Equal(t, LogLevelWarn, GetLogLevel())
}
