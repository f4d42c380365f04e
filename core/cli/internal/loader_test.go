package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semlayer/semlayer/core/logger"
	"github.com/semlayer/semlayer/core/parser"
)

func TestResolvePort(t *testing.T) {
	cfg := &parser.Config{Server: parser.ServerConfig{Port: "9000"}}

	t.Setenv("PORT", "7000")
	assert.Equal(t, "8000", ResolvePort("8000", cfg))
	assert.Equal(t, "9000", ResolvePort("", cfg))
	assert.Equal(t, "7000", ResolvePort("", &parser.Config{}))

	t.Setenv("PORT", "")
	assert.Equal(t, "8080", ResolvePort("", nil))
}

func TestResolveLogLevel(t *testing.T) {
	cfg := &parser.Config{Server: parser.ServerConfig{LogLevel: logger.LogLevelWarn}}

	assert.Equal(t, logger.LogLevelDebug, ResolveLogLevel(true, logger.LogLevelError, cfg))
	assert.Equal(t, logger.LogLevelError, ResolveLogLevel(false, logger.LogLevelError, cfg))
	assert.Equal(t, logger.LogLevelWarn, ResolveLogLevel(false, 0, cfg))
	assert.Equal(t, logger.LogLevelInfo, ResolveLogLevel(false, 0, nil))
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	require.NoError(t, os.WriteFile(path, []byte("auth:\n  jwt_secret: 0123456789abcdef\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, parser.JobStoreMemory, cfg.Jobs.Store)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigFromString(t *testing.T) {
	_, err := LoadConfigFromString("auth:\n  jwt_secret: short\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config error")

	cfg, err := LoadConfigFromString("auth:\n  jwt_secret: 0123456789abcdef\n")
	require.NoError(t, err)
	assert.Equal(t, "0123456789abcdef", cfg.Auth.JWTSecret)
}
