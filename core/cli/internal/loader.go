package internal

import (
	"fmt"
	"os"

	"github.com/semlayer/semlayer/core/logger"
	"github.com/semlayer/semlayer/core/parser"
)

// DefaultConfigFile is read when no path is given
const DefaultConfigFile = "semlayer.yaml"

// LoadConfig reads, parses and validates a configuration file
func LoadConfig(filePath string) (*parser.Config, error) {
	cfg, err := parser.LoadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	return cfg, nil
}

// LoadConfigFromString parses and validates a YAML configuration string
func LoadConfigFromString(yamlContent string) (*parser.Config, error) {
	cfg, err := parser.ParseYAML([]byte(yamlContent))
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if err := parser.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	return cfg, nil
}

// ResolvePort resolves the port from CLI flag, config file, env var, or default
func ResolvePort(cliPort string, cfg *parser.Config) string {
	if cliPort != "" {
		return cliPort
	}
	if cfg != nil && cfg.Server.Port != "" {
		return cfg.Server.Port
	}
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "8080"
}

// ResolveLogLevel resolves the log level from verbose flag, CLI flag, config file, or default
func ResolveLogLevel(verbose bool, cliLogLevel int, cfg *parser.Config) int {
	if verbose {
		return logger.LogLevelDebug
	}
	if cliLogLevel > 0 {
		return cliLogLevel
	}
	if cfg != nil && cfg.Server.LogLevel > 0 {
		return cfg.Server.LogLevel
	}
	return logger.LogLevelInfo
}
