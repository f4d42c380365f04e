package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ParseYAML decodes a configuration document, substituting environment
// placeholders first. Unknown keys are rejected.
func ParseYAML(data []byte) (*Config, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	cfg := &Config{}
	if doc.Kind == 0 {
		cfg.WithDefaults()
		return cfg, nil
	}

	if err := substituteNode(&doc, ""); err != nil {
		return nil, fmt.Errorf("failed to substitute environment variables: %w", err)
	}

	// Re-encode so the strict decoder can report unknown fields
	substituted, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode YAML: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(substituted))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg.WithDefaults()
	return cfg, nil
}

// LoadFile reads, parses and validates a configuration file
func LoadFile(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	cfg, err := ParseYAML(content)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
