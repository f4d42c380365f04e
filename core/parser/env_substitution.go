package parser

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// Environment variable pattern: {{ env.VARIABLE_NAME }}
	envVarPattern = regexp.MustCompile(`\{\{\s*env\.(\w+)\s*\}\}`)
)

// substituteEnvVars replaces {{ env.VARIABLE_NAME }} placeholders with environment variable values
func substituteEnvVars(value string) (string, error) {
	result := value
	matches := envVarPattern.FindAllStringSubmatch(value, -1)
	seen := make(map[string]bool)

	for _, match := range matches {
		envVarName := match[1]
		placeholder := match[0]
		if seen[placeholder] {
			continue
		}
		seen[placeholder] = true

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			return "", fmt.Errorf("environment variable '%s' not found", envVarName)
		}
		result = strings.ReplaceAll(result, placeholder, envValue)
	}

	return result, nil
}

// substituteNode rewrites every scalar of the document in place. path is the
// dotted key path used in error messages.
func substituteNode(node *yaml.Node, path string) error {
	switch node.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for i, child := range node.Content {
			childPath := path
			if node.Kind == yaml.SequenceNode {
				childPath = fmt.Sprintf("%s[%d]", path, i)
			}
			if err := substituteNode(child, childPath); err != nil {
				return err
			}
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			if path != "" {
				key = path + "." + key
			}
			if err := substituteNode(node.Content[i+1], key); err != nil {
				return err
			}
		}
	case yaml.ScalarNode:
		if !envVarPattern.MatchString(node.Value) {
			return nil
		}
		substituted, err := substituteEnvVars(node.Value)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		node.Value = substituted
		// A substituted value is re-typed, so "{{ env.PORT }}" may become an int
		node.Tag = ""
		node.Style = 0
	}
	return nil
}
