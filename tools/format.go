package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"go/format"
	"path"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// FormatSource formats content by the extension of filename. Unknown
// types only lose trailing whitespace and end with a single newline.
func FormatSource(filename, content string) (string, error) {
	switch strings.ToLower(path.Ext(filename)) {
	case ".go":
		out, err := format.Source([]byte(content))
		if err != nil {
			return "", fmt.Errorf("failed to format Go source: %w", err)
		}
		return string(out), nil
	case ".json":
		var buf bytes.Buffer
		if err := json.Indent(&buf, []byte(strings.TrimSpace(content)), "", "  "); err != nil {
			return "", fmt.Errorf("failed to format JSON: %w", err)
		}
		buf.WriteByte('\n')
		return buf.String(), nil
	case ".yaml", ".yml":
		var node yaml.Node
		if err := yaml.Unmarshal([]byte(content), &node); err != nil {
			return "", fmt.Errorf("failed to parse YAML: %w", err)
		}
		if node.Kind == 0 {
			return "", nil
		}
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(&node); err != nil {
			return "", fmt.Errorf("failed to format YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return "", fmt.Errorf("failed to format YAML: %w", err)
		}
		return buf.String(), nil
	case ".toml":
		var doc map[string]interface{}
		if err := toml.Unmarshal([]byte(content), &doc); err != nil {
			return "", fmt.Errorf("failed to parse TOML: %w", err)
		}
		var buf bytes.Buffer
		enc := toml.NewEncoder(&buf)
		enc.SetIndentTables(true)
		if err := enc.Encode(doc); err != nil {
			return "", fmt.Errorf("failed to format TOML: %w", err)
		}
		return buf.String(), nil
	default:
		return tidyText(content), nil
	}
}

func tidyText(content string) string {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	text := strings.TrimRight(strings.Join(lines, "\n"), "\n")
	if text == "" {
		return ""
	}
	return text + "\n"
}
