package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ToolConfig describes one allow-listed vectorizer command.
// Args may contain the {input} and {output} placeholders.
// InputFormat ("bmp" or "png") re-encodes the raster before the tool sees it; empty passes
// the raster through unchanged.
type ToolConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	InputFormat string            `yaml:"input_format" json:"input_format"`
	Description string            `yaml:"description" json:"description"`
}

// ConfigFile represents the structure of a tools file.
type ConfigFile struct {
	Tools []ToolConfig `yaml:"tools" json:"tools"`
}

// LoadTools reads a configuration file (YAML or JSON) and returns the tools by name.
// A missing file yields an empty set.
func LoadTools(path string) (map[string]ToolConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]ToolConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read tools config: %w", err)
	}

	var cfg ConfigFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	}

	tools := make(map[string]ToolConfig)
	for _, tool := range cfg.Tools {
		if tool.Name == "" {
			continue
		}
		tools[tool.Name] = tool
	}
	return tools, nil
}

// Potrace is the built-in tool entry for the potrace tracer.
// potrace only reads PNM and BMP bitmaps, so rasters are handed over as BMP.
func Potrace() ToolConfig {
	return ToolConfig{
		Name:        "potrace",
		Command:     "potrace",
		Args:        []string{"--svg", "--output", "{output}", "{input}"},
		InputFormat: "bmp",
		Description: "Trace a bitmap into SVG outlines",
	}
}
