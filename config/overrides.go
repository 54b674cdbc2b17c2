package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Overrides holds optional, file-based customizations layered on top of the
// env-driven Config: per-tool description text and system-prompt
// find/replace rules, for operators who want to adjust what the upstream
// model sees without changing the client or redeploying the proxy.
type Overrides struct {
	ToolDescriptions map[string]string
	SystemMessage    SystemMessageOverrides
}

// SystemMessageOverrides describes a sequence of transformations applied to
// the system message of the converted request, after the adapter stack has run.
type SystemMessageOverrides struct {
	RemovePatterns []string                   `yaml:"removePatterns"`
	Replacements   []SystemMessageReplacement `yaml:"replacements"`
	Prepend        string                     `yaml:"prepend"`
	Append         string                     `yaml:"append"`
}

// SystemMessageReplacement is one find/replace rule.
type SystemMessageReplacement struct {
	Find    string `yaml:"find"`
	Replace string `yaml:"replace"`
}

type toolDescriptionsYAML struct {
	ToolDescriptions map[string]string `yaml:"toolDescriptions"`
}

type systemMessageOverridesYAML struct {
	SystemMessageOverrides SystemMessageOverrides `yaml:"systemMessageOverrides"`
}

// LoadOverrides reads the two optional YAML override files. A missing file
// is not an error: it yields an empty value for that half of Overrides so
// the proxy runs unmodified out of the box.
func LoadOverrides(toolDescriptionsPath, systemOverridesPath string) (*Overrides, error) {
	toolDescriptions, err := loadYAML[toolDescriptionsYAML](toolDescriptionsPath)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", toolDescriptionsPath, err)
	}
	systemOverrides, err := loadYAML[systemMessageOverridesYAML](systemOverridesPath)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", systemOverridesPath, err)
	}

	descriptions := toolDescriptions.ToolDescriptions
	if descriptions == nil {
		descriptions = map[string]string{}
	}

	return &Overrides{
		ToolDescriptions: descriptions,
		SystemMessage:    systemOverrides.SystemMessageOverrides,
	}, nil
}

func loadYAML[T any](path string) (T, error) {
	var out T
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return out, err
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(&out); err != nil && err.Error() != "EOF" {
		return out, err
	}
	return out, nil
}

// ToolDescription returns the configured override for toolName, or
// original if none is set.
func (o *Overrides) ToolDescription(toolName, original string) string {
	if o == nil {
		return original
	}
	if override, ok := o.ToolDescriptions[toolName]; ok && override != "" {
		return override
	}
	return original
}

// ApplySystemMessage runs the configured removal, replacement, and
// prepend/append transformations over a system prompt in order. Invalid
// regex patterns are skipped rather than failing the request.
func (o *Overrides) ApplySystemMessage(message string) string {
	if o == nil {
		return message
	}

	for _, pattern := range o.SystemMessage.RemovePatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		message = re.ReplaceAllString(message, "")
	}

	for _, r := range o.SystemMessage.Replacements {
		if r.Find == "" {
			continue
		}
		message = strings.ReplaceAll(message, r.Find, r.Replace)
	}

	if o.SystemMessage.Prepend != "" {
		message = o.SystemMessage.Prepend + message
	}
	if o.SystemMessage.Append != "" {
		message = message + o.SystemMessage.Append
	}

	return message
}
