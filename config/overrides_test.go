package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOverridesMissingFilesYieldsEmpty(t *testing.T) {
	dir := t.TempDir()
	overrides, err := LoadOverrides(filepath.Join(dir, "tools.yaml"), filepath.Join(dir, "system.yaml"))
	require.NoError(t, err)

	assert.Empty(t, overrides.ToolDescriptions)
	assert.Equal(t, "unchanged", overrides.ApplySystemMessage("unchanged"))
	assert.Equal(t, "fallback", overrides.ToolDescription("Read", "fallback"))
}

func TestLoadOverridesReadsYAML(t *testing.T) {
	dir := t.TempDir()
	toolsPath := filepath.Join(dir, "tools.yaml")
	systemPath := filepath.Join(dir, "system.yaml")

	require.NoError(t, os.WriteFile(toolsPath, []byte("toolDescriptions:\n  Read: \"custom read description\"\n"), 0o644))
	require.NoError(t, os.WriteFile(systemPath, []byte(
		"systemMessageOverrides:\n"+
			"  removePatterns:\n"+
			"    - \"secret-[0-9]+\"\n"+
			"  replacements:\n"+
			"    - find: \"Claude\"\n"+
			"      replace: \"Assistant\"\n"+
			"  prepend: \"HEADER \"\n"+
			"  append: \" FOOTER\"\n"), 0o644))

	overrides, err := LoadOverrides(toolsPath, systemPath)
	require.NoError(t, err)

	assert.Equal(t, "custom read description", overrides.ToolDescription("Read", "default"))
	assert.Equal(t, "default", overrides.ToolDescription("Write", "default"))

	result := overrides.ApplySystemMessage("You are Claude, key secret-12345 enabled.")
	assert.Equal(t, "HEADER You are Assistant, key  enabled. FOOTER", result)
}

func TestApplySystemMessageNilOverridesIsNoop(t *testing.T) {
	var overrides *Overrides
	assert.Equal(t, "text", overrides.ApplySystemMessage("text"))
	assert.Equal(t, "orig", overrides.ToolDescription("X", "orig"))
}
