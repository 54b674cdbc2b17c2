package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, defaultOpenAIBaseURL, cfg.OpenAIBaseURL)
	assert.Equal(t, defaultHaikuModel, cfg.HaikuModel)
	assert.Equal(t, defaultListen, cfg.Listen)
	assert.Equal(t, defaultConnectionTimeout, cfg.ConnectionTimeout)
	assert.Equal(t, defaultIdleConnectionTimeout, cfg.IdleConnectionTimeout)
}

func TestLoadOverridesFromEnv(t *testing.T) {
	t.Setenv(envOpenAIBaseURL, "https://upstream.example/v1")
	t.Setenv(envHaikuModel, "openai/gpt-4o-mini")
	t.Setenv(envListen, "127.0.0.1:9090")
	t.Setenv(envConnectionTimeout, "5")
	t.Setenv(envIdleConnectionTimeout, "30")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://upstream.example/v1", cfg.OpenAIBaseURL)
	assert.Equal(t, "openai/gpt-4o-mini", cfg.HaikuModel)
	assert.Equal(t, "127.0.0.1:9090", cfg.Listen)
	assert.Equal(t, 5*time.Second, cfg.ConnectionTimeout)
	assert.Equal(t, 30*time.Second, cfg.IdleConnectionTimeout)
}

func TestLoadRejectsNonIntegerTimeout(t *testing.T) {
	t.Setenv(envConnectionTimeout, "not-a-number")

	_, err := Load()
	require.Error(t, err)
}
