package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "gpt-3.5-turbo", cfg.LLM.Model)
	assert.Equal(t, float32(0.5), cfg.LLM.Temperature)
	assert.Equal(t, 4, cfg.Index.TopK)
	assert.Equal(t, 5, cfg.Index.SentencesPerChunk)
	assert.Equal(t, "csv", cfg.Conversation.Backend)
	assert.Equal(t, "./conversations/conversations.csv", cfg.Conversation.CSVPath)
	assert.NotEmpty(t, cfg.Chat.Greeting)
	assert.Contains(t, cfg.LLM.SystemPrompt, "do not hallucinate")
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("DOCSIGHT_SERVER_PORT", "9999")
	t.Setenv("DOCSIGHT_CONVERSATION_BACKEND", "sqlite")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Conversation.Backend)
}
