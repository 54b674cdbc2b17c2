package convert

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messagebridge/adapter"
	"messagebridge/directive"
	"messagebridge/types"
)

func plainAdapter(t *testing.T, model string) *adapter.RequestAdapter {
	t.Helper()
	t.Setenv("DISABLE_DEFAULT_ADAPTERS", "1")
	return adapter.ForModel(model, directive.Settings{})
}

func TestClaudeToOpenAISystemAndUserMessages(t *testing.T) {
	req := &types.ClaudeMessagesRequest{
		Model:     "claude-3-5-sonnet",
		MaxTokens: 1024,
		System:    &types.ClaudeContent{Text: "Be concise."},
		Messages: []types.ClaudeMessage{
			{Role: "user", Content: types.NewClaudeText("hello")},
		},
	}

	out := ClaudeToOpenAI(req, "gpt-4.1", plainAdapter(t, "gpt-4.1"))

	require.Len(t, out.Messages, 2)
	assert.Equal(t, "system", out.Messages[0].Role)
	assert.Equal(t, "Be concise.", out.Messages[0].Content.Text)
	assert.Equal(t, "user", out.Messages[1].Role)
	assert.Equal(t, "hello", out.Messages[1].Content.Text)
	require.NotNil(t, out.MaxTokens)
	assert.Equal(t, 1024, *out.MaxTokens)
}

func TestClaudeToOpenAIToolResultUsesFoundToolName(t *testing.T) {
	req := &types.ClaudeMessagesRequest{
		Model:     "claude-3-5-sonnet",
		MaxTokens: 512,
		Messages: []types.ClaudeMessage{
			{Role: "assistant", Content: types.ClaudeContent{IsArray: true, Blocks: []types.ClaudeContentBlock{
				{Type: "tool_use", ID: "call_1", Name: "get_weather", Input: json.RawMessage(`{"city":"nyc"}`)},
			}}},
			{Role: "user", Content: types.ClaudeContent{IsArray: true, Blocks: []types.ClaudeContentBlock{
				{Type: "tool_result", ToolUseID: "call_1", Content: json.RawMessage(`"72F and sunny"`)},
			}}},
		},
	}

	out := ClaudeToOpenAI(req, "gpt-4.1", plainAdapter(t, "gpt-4.1"))

	var toolMsg *types.OpenAIMessage
	for i := range out.Messages {
		if out.Messages[i].Role == "tool" {
			toolMsg = &out.Messages[i]
		}
	}
	require.NotNil(t, toolMsg)
	assert.Equal(t, "call_1", toolMsg.ToolCallID)
	assert.Equal(t, "72F and sunny", toolMsg.Content.Text)
}

func TestClaudeToOpenAIEmptyAssistantTurnDropped(t *testing.T) {
	req := &types.ClaudeMessagesRequest{
		Model:     "claude-3-5-sonnet",
		MaxTokens: 512,
		Messages: []types.ClaudeMessage{
			{Role: "user", Content: types.NewClaudeText("hi")},
			{Role: "assistant", Content: types.ClaudeContent{IsArray: true, Blocks: []types.ClaudeContentBlock{
				{Type: "text", Text: ""},
			}}},
		},
	}

	out := ClaudeToOpenAI(req, "gpt-4.1", plainAdapter(t, "gpt-4.1"))

	for _, m := range out.Messages {
		assert.NotEqual(t, "assistant", m.Role, "empty assistant turn should be dropped")
	}
}

func TestClaudeToOpenAIToolChoiceNamedTool(t *testing.T) {
	req := &types.ClaudeMessagesRequest{
		Model:      "claude-3-5-sonnet",
		MaxTokens:  512,
		ToolChoice: &types.ClaudeToolChoice{Type: "tool", Name: "get_weather"},
		Messages:   []types.ClaudeMessage{{Role: "user", Content: types.NewClaudeText("hi")}},
	}

	out := ClaudeToOpenAI(req, "gpt-4.1", plainAdapter(t, "gpt-4.1"))

	require.NotNil(t, out.ToolChoice)
	assert.True(t, out.ToolChoice.IsObject)
	assert.Equal(t, "get_weather", out.ToolChoice.Function.Name)
}

func TestClaudeToOpenAIToolChoiceDefaultsToAuto(t *testing.T) {
	req := &types.ClaudeMessagesRequest{
		Model:      "claude-3-5-sonnet",
		MaxTokens:  512,
		ToolChoice: &types.ClaudeToolChoice{Type: "any"},
		Messages:   []types.ClaudeMessage{{Role: "user", Content: types.NewClaudeText("hi")}},
	}

	out := ClaudeToOpenAI(req, "gpt-4.1", plainAdapter(t, "gpt-4.1"))

	require.NotNil(t, out.ToolChoice)
	assert.False(t, out.ToolChoice.IsObject)
	assert.Equal(t, "auto", out.ToolChoice.String)
}

func TestClaudeToOpenAIThinkingMapsToReasoningEffort(t *testing.T) {
	budget := 1024
	req := &types.ClaudeMessagesRequest{
		Model:     "claude-3-5-sonnet",
		MaxTokens: 512,
		Thinking:  &types.ClaudeThinking{Type: "enabled", BudgetTokens: &budget},
		Messages:  []types.ClaudeMessage{{Role: "user", Content: types.NewClaudeText("hi")}},
	}

	out := ClaudeToOpenAI(req, "gpt-4.1", plainAdapter(t, "gpt-4.1"))

	assert.Equal(t, "low", out.ReasoningEffort)
}
