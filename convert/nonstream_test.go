package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messagebridge/types"
)

func finishReasonPtr(s string) *string { return &s }

func TestOpenAIToClaudePlainText(t *testing.T) {
	resp := &types.OpenAIResponse{
		ID: "chatcmpl-1",
		Choices: []types.OpenAIChoice{{
			Message:      types.OpenAIMessage{Role: "assistant", Content: types.NewOpenAIText("hello there")},
			FinishReason: finishReasonPtr("stop"),
		}},
		Usage: types.OpenAIUsage{PromptTokens: 10, CompletionTokens: 5},
	}

	out := OpenAIToClaude(resp, "claude-3-5-sonnet")

	require.Len(t, out.Content, 1)
	assert.Equal(t, "text", out.Content[0].Type)
	assert.Equal(t, "hello there", out.Content[0].Text)
	assert.Equal(t, "end_turn", out.StopReason)
	assert.Equal(t, 10, out.Usage.InputTokens)
	assert.Equal(t, 5, out.Usage.OutputTokens)
}

func TestOpenAIToClaudeThinkTagSplitsBlocks(t *testing.T) {
	resp := &types.OpenAIResponse{
		Choices: []types.OpenAIChoice{{
			Message:      types.OpenAIMessage{Role: "assistant", Content: types.NewOpenAIText("<think>pondering</think>the answer is 4")},
			FinishReason: finishReasonPtr("stop"),
		}},
	}

	out := OpenAIToClaude(resp, "claude-3-5-sonnet")

	require.Len(t, out.Content, 2)
	assert.Equal(t, "thinking", out.Content[0].Type)
	assert.Equal(t, "pondering", out.Content[0].Thinking)
	assert.Equal(t, "text", out.Content[1].Type)
	assert.Equal(t, "the answer is 4", out.Content[1].Text)
}

func TestOpenAIToClaudeToolCalls(t *testing.T) {
	resp := &types.OpenAIResponse{
		Choices: []types.OpenAIChoice{{
			Message: types.OpenAIMessage{
				Role: "assistant",
				ToolCalls: []types.OpenAIToolCall{{
					ID:   "call_1",
					Type: "function",
					Function: types.OpenAIFunction{
						Name:      "get_weather",
						Arguments: `{"city":"nyc"}`,
					},
				}},
			},
			FinishReason: finishReasonPtr("tool_calls"),
		}},
	}

	out := OpenAIToClaude(resp, "claude-3-5-sonnet")

	require.Len(t, out.Content, 1)
	assert.Equal(t, "tool_use", out.Content[0].Type)
	assert.Equal(t, "get_weather", out.Content[0].Name)
	assert.Equal(t, "call_1", out.Content[0].ID)
	assert.JSONEq(t, `{"city":"nyc"}`, string(out.Content[0].Input))
	assert.Equal(t, "tool_use", out.StopReason)
}

func TestOpenAIToClaudeReasoningContentBlockComesFirst(t *testing.T) {
	resp := &types.OpenAIResponse{
		Choices: []types.OpenAIChoice{{
			Message: types.OpenAIMessage{
				Role:             "assistant",
				ReasoningContent: "thinking it through",
				Content:          types.NewOpenAIText("final answer"),
			},
			FinishReason: finishReasonPtr("stop"),
		}},
	}

	out := OpenAIToClaude(resp, "claude-3-5-sonnet")

	require.Len(t, out.Content, 2)
	assert.Equal(t, "thinking", out.Content[0].Type)
	assert.Equal(t, "final answer", out.Content[1].Text)
}
