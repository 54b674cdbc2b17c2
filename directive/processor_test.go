package directive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messagebridge/types"
)

func textRequest(model, systemText string) *types.ClaudeMessagesRequest {
	sys := types.NewClaudeText(systemText)
	return &types.ClaudeMessagesRequest{
		Model:  model,
		System: &sys,
		Messages: []types.ClaudeMessage{
			{Role: "user", Content: types.NewClaudeText("hi")},
		},
	}
}

func TestProcessAppliesRuleMatchingModel(t *testing.T) {
	req := textRequest("hype-ultraman", `You are Claude.
--- PROXY DIRECTIVE ---
{"rules":[{"if":{"modelContains":"hype-ultraman"},"apply":{"model":"X","max_tokens":65536,"temperature":0.7,"top_p":0.8}}]}
--- END DIRECTIVE ---
Be helpful.`)

	settings := Process(req, false)

	require.NotNil(t, settings.Model)
	assert.Equal(t, "X", req.Model)
	assert.Equal(t, 65536, req.MaxTokens)
	require.NotNil(t, req.Temperature)
	assert.InDelta(t, 0.7, *req.Temperature, 1e-9)
	require.NotNil(t, req.TopP)
	assert.InDelta(t, 0.8, *req.TopP, 1e-9)
	assert.NotContains(t, req.System.Text, "PROXY DIRECTIVE")
}

func TestProcessSkipsNonMatchingRule(t *testing.T) {
	req := textRequest("some-other-model", `sys
--- PROXY DIRECTIVE ---
{"rules":[{"if":{"modelContains":"hype-ultraman"},"apply":{"max_tokens":1}}]}
--- END DIRECTIVE ---
`)
	Process(req, false)
	assert.NotEqual(t, 1, req.MaxTokens)
}

func TestProcessNoDirectiveIsNoop(t *testing.T) {
	req := textRequest("m", "plain system prompt")
	settings := Process(req, false)
	assert.Nil(t, settings.Model)
	assert.Equal(t, "plain system prompt", req.System.Text)
}

func TestProcessReasoningEffortMapsToThinkingBudget(t *testing.T) {
	req := textRequest("m", `sys
--- PROXY DIRECTIVE ---
{"global":{"reasoning_effort":"medium"}}
--- END DIRECTIVE ---
`)
	Process(req, false)
	require.NotNil(t, req.Thinking)
	require.NotNil(t, req.Thinking.BudgetTokens)
	assert.Equal(t, 4096, *req.Thinking.BudgetTokens)
}

func TestProcessGlobalThenRuleMergeIsRightBiased(t *testing.T) {
	req := textRequest("claude-haiku", `sys
--- PROXY DIRECTIVE ---
{"global":{"max_tokens":100,"temperature":0.1},"rules":[{"if":{"modelContains":"haiku"},"apply":{"max_tokens":200}}]}
--- END DIRECTIVE ---
`)
	Process(req, false)
	assert.Equal(t, 200, req.MaxTokens)
	require.NotNil(t, req.Temperature)
	assert.InDelta(t, 0.1, *req.Temperature, 1e-9)
}

func TestProcessLimitToClaudeMDRejectsUnmarkedFirstUserMessage(t *testing.T) {
	req := &types.ClaudeMessagesRequest{
		Model: "m",
		Messages: []types.ClaudeMessage{
			{Role: "user", Content: types.NewClaudeText(`hi
--- PROXY DIRECTIVE ---
{"global":{"max_tokens":1}}
--- END DIRECTIVE ---
`)},
		},
	}
	settings := Process(req, true)
	assert.Nil(t, settings.MaxTokens)
	assert.NotEqual(t, 1, req.MaxTokens)
}
