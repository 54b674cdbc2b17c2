package adapter

import (
	"strings"

	"messagebridge/types"
)

// KimiMaxTokensAdapter hardcodes max_tokens for the one Groq-hosted Kimi
// model known to reject the client's requested value; DISABLE_GROQ_MAX_TOKENS
// (checked at registration, not here) opts a deployment out entirely.
type KimiMaxTokensAdapter struct{ Base }

func (KimiMaxTokensAdapter) AdaptMaxTokens(int, *types.ClaudeMessagesRequest) *int {
	v := 16384
	return &v
}

// isOpenAIReasoningModel matches OpenAI's own o3/o4/gpt-5 family, which
// rejects max_tokens and instead wants max_completion_tokens, and also any
// model name containing "openai".
func isOpenAIReasoningModel(model string) bool {
	lower := strings.ToLower(model)
	switch lower {
	case "o3", "o3-mini", "o4-mini":
		return true
	}
	return strings.Contains(lower, "gpt-5") || strings.Contains(lower, "openai")
}

// OAIReasoningModelAdapter routes the client's max_tokens to
// max_completion_tokens for OpenAI's reasoning-model family, which errors on
// the legacy field name.
type OAIReasoningModelAdapter struct{ Base }

func (OAIReasoningModelAdapter) AdaptMaxTokens(claudeMaxTokens int, req *types.ClaudeMessagesRequest) *int {
	if isOpenAIReasoningModel(req.Model) {
		return nil
	}
	return &claudeMaxTokens
}

func (OAIReasoningModelAdapter) AdaptMaxCompletionTokens(claudeMaxTokens int, req *types.ClaudeMessagesRequest) *int {
	if isOpenAIReasoningModel(req.Model) {
		return &claudeMaxTokens
	}
	return nil
}

// MeowsingsAdapter is a directive-gated cosmetic adapter: when a directive
// sets enable_meowsings, it appends a small closing flourish to the system
// prompt. Opt-in only and otherwise inert.
type MeowsingsAdapter struct{ Base }

func (MeowsingsAdapter) AdaptSystemPrompt(prompt string, _ *types.ClaudeMessagesRequest) string {
	if prompt == "" {
		return prompt
	}
	return prompt + "\n\n(Purrs contentedly.)"
}
