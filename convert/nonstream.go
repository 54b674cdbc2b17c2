package convert

import (
	"encoding/json"
	"strings"

	"messagebridge/thinktag"
	"messagebridge/types"
)

// OpenAIToClaude converts a complete (non-streaming) Chat Completions
// response into an Anthropic Messages reply for the given model name.
func OpenAIToClaude(resp *types.OpenAIResponse, model string) *types.AnthropicResponse {
	var content []types.ClaudeContentBlock
	finishReason := ""

	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		if choice.FinishReason != nil {
			finishReason = *choice.FinishReason
		}
		msg := choice.Message

		if msg.ReasoningContent != "" {
			content = append(content, types.ClaudeContentBlock{Type: "thinking", Thinking: msg.ReasoningContent})
		}
		if msg.Content != nil && msg.Content.Text != "" {
			content = append(content, parseTextBlocks(msg.Content.Text)...)
		}
		for _, tc := range msg.ToolCalls {
			var args map[string]any
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				args = map[string]any{}
			}
			input, _ := json.Marshal(args)
			content = append(content, types.ClaudeContentBlock{
				Type:  "tool_use",
				ID:    tc.ID,
				Name:  tc.Function.Name,
				Input: input,
			})
		}
	}

	return &types.AnthropicResponse{
		ID:         resp.ID,
		Type:       "message",
		Role:       "assistant",
		Model:      model,
		Content:    content,
		StopReason: types.StopReasonForFinish(finishReason),
		Usage: types.AnthropicResponseUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}
}

// parseTextBlocks splits a complete assistant message's text into Claude
// content blocks, pulling out any <think>/<cot> sections as separate
// "thinking" blocks. Run through the same chunk-boundary-safe parser the
// streaming path uses, even though there's only one chunk here, so both
// paths agree on tag recognition.
func parseTextBlocks(input string) []types.ClaudeContentBlock {
	if input == "" {
		return nil
	}

	parser := thinktag.New()
	remaining := parser.Preprocess(input)
	var blocks []types.ClaudeContentBlock

	for {
		if !parser.IsThinkingAllowed() {
			blocks = append(blocks, types.ClaudeContentBlock{Type: "text", Text: remaining})
			break
		}

		startIdx, startTag := findFirstTag(remaining, "<think>", "<cot>")
		if startIdx < 0 {
			if remaining != "" {
				blocks = append(blocks, types.ClaudeContentBlock{Type: "text", Text: remaining})
			}
			break
		}

		before := remaining[:startIdx]
		if before != "" {
			blocks = append(blocks, types.ClaudeContentBlock{Type: "text", Text: before})
		}
		remaining = parser.CleanBefore(remaining[startIdx:])

		_ = startTag
		endIdx, endTag := findFirstTag(remaining, "</think>", "</cot>", "<end_cot>")
		if endIdx < 0 {
			blocks = append(blocks, types.ClaudeContentBlock{Type: "thinking", Thinking: remaining})
			break
		}

		thinkingContent := remaining[:endIdx]
		if thinkingContent != "" {
			blocks = append(blocks, types.ClaudeContentBlock{Type: "thinking", Thinking: thinkingContent})
		}
		remaining = parser.CleanAfter(remaining[endIdx+len(endTag):])
		parser.OnThinkEnd()
	}

	return blocks
}

// findFirstTag returns the earliest occurrence among the given tags, or
// -1 if none is present.
func findFirstTag(s string, tags ...string) (int, string) {
	bestIdx := -1
	bestTag := ""
	for _, tag := range tags {
		if idx := strings.Index(s, tag); idx >= 0 && (bestIdx < 0 || idx < bestIdx) {
			bestIdx = idx
			bestTag = tag
		}
	}
	return bestIdx, bestTag
}
