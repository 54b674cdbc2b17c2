// Package convert translates between the Anthropic Messages wire format and
// the OpenAI Chat Completions wire format, in both request and
// non-streaming response directions. The streaming response direction lives
// in the streamstate package, since it needs to interleave with the
// chunk-by-chunk state machine rather than work on a complete value.
package convert

import (
	"encoding/json"
	"fmt"
	"strings"

	"messagebridge/adapter"
	"messagebridge/directive"
	"messagebridge/types"
)

// ClaudeToOpenAI converts a complete Anthropic Messages request into the
// OpenAI Chat Completions request that should be sent upstream for
// targetModel, running every adapter hook at the point the original
// request shape would need it rewritten.
func ClaudeToOpenAI(req *types.ClaudeMessagesRequest, targetModel string, ra *adapter.RequestAdapter) *types.OpenAIRequest {
	openaiReq := &types.OpenAIRequest{
		Model:       ra.AdaptModel(targetModel, req),
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.StopSequences,
	}
	if req.Stream {
		stream := true
		openaiReq.Stream = &stream
		openaiReq.StreamOptions = &types.StreamOptions{IncludeUsage: boolPtr(true)}
	}

	var messages []types.OpenAIMessage
	systemText := flattenSystemContent(req.System)
	systemText = ra.AdaptSystemPrompt(systemText, req)
	if systemText != "" {
		messages = append(messages, types.OpenAIMessage{Role: "system", Content: types.NewOpenAIText(systemText)})
	}

	for _, msg := range req.Messages {
		messages = append(messages, convertMessage(msg, req, ra)...)
	}

	if reasoningEffort := reasoningEffortFromThinking(req.Thinking); reasoningEffort != "" {
		openaiReq.ReasoningEffort = reasoningEffort
	}

	if tools := convertTools(req.Tools, req, ra); len(tools) > 0 {
		openaiReq.Tools = tools
	}
	openaiReq.ToolChoice = convertToolChoice(ra.AdaptToolChoice(req.ToolChoice, req))
	openaiReq.Temperature = ra.AdaptTemperature(openaiReq.Temperature, req)
	openaiReq.TopP = ra.AdaptTopP(openaiReq.TopP, req)
	openaiReq.MaxTokens = ra.AdaptMaxTokens(req.MaxTokens, req)
	openaiReq.MaxCompletionTokens = ra.AdaptMaxCompletionTokens(req.MaxTokens, req)
	openaiReq.Messages = ra.AdaptMessages(messages, req)

	return openaiReq
}

func boolPtr(b bool) *bool { return &b }

func flattenSystemContent(system *types.ClaudeContent) string {
	if system == nil {
		return ""
	}
	if !system.IsArray {
		return system.Text
	}
	var parts []string
	for _, block := range system.Blocks {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func reasoningEffortFromThinking(thinking *types.ClaudeThinking) string {
	if thinking == nil || thinking.Type != "enabled" {
		return ""
	}
	budget := 8192
	if thinking.BudgetTokens != nil {
		budget = *thinking.BudgetTokens
	}
	return directive.MapBudgetTokensToReasoningEffort(budget)
}

// convertMessage dispatches on role; any role other than user/assistant is
// dropped since Chat Completions has no equivalent turn for it.
func convertMessage(msg types.ClaudeMessage, req *types.ClaudeMessagesRequest, ra *adapter.RequestAdapter) []types.OpenAIMessage {
	switch msg.Role {
	case "user":
		if !msg.Content.IsArray {
			rewritten := ra.AdaptUserPrompt(msg.Content.Text, req)
			return []types.OpenAIMessage{{Role: "user", Content: types.NewOpenAIText(rewritten)}}
		}
		return convertUserBlocks(msg.Content.Blocks, req, ra)
	case "assistant":
		return convertAssistantMessage(msg, req, ra)
	default:
		return nil
	}
}

// convertUserBlocks processes tool_result blocks first (each becomes its
// own role:"tool" message), then every remaining block together as one
// role:"user" message, matching the original two-pass structure.
func convertUserBlocks(blocks []types.ClaudeContentBlock, req *types.ClaudeMessagesRequest, ra *adapter.RequestAdapter) []types.OpenAIMessage {
	var messages []types.OpenAIMessage

	for _, block := range blocks {
		if block.Type != "tool_result" {
			continue
		}
		toolName, _ := req.FindToolNameByID(block.ToolUseID)
		messages = append(messages, types.OpenAIMessage{
			Role:       "tool",
			ToolCallID: block.ToolUseID,
			Content:    types.NewOpenAIText(toolResultText(block.Content, toolName, req, ra)),
		})
	}

	var parts []types.OpenAIContentPart
	for _, block := range blocks {
		switch block.Type {
		case "text":
			parts = append(parts, types.OpenAIContentPart{Type: "text", Text: ra.AdaptUserPrompt(block.Text, req)})
		case "image":
			if block.Source != nil {
				url := fmt.Sprintf("data:%s;base64,%s", block.Source.MediaType, block.Source.Data)
				parts = append(parts, types.OpenAIContentPart{Type: "image_url", ImageURL: &types.OpenAIImageURL{URL: url}})
			}
		}
	}
	if len(parts) > 0 {
		messages = append(messages, types.OpenAIMessage{
			Role:    "user",
			Content: &types.OpenAIContent{IsArray: true, Parts: parts},
		})
	}

	return messages
}

// toolResultText extracts a tool_result block's content as a string. Only
// the string form of JSON-string content is run through AdaptToolResult; a
// JSON value (object/array) is re-serialized directly, bypassing the
// adapter — this asymmetry is inherited from the format this was ported
// from rather than invented here.
func toolResultText(content json.RawMessage, toolName string, req *types.ClaudeMessagesRequest, ra *adapter.RequestAdapter) string {
	var asString string
	if err := json.Unmarshal(content, &asString); err == nil {
		return ra.AdaptToolResult(toolName, asString, req)
	}
	return string(content)
}

// convertAssistantMessage collects text and tool_calls separately; a turn
// that produces neither (an assistant message with no content at all after
// conversion) is dropped from the messages array, since some upstreams
// reject messages with empty parts.
func convertAssistantMessage(msg types.ClaudeMessage, req *types.ClaudeMessagesRequest, ra *adapter.RequestAdapter) []types.OpenAIMessage {
	var textParts []string
	var toolCalls []types.OpenAIToolCall

	if !msg.Content.IsArray {
		if msg.Content.Text != "" {
			textParts = append(textParts, msg.Content.Text)
		}
	} else {
		for _, block := range msg.Content.Blocks {
			switch block.Type {
			case "text":
				if block.Text != "" {
					textParts = append(textParts, block.Text)
				}
			case "tool_use":
				args := "{}"
				if len(block.Input) > 0 {
					args = string(block.Input)
				}
				toolCalls = append(toolCalls, types.OpenAIToolCall{
					ID:   block.ID,
					Type: "function",
					Function: types.OpenAIFunction{
						Name:      block.Name,
						Arguments: args,
					},
				})
			}
		}
	}

	if len(textParts) == 0 && len(toolCalls) == 0 {
		return nil
	}

	out := types.OpenAIMessage{Role: "assistant"}
	if len(textParts) > 0 {
		out.Content = types.NewOpenAIText(strings.Join(textParts, "\n"))
	}
	out.ToolCalls = toolCalls
	return []types.OpenAIMessage{out}
}

func convertTools(tools []types.ClaudeTool, req *types.ClaudeMessagesRequest, ra *adapter.RequestAdapter) []types.OpenAITool {
	adapted := ra.AdaptTools(tools, req)
	out := make([]types.OpenAITool, 0, len(adapted))
	for _, tool := range adapted {
		out = append(out, types.OpenAITool{
			Type: "function",
			Function: types.OpenAIToolFunction{
				Name:        tool.Name,
				Description: ra.AdaptToolDescription(tool.Description, req),
				Parameters:  ra.AdaptToolSchema(tool.InputSchema, req),
			},
		})
	}
	return out
}

// convertToolChoice maps Claude's tool_choice shape onto OpenAI's: a
// specific named tool becomes the object form, anything else (including a
// "tool" choice with no name) falls back to "auto".
func convertToolChoice(choice *types.ClaudeToolChoice) *types.OpenAIToolChoice {
	if choice == nil {
		return nil
	}
	if choice.Type == "tool" && choice.Name != "" {
		return &types.OpenAIToolChoice{
			IsObject: true,
			Type:     "function",
			Function: types.OpenAIFunctionChoice{Name: choice.Name},
		}
	}
	return &types.OpenAIToolChoice{String: "auto"}
}
