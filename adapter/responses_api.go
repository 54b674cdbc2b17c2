package adapter

import (
	"encoding/json"
	"strings"

	"messagebridge/directive"
	"messagebridge/streamstate"
	"messagebridge/types"
)

// ResponsesAPIAdapter swaps Chat Completions framing for OpenAI's Responses
// API: a single `instructions` field instead of a system message, an `input`
// item list instead of `messages`, and a differently shaped event stream.
// Enabled per-request via the `responses.enable` directive setting.
type ResponsesAPIAdapter struct {
	settings *directive.ResponsesSettings
}

func NewResponsesAPIAdapter(settings *directive.ResponsesSettings) *ResponsesAPIAdapter {
	return &ResponsesAPIAdapter{settings: settings}
}

func (a *ResponsesAPIAdapter) EndpointSuffix() string { return "/responses" }

// responsesModelName keeps only the tail after the first "." in a model
// string (e.g. a provider-qualified name), matching the upstream's own
// model-name convention for this endpoint.
func responsesModelName(model string) string {
	if idx := strings.Index(model, "."); idx >= 0 {
		return model[idx+1:]
	}
	return model
}

func (a *ResponsesAPIAdapter) BuildBody(openaiRequest *types.OpenAIRequest, claudeRequest *types.ClaudeMessagesRequest) any {
	body := map[string]any{
		"model": responsesModelName(openaiRequest.Model),
	}

	var instructions string
	input := []map[string]any{}
	for _, msg := range openaiRequest.Messages {
		if msg.Role == "system" {
			if msg.Content != nil {
				instructions = msg.Content.Text
			}
			continue
		}
		input = append(input, responsesInputItems(msg)...)
	}
	if instructions != "" {
		body["instructions"] = instructions
	}
	body["input"] = input

	if openaiRequest.Stream != nil {
		body["stream"] = *openaiRequest.Stream
	}

	maxOutput := openaiRequest.MaxTokens
	if maxOutput == nil {
		maxOutput = openaiRequest.MaxCompletionTokens
	}
	if a.settings != nil && a.settings.MaxOutputTokens != nil {
		maxOutput = a.settings.MaxOutputTokens
	}
	if maxOutput != nil {
		body["max_output_tokens"] = *maxOutput
	}

	if openaiRequest.ReasoningEffort != "" {
		summary := "auto"
		if a.settings != nil && a.settings.ReasoningSummary != nil {
			summary = *a.settings.ReasoningSummary
		}
		body["reasoning"] = map[string]any{
			"effort":  openaiRequest.ReasoningEffort,
			"summary": summary,
		}
	}

	if len(openaiRequest.Tools) > 0 {
		tools := make([]map[string]any, 0, len(openaiRequest.Tools))
		for _, t := range openaiRequest.Tools {
			tools = append(tools, map[string]any{
				"type":        "function",
				"name":        t.Function.Name,
				"description": t.Function.Description,
				"parameters":  json.RawMessage(t.Function.Parameters),
			})
		}
		body["tools"] = tools
	}

	if openaiRequest.ToolChoice != nil {
		if !openaiRequest.ToolChoice.IsObject {
			body["tool_choice"] = openaiRequest.ToolChoice.String
		} else {
			body["tool_choice"] = map[string]any{
				"type": "function",
				"name": openaiRequest.ToolChoice.Function.Name,
			}
		}
	}

	if openaiRequest.Temperature != nil {
		body["temperature"] = *openaiRequest.Temperature
	}
	if openaiRequest.TopP != nil {
		body["top_p"] = *openaiRequest.TopP
	}

	return body
}

func responsesInputItems(msg types.OpenAIMessage) []map[string]any {
	if msg.Role == "tool" {
		output := ""
		if msg.Content != nil {
			output = msg.Content.Text
		}
		return []map[string]any{{
			"type":    "function_call_output",
			"call_id": msg.ToolCallID,
			"output":  output,
		}}
	}

	var items []map[string]any
	if msg.Content != nil && (msg.Content.Text != "" || !msg.Content.IsArray) {
		textType := "input_text"
		if msg.Role == "assistant" {
			textType = "output_text"
		}
		items = append(items, map[string]any{
			"type": "message",
			"role": msg.Role,
			"content": []map[string]any{
				{"type": textType, "text": msg.Content.Text},
			},
		})
	}
	for _, tc := range msg.ToolCalls {
		items = append(items, map[string]any{
			"type":      "function_call",
			"call_id":   tc.ID,
			"name":      tc.Function.Name,
			"arguments": tc.Function.Arguments,
		})
	}
	return items
}

// NormalizeNonStreamJSON reduces a Responses API body's `output` array into
// the single chat-completion-shaped choice the rest of the pipeline expects.
func (a *ResponsesAPIAdapter) NormalizeNonStreamJSON(body map[string]any, _ *types.ClaudeMessagesRequest) map[string]any {
	output, _ := body["output"].([]any)

	var text strings.Builder
	var toolCalls []any
	for _, raw := range output {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		switch item["type"] {
		case "message":
			parts, _ := item["content"].([]any)
			for _, rawPart := range parts {
				part, ok := rawPart.(map[string]any)
				if !ok {
					continue
				}
				if part["type"] == "output_text" {
					if s, ok := part["text"].(string); ok {
						text.WriteString(s)
					}
				}
			}
		case "function_call":
			name, _ := item["name"].(string)
			args, _ := item["arguments"].(string)
			callID, _ := item["call_id"].(string)
			toolCalls = append(toolCalls, map[string]any{
				"id":   callID,
				"type": "function",
				"function": map[string]any{
					"name":      name,
					"arguments": args,
				},
			})
		}
	}

	finishReason := "stop"
	if status, _ := body["status"].(string); status == "incomplete" {
		finishReason = "length"
	}

	message := map[string]any{"role": "assistant", "content": text.String()}
	if len(toolCalls) > 0 {
		message["tool_calls"] = toolCalls
		finishReason = "tool_calls"
	}

	choice := map[string]any{
		"index":         0,
		"message":       message,
		"finish_reason": finishReason,
	}

	usage := map[string]any{}
	if u, ok := body["usage"].(map[string]any); ok {
		if v, ok := u["input_tokens"]; ok {
			usage["prompt_tokens"] = v
		}
		if v, ok := u["output_tokens"]; ok {
			usage["completion_tokens"] = v
		}
	}

	return map[string]any{
		"id":      body["id"],
		"object":  "chat.completion",
		"model":   body["model"],
		"choices": []any{choice},
		"usage":   usage,
	}
}

// responsesEvent is the subset of a Responses API SSE payload the decoder
// cares about; fields not relevant to a given event type are left zero.
type responsesEvent struct {
	Type     string         `json:"type"`
	ItemID   string         `json:"item_id"`
	Delta    string         `json:"delta"`
	Item     map[string]any `json:"item"`
	Response map[string]any `json:"response"`
}

func (a *ResponsesAPIAdapter) ChunkStream(sse <-chan []byte, _ *types.ClaudeMessagesRequest) <-chan streamstate.ChunkResult {
	out := make(chan streamstate.ChunkResult)
	go func() {
		defer close(out)

		indexByItemID := map[string]int{}
		nextIndex := 0

		for line := range sse {
			var ev responsesEvent
			if err := json.Unmarshal(line, &ev); err != nil {
				continue
			}

			switch ev.Type {
			case "response.output_item.added":
				itemID, _ := ev.Item["id"].(string)
				index, ok := indexByItemID[itemID]
				if !ok {
					index = nextIndex
					nextIndex++
					indexByItemID[itemID] = index
				}
				if ev.Item["type"] == "function_call" {
					name, _ := ev.Item["name"].(string)
					callID, _ := ev.Item["call_id"].(string)
					out <- streamstate.ChunkResult{Chunk: &types.OpenAIStreamChunk{
						Choices: []types.OpenAIStreamChoice{{Delta: types.OpenAIDelta{
							ToolCalls: []types.OpenAIStreamToolCall{{
								Index:    index,
								ID:       &callID,
								Function: &types.OpenAIStreamFunction{Name: &name},
							}},
						}}},
					}}
				}

			case "response.output_text.delta":
				index := indexByItemID[ev.ItemID]
				content := ev.Delta
				out <- streamstate.ChunkResult{Chunk: &types.OpenAIStreamChunk{
					Choices: []types.OpenAIStreamChoice{{Index: index, Delta: types.OpenAIDelta{Content: &content}}},
				}}

			case "response.reasoning_summary_text.delta":
				index := indexByItemID[ev.ItemID]
				reasoning := ev.Delta
				out <- streamstate.ChunkResult{Chunk: &types.OpenAIStreamChunk{
					Choices: []types.OpenAIStreamChoice{{Index: index, Delta: types.OpenAIDelta{ReasoningContent: &reasoning}}},
				}}

			case "response.function_call_arguments.delta":
				index, ok := indexByItemID[ev.ItemID]
				if !ok {
					index = nextIndex
					nextIndex++
					indexByItemID[ev.ItemID] = index
				}
				args := ev.Delta
				out <- streamstate.ChunkResult{Chunk: &types.OpenAIStreamChunk{
					Choices: []types.OpenAIStreamChoice{{Delta: types.OpenAIDelta{
						ToolCalls: []types.OpenAIStreamToolCall{{Index: index, Function: &types.OpenAIStreamFunction{Arguments: &args}}},
					}}},
				}}

			case "response.completed":
				finish := "stop"
				if status, _ := ev.Response["status"].(string); status == "incomplete" {
					finish = "length"
				}
				usage := types.OpenAIUsage{}
				if u, ok := ev.Response["usage"].(map[string]any); ok {
					if v, ok := u["input_tokens"].(float64); ok {
						usage.PromptTokens = int(v)
					}
					if v, ok := u["output_tokens"].(float64); ok {
						usage.CompletionTokens = int(v)
					}
				}
				out <- streamstate.ChunkResult{Chunk: &types.OpenAIStreamChunk{
					Usage:   usage,
					Choices: []types.OpenAIStreamChoice{{FinishReason: &finish}},
				}}
			}
		}
	}()
	return out
}
