// Package adapter implements the model-keyed pipeline of behavior
// transforms that mutate a request and its response at every translation
// boundary: prompt rewriting, tool schema/description rewriting, parameter
// routing for reasoning models, and an at-most-one whole-upstream-framing
// swap for the Responses API.
package adapter

import (
	"encoding/json"

	"messagebridge/streamstate"
	"messagebridge/types"
)

// Adapter is the per-aspect hook set a model or directive can register. Every
// method has a sensible identity default via Base, so a concrete adapter only
// overrides what it changes.
type Adapter interface {
	AdaptTools(tools []types.ClaudeTool, req *types.ClaudeMessagesRequest) []types.ClaudeTool
	AdaptToolChoice(choice *types.ClaudeToolChoice, req *types.ClaudeMessagesRequest) *types.ClaudeToolChoice
	AdaptToolSchema(schema json.RawMessage, req *types.ClaudeMessagesRequest) json.RawMessage
	AdaptToolDescription(description string, req *types.ClaudeMessagesRequest) string
	AdaptSystemPrompt(prompt string, req *types.ClaudeMessagesRequest) string
	AdaptUserPrompt(prompt string, req *types.ClaudeMessagesRequest) string
	AdaptTemperature(temperature *float64, req *types.ClaudeMessagesRequest) *float64
	AdaptTopP(topP *float64, req *types.ClaudeMessagesRequest) *float64
	AdaptMaxTokens(claudeMaxTokens int, req *types.ClaudeMessagesRequest) *int
	AdaptMaxCompletionTokens(claudeMaxTokens int, req *types.ClaudeMessagesRequest) *int
	AdaptToolResult(toolName, result string, req *types.ClaudeMessagesRequest) string
	AdaptModel(model string, req *types.ClaudeMessagesRequest) string
	AdaptMessages(messages []types.OpenAIMessage, req *types.ClaudeMessagesRequest) []types.OpenAIMessage
	AdaptNonStreamResponse(response map[string]any, req *types.ClaudeMessagesRequest) map[string]any
	AdaptChunkStream(chunks <-chan streamstate.ChunkResult, req *types.ClaudeMessagesRequest) <-chan streamstate.ChunkResult
}

// Base implements Adapter with identity defaults. Concrete adapters embed it
// and override only the hooks they care about.
type Base struct{}

func (Base) AdaptTools(tools []types.ClaudeTool, _ *types.ClaudeMessagesRequest) []types.ClaudeTool {
	return tools
}
func (Base) AdaptToolChoice(choice *types.ClaudeToolChoice, _ *types.ClaudeMessagesRequest) *types.ClaudeToolChoice {
	return choice
}
func (Base) AdaptToolSchema(schema json.RawMessage, _ *types.ClaudeMessagesRequest) json.RawMessage {
	return schema
}
func (Base) AdaptToolDescription(description string, _ *types.ClaudeMessagesRequest) string {
	return description
}
func (Base) AdaptSystemPrompt(prompt string, _ *types.ClaudeMessagesRequest) string { return prompt }
func (Base) AdaptUserPrompt(prompt string, _ *types.ClaudeMessagesRequest) string   { return prompt }
func (Base) AdaptTemperature(temperature *float64, _ *types.ClaudeMessagesRequest) *float64 {
	return temperature
}
func (Base) AdaptTopP(topP *float64, _ *types.ClaudeMessagesRequest) *float64 { return topP }
func (Base) AdaptMaxTokens(claudeMaxTokens int, _ *types.ClaudeMessagesRequest) *int {
	return &claudeMaxTokens
}
func (Base) AdaptMaxCompletionTokens(int, *types.ClaudeMessagesRequest) *int { return nil }
func (Base) AdaptToolResult(_ string, result string, _ *types.ClaudeMessagesRequest) string {
	return result
}
func (Base) AdaptModel(model string, _ *types.ClaudeMessagesRequest) string { return model }
func (Base) AdaptMessages(messages []types.OpenAIMessage, _ *types.ClaudeMessagesRequest) []types.OpenAIMessage {
	return messages
}
func (Base) AdaptNonStreamResponse(response map[string]any, _ *types.ClaudeMessagesRequest) map[string]any {
	return response
}
func (Base) AdaptChunkStream(chunks <-chan streamstate.ChunkResult, _ *types.ClaudeMessagesRequest) <-chan streamstate.ChunkResult {
	return chunks
}

// API is the at-most-one whole-upstream-framing adapter: it swaps the
// Chat Completions wire shape for a different upstream protocol entirely
// (the Responses API), rather than tweaking one field of it.
type API interface {
	EndpointSuffix() string
	BuildBody(openaiRequest *types.OpenAIRequest, claudeRequest *types.ClaudeMessagesRequest) any
	NormalizeNonStreamJSON(body map[string]any, req *types.ClaudeMessagesRequest) map[string]any
	ChunkStream(sse <-chan []byte, req *types.ClaudeMessagesRequest) <-chan streamstate.ChunkResult
}
