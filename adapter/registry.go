package adapter

import (
	"encoding/json"
	"os"
	"strings"

	"messagebridge/directive"
	"messagebridge/streamstate"
	"messagebridge/types"
)

// RequestAdapter is the per-request composed pipeline: zero or more Adapter
// hooks folded left-to-right in registration order, plus at most one API
// adapter swapping the upstream wire framing entirely.
type RequestAdapter struct {
	adapters []Adapter
	api      API
}

func envEnabled(name string) bool {
	v, ok := os.LookupEnv(name)
	if !ok {
		return false
	}
	return v == "1" || strings.EqualFold(v, "true")
}

// ForModel builds the adapter stack for one request, mirroring the
// registration policy: default prompt/tool/parameter adapters unless
// disabled, vendor-specific schema and max-token quirks keyed by model
// substring, tool-simulation adapters keyed by model suffix, and the
// Responses API adapter gated by directive settings.
func ForModel(model string, settings directive.Settings) *RequestAdapter {
	ra := &RequestAdapter{}
	lower := strings.ToLower(model)

	defaultsDisabled := envEnabled("DISABLE_DEFAULT_ADAPTERS")

	if !defaultsDisabled {
		ra.adapters = append(ra.adapters, NewSystemPromptAdapter(), NewUserPromptAdapter(), NewToolsAdapter())

		if strings.Contains(lower, "gemini") {
			ra.adapters = append(ra.adapters, GeminiToolSchemaAdapter{})
		}

		if strings.Contains(lower, "moonshotai/kimi-k2-instruct") && !envEnabled("DISABLE_GROQ_MAX_TOKENS") {
			ra.adapters = append(ra.adapters, KimiMaxTokensAdapter{})
		}

		ra.adapters = append(ra.adapters, OAIReasoningModelAdapter{})
	}

	if settings.EnableMeowsings != nil && *settings.EnableMeowsings {
		ra.adapters = append(ra.adapters, MeowsingsAdapter{})
	}

	if strings.HasSuffix(lower, "-xml-tools") {
		ra.adapters = append(ra.adapters,
			ToolSimulationModelAdapter{},
			ToolSimulationToolsAdapter{},
			NewToolSimulationRequestAdapter(GrammarXML),
			NewToolSimulationResponseAdapter(GrammarXML),
		)
	} else if strings.HasSuffix(lower, "-bracket-tools") {
		ra.adapters = append(ra.adapters,
			ToolSimulationModelAdapter{},
			ToolSimulationToolsAdapter{},
			NewToolSimulationRequestAdapter(GrammarBracket),
			NewToolSimulationResponseAdapter(GrammarBracket),
		)
	}

	if settings.Responses != nil && settings.Responses.Enable != nil && *settings.Responses.Enable {
		ra.api = NewResponsesAPIAdapter(settings.Responses)
	}

	return ra
}

// HasAPI reports whether a whole-upstream-framing adapter (Responses API) is
// active for this request.
func (ra *RequestAdapter) HasAPI() bool { return ra.api != nil }

func (ra *RequestAdapter) AdaptSystemPrompt(prompt string, req *types.ClaudeMessagesRequest) string {
	for _, a := range ra.adapters {
		prompt = a.AdaptSystemPrompt(prompt, req)
	}
	return prompt
}

func (ra *RequestAdapter) AdaptUserPrompt(prompt string, req *types.ClaudeMessagesRequest) string {
	for _, a := range ra.adapters {
		prompt = a.AdaptUserPrompt(prompt, req)
	}
	return prompt
}

func (ra *RequestAdapter) AdaptModel(model string, req *types.ClaudeMessagesRequest) string {
	for _, a := range ra.adapters {
		model = a.AdaptModel(model, req)
	}
	return model
}

func (ra *RequestAdapter) AdaptTools(tools []types.ClaudeTool, req *types.ClaudeMessagesRequest) []types.ClaudeTool {
	for _, a := range ra.adapters {
		tools = a.AdaptTools(tools, req)
	}
	return tools
}

func (ra *RequestAdapter) AdaptToolChoice(choice *types.ClaudeToolChoice, req *types.ClaudeMessagesRequest) *types.ClaudeToolChoice {
	for _, a := range ra.adapters {
		choice = a.AdaptToolChoice(choice, req)
	}
	return choice
}

func (ra *RequestAdapter) AdaptTemperature(t *float64, req *types.ClaudeMessagesRequest) *float64 {
	for _, a := range ra.adapters {
		t = a.AdaptTemperature(t, req)
	}
	return t
}

func (ra *RequestAdapter) AdaptTopP(p *float64, req *types.ClaudeMessagesRequest) *float64 {
	for _, a := range ra.adapters {
		p = a.AdaptTopP(p, req)
	}
	return p
}

// AdaptMaxTokens short-circuits on the first adapter that returns nil,
// mirroring the original's try_fold: any adapter forcing the field to
// "unset" (the OpenAI reasoning-model quirk) wins over later adapters.
func (ra *RequestAdapter) AdaptMaxTokens(claudeMaxTokens int, req *types.ClaudeMessagesRequest) *int {
	acc := &claudeMaxTokens
	for _, a := range ra.adapters {
		if acc == nil {
			return nil
		}
		acc = a.AdaptMaxTokens(*acc, req)
	}
	return acc
}

// AdaptMaxCompletionTokens is first-present: the first adapter to return a
// non-nil value wins and later adapters are not consulted, unlike every other
// hook, which threads its value through all adapters.
func (ra *RequestAdapter) AdaptMaxCompletionTokens(claudeMaxTokens int, req *types.ClaudeMessagesRequest) *int {
	for _, a := range ra.adapters {
		if v := a.AdaptMaxCompletionTokens(claudeMaxTokens, req); v != nil {
			return v
		}
	}
	return nil
}

func (ra *RequestAdapter) AdaptToolResult(toolName, result string, req *types.ClaudeMessagesRequest) string {
	for _, a := range ra.adapters {
		result = a.AdaptToolResult(toolName, result, req)
	}
	return result
}

func (ra *RequestAdapter) AdaptToolSchema(schema json.RawMessage, req *types.ClaudeMessagesRequest) json.RawMessage {
	for _, a := range ra.adapters {
		schema = a.AdaptToolSchema(schema, req)
	}
	return schema
}

func (ra *RequestAdapter) AdaptToolDescription(description string, req *types.ClaudeMessagesRequest) string {
	for _, a := range ra.adapters {
		description = a.AdaptToolDescription(description, req)
	}
	return description
}

func (ra *RequestAdapter) AdaptMessages(messages []types.OpenAIMessage, req *types.ClaudeMessagesRequest) []types.OpenAIMessage {
	for _, a := range ra.adapters {
		messages = a.AdaptMessages(messages, req)
	}
	return messages
}

func (ra *RequestAdapter) AdaptNonStreamResponse(response map[string]any, req *types.ClaudeMessagesRequest) map[string]any {
	for _, a := range ra.adapters {
		response = a.AdaptNonStreamResponse(response, req)
	}
	return response
}

func (ra *RequestAdapter) AdaptChunkStream(chunks <-chan streamstate.ChunkResult, req *types.ClaudeMessagesRequest) <-chan streamstate.ChunkResult {
	for _, a := range ra.adapters {
		chunks = a.AdaptChunkStream(chunks, req)
	}
	return chunks
}

// EndpointSuffix returns the active API adapter's upstream path suffix, or
// the default Chat Completions suffix when none is active.
func (ra *RequestAdapter) EndpointSuffix() string {
	if ra.api != nil {
		return ra.api.EndpointSuffix()
	}
	return "/chat/completions"
}

// BuildRequestBody returns the wire body to post upstream: the API
// adapter's own framing when active, otherwise the OpenAI request as-is.
func (ra *RequestAdapter) BuildRequestBody(openaiRequest *types.OpenAIRequest, claudeRequest *types.ClaudeMessagesRequest) any {
	if ra.api != nil {
		return ra.api.BuildBody(openaiRequest, claudeRequest)
	}
	return openaiRequest
}

// NormalizeNonStreamJSON reshapes an API adapter's native response body back
// into Chat-Completions shape before the rest of the pipeline (which only
// knows that shape) runs over it.
func (ra *RequestAdapter) NormalizeNonStreamJSON(body map[string]any, req *types.ClaudeMessagesRequest) map[string]any {
	if ra.api != nil {
		return ra.api.NormalizeNonStreamJSON(body, req)
	}
	return body
}

// BuildChunkStream decodes the raw upstream SSE byte stream into
// OpenAIStreamChunk results, routing through the API adapter's own decoder
// when one is active.
func (ra *RequestAdapter) BuildChunkStream(sse <-chan []byte, req *types.ClaudeMessagesRequest) <-chan streamstate.ChunkResult {
	var chunks <-chan streamstate.ChunkResult
	if ra.api != nil {
		chunks = ra.api.ChunkStream(sse, req)
	} else {
		chunks = decodeOpenAISSE(sse)
	}
	return ra.AdaptChunkStream(chunks, req)
}
