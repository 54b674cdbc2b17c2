package types

import (
	"encoding/json"
	"strings"
)

// OpenAIContent mirrors ClaudeContent's string-or-array duality for a Chat
// Completions message body.
type OpenAIContent struct {
	IsArray bool
	Text    string
	Parts   []OpenAIContentPart
}

// MarshalJSON emits a bare string or an array, matching IsArray.
func (c OpenAIContent) MarshalJSON() ([]byte, error) {
	if c.IsArray {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

// UnmarshalJSON accepts either representation.
func (c *OpenAIContent) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		c.Text = text
		return nil
	}
	var parts []OpenAIContentPart
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	c.IsArray = true
	c.Parts = parts
	return nil
}

// NewOpenAIText builds a plain-string OpenAIContent.
func NewOpenAIText(text string) *OpenAIContent {
	return &OpenAIContent{Text: text}
}

// OpenAIContentPart is one element of a multimodal OpenAIContent array.
type OpenAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *OpenAIImageURL `json:"image_url,omitempty"`
}

// OpenAIImageURL wraps the data: or https: URL of an image part.
type OpenAIImageURL struct {
	URL string `json:"url"`
}

// OpenAIMessage is one entry of an OpenAIRequest's messages array.
type OpenAIMessage struct {
	Role             string           `json:"role"`
	Content          *OpenAIContent   `json:"content,omitempty"`
	ToolCalls        []OpenAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID       string           `json:"tool_call_id,omitempty"`
	ReasoningContent string           `json:"reasoning_content,omitempty"`
}

// OpenAIToolCall is a complete (non-streaming) tool invocation.
type OpenAIToolCall struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Function OpenAIFunction `json:"function"`
}

// OpenAIFunction carries the function name and JSON-encoded arguments.
type OpenAIFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// OpenAITool is a tool definition in the shape the Chat Completions API
// expects, wrapping an OpenAIToolFunction under type "function".
type OpenAITool struct {
	Type     string             `json:"type"`
	Function OpenAIToolFunction `json:"function"`
}

// OpenAIToolFunction is the function schema carried by OpenAITool.
type OpenAIToolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

// OpenAIToolChoice is either a bare string ("auto"/"none"/"required") or an
// object naming a specific function.
type OpenAIToolChoice struct {
	IsObject bool
	String   string
	Type     string
	Function OpenAIFunctionChoice
}

// MarshalJSON emits the bare-string or object form, matching IsObject.
func (c OpenAIToolChoice) MarshalJSON() ([]byte, error) {
	if !c.IsObject {
		return json.Marshal(c.String)
	}
	return json.Marshal(struct {
		Type     string               `json:"type"`
		Function OpenAIFunctionChoice `json:"function"`
	}{c.Type, c.Function})
}

// OpenAIFunctionChoice names a specific function for tool_choice.
type OpenAIFunctionChoice struct {
	Name string `json:"name"`
}

// StreamOptions requests usage accounting on the final stream chunk.
type StreamOptions struct {
	IncludeUsage *bool `json:"include_usage,omitempty"`
}

// OpenAIRequest is the body posted to the upstream Chat Completions endpoint.
type OpenAIRequest struct {
	Model               string            `json:"model"`
	Messages            []OpenAIMessage   `json:"messages"`
	MaxTokens           *int              `json:"max_tokens,omitempty"`
	MaxCompletionTokens *int              `json:"max_completion_tokens,omitempty"`
	Temperature         *float64          `json:"temperature,omitempty"`
	TopP                *float64          `json:"top_p,omitempty"`
	Stop                []string          `json:"stop,omitempty"`
	Stream              *bool             `json:"stream,omitempty"`
	Tools               []OpenAITool      `json:"tools,omitempty"`
	ToolChoice          *OpenAIToolChoice `json:"tool_choice,omitempty"`
	ReasoningEffort     string            `json:"reasoning_effort,omitempty"`
	StreamOptions       *StreamOptions    `json:"stream_options,omitempty"`
}

// OpenAIChoice is one completion choice in a non-streaming response.
type OpenAIChoice struct {
	Index        int           `json:"index"`
	Message      OpenAIMessage `json:"message"`
	FinishReason *string       `json:"finish_reason"`
}

// OpenAIResponse is a non-streaming Chat Completions reply.
type OpenAIResponse struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []OpenAIChoice `json:"choices"`
	Usage   OpenAIUsage    `json:"usage"`
}

// OpenAIStreamChunk is one `data:` line of an upstream SSE stream.
type OpenAIStreamChunk struct {
	ID      string                `json:"id"`
	Choices []OpenAIStreamChoice  `json:"choices"`
	Model   string                `json:"model"`
	Usage   OpenAIUsage           `json:"usage"`
}

// OpenAIStreamChoice is one choice's delta within a stream chunk.
type OpenAIStreamChoice struct {
	Index        int         `json:"index"`
	Delta        OpenAIDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason"`
}

// OpenAIDelta is the incremental content carried by a stream choice. At most
// one of Content/reasoning/ToolCalls is meaningful per chunk, though
// upstreams are not required to respect that.
type OpenAIDelta struct {
	Content          *string                `json:"content,omitempty"`
	ToolCalls        []OpenAIStreamToolCall `json:"tool_calls,omitempty"`
	ReasoningContent *string                `json:"reasoning_content,omitempty"`
	Reasoning        *string                `json:"reasoning,omitempty"`
}

// GetReasoning returns whichever of reasoning_content/reasoning upstream
// populated, preferring reasoning_content.
func (d OpenAIDelta) GetReasoning() *string {
	if d.ReasoningContent != nil {
		return d.ReasoningContent
	}
	return d.Reasoning
}

// HasThinkTag reports whether Content opens a <think> or <cot> block.
func (d OpenAIDelta) HasThinkTag() bool {
	if d.Content == nil {
		return false
	}
	return strings.Contains(*d.Content, "<think>") || strings.Contains(*d.Content, "<cot>")
}

// HasThinkEndTag reports whether Content closes a think/cot block.
func (d OpenAIDelta) HasThinkEndTag() bool {
	if d.Content == nil {
		return false
	}
	c := *d.Content
	return strings.Contains(c, "</think>") || strings.Contains(c, "</cot>") || strings.Contains(c, "<end_cot>")
}

// OpenAIStreamToolCall is a partial tool-call fragment within a delta,
// identified by a stable per-stream Index.
type OpenAIStreamToolCall struct {
	Index    int                   `json:"index"`
	ID       *string               `json:"id,omitempty"`
	Type     *string               `json:"type,omitempty"`
	Function *OpenAIStreamFunction `json:"function,omitempty"`
}

// OpenAIStreamFunction carries a fragment of a tool call's name/arguments.
type OpenAIStreamFunction struct {
	Name      *string `json:"name,omitempty"`
	Arguments *string `json:"arguments,omitempty"`
}

// OpenAIUsage is upstream token accounting, with optional cached-token detail.
type OpenAIUsage struct {
	PromptTokens        int                  `json:"prompt_tokens"`
	CompletionTokens    int                  `json:"completion_tokens"`
	PromptTokensDetails *PromptTokensDetails `json:"prompt_tokens_details,omitempty"`
}

// PromptTokensDetails breaks down cached-prompt token accounting.
type PromptTokensDetails struct {
	CachedTokens *int `json:"cached_tokens,omitempty"`
}
