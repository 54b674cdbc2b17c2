// Package types holds the wire data model for both sides of the proxy: the
// Anthropic Messages API (Claude*) and the OpenAI Chat Completions / Responses
// API (OpenAI*), plus the shared streaming primitives that bridge them.
package types

import "encoding/json"

// ClaudeTool is a single tool definition as sent by a Messages API client.
type ClaudeTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// ClaudeContent is the heterogeneous content container Claude accepts for a
// message or system prompt: either a plain string or an array of typed
// blocks. Exactly one of Text/Blocks is meaningful, selected by IsArray.
type ClaudeContent struct {
	IsArray bool
	Text    string
	Blocks  []ClaudeContentBlock
}

// MarshalJSON emits the canonical form: a bare string when IsArray is false,
// otherwise a JSON array of blocks.
func (c ClaudeContent) MarshalJSON() ([]byte, error) {
	if c.IsArray {
		return json.Marshal(c.Blocks)
	}
	return json.Marshal(c.Text)
}

// UnmarshalJSON accepts either representation.
func (c *ClaudeContent) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		c.IsArray = false
		c.Text = text
		return nil
	}
	var blocks []ClaudeContentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return err
	}
	c.IsArray = true
	c.Blocks = blocks
	return nil
}

// NewClaudeText builds a plain-string ClaudeContent.
func NewClaudeText(text string) ClaudeContent {
	return ClaudeContent{Text: text}
}

// ImageSource describes an inline base64 image attached to a content block.
type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// ClaudeContentBlock is one element of an array-form ClaudeContent: text,
// image, tool_use, or tool_result, distinguished by Type.
type ClaudeContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Thinking  string          `json:"thinking,omitempty"`
	Source    *ImageSource    `json:"source,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

// ClaudeMessage is one turn of the conversation.
type ClaudeMessage struct {
	Role    string        `json:"role"`
	Content ClaudeContent `json:"content"`
}

// ClaudeToolChoice steers tool selection: "auto", "any", "none", or a
// specific tool by Name.
type ClaudeToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// ClaudeThinking requests extended reasoning with a token budget.
type ClaudeThinking struct {
	Type         string `json:"type"`
	BudgetTokens *int   `json:"budget_tokens,omitempty"`
}

// ClaudeMessagesRequest is the body of POST /v1/messages.
type ClaudeMessagesRequest struct {
	Model         string            `json:"model"`
	Messages      []ClaudeMessage   `json:"messages"`
	System        *ClaudeContent    `json:"system,omitempty"`
	MaxTokens     int               `json:"max_tokens"`
	StopSequences []string          `json:"stop_sequences,omitempty"`
	Stream        bool              `json:"stream,omitempty"`
	Temperature   *float64          `json:"temperature,omitempty"`
	TopP          *float64          `json:"top_p,omitempty"`
	TopK          *int              `json:"top_k,omitempty"`
	Tools         []ClaudeTool      `json:"tools,omitempty"`
	ToolChoice    *ClaudeToolChoice `json:"tool_choice,omitempty"`
	Thinking      *ClaudeThinking   `json:"thinking,omitempty"`
}

// FindToolNameByID walks assistant messages in reverse looking for the
// tool_use block that produced tool_use_id, so a tool_result can be matched
// back to the tool name that issued it.
func (r *ClaudeMessagesRequest) FindToolNameByID(toolUseID string) (string, bool) {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		msg := r.Messages[i]
		if msg.Role != "assistant" || !msg.Content.IsArray {
			continue
		}
		for _, block := range msg.Content.Blocks {
			if block.Type == "tool_use" && block.ID == toolUseID {
				return block.Name, true
			}
		}
	}
	return "", false
}

// AnthropicResponse is the body of a non-streaming POST /v1/messages reply.
type AnthropicResponse struct {
	ID           string                 `json:"id"`
	Type         string                 `json:"type"`
	Role         string                 `json:"role"`
	Model        string                 `json:"model"`
	Content      []ClaudeContentBlock   `json:"content"`
	StopReason   string                 `json:"stop_reason"`
	StopSequence *string                `json:"stop_sequence"`
	Usage        AnthropicResponseUsage `json:"usage"`
}

// AnthropicResponseUsage reports token accounting on a non-streaming reply.
type AnthropicResponseUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// StopReasonForFinish maps an OpenAI finish_reason to an Anthropic
// stop_reason. Unknown or absent finish reasons default to "end_turn".
func StopReasonForFinish(finishReason string) string {
	switch finishReason {
	case "length":
		return "max_tokens"
	case "tool_calls":
		return "tool_use"
	case "content_filter":
		return "stop_sequence"
	default:
		return "end_turn"
	}
}
