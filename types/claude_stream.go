package types

import "encoding/json"

// AnthropicStreamEvent is the tagged union of SSE event payloads a Claude
// client expects on the wire. EventType selects which of the pointer fields
// is populated; ToParts renders the (event, data) pair for the SSE writer.
type AnthropicStreamEvent struct {
	EventType          string
	MessageStart       *MessageStartEvent
	ContentBlockStart  *ContentBlockStartEvent
	ContentBlockDelta  *ContentBlockDeltaEvent
	ContentBlockStop   *ContentBlockStopEvent
	MessageDelta       *MessageDeltaEvent
	MessageStop        *MessageStopEvent
}

// ToParts renders the event name and its JSON-serializable payload.
func (e AnthropicStreamEvent) ToParts() (string, any) {
	switch e.EventType {
	case "message_start":
		return e.EventType, e.MessageStart
	case "content_block_start":
		return e.EventType, e.ContentBlockStart
	case "content_block_delta":
		return e.EventType, e.ContentBlockDelta
	case "content_block_stop":
		return e.EventType, e.ContentBlockStop
	case "message_delta":
		return e.EventType, e.MessageDelta
	case "message_stop":
		return e.EventType, e.MessageStop
	default:
		return e.EventType, struct{}{}
	}
}

// MessageStartEvent opens a streamed message.
type MessageStartEvent struct {
	Type    string               `json:"type"`
	Message ClaudeStreamMessage  `json:"message"`
}

// ClaudeStreamMessage is the message envelope carried by message_start.
type ClaudeStreamMessage struct {
	ID           string              `json:"id"`
	Type         string              `json:"type"`
	Role         string              `json:"role"`
	Content      []json.RawMessage   `json:"content"`
	Model        string              `json:"model"`
	StopReason   *string             `json:"stop_reason"`
	StopSequence *string             `json:"stop_sequence"`
	Usage        ClaudeStreamUsage   `json:"usage"`
}

// ClaudeStreamUsage is the running usage total reported at message_start.
type ClaudeStreamUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ContentBlockStartEvent opens a new content block at Index.
type ContentBlockStartEvent struct {
	Type         string       `json:"type"`
	Index        int          `json:"index"`
	ContentBlock ContentBlock `json:"content_block"`
}

// ContentBlock is the block announced by content_block_start. Exactly one of
// Text/ToolUse/Thinking is populated, per Type.
type ContentBlock struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// thinking
	Thinking string `json:"thinking,omitempty"`
}

// ContentBlockDeltaEvent carries an incremental update to block Index.
type ContentBlockDeltaEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
	Delta Delta  `json:"delta"`
}

// Delta is the tagged union of incremental content updates.
type Delta struct {
	Type string `json:"type"`

	Text        string `json:"text,omitempty"`
	Thinking    string `json:"thinking,omitempty"`
	Signature   string `json:"signature,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
}

// ContentBlockStopEvent closes the block at Index.
type ContentBlockStopEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// MessageDeltaInfo carries the terminal stop reason and usage delta.
type MessageDeltaInfo struct {
	StopReason   string  `json:"stop_reason"`
	StopSequence *string `json:"stop_sequence"`
}

// MessageDeltaEvent is emitted once, just before message_stop.
type MessageDeltaEvent struct {
	Type  string             `json:"type"`
	Delta MessageDeltaInfo   `json:"delta"`
	Usage MessageDeltaUsage  `json:"usage"`
}

// MessageStopEvent terminates the stream.
type MessageStopEvent struct {
	Type string `json:"type"`
}

// MessageDeltaUsage is the cumulative usage reported on message_delta.
type MessageDeltaUsage struct {
	InputTokens         int  `json:"input_tokens"`
	OutputTokens        int  `json:"output_tokens"`
	CacheReadInputTokens *int `json:"cache_read_input_tokens,omitempty"`
}
