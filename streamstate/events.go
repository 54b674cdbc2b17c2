package streamstate

import (
	"encoding/json"

	"messagebridge/types"
)

func event(eventType string) types.AnthropicStreamEvent {
	return types.AnthropicStreamEvent{EventType: eventType}
}

func messageStartEvent(s *StreamState) types.AnthropicStreamEvent {
	e := event("message_start")
	e.MessageStart = &types.MessageStartEvent{
		Type: "message_start",
		Message: types.ClaudeStreamMessage{
			ID:      s.MessageID,
			Type:    "message",
			Role:    "assistant",
			Content: []json.RawMessage{},
			Model:   s.Model,
			Usage:   types.ClaudeStreamUsage{},
		},
	}
	return e
}

func contentBlockStart(index int, block types.ContentBlock) types.AnthropicStreamEvent {
	e := event("content_block_start")
	e.ContentBlockStart = &types.ContentBlockStartEvent{Type: "content_block_start", Index: index, ContentBlock: block}
	return e
}

func contentBlockDelta(index int, delta types.Delta) types.AnthropicStreamEvent {
	e := event("content_block_delta")
	e.ContentBlockDelta = &types.ContentBlockDeltaEvent{Type: "content_block_delta", Index: index, Delta: delta}
	return e
}

func contentBlockStop(index int) types.AnthropicStreamEvent {
	e := event("content_block_stop")
	e.ContentBlockStop = &types.ContentBlockStopEvent{Type: "content_block_stop", Index: index}
	return e
}

func messageDeltaEvent(stopReason string, usage types.MessageDeltaUsage) types.AnthropicStreamEvent {
	e := event("message_delta")
	e.MessageDelta = &types.MessageDeltaEvent{
		Type:  "message_delta",
		Delta: types.MessageDeltaInfo{StopReason: stopReason},
		Usage: usage,
	}
	return e
}

func messageStopEvent() types.AnthropicStreamEvent {
	e := event("message_stop")
	e.MessageStop = &types.MessageStopEvent{Type: "message_stop"}
	return e
}

// EmitInitialEvents returns the single message_start event that opens every
// translated stream.
func EmitInitialEvents(s *StreamState) []types.AnthropicStreamEvent {
	return []types.AnthropicStreamEvent{messageStartEvent(s)}
}

// EmitFinalEvents closes out any still-open content block(s), computes the
// terminal stop_reason, and emits the message_delta/message_stop pair that
// must end every translated stream regardless of how it got there.
func EmitFinalEvents(last ActiveState, s *StreamState, finishReason string) []types.AnthropicStreamEvent {
	var events []types.AnthropicStreamEvent

	if idx, ok := last.contentIndex(); ok {
		events = append(events, contentBlockStop(idx))
	}
	if s.ToolIndex != nil {
		if tc, ok := s.ToolCalls[*s.ToolIndex]; ok && tc.ContentIndex != nil {
			events = append(events, contentBlockStop(*tc.ContentIndex))
		}
	}

	stopReason := types.StopReasonForFinish(finishReason)
	if len(s.ToolCalls) > 0 {
		// An upstream that emitted any tool_use block may still report a
		// plain finish reason (e.g. "stop") on the chunk that closes the
		// call; Anthropic clients key off stop_reason "tool_use" to decide
		// whether to keep driving the tool loop.
		stopReason = "tool_use"
	}

	events = append(events, messageDeltaEvent(stopReason, s.UsageData))
	events = append(events, messageStopEvent())
	return events
}

// UpdateUsageFromChunk records the latest upstream usage block (upstreams
// report cumulative counts) in MessageDeltaUsage. A chunk that carries no
// usage leaves the recorded values unchanged.
func UpdateUsageFromChunk(chunk types.OpenAIStreamChunk, s *StreamState) {
	if chunk.Usage.PromptTokens == 0 && chunk.Usage.CompletionTokens == 0 && chunk.Usage.PromptTokensDetails == nil {
		return
	}
	s.UsageData.InputTokens = chunk.Usage.PromptTokens
	s.UsageData.OutputTokens = chunk.Usage.CompletionTokens
	if chunk.Usage.PromptTokensDetails != nil && chunk.Usage.PromptTokensDetails.CachedTokens != nil {
		s.UsageData.CacheReadInputTokens = chunk.Usage.PromptTokensDetails.CachedTokens
	}
}
