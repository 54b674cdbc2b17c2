package streamstate

import (
	"strings"

	"messagebridge/types"
)

// ProcessChoice advances the machine by one upstream delta and returns the
// Anthropic events it produces. Outside of Tool state, the delta's content is
// first run through the think-tag scanner so a <think>/<cot> split across
// chunk boundaries never leaks to the client.
func (s *StreamState) ProcessChoice(choice types.OpenAIStreamChoice) []types.AnthropicStreamEvent {
	prepared := choice
	if s.State.Kind != StateTool {
		if choice.Delta.Content != nil {
			cleaned := s.ThinkParser.Preprocess(*choice.Delta.Content)
			prepared.Delta.Content = &cleaned
		}
	}

	current := s.State
	s.State = ActiveState{}
	newState, events := s.transition(current, prepared)
	s.State = newState
	return events
}

func (s *StreamState) transition(current ActiveState, choice types.OpenAIStreamChoice) (ActiveState, []types.AnthropicStreamEvent) {
	switch current.Kind {
	case StateThinking:
		if current.ViaThinkTag {
			return s.handleThinking(choice, current.ContentIndex)
		}
		return s.handleReasoning(choice, current.ContentIndex)
	case StateText:
		return s.handleText(choice, current.ContentIndex)
	case StateTool:
		return s.handleTool(choice)
	default:
		return s.handleIdle(choice)
	}
}

func (s *StreamState) handleIdle(choice types.OpenAIStreamChoice) (ActiveState, []types.AnthropicStreamEvent) {
	next := decideNextState(choice, s.ThinkParser)
	switch next.Kind {
	case NextTool:
		return ActiveState{Kind: StateTool}, s.handleToolCallsDelta(next.ToolCalls)
	case NextFinish:
		s.FinishReason = stringPtrLocal(next.FinishReason)
		return ActiveState{Kind: StateIdle}, nil
	case NextThink:
		return s.startThinking(choice, next.ViaThinkTag)
	case NextText:
		index := s.NextContentIndex
		_, events := s.startText(index)
		nextState, moreEvents := s.handleText(choice, index)
		return nextState, append(events, moreEvents...)
	default:
		return ActiveState{Kind: StateIdle}, nil
	}
}

func (s *StreamState) startThinking(choice types.OpenAIStreamChoice, viaThinkTag bool) (ActiveState, []types.AnthropicStreamEvent) {
	index := s.NextContentIndex
	s.NextContentIndex++
	events := []types.AnthropicStreamEvent{contentBlockStart(index, types.ContentBlock{Type: "thinking", Thinking: ""})}

	if viaThinkTag {
		content := ""
		if choice.Delta.Content != nil {
			content = *choice.Delta.Content
		}
		cleaned := s.ThinkParser.CleanBefore(content)
		choice.Delta.Content = &cleaned
		newState, more := s.handleThinking(choice, index)
		return newState, append(events, more...)
	}

	s.ThinkParser.OnReasoningMode()
	newState, more := s.handleReasoning(choice, index)
	return newState, append(events, more...)
}

func (s *StreamState) handleThinking(choice types.OpenAIStreamChoice, contentIndex int) (ActiveState, []types.AnthropicStreamEvent) {
	if choice.Delta.ToolCalls != nil {
		events := []types.AnthropicStreamEvent{contentBlockStop(contentIndex)}
		events = append(events, s.handleToolCallsDelta(choice.Delta.ToolCalls)...)
		return ActiveState{Kind: StateTool}, events
	}

	content := ""
	if choice.Delta.Content != nil {
		content = *choice.Delta.Content
	}

	if choice.Delta.HasThinkEndTag() {
		if pos := firstEndTagPos(content); pos >= 0 {
			var events []types.AnthropicStreamEvent
			before := content[:pos]
			if before != "" {
				events = append(events, contentBlockDelta(contentIndex, types.Delta{Type: "thinking_delta", Thinking: before}))
			}
			events = append(events, contentBlockStop(contentIndex))

			remaining := s.ThinkParser.CleanAfter(content[pos:])
			s.ThinkParser.OnThinkEnd()

			if remaining != "" {
				remainingChoice := choice
				remainingChoice.Delta.Content = &remaining
				newState, more := s.handleIdle(remainingChoice)
				return newState, append(events, more...)
			}
			return ActiveState{Kind: StateIdle}, events
		}
	}

	if content == "" {
		return ActiveState{Kind: StateThinking, ContentIndex: contentIndex, ViaThinkTag: true}, nil
	}
	events := []types.AnthropicStreamEvent{contentBlockDelta(contentIndex, types.Delta{Type: "thinking_delta", Thinking: content})}
	return ActiveState{Kind: StateThinking, ContentIndex: contentIndex, ViaThinkTag: true}, events
}

func (s *StreamState) handleReasoning(choice types.OpenAIStreamChoice, contentIndex int) (ActiveState, []types.AnthropicStreamEvent) {
	next := decideAfterReasoning(choice)
	switch next.Kind {
	case NextTool:
		events := []types.AnthropicStreamEvent{contentBlockStop(contentIndex)}
		events = append(events, s.handleToolCallsDelta(next.ToolCalls)...)
		return ActiveState{Kind: StateTool}, events
	case NextFinish:
		s.FinishReason = stringPtrLocal(next.FinishReason)
		return ActiveState{Kind: StateThinking, ContentIndex: contentIndex, ViaThinkTag: false}, nil
	case NextText:
		events := []types.AnthropicStreamEvent{contentBlockStop(contentIndex)}
		newIndex := s.NextContentIndex
		_, startEvents := s.startText(newIndex)
		events = append(events, startEvents...)
		newState, more := s.handleText(choice, newIndex)
		return newState, append(events, more...)
	case NextThink:
		if reasoning := choice.Delta.GetReasoning(); reasoning != nil {
			events := []types.AnthropicStreamEvent{contentBlockDelta(contentIndex, types.Delta{Type: "thinking_delta", Thinking: *reasoning})}
			return ActiveState{Kind: StateThinking, ContentIndex: contentIndex, ViaThinkTag: false}, events
		}
		return ActiveState{Kind: StateThinking, ContentIndex: contentIndex, ViaThinkTag: false}, nil
	default:
		return ActiveState{Kind: StateThinking, ContentIndex: contentIndex, ViaThinkTag: false}, nil
	}
}

func (s *StreamState) startText(index int) (ActiveState, []types.AnthropicStreamEvent) {
	s.NextContentIndex = index + 1
	return ActiveState{Kind: StateText, ContentIndex: index},
		[]types.AnthropicStreamEvent{contentBlockStart(index, types.ContentBlock{Type: "text", Text: ""})}
}

func (s *StreamState) handleText(choice types.OpenAIStreamChoice, contentIndex int) (ActiveState, []types.AnthropicStreamEvent) {
	content := ""
	if choice.Delta.Content != nil {
		content = *choice.Delta.Content
	}

	if s.ThinkParser.IsThinkingAllowed() && choice.Delta.HasThinkTag() {
		if pos := firstStartTagPos(content); pos >= 0 {
			var events []types.AnthropicStreamEvent
			before := content[:pos]
			if before != "" {
				events = append(events, contentBlockDelta(contentIndex, types.Delta{Type: "text_delta", Text: before}))
			}
			// The opener stays on the tail so handleIdle recognizes it and
			// opens the thinking block; startThinking strips it.
			remaining := content[pos:]
			events = append(events, contentBlockStop(contentIndex))

			remainingChoice := choice
			remainingChoice.Delta.Content = &remaining
			newState, more := s.handleIdle(remainingChoice)
			return newState, append(events, more...)
		}
	}

	next := decideAfterText(choice)
	switch next.Kind {
	case NextTool:
		events := []types.AnthropicStreamEvent{contentBlockStop(contentIndex)}
		events = append(events, s.handleToolCallsDelta(next.ToolCalls)...)
		return ActiveState{Kind: StateTool}, events
	case NextFinish:
		s.FinishReason = stringPtrLocal(next.FinishReason)
		return ActiveState{Kind: StateText, ContentIndex: contentIndex}, nil
	case NextText:
		events := []types.AnthropicStreamEvent{contentBlockDelta(contentIndex, types.Delta{Type: "text_delta", Text: content})}
		return ActiveState{Kind: StateText, ContentIndex: contentIndex}, events
	default:
		return ActiveState{Kind: StateText, ContentIndex: contentIndex}, nil
	}
}

// handleTool is the machine's absorbing state: every branch returns Tool.
// Text or reasoning fragments arriving after a tool call has started are
// dropped rather than surfaced, since a model emitting them here is
// hallucinating narration around a call the client hasn't executed yet.
func (s *StreamState) handleTool(choice types.OpenAIStreamChoice) (ActiveState, []types.AnthropicStreamEvent) {
	next := decideAfterTool(choice)
	switch next.Kind {
	case NextFinish:
		s.FinishReason = stringPtrLocal(next.FinishReason)
		var events []types.AnthropicStreamEvent
		if s.ToolIndex != nil {
			if tc, ok := s.ToolCalls[*s.ToolIndex]; ok && tc.ContentIndex != nil {
				idx := *tc.ContentIndex
				tc.ContentIndex = nil
				events = append(events, contentBlockStop(idx))
			}
			s.ToolIndex = nil
		}
		return ActiveState{Kind: StateTool}, events
	case NextTool:
		return ActiveState{Kind: StateTool}, s.handleToolCallsDelta(next.ToolCalls)
	default:
		return ActiveState{Kind: StateTool}, nil
	}
}

func (s *StreamState) handleToolCallsDelta(deltas []types.OpenAIStreamToolCall) []types.AnthropicStreamEvent {
	var events []types.AnthropicStreamEvent
	for _, d := range deltas {
		events = append(events, s.processToolCallDelta(d)...)
	}
	return events
}

func (s *StreamState) processToolCallDelta(toolCall types.OpenAIStreamToolCall) []types.AnthropicStreamEvent {
	var events []types.AnthropicStreamEvent

	hasFunctionName := toolCall.Function != nil && toolCall.Function.Name != nil
	existing, hadEntry := s.ToolCalls[toolCall.Index]
	entryHasName := hadEntry && existing.Name != nil
	startsNewToolUse := hasFunctionName && !entryHasName

	if startsNewToolUse {
		if s.ToolIndex != nil && *s.ToolIndex != toolCall.Index {
			if oldEntry, ok := s.ToolCalls[*s.ToolIndex]; ok && oldEntry.ContentIndex != nil {
				events = append(events, contentBlockStop(*oldEntry.ContentIndex))
			}
		}
		idx := toolCall.Index
		s.ToolIndex = &idx
	}

	entry, ok := s.ToolCalls[toolCall.Index]
	if !ok {
		entry = &ToolCallState{}
		s.ToolCalls[toolCall.Index] = entry
	}

	if toolCall.ID != nil {
		entry.ID = toolCall.ID
	}

	if toolCall.Function != nil {
		if toolCall.Function.Name != nil && entry.Name == nil {
			name := *toolCall.Function.Name
			entry.Name = &name
			contentIndex := s.NextContentIndex
			s.NextContentIndex++
			entry.ContentIndex = &contentIndex

			toolUseID := ""
			if entry.ID != nil {
				toolUseID = *entry.ID
			} else {
				toolUseID = generateUniqueID("call", toolCall.Index)
			}
			events = append(events, contentBlockStart(contentIndex, types.ContentBlock{
				Type:  "tool_use",
				ID:    toolUseID,
				Name:  name,
				Input: []byte("{}"),
			}))
		}

		if toolCall.Function.Arguments != nil && *toolCall.Function.Arguments != "" {
			entry.Arguments += *toolCall.Function.Arguments
			if entry.ContentIndex != nil {
				events = append(events, contentBlockDelta(*entry.ContentIndex, types.Delta{
					Type:        "input_json_delta",
					PartialJSON: *toolCall.Function.Arguments,
				}))
			}
		}
	}

	return events
}

func firstStartTagPos(content string) int {
	return firstOf(content, "<think>", "<cot>")
}

func firstEndTagPos(content string) int {
	return firstOf(content, "</think>", "</cot>", "<end_cot>")
}

func firstOf(content string, tags ...string) int {
	best := -1
	for _, tag := range tags {
		if idx := strings.Index(content, tag); idx >= 0 && (best < 0 || idx < best) {
			best = idx
		}
	}
	return best
}

func stringPtrLocal(s string) *string { return &s }
