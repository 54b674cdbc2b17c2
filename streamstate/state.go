// Package streamstate implements the state machine that turns a flat stream
// of OpenAI chat-completion chunks into a well-formed Anthropic Messages SSE
// event sequence: matched content_block_start/stop pairs, strictly
// increasing block indices, and a single terminal message_delta/message_stop
// pair with the correct stop_reason.
package streamstate

import (
	"github.com/google/uuid"

	"messagebridge/thinktag"
	"messagebridge/types"
)

// ActiveStateKind names which phase the machine is in for the current
// choice index. Idle admits any next phase; Tool is absorbing once entered
// (see handleTool) — a model cannot "leave" tool-call phase back into text
// mid-turn without a fresh content block in a later turn.
type ActiveStateKind int

const (
	StateIdle ActiveStateKind = iota
	StateThinking
	StateText
	StateTool
)

// ActiveState is the machine's current phase, carrying the open content
// block index for Thinking/Text (Tool and Idle have none of their own —
// Tool's open block, if any, lives on the active ToolCallState instead).
type ActiveState struct {
	Kind         ActiveStateKind
	ContentIndex int
	ViaThinkTag  bool
}

// contentIndex returns the open content-block index for Thinking/Text
// states, or ok=false otherwise.
func (s ActiveState) contentIndex() (int, bool) {
	if s.Kind == StateThinking || s.Kind == StateText {
		return s.ContentIndex, true
	}
	return 0, false
}

// ToolCallState accumulates one upstream tool-call index's fragments until
// its name and arguments are fully assembled.
type ToolCallState struct {
	ID           *string
	Name         *string
	Arguments    string
	ContentIndex *int
}

// StreamState is the full mutable state of one streaming translation. It is
// owned by exactly one goroutine for the life of a request — the cooperative
// single-owner model the rest of the proxy follows means no locking is
// needed here.
type StreamState struct {
	Model            string
	MessageID        string
	State            ActiveState
	NextContentIndex int
	UsageData        types.MessageDeltaUsage
	ToolCalls        map[int]*ToolCallState
	ToolIndex        *int
	FinishReason     *string
	ThinkParser      *thinktag.Parser
}

// New creates a StreamState for a fresh translation, with a collision
// resistant message id in the conventional msg_ namespace.
func New(model string) *StreamState {
	return &StreamState{
		Model:       model,
		MessageID:   "msg_" + uuid.NewString(),
		ToolCalls:   make(map[int]*ToolCallState),
		ThinkParser: thinktag.New(),
	}
}

// NextStateKind classifies what a choice's delta implies the machine should
// do next, independent of which phase it's currently in.
type NextStateKind int

const (
	NextIdle NextStateKind = iota
	NextTool
	NextFinish
	NextThink
	NextText
)

// NextState is the decision produced by the decide* helpers below.
type NextState struct {
	Kind         NextStateKind
	ToolCalls    []types.OpenAIStreamToolCall
	FinishReason string
	ViaThinkTag  bool
}

// decideNextState is used from Idle: tool calls and finish take priority
// over content, a <think>/<cot> open tag wins over a dedicated reasoning
// field, which wins over plain text.
func decideNextState(choice types.OpenAIStreamChoice, parser *thinktag.Parser) NextState {
	if choice.Delta.ToolCalls != nil {
		return NextState{Kind: NextTool, ToolCalls: choice.Delta.ToolCalls}
	}
	if choice.FinishReason != nil {
		return NextState{Kind: NextFinish, FinishReason: *choice.FinishReason}
	}
	if choice.Delta.HasThinkTag() && parser.IsThinkingAllowed() {
		return NextState{Kind: NextThink, ViaThinkTag: true}
	}
	if choice.Delta.GetReasoning() != nil {
		return NextState{Kind: NextThink, ViaThinkTag: false}
	}
	if choice.Delta.Content != nil && *choice.Delta.Content != "" {
		return NextState{Kind: NextText}
	}
	return NextState{Kind: NextIdle}
}

// decideAfterTool is used from Tool: finish takes priority over further
// tool-call fragments; anything else is dropped (see handleTool).
func decideAfterTool(choice types.OpenAIStreamChoice) NextState {
	if choice.FinishReason != nil {
		return NextState{Kind: NextFinish, FinishReason: *choice.FinishReason}
	}
	if choice.Delta.ToolCalls != nil {
		return NextState{Kind: NextTool, ToolCalls: choice.Delta.ToolCalls}
	}
	return NextState{Kind: NextIdle}
}

// decideAfterReasoning is used inside a reasoning-field think block: unlike
// decideNextState it cannot re-enter Think via a <think> tag, only continue
// reasoning via Delta.GetReasoning.
func decideAfterReasoning(choice types.OpenAIStreamChoice) NextState {
	if choice.Delta.ToolCalls != nil {
		return NextState{Kind: NextTool, ToolCalls: choice.Delta.ToolCalls}
	}
	if choice.FinishReason != nil {
		return NextState{Kind: NextFinish, FinishReason: *choice.FinishReason}
	}
	if choice.Delta.Content != nil && *choice.Delta.Content != "" {
		return NextState{Kind: NextText}
	}
	if choice.Delta.GetReasoning() != nil {
		return NextState{Kind: NextThink, ViaThinkTag: false}
	}
	return NextState{Kind: NextIdle}
}

// decideAfterText is used from Text. It never yields NextThink; a think tag
// inside text content is handled by handleText before this decision runs.
func decideAfterText(choice types.OpenAIStreamChoice) NextState {
	if choice.Delta.ToolCalls != nil {
		return NextState{Kind: NextTool, ToolCalls: choice.Delta.ToolCalls}
	}
	if choice.FinishReason != nil {
		return NextState{Kind: NextFinish, FinishReason: *choice.FinishReason}
	}
	if choice.Delta.Content != nil && *choice.Delta.Content != "" {
		return NextState{Kind: NextText}
	}
	return NextState{Kind: NextIdle}
}
