package streamstate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messagebridge/types"
)

func strp(s string) *string { return &s }

func chunkWithDelta(delta types.OpenAIDelta, finish *string) types.OpenAIStreamChunk {
	return types.OpenAIStreamChunk{
		Choices: []types.OpenAIStreamChoice{{Index: 0, Delta: delta, FinishReason: finish}},
	}
}

func drain(t *testing.T, out <-chan EventResult, timeout time.Duration) []EventResult {
	t.Helper()
	var results []EventResult
	deadline := time.After(timeout)
	for {
		select {
		case r, ok := <-out:
			if !ok {
				return results
			}
			results = append(results, r)
		case <-deadline:
			t.Fatal("timed out waiting for events")
		}
	}
}

func eventTypes(results []EventResult) []string {
	var kinds []string
	for _, r := range results {
		if r.Err == nil {
			kinds = append(kinds, r.Event.EventType)
		}
	}
	return kinds
}

func TestChunksToEventsPlainTextRoundTrip(t *testing.T) {
	chunks := make(chan ChunkResult, 4)
	chunks <- ChunkResult{Chunk: ptrChunk(chunkWithDelta(types.OpenAIDelta{Content: strp("Hello")}, nil))}
	chunks <- ChunkResult{Chunk: ptrChunk(chunkWithDelta(types.OpenAIDelta{Content: strp(" world")}, nil))}
	chunks <- ChunkResult{Chunk: ptrChunk(chunkWithDelta(types.OpenAIDelta{}, strp("stop")))}
	close(chunks)

	out := ChunksToEvents("gpt-4o", chunks, time.Second)
	results := drain(t, out, 2*time.Second)

	got := eventTypes(results)
	assert.Equal(t, []string{
		"message_start",
		"content_block_start",
		"content_block_delta",
		"content_block_delta",
		"content_block_stop",
		"message_delta",
		"message_stop",
	}, got)
}

func TestChunksToEventsToolUseOverridesStopReason(t *testing.T) {
	name := "get_weather"
	args := `{"city":"nyc"}`
	id := "call_1"
	chunks := make(chan ChunkResult, 4)
	chunks <- ChunkResult{Chunk: ptrChunk(chunkWithDelta(types.OpenAIDelta{
		ToolCalls: []types.OpenAIStreamToolCall{{Index: 0, ID: &id, Function: &types.OpenAIStreamFunction{Name: &name}}},
	}, nil))}
	chunks <- ChunkResult{Chunk: ptrChunk(chunkWithDelta(types.OpenAIDelta{
		ToolCalls: []types.OpenAIStreamToolCall{{Index: 0, Function: &types.OpenAIStreamFunction{Arguments: &args}}},
	}, nil))}
	chunks <- ChunkResult{Chunk: ptrChunk(chunkWithDelta(types.OpenAIDelta{}, strp("stop")))}
	close(chunks)

	out := ChunksToEvents("gpt-4o", chunks, time.Second)
	results := drain(t, out, 2*time.Second)

	var messageDelta *types.MessageDeltaEvent
	for _, r := range results {
		if r.Event.EventType == "message_delta" {
			messageDelta = r.Event.MessageDelta
		}
	}
	require.NotNil(t, messageDelta)
	assert.Equal(t, "tool_use", messageDelta.Delta.StopReason)
}

func TestChunksToEventsIdleTimeoutEmitsErrorThenFinalizes(t *testing.T) {
	chunks := make(chan ChunkResult)
	out := ChunksToEvents("gpt-4o", chunks, 20*time.Millisecond)
	results := drain(t, out, time.Second)

	var sawErr bool
	var sawStop bool
	for _, r := range results {
		if r.Err == ErrIdleTimeout {
			sawErr = true
		}
		if r.Err == nil && r.Event.EventType == "message_stop" {
			sawStop = true
		}
	}
	assert.True(t, sawErr)
	assert.True(t, sawStop)
}

func TestProcessChoiceMatchesContentBlockStartAndStop(t *testing.T) {
	state := New("gpt-4o")
	var starts, stops int
	for _, e := range state.ProcessChoice(types.OpenAIStreamChoice{Delta: types.OpenAIDelta{Content: strp("hi")}}) {
		if e.EventType == "content_block_start" {
			starts++
		}
	}
	for _, e := range state.ProcessChoice(types.OpenAIStreamChoice{FinishReason: strp("stop")}) {
		_ = e
	}
	for _, e := range EmitFinalEvents(state.State, state, "stop") {
		if e.EventType == "content_block_stop" {
			stops++
		}
	}
	assert.Equal(t, starts, stops)
}

func TestHandleToolStaysInToolStateAfterFinish(t *testing.T) {
	state := New("gpt-4o")
	state.State = ActiveState{Kind: StateTool}
	newState, _ := state.handleTool(types.OpenAIStreamChoice{FinishReason: strp("tool_calls")})
	assert.Equal(t, StateTool, newState.Kind)

	newState2, _ := state.handleTool(types.OpenAIStreamChoice{Delta: types.OpenAIDelta{Content: strp("narration")}})
	assert.Equal(t, StateTool, newState2.Kind)
}

func ptrChunk(c types.OpenAIStreamChunk) *types.OpenAIStreamChunk { return &c }
