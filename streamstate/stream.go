package streamstate

import (
	"errors"
	"time"

	"messagebridge/types"
)

// ErrIdleTimeout is surfaced as an explicit SSE error event when no upstream
// chunk arrives within the configured idle window, per the proxy's documented
// behavior of ending a stalled stream with an error rather than hanging the
// client indefinitely.
var ErrIdleTimeout = errors.New("upstream stream idle timeout")

// ChunkResult is one decoded upstream SSE data line, or a decode/transport
// error that should terminate the stream.
type ChunkResult struct {
	Chunk *types.OpenAIStreamChunk
	Err   error
}

// EventResult is one translated Anthropic SSE event, or a terminal error.
type EventResult struct {
	Event types.AnthropicStreamEvent
	Err   error
}

// ChunksToEvents drives the state machine over a channel of decoded upstream
// chunks and returns the channel of Anthropic events to write to the client.
// Idle gaps longer than idleTimeout end the stream with an explicit error
// event followed by a best-effort finalization so the client's SSE session
// still closes in a well-formed state instead of hanging.
func ChunksToEvents(model string, chunks <-chan ChunkResult, idleTimeout time.Duration) <-chan EventResult {
	out := make(chan EventResult)

	go func() {
		defer close(out)

		state := New(model)
		for _, e := range EmitInitialEvents(state) {
			out <- EventResult{Event: e}
		}

		var lastState ActiveState
		timer := time.NewTimer(idleTimeout)
		defer timer.Stop()

		for {
			select {
			case res, ok := <-chunks:
				if !ok {
					emitTerminal(out, lastState, state, "stop_sequence")
					return
				}
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(idleTimeout)

				if res.Err != nil {
					out <- EventResult{Err: res.Err}
					return
				}

				UpdateUsageFromChunk(*res.Chunk, state)
				if state.FinishReason == nil {
					for _, choice := range res.Chunk.Choices {
						for _, e := range state.ProcessChoice(choice) {
							out <- EventResult{Event: e}
						}
					}
					lastState = state.State
				}

			case <-timer.C:
				out <- EventResult{Err: ErrIdleTimeout}
				emitTerminal(out, lastState, state, "stop_sequence")
				return
			}
		}
	}()

	return out
}

func emitTerminal(out chan<- EventResult, lastState ActiveState, state *StreamState, fallbackReason string) {
	reason := fallbackReason
	if state.FinishReason != nil {
		reason = *state.FinishReason
	}
	for _, e := range EmitFinalEvents(lastState, state, reason) {
		out <- EventResult{Event: e}
	}
}
