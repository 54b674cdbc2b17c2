package adapter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"messagebridge/streamstate"
	"messagebridge/types"
)

// ToolSimulationResponseAdapter recovers tool calls that a simulating model
// emitted as in-band grammar text instead of native tool_calls, for both the
// streaming and non-streaming response paths.
type ToolSimulationResponseAdapter struct {
	Base
	grammar Grammar
}

func NewToolSimulationResponseAdapter(g Grammar) *ToolSimulationResponseAdapter {
	return &ToolSimulationResponseAdapter{grammar: g}
}

// AdaptChunkStream buffers content until a complete grammar block is seen,
// then re-emits it as synthetic tool_calls deltas. Content outside a block is
// re-emitted as content-only chunks, except that a trailing fragment which
// could begin the start marker is held until the next chunk; chunks without
// content pass through unchanged. Cooperative yield points are
// unnecessary here since the buffer is bounded by one block, not by the
// life of the whole stream.
func (a *ToolSimulationResponseAdapter) AdaptChunkStream(chunks <-chan streamstate.ChunkResult, req *types.ClaudeMessagesRequest) <-chan streamstate.ChunkResult {
	out := make(chan streamstate.ChunkResult)
	go func() {
		defer close(out)

		var pending strings.Builder
		inBlock := false
		emittedIndex := 0

		flushText := func(text string) {
			if text == "" {
				return
			}
			c := text
			out <- streamstate.ChunkResult{Chunk: &types.OpenAIStreamChunk{
				Choices: []types.OpenAIStreamChoice{{Delta: types.OpenAIDelta{Content: &c}}},
			}}
		}

		for res := range chunks {
			if res.Err != nil {
				out <- res
				return
			}
			chunk := res.Chunk
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == nil {
				out <- res
				continue
			}

			content := *chunk.Choices[0].Delta.Content
			finish := chunk.Choices[0].FinishReason
			pending.WriteString(content)
			buf := pending.String()

			if !inBlock {
				if idx := strings.Index(buf, a.grammar.startMarker()); idx >= 0 {
					flushText(buf[:idx])
					pending.Reset()
					pending.WriteString(buf[idx:])
					inBlock = true
					buf = pending.String()
				} else {
					keep := tailThatMightBeMarkerPrefix(buf, a.grammar.startMarker())
					flushText(buf[:len(buf)-len(keep)])
					pending.Reset()
					pending.WriteString(keep)
					if finish != nil {
						flushText(pending.String())
						pending.Reset()
						out <- streamstate.ChunkResult{Chunk: &types.OpenAIStreamChunk{
							Choices: []types.OpenAIStreamChoice{{FinishReason: finish}},
						}}
					}
					continue
				}
			}

			endIdx := strings.Index(buf, a.grammar.endMarker())
			if endIdx < 0 {
				if finish != nil {
					// Unterminated block at stream end: surface whatever text
					// accumulated rather than losing it.
					flushText(buf)
					pending.Reset()
					out <- streamstate.ChunkResult{Chunk: &types.OpenAIStreamChunk{
						Choices: []types.OpenAIStreamChoice{{FinishReason: finish}},
					}}
				}
				continue
			}

			block := buf[:endIdx+len(a.grammar.endMarker())]
			trailing := buf[endIdx+len(a.grammar.endMarker()):]
			pending.Reset()
			pending.WriteString(trailing)
			inBlock = false

			calls := parseGrammarBlock(a.grammar, block)
			for _, call := range calls {
				out <- streamstate.ChunkResult{Chunk: syntheticToolCallChunk(call, emittedIndex)}
				emittedIndex++
			}

			if finish != nil {
				flushText(pending.String())
				pending.Reset()
				out <- streamstate.ChunkResult{Chunk: &types.OpenAIStreamChunk{
					Choices: []types.OpenAIStreamChoice{{FinishReason: finish}},
				}}
			}
		}
	}()
	return out
}

func tailThatMightBeMarkerPrefix(buf, marker string) string {
	maxLen := len(marker) - 1
	if maxLen > len(buf) {
		maxLen = len(buf)
	}
	for l := maxLen; l > 0; l-- {
		if strings.HasPrefix(marker, buf[len(buf)-l:]) {
			return buf[len(buf)-l:]
		}
	}
	return ""
}

func syntheticToolCallChunk(call ParsedToolCall, index int) *types.OpenAIStreamChunk {
	argsJSON, _ := json.Marshal(call.Arguments)
	name := call.Name
	args := string(argsJSON)
	return &types.OpenAIStreamChunk{
		Choices: []types.OpenAIStreamChoice{{
			Delta: types.OpenAIDelta{
				ToolCalls: []types.OpenAIStreamToolCall{{
					Index:    index,
					Function: &types.OpenAIStreamFunction{Name: &name, Arguments: &args},
				}},
			},
		}},
	}
}

// AdaptNonStreamResponse recovers simulated tool calls from a complete
// (non-streaming) message body the same way AdaptChunkStream does
// incrementally: extract the first grammar block from content, replace it with
// tool_calls, and set finish_reason to tool_calls when any were found.
func (a *ToolSimulationResponseAdapter) AdaptNonStreamResponse(response map[string]any, _ *types.ClaudeMessagesRequest) map[string]any {
	choices, ok := response["choices"].([]any)
	if !ok || len(choices) == 0 {
		return response
	}
	choice, ok := choices[0].(map[string]any)
	if !ok {
		return response
	}
	message, ok := choice["message"].(map[string]any)
	if !ok {
		return response
	}
	content, ok := message["content"].(string)
	if !ok {
		return response
	}

	start := strings.Index(content, a.grammar.startMarker())
	end := strings.Index(content, a.grammar.endMarker())
	if start < 0 || end < 0 || end < start {
		return response
	}

	before := content[:start]
	block := content[start : end+len(a.grammar.endMarker())]
	after := content[end+len(a.grammar.endMarker()):]

	calls := parseGrammarBlock(a.grammar, block)
	if len(calls) == 0 {
		return response
	}

	var toolCalls []any
	for i, call := range calls {
		argsJSON, _ := json.Marshal(call.Arguments)
		toolCalls = append(toolCalls, map[string]any{
			"id":   generateSimToolCallID(i),
			"type": "function",
			"function": map[string]any{
				"name":      call.Name,
				"arguments": string(argsJSON),
			},
		})
	}

	message["content"] = strings.TrimSpace(before + after)
	message["tool_calls"] = toolCalls
	choice["finish_reason"] = "tool_calls"
	return response
}

func generateSimToolCallID(index int) string {
	return fmt.Sprintf("simcall_%d_%s", index, uuid.NewString())
}
