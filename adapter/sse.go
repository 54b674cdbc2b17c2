package adapter

import (
	"encoding/json"

	"messagebridge/streamstate"
	"messagebridge/types"
)

// decodeOpenAISSE parses each already-extracted `data:` payload of an
// upstream Chat Completions SSE stream into an OpenAIStreamChunk, skipping
// the terminal "[DONE]" sentinel. A malformed payload becomes a terminal
// ChunkResult error rather than being silently dropped.
func decodeOpenAISSE(lines <-chan []byte) <-chan streamstate.ChunkResult {
	out := make(chan streamstate.ChunkResult)
	go func() {
		defer close(out)
		for line := range lines {
			if string(line) == "[DONE]" {
				continue
			}
			var chunk types.OpenAIStreamChunk
			if err := json.Unmarshal(line, &chunk); err != nil {
				out <- streamstate.ChunkResult{Err: err}
				return
			}
			out <- streamstate.ChunkResult{Chunk: &chunk}
		}
	}()
	return out
}
