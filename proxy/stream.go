package proxy

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"messagebridge/streamstate"
)

// readSSELines extracts the JSON payload of each "data: " line from an
// upstream SSE body, skipping blank lines, non-data lines, and the
// terminal "[DONE]" marker. The returned channel closes when the body is
// exhausted or reading fails; a read error is not reported on the channel
// since the consumer (adapter.BuildChunkStream's decoder) only needs to see
// channel closure to know the stream ended.
func readSSELines(body io.ReadCloser) <-chan []byte {
	out := make(chan []byte)
	go func() {
		defer close(out)
		defer body.Close()

		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			payload := strings.TrimPrefix(line, "data: ")
			if payload == "[DONE]" {
				return
			}
			out <- []byte(payload)
		}
	}()
	return out
}

// anthropicPingInterval matches the keepalive cadence Claude clients expect
// on a long-lived SSE connection.
const anthropicPingInterval = 30 * time.Second

// writeAnthropicSSE renders each event as the Claude wire format
// ("event: <type>\ndata: <json>\n\n"), flushing after every write, and
// interleaves periodic ping events so an idle (but still-open) connection
// isn't mistaken for dead by an intermediary proxy.
func writeAnthropicSSE(w http.ResponseWriter, events <-chan streamstate.EventResult) error {
	flusher, _ := w.(http.Flusher)

	ticker := time.NewTicker(anthropicPingInterval)
	defer ticker.Stop()

	for {
		select {
		case res, ok := <-events:
			if !ok {
				return nil
			}
			if res.Err != nil {
				writeSSEEvent(w, "error", map[string]any{
					"type":  "error",
					"error": map[string]any{"type": "overloaded_error", "message": res.Err.Error()},
				})
				if flusher != nil {
					flusher.Flush()
				}
				continue
			}
			eventType, payload := res.Event.ToParts()
			writeSSEEvent(w, eventType, payload)
			if flusher != nil {
				flusher.Flush()
			}
		case <-ticker.C:
			writeSSEEvent(w, "ping", map[string]string{"type": "ping"})
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, data)
}
