package proxy

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"messagebridge/adapter"
	"messagebridge/config"
	"messagebridge/convert"
	"messagebridge/directive"
	"messagebridge/logger"
	"messagebridge/metrics"
	"messagebridge/streamstate"
	"messagebridge/types"
)

// Handler serves POST /v1/messages, translating each request into an
// upstream OpenAI-compatible call and translating the reply back.
type Handler struct {
	cfg    *config.Config
	log    *logger.ObservabilityLogger
	client *http.Client
}

// NewHandler builds a Handler whose upstream HTTP client respects the
// configured connection and idle timeouts.
func NewHandler(cfg *config.Config, log *logger.ObservabilityLogger) *Handler {
	return &Handler{
		cfg: cfg,
		log: log,
		client: &http.Client{
			Timeout: 0, // streaming responses can run far longer than any fixed deadline
			Transport: &http.Transport{
				DialContext:     (&net.Dialer{Timeout: cfg.ConnectionTimeout}).DialContext,
				IdleConnTimeout: cfg.IdleConnectionTimeout,
			},
		},
	}
}

// requestContext carries everything resolved from an inbound Messages API
// call before it's sent upstream.
type requestContext struct {
	claudeRequest *types.ClaudeMessagesRequest
	openaiRequest *types.OpenAIRequest
	adapter       *adapter.RequestAdapter
	apiKey        string
	targetModel   string
	isStreaming   bool
}

// HandleMessages implements POST /v1/messages.
func (h *Handler) HandleMessages(w http.ResponseWriter, r *http.Request) {
	requestID := generateRequestID()
	ctx := withRequestID(r.Context(), requestID)
	r = r.WithContext(ctx)

	setCORSHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	rc, err := h.prepareRequestContext(r)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}

	h.log.Request(requestID, "received messages request", map[string]interface{}{
		"model":  rc.targetModel,
		"stream": rc.isStreaming,
	})
	metrics.RequestsTotal.WithLabelValues(rc.targetModel, strconv.FormatBool(rc.isStreaming)).Inc()

	upstreamResp, err := h.sendOpenAIRequest(r, rc)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}

	if rc.isStreaming {
		h.handleStreamingResponse(w, requestID, rc, upstreamResp)
		return
	}
	h.handleNonStreamingResponse(w, requestID, rc, upstreamResp)
}

func (h *Handler) prepareRequestContext(r *http.Request) (*requestContext, error) {
	apiKey, err := extractAPIKey(r)
	if err != nil {
		return nil, err
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, &requestError{status: http.StatusBadRequest, message: "failed to read request body"}
	}

	var claudeRequest types.ClaudeMessagesRequest
	if err := json.Unmarshal(body, &claudeRequest); err != nil {
		return nil, &requestError{status: http.StatusBadRequest, message: "invalid request body: " + err.Error()}
	}

	settings := directive.Process(&claudeRequest, false)

	targetModel := claudeRequest.Model
	if strings.Contains(strings.ToLower(targetModel), "haiku") {
		targetModel = h.cfg.HaikuModel
	}
	if settings.Model != nil && *settings.Model != "" {
		targetModel = *settings.Model
	}

	ra := adapter.ForModel(targetModel, settings)
	openaiRequest := convert.ClaudeToOpenAI(&claudeRequest, targetModel, ra)
	h.applyConfigOverrides(openaiRequest)

	return &requestContext{
		claudeRequest: &claudeRequest,
		openaiRequest: openaiRequest,
		adapter:       ra,
		apiKey:        apiKey,
		targetModel:   targetModel,
		isStreaming:   claudeRequest.Stream,
	}, nil
}

// applyConfigOverrides layers the operator's optional tool-description and
// system-prompt YAML overrides on top of the converted request, after every
// model-keyed adapter has already run, so operator overrides always win.
func (h *Handler) applyConfigOverrides(openaiRequest *types.OpenAIRequest) {
	overrides := h.cfg.Overrides()
	if overrides == nil {
		return
	}

	for i, tool := range openaiRequest.Tools {
		openaiRequest.Tools[i].Function.Description = overrides.ToolDescription(tool.Function.Name, tool.Function.Description)
	}

	for i, msg := range openaiRequest.Messages {
		if msg.Role != "system" || msg.Content == nil || msg.Content.IsArray {
			continue
		}
		openaiRequest.Messages[i].Content = types.NewOpenAIText(overrides.ApplySystemMessage(msg.Content.Text))
	}
}

func (h *Handler) sendOpenAIRequest(r *http.Request, rc *requestContext) (*http.Response, error) {
	body, err := json.Marshal(rc.adapter.BuildRequestBody(rc.openaiRequest, rc.claudeRequest))
	if err != nil {
		return nil, &requestError{status: http.StatusInternalServerError, message: "failed to encode upstream request"}
	}

	url := upstreamURL(h.cfg.OpenAIBaseURL, rc.adapter.EndpointSuffix())
	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &requestError{status: http.StatusInternalServerError, message: "failed to build upstream request"}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+rc.apiKey)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &requestError{status: http.StatusBadGateway, message: "upstream request failed: " + err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(resp.Body)
		metrics.UpstreamErrorsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
		return nil, errUpstream(resp.StatusCode, string(errBody))
	}

	return resp, nil
}

func (h *Handler) handleNonStreamingResponse(w http.ResponseWriter, requestID string, rc *requestContext, upstreamResp *http.Response) {
	defer upstreamResp.Body.Close()

	rawBody, err := io.ReadAll(upstreamResp.Body)
	if err != nil {
		h.writeError(w, requestID, &requestError{status: http.StatusBadGateway, message: "failed to read upstream response"})
		return
	}

	var body map[string]any
	if err := json.Unmarshal(rawBody, &body); err != nil {
		h.writeError(w, requestID, &requestError{status: http.StatusBadGateway, message: "invalid upstream response body"})
		return
	}
	body = rc.adapter.NormalizeNonStreamJSON(body, rc.claudeRequest)
	body = rc.adapter.AdaptNonStreamResponse(body, rc.claudeRequest)

	normalized, err := json.Marshal(body)
	if err != nil {
		h.writeError(w, requestID, &requestError{status: http.StatusInternalServerError, message: "failed to re-encode upstream response"})
		return
	}

	var openaiResponse types.OpenAIResponse
	if err := json.Unmarshal(normalized, &openaiResponse); err != nil {
		h.writeError(w, requestID, &requestError{status: http.StatusBadGateway, message: "unrecognized upstream response shape"})
		return
	}

	anthropicResponse := convert.OpenAIToClaude(&openaiResponse, rc.claudeRequest.Model)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(anthropicResponse)

	h.log.Info(logger.ComponentProxy, logger.CategorySuccess, requestID, "completed non-streaming request", nil)
}

func (h *Handler) handleStreamingResponse(w http.ResponseWriter, requestID string, rc *requestContext, upstreamResp *http.Response) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	started := time.Now()

	sseLines := readSSELines(upstreamResp.Body)
	chunks := rc.adapter.BuildChunkStream(sseLines, rc.claudeRequest)
	events := streamstate.ChunksToEvents(rc.claudeRequest.Model, chunks, h.cfg.IdleConnectionTimeout)

	if err := writeAnthropicSSE(w, events); err != nil {
		h.log.UpstreamError(requestID, "streaming response ended with an error", map[string]interface{}{
			"error": err.Error(),
		})
	}

	metrics.StreamDurationSeconds.WithLabelValues(rc.targetModel).Observe(time.Since(started).Seconds())
	h.log.Info(logger.ComponentProxy, logger.CategorySuccess, requestID, "completed streaming request", nil)
}

func (h *Handler) writeError(w http.ResponseWriter, requestID string, err error) {
	status := http.StatusInternalServerError
	message := err.Error()
	if re, ok := err.(*requestError); ok {
		status = re.status
	}

	h.log.Error(logger.ComponentProxy, logger.CategoryError, requestID, message, map[string]interface{}{
		"status": status,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"type": "error",
		"error": map[string]any{
			"type":    "api_error",
			"message": message,
		},
	})
}
