package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/clausa/clausa/internal/agent"
)

// maxChatBodyBytes limits chat request bodies.
const maxChatBodyBytes = 1 << 20

// maxMessageLength is the maximum accepted chat message length in bytes.
const maxMessageLength = 8192

// SSE event types for chat streaming.
const (
	EventChunk = "chunk" // partial response text
	EventDone  = "done"  // stream completed successfully
	EventError = "error" // error occurred during streaming
)

// chatRequest is the request body for both chat endpoints.
type chatRequest struct {
	Message  string `json:"message"`
	ThreadID string `json:"threadId,omitempty"`
}

// chatResponse is the JSON response for POST /api/v1/chat.
type chatResponse struct {
	Response string `json:"response"`
	ThreadID string `json:"threadId"`
}

// ChunkPayload is the SSE data payload for streaming text chunks.
type ChunkPayload struct {
	Text string `json:"text"`
}

// DonePayload is the SSE data payload when streaming completes.
type DonePayload struct {
	Response string `json:"response"`
	ThreadID string `json:"threadId"`
}

// ErrorPayload is the SSE data payload when an error occurs.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// chatHandler serves the chat endpoints on top of the conversational flow.
type chatHandler struct {
	flow   *agent.Flow
	logger *slog.Logger
}

// parseChatRequest decodes and validates the request body. On failure it
// returns the error code and message to report to the client.
func parseChatRequest(w http.ResponseWriter, r *http.Request) (chatRequest, string, string) {
	var req chatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return req, "body_too_large", "request body too large"
		}
		return req, "invalid_body", "invalid request body"
	}
	if strings.TrimSpace(req.Message) == "" {
		return req, "empty_message", "message is required"
	}
	if len(req.Message) > maxMessageLength {
		return req, "message_too_long", fmt.Sprintf("message must be %d bytes or fewer", maxMessageLength)
	}
	return req, "", ""
}

// send handles POST /api/v1/chat. It runs the flow to completion and
// returns the full response in one JSON payload.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	req, code, msg := parseChatRequest(w, r)
	if code != "" {
		status := http.StatusBadRequest
		if code == "body_too_large" {
			status = http.StatusRequestEntityTooLarge
		}
		writeError(w, status, code, msg)
		return
	}

	if h.flow == nil {
		writeError(w, http.StatusServiceUnavailable, "flow_unavailable", "chat flow not configured")
		return
	}

	ctx := r.Context()
	input := agent.Input{Query: req.Message, ThreadID: req.ThreadID}

	var output agent.Output
	for value, err := range h.flow.Stream(ctx, input) {
		if err != nil {
			h.logger.Error("chat flow failed", "error", err, "thread_id", req.ThreadID)
			status, code, msg := classifyFlowError(err)
			writeError(w, status, code, msg)
			return
		}
		if value.Done {
			output = value.Output
			break
		}
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Response: output.Response,
		ThreadID: output.ThreadID,
	})
}

// stream handles POST /api/v1/chat/stream. Partial responses are pushed as
// SSE chunk events, followed by a final done event carrying the full text.
func (h *chatHandler) stream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	req, code, msg := parseChatRequest(w, r)
	if code != "" {
		_ = writeEvent(w, flusher, EventError, ErrorPayload{Code: code, Message: msg})
		return
	}

	if h.flow == nil {
		_ = writeEvent(w, flusher, EventError, ErrorPayload{Code: "flow_unavailable", Message: "chat flow not configured"})
		return
	}

	ctx := r.Context()
	h.logger.Debug("sse stream started", "thread_id", req.ThreadID)

	var (
		output    agent.Output
		streamErr error
		chunks    int
	)

	for value, err := range h.flow.Stream(ctx, agent.Input{Query: req.Message, ThreadID: req.ThreadID}) {
		select {
		case <-ctx.Done():
			h.logger.Info("client disconnected", "thread_id", req.ThreadID)
			return
		default:
		}

		if err != nil {
			streamErr = err
			break
		}

		if value.Done {
			output = value.Output
			break
		}

		if value.Stream.Text != "" {
			chunks++
			if err := writeEvent(w, flusher, EventChunk, ChunkPayload{Text: value.Stream.Text}); err != nil {
				// Write failure usually means the connection closed.
				h.logger.Debug("writing sse chunk", "error", err)
				return
			}
		}
	}

	if streamErr != nil {
		h.logger.Error("chat stream failed", "error", streamErr, "thread_id", req.ThreadID)
		_, code, msg := classifyFlowError(streamErr)
		_ = writeEvent(w, flusher, EventError, ErrorPayload{Code: code, Message: msg})
		return
	}

	_ = writeEvent(w, flusher, EventDone, DonePayload{
		Response: output.Response,
		ThreadID: output.ThreadID,
	})

	h.logger.Info("sse stream completed", "thread_id", output.ThreadID, "chunks", chunks)
}

// classifyFlowError maps flow errors to an HTTP status, error code and a
// fixed client-facing message. The underlying error is only logged; it can
// carry internal details that must not reach clients.
func classifyFlowError(err error) (int, string, string) {
	if errors.Is(err, agent.ErrEmptyQuery) {
		return http.StatusBadRequest, "empty_message", "message is required"
	}
	if errors.Is(err, agent.ErrNoModel) {
		return http.StatusServiceUnavailable, "model_unavailable", "model is not available"
	}
	return http.StatusInternalServerError, "chat_failed", "failed to generate a response"
}

// writeEvent writes a single SSE event with JSON-encoded data.
// SSE format: "event: <type>\ndata: <json>\n\n".
func writeEvent[T any](w io.Writer, flusher http.Flusher, event string, data T) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	flusher.Flush()
	return nil
}
