package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/wayfinderhq/wayfinder/backend/internal/model/travel"
	"github.com/wayfinderhq/wayfinder/backend/internal/service/conversation"
	"github.com/wayfinderhq/wayfinder/backend/pkg/utils"
)

// Handler delivers per-turn results over Server-Sent Events.
type Handler struct {
	conversations *conversation.Service
}

// New creates a new stream handler.
func New(conversations *conversation.Service) *Handler {
	return &Handler{conversations: conversations}
}

// StreamResponse represents a streaming response chunk.
type StreamResponse struct {
	Event     string          `json:"event"`
	Content   string          `json:"content,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Plan      json.RawMessage `json:"plan,omitempty"`
	Finished  bool            `json:"finished,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// HandleStreamRequest processes one message and streams the stages of the
// turn: start, the resolved plan, the answer, then end.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID string, userMessage string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	utils.SetupSSEHeaders(w)

	utils.SendSSEChunk(w, flusher, StreamResponse{
		Event:     "start",
		SessionID: sessionID,
	})

	plan, err := h.conversations.HandleMessage(ctx, sessionID, userMessage)
	if err != nil {
		h.sendSSEError(w, flusher, fmt.Sprintf("turn failed: %v", err))
		return err
	}

	if planJSON, err := json.Marshal(planView(plan)); err == nil {
		utils.SendSSEChunk(w, flusher, StreamResponse{
			Event:     "plan",
			SessionID: sessionID,
			Plan:      planJSON,
		})
	}

	if plan.Answer != "" {
		utils.SendSSEChunk(w, flusher, StreamResponse{
			Event:     "message",
			SessionID: sessionID,
			Content:   plan.Answer,
		})
	}

	utils.SendSSEChunk(w, flusher, StreamResponse{
		Event:     "end",
		SessionID: sessionID,
		Finished:  true,
	})

	log.Printf("[stream] completed turn for session=%s intent=%s", sessionID, plan.Intent)
	return nil
}

// planView trims the response plan down to what streaming clients consume.
// The full payloads already travelled inside the answer; resending them per
// event would triple the frame size.
func planView(plan travel.ResponsePlan) map[string]any {
	return map[string]any{
		"intent":     plan.Intent,
		"confidence": plan.Confidence,
		"context":    plan.Context,
		"plan":       plan.Plan,
	}
}

// sendSSEError sends an error via Server-Sent Events.
func (h *Handler) sendSSEError(w http.ResponseWriter, flusher http.Flusher, errorMsg string) {
	utils.SendSSEChunk(w, flusher, StreamResponse{
		Event: "error",
		Error: errorMsg,
	})
}
