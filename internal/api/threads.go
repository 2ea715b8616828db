package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/clausa/clausa/internal/thread"
)

// threadStore is the subset of the thread store used by the threads API.
type threadStore interface {
	Get(ctx context.Context, threadID string) (thread.Thread, error)
	List(ctx context.Context) ([]thread.Thread, error)
	Messages(ctx context.Context, threadID string) ([]thread.Message, error)
	Clear(ctx context.Context, threadID string) error
}

// threadHandler serves conversation thread management endpoints.
type threadHandler struct {
	store  threadStore
	logger *slog.Logger
}

// threadItem is the JSON representation of a thread.
type threadItem struct {
	ID        string `json:"id"`
	Summary   string `json:"summary,omitempty"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// messageItem is the JSON representation of a stored message.
type messageItem struct {
	ID        int64  `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

// list handles GET /api/v1/threads.
func (h *threadHandler) list(w http.ResponseWriter, r *http.Request) {
	threads, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("listing threads", "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed", "failed to list threads")
		return
	}

	items := make([]threadItem, len(threads))
	for i, t := range threads {
		items[i] = threadItem{
			ID:        t.ID,
			Summary:   t.Summary,
			CreatedAt: t.CreatedAt.Format(time.RFC3339),
			UpdatedAt: t.UpdatedAt.Format(time.RFC3339),
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": len(items),
	})
}

// messages handles GET /api/v1/threads/{id}/messages.
func (h *threadHandler) messages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_id", "thread ID is required")
		return
	}

	if _, err := h.store.Get(r.Context(), id); err != nil {
		if errors.Is(err, thread.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "thread not found")
			return
		}
		h.logger.Error("getting thread", "error", err, "thread_id", id)
		writeError(w, http.StatusInternalServerError, "get_failed", "failed to get thread")
		return
	}

	msgs, err := h.store.Messages(r.Context(), id)
	if err != nil {
		h.logger.Error("getting thread messages", "error", err, "thread_id", id)
		writeError(w, http.StatusInternalServerError, "get_failed", "failed to get messages")
		return
	}

	items := make([]messageItem, len(msgs))
	for i, m := range msgs {
		items[i] = messageItem{
			ID:        m.ID,
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt.Format(time.RFC3339),
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": len(items),
	})
}

// remove handles DELETE /api/v1/threads/{id}.
func (h *threadHandler) remove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_id", "thread ID is required")
		return
	}

	if err := h.store.Clear(r.Context(), id); err != nil {
		if errors.Is(err, thread.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "thread not found")
			return
		}
		h.logger.Error("deleting thread", "error", err, "thread_id", id)
		writeError(w, http.StatusInternalServerError, "delete_failed", "failed to delete thread")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
