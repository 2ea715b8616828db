package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/clausa/clausa/internal/knowledge"
	"github.com/clausa/clausa/internal/thread"
)

// maxSearchQueryLength is the maximum allowed search query length in bytes.
const maxSearchQueryLength = 1000

// searcher is the subset of the knowledge store used by the search API.
type searcher interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
	Stats(ctx context.Context) (knowledge.Stats, error)
}

// searchHandler serves similarity search over the contract store.
type searchHandler struct {
	store  searcher
	logger *slog.Logger
}

// searchResultItem is the JSON representation of a search hit.
type searchResultItem struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Source  string  `json:"source"`
	Score   float32 `json:"score"`
	Page    string  `json:"page,omitempty"`
}

// search handles GET /api/v1/search?q=...&k=8&threshold=0.4&source=file.txt.
func (h *searchHandler) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing_query", "query parameter 'q' is required")
		return
	}
	if len(query) > maxSearchQueryLength {
		writeError(w, http.StatusBadRequest, "query_too_long", "query must be 1000 characters or fewer")
		return
	}

	opts := []knowledge.SearchOption{}
	if k := parseIntParam(r, "k", 0); k > 0 {
		opts = append(opts, knowledge.WithTopK(min(k, 50)))
	}
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		threshold, err := strconv.ParseFloat(raw, 32)
		if err != nil || threshold < 0 || threshold > 1 {
			writeError(w, http.StatusBadRequest, "invalid_threshold", "threshold must be a number between 0 and 1")
			return
		}
		opts = append(opts, knowledge.WithScoreThreshold(float32(threshold)))
	}
	if source := r.URL.Query().Get("source"); source != "" {
		opts = append(opts, knowledge.WithFilter("source", source))
	}

	results, err := h.store.Search(r.Context(), query, opts...)
	if err != nil {
		h.logger.Error("searching documents", "error", err, "query_len", len(query))
		writeError(w, http.StatusInternalServerError, "search_failed", "failed to search documents")
		return
	}

	items := make([]searchResultItem, len(results))
	for i, res := range results {
		source := res.Document.Metadata["source"]
		if source == "" {
			source = "Unknown"
		}
		items[i] = searchResultItem{
			ID:      res.Document.ID,
			Content: res.Document.Content,
			Source:  source,
			Score:   res.Similarity,
			Page:    res.Document.Metadata["page"],
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"results": items,
		"count":   len(items),
	})
}

// threadLister is the subset of the thread store used by the stats API.
type threadLister interface {
	List(ctx context.Context) ([]thread.Thread, error)
}

// statsHandler serves usage statistics.
type statsHandler struct {
	store   searcher
	threads threadLister
	logger  *slog.Logger
}

// stats handles GET /api/v1/stats.
func (h *statsHandler) stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.store.Stats(r.Context())
	if err != nil {
		h.logger.Error("counting documents", "error", err)
		writeError(w, http.StatusInternalServerError, "stats_failed", "failed to get stats")
		return
	}

	threads, err := h.threads.List(r.Context())
	if err != nil {
		h.logger.Error("listing threads", "error", err)
		writeError(w, http.StatusInternalServerError, "stats_failed", "failed to get stats")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{
		"documents": st.Documents,
		"threads":   int64(len(threads)),
	})
}

// parseIntParam parses an integer query parameter, returning defaultVal on
// absence or parse failure. Negative values fall back to the default.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return defaultVal
	}
	return v
}
