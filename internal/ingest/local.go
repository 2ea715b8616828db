package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/firebase/genkit/go/ai"

	"github.com/clausa/clausa/internal/knowledge"
)

// LocalResult is one match from a query over the staged embeddings files.
type LocalResult struct {
	DocumentID string
	Text       string
	Metadata   map[string]string
	Similarity float32
}

// QueryLocal searches the staged embeddings JSON files directly, without a
// database: it embeds query, scores every staged vector by cosine
// similarity, and returns the top k. Unreadable stage files are logged and
// skipped.
func QueryLocal(ctx context.Context, stages *StageStore, embedder ai.Embedder, logger *slog.Logger, query string, k int) ([]LocalResult, error) {
	if k <= 0 {
		k = knowledge.DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}

	vectors, err := knowledge.EmbedTexts(ctx, embedder, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	queryVec := vectors[0]

	docIDs, err := stages.ListEmbedded()
	if err != nil {
		return nil, err
	}
	logger.Debug("querying staged embeddings", "documents", len(docIDs))

	var all []LocalResult
	for _, docID := range docIDs {
		set, err := stages.LoadEmbeddings(docID)
		if err != nil {
			logger.Error("loading embeddings failed", "doc_id", docID, "error", err)
			continue
		}
		for _, item := range set.Items {
			all = append(all, LocalResult{
				DocumentID: docID,
				Text:       item.Text,
				Metadata:   item.Metadata,
				Similarity: cosineSimilarity(queryVec, item.Embedding),
			})
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Similarity > all[j].Similarity
	})
	if len(all) > k {
		all = all[:k]
	}
	return all, nil
}

// cosineSimilarity returns the cosine of the angle between a and b, or 0
// for mismatched or zero vectors.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
