package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/pgvector/pgvector-go"
)

// UpsertParams carries one document row for insert-or-update.
type UpsertParams struct {
	ID        string
	Content   string
	Embedding pgvector.Vector
	Metadata  []byte
	CreatedAt time.Time
}

// SearchParams carries one vector similarity query.
// FilterMetadata is a JSONB containment filter; nil disables filtering.
type SearchParams struct {
	Embedding      pgvector.Vector
	FilterMetadata []byte
	Limit          int32
}

// SearchRow is one row returned by a vector similarity query.
type SearchRow struct {
	ID         string
	Content    string
	Metadata   []byte
	CreatedAt  time.Time
	Similarity float32
}

// Querier defines the database operations Store needs.
// Defined by the consumer (like io.Reader, http.RoundTripper) so the store can
// be tested against a mock and backed by pgx in production.
type Querier interface {
	UpsertDocument(ctx context.Context, arg UpsertParams) error
	SearchDocuments(ctx context.Context, arg SearchParams) ([]SearchRow, error)
	CountDocuments(ctx context.Context) (int64, error)
	DeleteDocument(ctx context.Context, id string) error
}

// Store manages contract chunks with vector search capabilities.
// It handles embedding generation and cosine similarity search over
// PostgreSQL + pgvector.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	queries  Querier
	embedder ai.Embedder
	logger   *slog.Logger
}

// New creates a new Store instance. logger may be nil (slog.Default is used).
func New(querier Querier, embedder ai.Embedder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		queries:  querier,
		embedder: embedder,
		logger:   logger,
	}
}

// Add embeds the document content and upserts it.
func (s *Store) Add(ctx context.Context, doc Document) error {
	vectors, err := EmbedTexts(ctx, s.embedder, []string{doc.Content})
	if err != nil {
		return fmt.Errorf("embedding document %q: %w", doc.ID, err)
	}

	return s.upsert(ctx, doc, vectors[0])
}

// AddWithEmbeddings upserts documents whose vectors were computed earlier
// (the pre-staged embeddings JSON from the ingestion pipeline).
// Lengths of docs and vectors must match.
func (s *Store) AddWithEmbeddings(ctx context.Context, docs []Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("document/vector count mismatch: %d != %d", len(docs), len(vectors))
	}

	for i, doc := range docs {
		if err := s.upsert(ctx, doc, vectors[i]); err != nil {
			return err
		}
	}

	s.logger.Debug("stored documents with precomputed embeddings", "count", len(docs))
	return nil
}

func (s *Store) upsert(ctx context.Context, doc Document, vector []float32) error {
	if len(vector) == 0 {
		return fmt.Errorf("empty embedding for document %q", doc.ID)
	}

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	err = s.queries.UpsertDocument(ctx, UpsertParams{
		ID:        doc.ID,
		Content:   doc.Content,
		Embedding: pgvector.NewVector(vector),
		Metadata:  metadataJSON,
		CreatedAt: createdAt,
	})
	if err != nil {
		return fmt.Errorf("upserting document %q: %w", doc.ID, err)
	}

	return nil
}

// Search performs semantic search using functional options.
// Returns the most similar documents ordered by similarity score. A timeout
// bounds embedding generation plus the vector query so a slow backend cannot
// block the caller indefinitely.
//
//	results, err := store.Search(ctx, "mutual NDA with 3 year term",
//	    knowledge.WithTopK(8),
//	    knowledge.WithScoreThreshold(0.25))
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	vectors, err := EmbedTexts(queryCtx, s.embedder, []string{query})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("embedding generation timeout: %w", err)
		}
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	params := SearchParams{
		Embedding: pgvector.NewVector(vectors[0]),
		Limit:     int32(cfg.topK), // #nosec G115 -- topK validated positive in WithTopK
	}

	// filterJSON is always produced by json.Marshal and matched with the
	// parameterized JSONB @> operator, never interpolated into SQL.
	if len(cfg.filter) > 0 {
		filterJSON, marshalErr := json.Marshal(cfg.filter)
		if marshalErr != nil {
			return nil, fmt.Errorf("marshaling filter: %w", marshalErr)
		}
		params.FilterMetadata = filterJSON
	}

	rows, err := s.queries.SearchDocuments(queryCtx, params)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}

	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		if cfg.threshold > 0 && row.Similarity < cfg.threshold {
			continue // rows arrive ordered by similarity, but don't rely on it
		}

		var metadata map[string]string
		if len(row.Metadata) > 0 {
			if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
				s.logger.Warn("skipping document with malformed metadata", "id", row.ID, "error", err)
				continue
			}
		}

		results = append(results, Result{
			Document: Document{
				ID:        row.ID,
				Content:   row.Content,
				Metadata:  metadata,
				CreatedAt: row.CreatedAt,
			},
			Similarity: row.Similarity,
		})
	}

	s.logger.Debug("search completed",
		"query_length", len(query),
		"top_k", cfg.topK,
		"results", len(results))

	return results, nil
}

// Delete removes a document by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.queries.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("deleting document %q: %w", id, err)
	}
	return nil
}

// Stats returns collection statistics.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	count, err := s.queries.CountDocuments(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("counting documents: %w", err)
	}
	return Stats{Documents: count, Table: "documents"}, nil
}
