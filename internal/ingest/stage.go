// Package ingest runs the document processing pipeline: load and chunk
// contract files, embed the chunks, and load them into the vector store.
// Each stage persists its output as JSON so runs can be inspected and the
// later stages replayed without redoing earlier work.
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrStageMissing is returned when a stage file for a document ID does not
// exist.
var ErrStageMissing = errors.New("stage file not found")

// truncateAt bounds the text stored alongside each embedding. Vectors stay
// full size; the text is only there for inspection.
const truncateAt = 200

// Chunk is one split piece of a source document.
type Chunk struct {
	Text     string            `json:"page_content"`
	Metadata map[string]string `json:"metadata"`
}

// ChunkSet is the stage 1 output for one source document.
type ChunkSet struct {
	DocumentID   string    `json:"document_id"`
	OriginalFile string    `json:"original_file"`
	ChunkCount   int       `json:"chunk_count"`
	ProcessedAt  time.Time `json:"processed_at"`
	Chunks       []Chunk   `json:"chunks"`
}

// EmbeddingItem pairs a vector with its (truncated) text and metadata.
type EmbeddingItem struct {
	Text      string            `json:"text"`
	Metadata  map[string]string `json:"metadata"`
	Embedding []float32         `json:"embedding"`
}

// EmbeddingSet is the stage 2 output for one source document.
type EmbeddingSet struct {
	DocumentID     string          `json:"document_id"`
	EmbeddingCount int             `json:"embedding_count"`
	Model          string          `json:"embedding_model"`
	Dimensions     int             `json:"embedding_dimensions"`
	CreatedAt      time.Time       `json:"created_at"`
	Items          []EmbeddingItem `json:"items"`
}

// StageStore persists pipeline stage output as JSON files:
// <chunksDir>/<docID>.json and <embeddingsDir>/<docID>_embeddings.json.
type StageStore struct {
	chunksDir     string
	embeddingsDir string
}

// NewStageStore creates both directories if needed.
func NewStageStore(chunksDir, embeddingsDir string) (*StageStore, error) {
	for _, dir := range []string{chunksDir, embeddingsDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating stage directory %s: %w", dir, err)
		}
	}
	return &StageStore{chunksDir: chunksDir, embeddingsDir: embeddingsDir}, nil
}

// DocumentID derives a stable ID for a source file: the base name without
// extension plus the first 8 hex digits of the SHA-256 of the first chunk.
// The same file content always maps to the same ID.
func DocumentID(filePath, firstChunk string) string {
	base := filepath.Base(filePath)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	sum := sha256.Sum256([]byte(firstChunk))
	return base + "_" + hex.EncodeToString(sum[:])[:8]
}

// SaveChunks writes the stage 1 file and returns the derived document ID.
// An empty chunk list is skipped and returns an empty ID.
func (s *StageStore) SaveChunks(filePath string, chunks []Chunk) (string, error) {
	if len(chunks) == 0 {
		return "", nil
	}

	docID := DocumentID(filePath, chunks[0].Text)
	set := ChunkSet{
		DocumentID:   docID,
		OriginalFile: filePath,
		ChunkCount:   len(chunks),
		ProcessedAt:  time.Now().UTC(),
		Chunks:       chunks,
	}

	if err := writeJSONFile(s.chunksPath(docID), set); err != nil {
		return "", err
	}
	return docID, nil
}

// LoadChunks reads the stage 1 file for docID.
func (s *StageStore) LoadChunks(docID string) (ChunkSet, error) {
	var set ChunkSet
	if err := readJSONFile(s.chunksPath(docID), &set); err != nil {
		return ChunkSet{}, err
	}
	return set, nil
}

// SaveEmbeddings writes the stage 2 file. Texts are truncated to keep the
// file reviewable; vectors are stored in full. chunks and vectors must be
// index-aligned.
func (s *StageStore) SaveEmbeddings(docID, model string, chunks []Chunk, vectors [][]float32) (string, error) {
	if len(chunks) != len(vectors) {
		return "", fmt.Errorf("chunk/vector count mismatch: %d != %d", len(chunks), len(vectors))
	}

	dimensions := 0
	if len(vectors) > 0 {
		dimensions = len(vectors[0])
	}

	items := make([]EmbeddingItem, len(chunks))
	for i, chunk := range chunks {
		items[i] = EmbeddingItem{
			Text:      truncate(chunk.Text, truncateAt),
			Metadata:  chunk.Metadata,
			Embedding: vectors[i],
		}
	}

	set := EmbeddingSet{
		DocumentID:     docID,
		EmbeddingCount: len(items),
		Model:          model,
		Dimensions:     dimensions,
		CreatedAt:      time.Now().UTC(),
		Items:          items,
	}

	path := s.embeddingsPath(docID)
	if err := writeJSONFile(path, set); err != nil {
		return "", err
	}
	return path, nil
}

// LoadEmbeddings reads the stage 2 file for docID.
func (s *StageStore) LoadEmbeddings(docID string) (EmbeddingSet, error) {
	var set EmbeddingSet
	if err := readJSONFile(s.embeddingsPath(docID), &set); err != nil {
		return EmbeddingSet{}, err
	}
	return set, nil
}

// ListProcessed returns the IDs of documents with a chunks file.
func (s *StageStore) ListProcessed() ([]string, error) {
	return listIDs(s.chunksDir, ".json", "")
}

// ListEmbedded returns the IDs of documents with an embeddings file.
func (s *StageStore) ListEmbedded() ([]string, error) {
	return listIDs(s.embeddingsDir, ".json", "_embeddings")
}

func (s *StageStore) chunksPath(docID string) string {
	return filepath.Join(s.chunksDir, docID+".json")
}

func (s *StageStore) embeddingsPath(docID string) string {
	return filepath.Join(s.embeddingsDir, docID+"_embeddings.json")
}

func listIDs(dir, ext, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading stage directory %s: %w", dir, err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ext) {
			continue
		}
		id := strings.TrimSuffix(name, ext)
		if suffix != "" {
			if !strings.HasSuffix(id, suffix) {
				continue
			}
			id = strings.TrimSuffix(id, suffix)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrStageMissing, path)
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
