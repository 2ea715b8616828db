package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *StageStore {
	t.Helper()
	dir := t.TempDir()
	store, err := NewStageStore(filepath.Join(dir, "chunks"), filepath.Join(dir, "embeddings"))
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestDocumentID(t *testing.T) {
	id := DocumentID("/data/raw/nda_mutual.txt", "MUTUAL NON-DISCLOSURE AGREEMENT")

	if !strings.HasPrefix(id, "nda_mutual_") {
		t.Errorf("id = %q, want nda_mutual_ prefix", id)
	}
	if got := len(strings.TrimPrefix(id, "nda_mutual_")); got != 8 {
		t.Errorf("hash suffix length = %d, want 8", got)
	}

	// Same content, same ID; different content, different ID.
	if id != DocumentID("/other/place/nda_mutual.txt", "MUTUAL NON-DISCLOSURE AGREEMENT") {
		t.Error("ID should not depend on directory")
	}
	if id == DocumentID("/data/raw/nda_mutual.txt", "different first chunk") {
		t.Error("ID should depend on first chunk content")
	}
}

func TestChunksRoundTrip(t *testing.T) {
	store := newTestStore(t)

	chunks := []Chunk{
		{Text: "First clause.", Metadata: map[string]string{"source": "nda.txt"}},
		{Text: "Second clause.", Metadata: map[string]string{"source": "nda.txt"}},
	}

	docID, err := store.SaveChunks("/data/nda.txt", chunks)
	if err != nil {
		t.Fatalf("SaveChunks: %v", err)
	}
	if docID == "" {
		t.Fatal("empty doc ID")
	}

	set, err := store.LoadChunks(docID)
	if err != nil {
		t.Fatalf("LoadChunks: %v", err)
	}
	if set.DocumentID != docID {
		t.Errorf("document_id = %q, want %q", set.DocumentID, docID)
	}
	if set.OriginalFile != "/data/nda.txt" {
		t.Errorf("original_file = %q", set.OriginalFile)
	}
	if set.ChunkCount != 2 || len(set.Chunks) != 2 {
		t.Fatalf("chunk_count = %d, chunks = %d", set.ChunkCount, len(set.Chunks))
	}
	if set.Chunks[1].Text != "Second clause." {
		t.Errorf("chunk text = %q", set.Chunks[1].Text)
	}
	if set.ProcessedAt.IsZero() {
		t.Error("processed_at not set")
	}
}

func TestSaveChunksEmpty(t *testing.T) {
	store := newTestStore(t)

	docID, err := store.SaveChunks("/data/empty.txt", nil)
	if err != nil {
		t.Fatalf("SaveChunks: %v", err)
	}
	if docID != "" {
		t.Errorf("doc ID = %q, want empty for no chunks", docID)
	}

	ids, err := store.ListProcessed()
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 0 {
		t.Errorf("processed = %v, want none", ids)
	}
}

func TestEmbeddingsRoundTrip(t *testing.T) {
	store := newTestStore(t)

	longText := strings.Repeat("x", 250)
	chunks := []Chunk{
		{Text: "short text", Metadata: map[string]string{"source": "nda.txt"}},
		{Text: longText, Metadata: map[string]string{"source": "nda.txt"}},
	}
	vectors := [][]float32{{0.1, 0.2, 0.3}, {0.4, 0.5, 0.6}}

	path, err := store.SaveEmbeddings("nda_abcd1234", "text-embedding-3-small", chunks, vectors)
	if err != nil {
		t.Fatalf("SaveEmbeddings: %v", err)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		t.Fatalf("embeddings file missing: %v", statErr)
	}

	set, err := store.LoadEmbeddings("nda_abcd1234")
	if err != nil {
		t.Fatalf("LoadEmbeddings: %v", err)
	}
	if set.Model != "text-embedding-3-small" {
		t.Errorf("model = %q", set.Model)
	}
	if set.Dimensions != 3 {
		t.Errorf("dimensions = %d, want 3", set.Dimensions)
	}
	if set.EmbeddingCount != 2 || len(set.Items) != 2 {
		t.Fatalf("embedding_count = %d, items = %d", set.EmbeddingCount, len(set.Items))
	}

	if set.Items[0].Text != "short text" {
		t.Errorf("short text altered: %q", set.Items[0].Text)
	}
	if want := strings.Repeat("x", 200) + "..."; set.Items[1].Text != want {
		t.Errorf("long text not truncated at 200: length %d", len(set.Items[1].Text))
	}
	if len(set.Items[1].Embedding) != 3 {
		t.Errorf("vector truncated: %v", set.Items[1].Embedding)
	}
}

func TestSaveEmbeddingsMismatch(t *testing.T) {
	store := newTestStore(t)

	_, err := store.SaveEmbeddings("id", "model", []Chunk{{Text: "a"}}, nil)
	if err == nil {
		t.Fatal("expected error for mismatched lengths")
	}
}

func TestLoadMissingStage(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.LoadChunks("nope"); !errors.Is(err, ErrStageMissing) {
		t.Errorf("LoadChunks error = %v, want ErrStageMissing", err)
	}
	if _, err := store.LoadEmbeddings("nope"); !errors.Is(err, ErrStageMissing) {
		t.Errorf("LoadEmbeddings error = %v, want ErrStageMissing", err)
	}
}

func TestListStageFiles(t *testing.T) {
	store := newTestStore(t)

	docID, err := store.SaveChunks("/data/nda_mutual.txt", []Chunk{{Text: "clause"}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.SaveEmbeddings(docID, "m", []Chunk{{Text: "clause"}}, [][]float32{{1}}); err != nil {
		t.Fatal(err)
	}

	processed, err := store.ListProcessed()
	if err != nil {
		t.Fatal(err)
	}
	embedded, err := store.ListEmbedded()
	if err != nil {
		t.Fatal(err)
	}
	if len(processed) != 1 || processed[0] != docID {
		t.Errorf("processed = %v", processed)
	}
	if len(embedded) != 1 || embedded[0] != docID {
		t.Errorf("embedded = %v", embedded)
	}
}
