package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"

	"github.com/clausa/clausa/internal/document"
	"github.com/clausa/clausa/internal/knowledge"
)

// Loader is the vector store operation the pipeline needs.
type Loader interface {
	AddWithEmbeddings(ctx context.Context, docs []knowledge.Document, vectors [][]float32) error
}

// Stats summarizes a pipeline run.
type Stats struct {
	FilesFound     int
	FilesProcessed int
	FilesFailed    int
	Chunks         int
	Embedded       int
	Loaded         int
	Duration       time.Duration
}

// Pipeline processes a directory of contract templates in three stages:
// chunk, embed, load. Each stage writes JSON output through the StageStore
// and each per-document failure is logged and skipped so one bad file never
// aborts a run.
type Pipeline struct {
	splitter   *document.Splitter
	stages     *StageStore
	embedder   ai.Embedder
	loader     Loader
	model      string
	extensions map[string]bool
	logger     *slog.Logger
}

// Options configures a Pipeline.
type Options struct {
	Splitter *document.Splitter
	Stages   *StageStore
	Embedder ai.Embedder
	Loader   Loader
	Model    string
	// Extensions filters which files stage 1 picks up, without dots
	// ("txt", "pdf"). Empty means every supported type.
	Extensions []string
	Logger     *slog.Logger
}

// NewPipeline validates options and builds a Pipeline.
func NewPipeline(opts Options) (*Pipeline, error) {
	switch {
	case opts.Splitter == nil:
		return nil, fmt.Errorf("pipeline requires a splitter")
	case opts.Stages == nil:
		return nil, fmt.Errorf("pipeline requires a stage store")
	case opts.Embedder == nil:
		return nil, fmt.Errorf("pipeline requires an embedder")
	case opts.Loader == nil:
		return nil, fmt.Errorf("pipeline requires a vector store loader")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var extensions map[string]bool
	if len(opts.Extensions) > 0 {
		extensions = make(map[string]bool, len(opts.Extensions))
		for _, ext := range opts.Extensions {
			extensions[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
		}
	}

	return &Pipeline{
		splitter:   opts.Splitter,
		stages:     opts.Stages,
		embedder:   opts.Embedder,
		loader:     opts.Loader,
		model:      opts.Model,
		extensions: extensions,
		logger:     logger,
	}, nil
}

// Run executes all three stages over the files under dir and returns run
// statistics. Only errors that prevent the run entirely (an unreadable
// directory, a canceled context) are returned; per-document errors are
// logged and counted in Stats.FilesFailed.
func (p *Pipeline) Run(ctx context.Context, dir string) (Stats, error) {
	start := time.Now()
	var stats Stats

	p.logger.Info("starting ingestion", "dir", dir)

	docIDs, err := p.chunkStage(ctx, dir, &stats)
	if err != nil {
		return stats, err
	}
	p.logger.Info("chunk stage completed", "files", stats.FilesProcessed, "chunks", stats.Chunks)

	if err := p.embedStage(ctx, docIDs, &stats); err != nil {
		return stats, err
	}
	p.logger.Info("embed stage completed", "embedded", stats.Embedded)

	if err := p.loadStage(ctx, docIDs, &stats); err != nil {
		return stats, err
	}
	p.logger.Info("load stage completed", "loaded", stats.Loaded)

	stats.Duration = time.Since(start)
	return stats, nil
}

// chunkStage walks dir, loads and splits each supported file, and persists
// chunk sets. Returns the document IDs produced.
func (p *Pipeline) chunkStage(ctx context.Context, dir string, stats *Stats) ([]string, error) {
	var docIDs []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !p.wantFile(path) {
			return nil
		}

		stats.FilesFound++
		docID, chunkCount, fileErr := p.chunkFile(ctx, path)
		if fileErr != nil {
			stats.FilesFailed++
			p.logger.Error("processing file failed", "path", path, "error", fileErr)
			return nil
		}
		if docID == "" {
			p.logger.Warn("file produced no chunks", "path", path)
			return nil
		}

		stats.FilesProcessed++
		stats.Chunks += chunkCount
		docIDs = append(docIDs, docID)
		p.logger.Info("chunks saved", "path", path, "doc_id", docID, "chunks", chunkCount)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}

	return docIDs, nil
}

func (p *Pipeline) chunkFile(ctx context.Context, path string) (string, int, error) {
	loadedDocs, err := document.Load(ctx, path)
	if err != nil {
		return "", 0, err
	}

	var chunks []Chunk
	for _, loaded := range loadedDocs {
		pieces, err := p.splitter.Split(loaded.Content)
		if err != nil {
			return "", 0, err
		}
		for _, piece := range pieces {
			chunks = append(chunks, Chunk{Text: piece, Metadata: loaded.Metadata})
		}
	}

	docID, err := p.stages.SaveChunks(path, chunks)
	if err != nil {
		return "", 0, err
	}
	return docID, len(chunks), nil
}

// embedStage embeds the chunks of each document and persists the vectors.
func (p *Pipeline) embedStage(ctx context.Context, docIDs []string, stats *Stats) error {
	for _, docID := range docIDs {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		set, err := p.stages.LoadChunks(docID)
		if err != nil {
			p.logger.Error("loading chunks failed", "doc_id", docID, "error", err)
			continue
		}

		texts := make([]string, len(set.Chunks))
		for i, chunk := range set.Chunks {
			texts[i] = chunk.Text
		}

		vectors, err := knowledge.EmbedTexts(ctx, p.embedder, texts)
		if err != nil {
			p.logger.Error("embedding failed", "doc_id", docID, "error", err)
			continue
		}

		path, err := p.stages.SaveEmbeddings(docID, p.model, set.Chunks, vectors)
		if err != nil {
			p.logger.Error("saving embeddings failed", "doc_id", docID, "error", err)
			continue
		}

		stats.Embedded += len(vectors)
		p.logger.Info("embeddings saved", "doc_id", docID, "path", path)
	}
	return nil
}

// loadStage upserts each document's chunks into the vector store using the
// staged vectors. Full chunk text comes from the stage 1 file; the
// embeddings file only keeps a truncated copy.
func (p *Pipeline) loadStage(ctx context.Context, docIDs []string, stats *Stats) error {
	for _, docID := range docIDs {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		chunkSet, err := p.stages.LoadChunks(docID)
		if err != nil {
			p.logger.Error("loading chunks failed", "doc_id", docID, "error", err)
			continue
		}
		embSet, err := p.stages.LoadEmbeddings(docID)
		if err != nil {
			p.logger.Error("loading embeddings failed", "doc_id", docID, "error", err)
			continue
		}
		if len(chunkSet.Chunks) != len(embSet.Items) {
			p.logger.Error("stage files out of sync", "doc_id", docID,
				"chunks", len(chunkSet.Chunks), "embeddings", len(embSet.Items))
			continue
		}

		docs := make([]knowledge.Document, len(chunkSet.Chunks))
		vectors := make([][]float32, len(embSet.Items))
		for i, chunk := range chunkSet.Chunks {
			docs[i] = knowledge.Document{
				ID:       fmt.Sprintf("%s:%d", docID, i),
				Content:  chunk.Text,
				Metadata: chunk.Metadata,
			}
			vectors[i] = embSet.Items[i].Embedding
		}

		if err := p.loader.AddWithEmbeddings(ctx, docs, vectors); err != nil {
			p.logger.Error("loading into vector store failed", "doc_id", docID, "error", err)
			continue
		}

		stats.Loaded += len(docs)
		p.logger.Info("documents loaded", "doc_id", docID, "count", len(docs))
	}
	return nil
}

func (p *Pipeline) wantFile(path string) bool {
	if !document.Supported(path) {
		return false
	}
	if p.extensions == nil {
		return true
	}
	return p.extensions[strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")]
}
