package cmd

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/clausa/clausa/internal/app"
	"github.com/clausa/clausa/internal/config"
	"github.com/clausa/clausa/internal/document"
	"github.com/clausa/clausa/internal/ingest"
	"github.com/clausa/clausa/internal/knowledge"
)

// runIngest runs the three-stage document pipeline over a directory.
func runIngest(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	flags := flag.NewFlagSet("ingest", flag.ContinueOnError)
	flags.SetOutput(os.Stderr)
	dir := flags.String("dir", "data", "Directory containing contract documents")
	chunksDir := flags.String("chunks-dir", cfg.ChunksDir, "Stage output directory for chunk files")
	embeddingsDir := flags.String("embeddings-dir", cfg.EmbeddingsDir, "Stage output directory for embedding files")
	ext := flags.String("ext", "", "Comma-separated extension filter, e.g. txt,pdf (default: all supported)")
	smokeQuery := flags.String("query", "", "Run a top-3 similarity search after ingestion")
	if err := flags.Parse(argsAfterCommand()); err != nil {
		return fmt.Errorf("parsing ingest flags: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	stages, err := ingest.NewStageStore(*chunksDir, *embeddingsDir)
	if err != nil {
		return fmt.Errorf("preparing stage directories: %w", err)
	}

	pipeline, err := ingest.NewPipeline(ingest.Options{
		Splitter:   document.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		Stages:     stages,
		Embedder:   a.Embedder,
		Loader:     a.Knowledge,
		Model:      cfg.EmbedderModel,
		Extensions: parseExtensions(*ext),
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("building pipeline: %w", err)
	}

	stats, err := pipeline.Run(ctx, *dir)
	if err != nil {
		return fmt.Errorf("running pipeline: %w", err)
	}

	fmt.Printf("Ingestion complete in %s\n", stats.Duration.Round(10*time.Millisecond))
	fmt.Printf("  Files found:     %d\n", stats.FilesFound)
	fmt.Printf("  Files processed: %d\n", stats.FilesProcessed)
	fmt.Printf("  Files failed:    %d\n", stats.FilesFailed)
	fmt.Printf("  Chunks created:  %d\n", stats.Chunks)
	fmt.Printf("  Chunks embedded: %d\n", stats.Embedded)
	fmt.Printf("  Chunks stored:   %d\n", stats.Loaded)

	if *smokeQuery != "" {
		fmt.Println()
		fmt.Printf("Smoke test: %q\n", *smokeQuery)
		results, err := a.Knowledge.Search(ctx, *smokeQuery, knowledge.WithTopK(3))
		if err != nil {
			return fmt.Errorf("running smoke-test search: %w", err)
		}
		if len(results) == 0 {
			fmt.Println("No results.")
			return nil
		}
		for i, res := range results {
			printResult(i+1, res.Document.Metadata["source"], res.Similarity, res.Document.Content, true)
		}
	}
	return nil
}

// parseExtensions splits a comma-separated extension list, trimming dots
// and whitespace. Empty input yields nil (no filtering).
func parseExtensions(s string) []string {
	if s == "" {
		return nil
	}
	var exts []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimPrefix(strings.TrimSpace(part), ".")
		if part != "" {
			exts = append(exts, strings.ToLower(part))
		}
	}
	return exts
}

// argsAfterCommand returns the CLI arguments following the subcommand name.
func argsAfterCommand() []string {
	if len(os.Args) > 2 {
		return os.Args[2:]
	}
	return nil
}
