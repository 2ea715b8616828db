package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"

	"github.com/clausa/clausa/internal/app"
	"github.com/clausa/clausa/internal/config"
	"github.com/clausa/clausa/internal/ingest"
	"github.com/clausa/clausa/internal/knowledge"
)

// runQuery performs a one-off similarity search, either against the vector
// store (default) or against the staged embedding files on disk.
func runQuery(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	flags := flag.NewFlagSet("query", flag.ContinueOnError)
	flags.SetOutput(os.Stderr)
	q := flags.String("q", "", "Query text (alternative to positional arguments)")
	k := flags.Int("k", cfg.SearchTopK, "Number of results")
	scores := flags.Bool("scores", false, "Show similarity scores")
	source := flags.String("source", "db", "Search source: db (vector store) or json (staged files)")
	flags.StringVar(&cfg.ChunksDir, "chunks-dir", cfg.ChunksDir, "Stage directory with chunk files (json source)")
	flags.StringVar(&cfg.EmbeddingsDir, "embeddings-dir", cfg.EmbeddingsDir, "Stage directory with embedding files (json source)")
	if err := flags.Parse(argsAfterCommand()); err != nil {
		return fmt.Errorf("parsing query flags: %w", err)
	}

	query := strings.TrimSpace(*q)
	if query == "" {
		query = strings.TrimSpace(strings.Join(flags.Args(), " "))
	}
	if query == "" {
		return errors.New("query text is required: clausa query [flags] TEXT")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch *source {
	case "db":
		return queryStore(ctx, cfg, logger, query, *k, *scores)
	case "json":
		return queryStaged(ctx, cfg, logger, query, *k, *scores)
	default:
		return fmt.Errorf("unknown source %q: must be db or json", *source)
	}
}

// queryStore searches the PostgreSQL vector store.
func queryStore(ctx context.Context, cfg *config.Config, logger *slog.Logger, query string, k int, scores bool) error {
	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	results, err := a.Knowledge.Search(ctx, query, knowledge.WithTopK(k))
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}

	for i, res := range results {
		printResult(i+1, res.Document.Metadata["source"], res.Similarity, res.Document.Content, scores)
	}
	return nil
}

// queryStaged embeds the query and ranks the staged embedding files,
// bypassing the database entirely.
func queryStaged(ctx context.Context, cfg *config.Config, logger *slog.Logger, query string, k int, scores bool) error {
	g := genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
	if g == nil {
		return errors.New("initializing genkit with openai plugin")
	}

	embedder := genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbedderModel))
	if embedder == nil {
		return fmt.Errorf("embedder %q not registered by the openai plugin", cfg.EmbedderModel)
	}

	stages, err := ingest.NewStageStore(cfg.ChunksDir, cfg.EmbeddingsDir)
	if err != nil {
		return fmt.Errorf("opening stage directories: %w", err)
	}

	results, err := ingest.QueryLocal(ctx, stages, embedder, logger, query, k)
	if err != nil {
		return fmt.Errorf("querying staged files: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}

	for i, res := range results {
		printResult(i+1, res.Metadata["source"], res.Similarity, res.Text, scores)
	}
	return nil
}

// printResult writes one search hit to stdout.
func printResult(rank int, source string, similarity float32, content string, scores bool) {
	if source == "" {
		source = "Unknown"
	}
	if scores {
		fmt.Printf("--- %d. %s (score %.4f) ---\n", rank, source, similarity)
	} else {
		fmt.Printf("--- %d. %s ---\n", rank, source)
	}
	fmt.Println(strings.TrimSpace(content))
	fmt.Println()
}
