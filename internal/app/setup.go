package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/clausa/clausa/db"
	"github.com/clausa/clausa/internal/agent"
	"github.com/clausa/clausa/internal/config"
	"github.com/clausa/clausa/internal/knowledge"
	"github.com/clausa/clausa/internal/observability"
	"github.com/clausa/clausa/internal/thread"
)

// Setup creates and initializes the application.
// On error, everything already initialized is released before returning.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	defer func() {
		if retErr != nil {
			a.Close()
		}
	}()

	// Tracing must be registered before genkit.Init spawns traced work.
	a.cleanups = append(a.cleanups, observability.SetupTracing(ctx, cfg.OTLPEndpoint, logger))

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Pool = pool
	a.cleanups = append(a.cleanups, pool.Close)

	g, err := provideGenkit(ctx)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbedderModel))
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not registered by the openai plugin", cfg.EmbedderModel)
	}
	a.Embedder = embedder

	a.Knowledge = knowledge.New(
		knowledge.NewPGQuerier(pool),
		embedder,
		logger.With("component", "knowledge"),
	)

	threads, err := thread.NewStore(pool, logger.With("component", "thread"))
	if err != nil {
		return nil, fmt.Errorf("creating thread store: %w", err)
	}
	a.Threads = threads

	searchTool := agent.RegisterSearchTool(g, a.Knowledge, cfg.SearchTopK)

	ag, err := agent.New(agent.Config{
		Genkit:         g,
		Threads:        threads,
		Logger:         logger.With("component", "agent"),
		Model:          qualifiedModelName(cfg.ModelName),
		Tools:          []ai.ToolRef{searchTool},
		SummaryTrigger: cfg.SummaryTrigger,
		SummaryKeep:    cfg.SummaryKeep,
	})
	if err != nil {
		return nil, fmt.Errorf("creating agent: %w", err)
	}
	a.Agent = ag

	flow, err := agent.InitFlow(g, ag)
	if err != nil {
		return nil, fmt.Errorf("defining chat flow: %w", err)
	}
	a.Flow = flow

	logger.Info("application initialized",
		"model", cfg.ModelName,
		"embedder", cfg.EmbedderModel,
	)
	return a, nil
}

// provideGenkit initializes Genkit with the OpenAI compat plugin. The
// plugin reads OPENAI_API_KEY from the environment and registers models
// and embedders during Init.
func provideGenkit(ctx context.Context) (*genkit.Genkit, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit with openai plugin")
	}
	return g, nil
}

// provideDBPool runs migrations and creates the connection pool.
// pgvector types are registered on every new connection so embedding
// columns scan into pgvector.Vector values.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// qualifiedModelName prefixes bare model names with the openai provider.
// Names that already carry a provider pass through unchanged.
func qualifiedModelName(name string) string {
	if strings.Contains(name, "/") {
		return name
	}
	return "openai/" + name
}
