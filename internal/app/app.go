// Package app wires the application together: configuration, tracing,
// database pool, Genkit, stores, the agent, and its chat flow.
//
// Setup builds everything in dependency order and returns an App whose
// Close releases resources in reverse order. Entry points (CLI commands,
// the HTTP server) consume the App rather than constructing components
// themselves.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clausa/clausa/internal/agent"
	"github.com/clausa/clausa/internal/config"
	"github.com/clausa/clausa/internal/knowledge"
	"github.com/clausa/clausa/internal/thread"
)

// App is the application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	Pool     *pgxpool.Pool

	Knowledge *knowledge.Store
	Threads   *thread.Store
	Agent     *agent.Agent
	Flow      *agent.Flow

	// cleanups run in reverse registration order on Close.
	cleanups []func()
}

// Close releases all resources acquired during Setup.
func (a *App) Close() {
	a.Logger.Debug("shutting down application")
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
	a.cleanups = nil
}
