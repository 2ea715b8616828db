// Package agent implements the conversational NDA template assistant: a
// genkit-driven chat loop with a contract search tool, Postgres-backed
// thread history, and automatic summarization of long conversations.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/clausa/clausa/internal/thread"
)

const (
	// systemPersona frames every conversation turn.
	systemPersona = "You are a helpful Intelligent Contract Template Selector assistant " +
		"specializing in Non-disclosure agreement (NDA). Use the searchContracts tool " +
		"to retrieve relevant information about NDA contracts."

	// fallbackResponse is returned when the model produces no text.
	fallbackResponse = "I apologize, but I couldn't generate a response. Please try rephrasing your question."

	// DefaultMaxTurns bounds the tool-calling loop.
	DefaultMaxTurns = 5
)

// Sentinel errors for agent operations.
var (
	ErrEmptyQuery = errors.New("query is empty")
	ErrNoModel    = errors.New("model produced no response")
)

// StreamCallback receives partial response text as the model generates it.
type StreamCallback func(ctx context.Context, chunk *ai.ModelResponseChunk) error

// Response is the result of one conversation turn.
type Response struct {
	Text     string
	ThreadID string
}

// Config carries the agent's dependencies.
type Config struct {
	Genkit  *genkit.Genkit
	Threads *thread.Store
	Logger  *slog.Logger
	// Model is the full genkit model name, e.g. "openai/gpt-4o".
	Model string
	// Tools are pre-registered tool references (the contract search tool).
	Tools []ai.ToolRef
	// MaxTurns bounds the agentic loop; zero uses DefaultMaxTurns.
	MaxTurns int
	// SummaryTrigger summarizes a thread once it stores more than this many
	// messages; SummaryKeep messages survive the prune.
	SummaryTrigger int
	SummaryKeep    int
}

func (cfg Config) validate() error {
	switch {
	case cfg.Genkit == nil:
		return errors.New("genkit instance is required")
	case cfg.Threads == nil:
		return errors.New("thread store is required")
	case cfg.Model == "":
		return errors.New("model name is required")
	case cfg.SummaryTrigger > 0 && cfg.SummaryKeep >= cfg.SummaryTrigger:
		return errors.New("summary keep must be smaller than trigger")
	}
	return nil
}

// Agent is the conversational assistant. It is stateless between calls;
// all conversation state lives in the thread store.
//
// Agent is safe for concurrent use by multiple goroutines.
type Agent struct {
	g              *genkit.Genkit
	threads        *thread.Store
	logger         *slog.Logger
	model          string
	tools          []ai.ToolRef
	maxTurns       int
	summaryTrigger int
	summaryKeep    int
}

// New validates cfg and builds an Agent.
func New(cfg Config) (*Agent, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid agent config: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}

	return &Agent{
		g:              cfg.Genkit,
		threads:        cfg.Threads,
		logger:         logger,
		model:          cfg.Model,
		tools:          cfg.Tools,
		maxTurns:       maxTurns,
		summaryTrigger: cfg.SummaryTrigger,
		summaryKeep:    cfg.SummaryKeep,
	}, nil
}

// Execute runs one conversation turn: loads thread history, generates a
// response (calling tools as needed), persists both sides of the exchange,
// and summarizes the thread when it has grown past the trigger. An empty
// threadID starts a new thread. callback may be nil for non-streaming use.
func (a *Agent) Execute(ctx context.Context, threadID, query string, callback StreamCallback) (Response, error) {
	if strings.TrimSpace(query) == "" {
		return Response{}, ErrEmptyQuery
	}

	th, err := a.threads.Ensure(ctx, threadID)
	if err != nil {
		return Response{}, err
	}

	history, err := a.threads.History(ctx, th.ID)
	if err != nil {
		return Response{}, err
	}

	messages := append(history, ai.NewUserMessage(ai.NewTextPart(query)))

	opts := []ai.GenerateOption{
		ai.WithModelName(a.model),
		ai.WithSystem(a.systemPrompt(th.Summary)),
		ai.WithMessages(messages...),
		ai.WithMaxTurns(a.maxTurns),
	}
	if len(a.tools) > 0 {
		opts = append(opts, ai.WithTools(a.tools...))
	}
	if callback != nil {
		opts = append(opts, ai.WithStreaming(func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
			return callback(ctx, chunk)
		}))
	}

	a.logger.Debug("generating response",
		"thread_id", th.ID,
		"history_messages", len(history),
		"query_length", len(query))

	resp, err := genkit.Generate(ctx, a.g, opts...)
	if err != nil {
		return Response{ThreadID: th.ID}, fmt.Errorf("generating response: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		a.logger.Warn("model returned empty response", "thread_id", th.ID)
		text = fallbackResponse
	}

	if err := a.threads.Append(ctx, th.ID, thread.RoleFromMessage(ai.RoleUser), query); err != nil {
		return Response{ThreadID: th.ID}, err
	}
	if err := a.threads.Append(ctx, th.ID, thread.RoleFromMessage(ai.RoleModel), text); err != nil {
		return Response{ThreadID: th.ID}, err
	}

	if err := a.maybeSummarize(ctx, th.ID, th.Summary); err != nil {
		// Summarization failure must not lose the turn that already happened.
		a.logger.Error("summarization failed", "thread_id", th.ID, "error", err)
	}

	return Response{Text: text, ThreadID: th.ID}, nil
}

// systemPrompt appends the rolling conversation summary to the persona.
func (a *Agent) systemPrompt(summary string) string {
	if summary == "" {
		return systemPersona
	}
	return systemPersona + " Summary of conversation earlier: " + summary
}

// maybeSummarize condenses the thread once it stores more than the trigger
// count, then prunes stored history to the configured tail.
func (a *Agent) maybeSummarize(ctx context.Context, threadID, summary string) error {
	if a.summaryTrigger <= 0 {
		return nil
	}

	count, err := a.threads.CountMessages(ctx, threadID)
	if err != nil {
		return err
	}
	if count <= a.summaryTrigger {
		return nil
	}

	history, err := a.threads.History(ctx, threadID)
	if err != nil {
		return err
	}

	prompt := "Create a summary of the conversation above:"
	if summary != "" {
		prompt = "This is summary of the conversation to date: " + summary + "\n\n" +
			"Extend the summary by taking into account the new messages above:"
	}
	messages := append(history, ai.NewUserMessage(ai.NewTextPart(prompt)))

	resp, err := genkit.Generate(ctx, a.g,
		ai.WithModelName(a.model),
		ai.WithMessages(messages...),
	)
	if err != nil {
		return fmt.Errorf("generating summary: %w", err)
	}

	newSummary := strings.TrimSpace(resp.Text())
	if newSummary == "" {
		return ErrNoModel
	}

	if err := a.threads.SetSummaryAndPrune(ctx, threadID, newSummary, a.summaryKeep); err != nil {
		return err
	}

	a.logger.Info("thread summarized",
		"thread_id", threadID,
		"messages_before", count,
		"messages_kept", a.summaryKeep)
	return nil
}
