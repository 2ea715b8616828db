// Package cmd provides the Clausa CLI commands.
//
// Commands:
//   - chat:    interactive conversation about NDA contract templates
//   - ingest:  run the document pipeline (load, chunk, embed, store)
//   - query:   one-off similarity search without a conversation
//   - serve:   HTTP API server with the embedded chat UI
//   - memory:  conversation thread management
//
// Signal handling and graceful shutdown are implemented for long-running
// commands via context cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/clausa/clausa/internal/log"
)

// Execute is the main entry point for the Clausa CLI.
func Execute() error {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{Level: level, JSON: os.Getenv("CLAUSA_LOG_JSON") != ""})
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		return runChat(logger)
	}

	switch os.Args[1] {
	case "chat":
		return runChat(logger)
	case "ingest":
		return runIngest(logger)
	case "query":
		return runQuery(logger)
	case "serve":
		return runServe(logger)
	case "memory":
		return runMemory(logger)
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s (run 'clausa help')", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("Clausa - NDA contract template assistant")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  clausa [chat]              Start an interactive conversation (default)")
	fmt.Println("  clausa ingest [flags]      Ingest contract documents into the vector store")
	fmt.Println("  clausa query [flags] TEXT  Similarity search without a conversation")
	fmt.Println("  clausa serve [addr]        Start the HTTP API server (default: 127.0.0.1:3400)")
	fmt.Println("  clausa memory clear        Delete conversation threads")
	fmt.Println("  clausa version             Show version information")
	fmt.Println("  clausa help                Show this help")
	fmt.Println()
	fmt.Println("Chat commands (in interactive mode):")
	fmt.Println("  /new               Start a new conversation thread")
	fmt.Println("  /clear             Delete the current thread")
	fmt.Println("  /exit, /quit       Exit")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  OPENAI_API_KEY     Required: OpenAI API key")
	fmt.Println("  DATABASE_URL       Optional: PostgreSQL connection URL")
	fmt.Println("  DEBUG              Optional: enable debug logging")
}
