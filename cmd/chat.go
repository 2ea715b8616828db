package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/firebase/genkit/go/ai"

	"github.com/clausa/clausa/internal/app"
	"github.com/clausa/clausa/internal/config"
)

// runChat starts the interactive conversation loop.
func runChat(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	fmt.Printf("Clausa %s - NDA contract template assistant\n", Version)
	fmt.Println("Ask about NDA contract templates. Type /help for commands.")
	fmt.Println()

	var threadID string
	scanner := bufio.NewScanner(os.Stdin)

	for {
		if threadID == "" {
			fmt.Print("> ")
		} else {
			fmt.Printf("[%s] > ", threadID)
		}

		if !scanner.Scan() {
			// EOF (Ctrl+D)
			fmt.Println("\nGoodbye.")
			return scanner.Err()
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			done, err := handleChatCommand(ctx, a, input, &threadID)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			if done {
				return nil
			}
			continue
		}

		resp, err := a.Agent.Execute(ctx, threadID, input,
			func(_ context.Context, chunk *ai.ModelResponseChunk) error {
				fmt.Print(chunk.Text())
				return nil
			})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				fmt.Println("\nGoodbye.")
				return nil
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}

		threadID = resp.ThreadID
		fmt.Println()
		fmt.Println()
	}
}

// handleChatCommand dispatches slash commands. Returns true when the loop
// should exit.
func handleChatCommand(ctx context.Context, a *app.App, input string, threadID *string) (bool, error) {
	switch input {
	case "/exit", "/quit":
		fmt.Println("Goodbye.")
		return true, nil
	case "/new":
		*threadID = ""
		fmt.Println("Started a new conversation.")
		return false, nil
	case "/clear":
		if *threadID == "" {
			fmt.Println("No active conversation to clear.")
			return false, nil
		}
		if err := a.Threads.Clear(ctx, *threadID); err != nil {
			return false, err
		}
		fmt.Printf("Thread %s deleted.\n", *threadID)
		*threadID = ""
		return false, nil
	case "/help":
		fmt.Println("  /new     Start a new conversation thread")
		fmt.Println("  /clear   Delete the current thread")
		fmt.Println("  /exit    Exit")
		return false, nil
	default:
		return false, fmt.Errorf("unknown command %s", input)
	}
}
