package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/clausa/clausa/internal/app"
	"github.com/clausa/clausa/internal/config"
	"github.com/clausa/clausa/internal/thread"
)

// runMemory manages stored conversation threads.
// Usage: clausa memory clear [--thread ID]
func runMemory(logger *slog.Logger) error {
	args := argsAfterCommand()
	if len(args) == 0 || args[0] != "clear" {
		return errors.New("usage: clausa memory clear [--thread ID]")
	}

	flags := flag.NewFlagSet("memory clear", flag.ContinueOnError)
	flags.SetOutput(os.Stderr)
	threadID := flags.String("thread", "", "Delete only this thread (default: all threads)")
	if err := flags.Parse(args[1:]); err != nil {
		return fmt.Errorf("parsing memory flags: %w", err)
	}

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

	if *threadID != "" {
		if err := a.Threads.Clear(ctx, *threadID); err != nil {
			if errors.Is(err, thread.ErrNotFound) {
				return fmt.Errorf("thread %s not found", *threadID)
			}
			return fmt.Errorf("clearing thread: %w", err)
		}
		fmt.Printf("Thread %s deleted.\n", *threadID)
		return nil
	}

	count, err := a.Threads.ClearAll(ctx)
	if err != nil {
		return fmt.Errorf("clearing threads: %w", err)
	}
	fmt.Printf("Deleted %d thread(s).\n", count)
	return nil
}
