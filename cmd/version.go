package cmd

import (
	"fmt"
	"os"
)

// Version information (injected at build time via ldflags).
var (
	Version   = "development"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// runVersion prints version and environment information.
func runVersion() {
	fmt.Printf("Clausa %s\n", Version)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Println()

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		fmt.Printf("OPENAI_API_KEY: %s (configured)\n", maskKey(key))
	} else {
		fmt.Println("OPENAI_API_KEY: not set")
		fmt.Println("Hint: export OPENAI_API_KEY=your-api-key")
	}
}

// maskKey shows only the edges of a secret.
func maskKey(key string) string {
	if len(key) < 12 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
