package main

import (
	_ "embed"
	"fmt"
	"os"

	cli "github.com/neboloop/extharness/cmd/harness"
	"github.com/neboloop/extharness/internal/config"

	"github.com/joho/godotenv"
)

//go:embed etc/harness.yaml
var embeddedConfig []byte

func main() {
	// Load .env files if present (ignore error if not found)
	_ = godotenv.Load()
	_ = godotenv.Load("tests/config/test.env")

	// Load embedded config (defaults)
	c, err := config.LoadFromBytes(embeddedConfig)
	if err != nil {
		fmt.Printf("Failed to load embedded config: %v\n", err)
		os.Exit(1)
	}

	// Pass config to CLI and execute
	if err := cli.SetupRootCmd(&c).Execute(); err != nil {
		if !cli.Reported(err) {
			fmt.Fprintln(os.Stderr, "❌ Error:", err)
		}
		os.Exit(1)
	}
}
