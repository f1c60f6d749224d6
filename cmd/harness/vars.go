package cli

import (
	"github.com/neboloop/extharness/internal/config"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// Shared CLI flags (used across multiple command files)
var (
	cfgFile string
	verbose bool
)

// HarnessConfig holds the loaded configuration (set by main)
var HarnessConfig *config.Config
