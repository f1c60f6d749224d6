package cli

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/neboloop/extharness/internal/config"
	"github.com/neboloop/extharness/internal/logging"
)

// reportedError marks a failure whose marker was already printed.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// Reported reports whether err was already shown to the user.
func Reported(err error) bool {
	var re *reportedError
	return errors.As(err, &re)
}

// SetupRootCmd configures the root command with all subcommands and flags
func SetupRootCmd(c *config.Config) *cobra.Command {
	HarnessConfig = c

	rootCmd := &cobra.Command{
		Use:   "extharness",
		Short: "End-to-end harness for the Doctor Info Extractor extension",
		Long: `extharness serves the test fixtures, launches Chrome with the unpacked
extension in a fresh profile, stores the API key through the extension's
options page and opens the fixture page. It keeps everything running until
Ctrl+C, then shuts down.

Just type 'extharness' to start the test environment.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, c)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHarness(cmd.Context(), c)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file merged over the defaults")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Root-only flags
	addRunFlags(rootCmd)

	// Add commands
	rootCmd.AddCommand(RunCmd(c))
	rootCmd.AddCommand(ProbeCmd(c))
	rootCmd.AddCommand(CredentialCmd())
	rootCmd.AddCommand(VersionCmd())

	return rootCmd
}

// loadConfig layers the config file, then the environment, then the flags
// set on cmd over the defaults in c.
func loadConfig(cmd *cobra.Command, c *config.Config) error {
	if verbose {
		logging.SetOutput(os.Stderr, true)
		logging.Enable()
	} else {
		// Markers are the user-facing output; keep logs quiet.
		logging.Disable()
	}

	if err := c.MergeFile(cfgFile); err != nil {
		return err
	}
	if err := c.ApplyEnv(os.Getenv); err != nil {
		return err
	}
	applyRunFlags(cmd, c)
	return nil
}
