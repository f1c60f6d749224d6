package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/neboloop/extharness/internal/config"
	"github.com/neboloop/extharness/internal/keyring"
	"github.com/neboloop/extharness/internal/probe"
)

// ProbeCmd sends one request with the extension's prompt to check the API key
func ProbeCmd(c *config.Config) *cobra.Command {
	var (
		names   []string
		model   string
		baseURL string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check the API key with one completion request",
		Long: `Send the extension's prompt for a few names to the completion API and
print the reply. The request is not retried.

Examples:
  extharness probe
  extharness probe --name "Dr. Sarah Johnson" --name "Jane Doe, NP"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("model") {
				c.Probe.Model = model
			}
			if cmd.Flags().Changed("base-url") {
				c.Probe.BaseURL = baseURL
			}
			if len(names) > 0 {
				c.Probe.Names = names
			}
			return runProbe(cmd.Context(), c, timeout)
		},
	}

	cmd.Flags().StringArrayVar(&names, "name", nil, "name to ask about (repeatable)")
	cmd.Flags().StringVar(&model, "model", config.DefaultProbeModel, "model to query")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "API base URL (default: OpenAI)")
	cmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "request timeout")

	return cmd
}

func runProbe(ctx context.Context, c *config.Config, timeout time.Duration) error {
	if c.ResolveCredential(keyring.Lookup) == "" {
		return errors.New("no API key: set OPENAI_API_KEY or run 'extharness credential set'")
	}

	client, err := probe.New(probe.Config{
		APIKey:  c.Extension.APIKey,
		Model:   c.Probe.Model,
		BaseURL: c.Probe.BaseURL,
		Prompt:  c.Extension.Prompt,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fmt.Println("🔍 Sending probe request...")
	reply, err := client.Send(ctx, c.Probe.Names)
	if err != nil {
		return err
	}
	fmt.Println(reply)
	return nil
}
