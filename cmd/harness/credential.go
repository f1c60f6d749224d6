package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/neboloop/extharness/internal/keyring"
)

// CredentialCmd manages the API key stored in the OS keychain
func CredentialCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credential",
		Short: "Manage the API key stored in the OS keychain",
		Long: `The keychain is used when OPENAI_API_KEY is not set.
Set EXTHARNESS_KEYRING_DISABLED=1 to skip it (CI, containers).`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set [key]",
		Short: "Store the API key (read from stdin when no argument is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				fmt.Fprint(cmd.ErrOrStderr(), "API key: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read key: %w", err)
				}
				key = line
			}
			key = strings.TrimSpace(key)
			if !keyring.Available() {
				return errors.New("OS keychain is not available")
			}
			if err := keyring.Set(key); err != nil {
				return err
			}
			fmt.Println("✅ API key stored in keychain")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Remove the stored API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := keyring.Delete(); err != nil {
				return err
			}
			fmt.Println("🗑️  API key removed from keychain")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show whether an API key is stored",
		Run: func(cmd *cobra.Command, args []string) {
			switch {
			case os.Getenv("OPENAI_API_KEY") != "":
				fmt.Println("API key: from OPENAI_API_KEY")
			case keyring.Lookup() != "":
				fmt.Println("API key: stored in keychain")
			default:
				fmt.Println("API key: not set")
			}
		},
	})

	return cmd
}

// VersionCmd prints the build version
func VersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("extharness", Version)
		},
	}
}
