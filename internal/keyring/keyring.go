// Package keyring stores the harness credential in the OS keychain.
package keyring

import (
	"errors"
	"fmt"
	"os"

	zkr "github.com/zalando/go-keyring"
)

const (
	serviceName = "extharness"
	accountName = "openai-api-key"
)

// ErrNotFound is returned by Get when no credential is stored.
var ErrNotFound = zkr.ErrNotFound

// Get retrieves the stored credential from the OS keychain.
func Get() (string, error) {
	key, err := zkr.Get(serviceName, accountName)
	if err != nil {
		return "", fmt.Errorf("keychain get: %w", err)
	}
	return key, nil
}

// Set stores the credential in the OS keychain.
func Set(key string) error {
	if key == "" {
		return errors.New("refusing to store an empty credential")
	}
	if err := zkr.Set(serviceName, accountName, key); err != nil {
		return fmt.Errorf("keychain set: %w", err)
	}
	return nil
}

// Delete removes the credential from the OS keychain. Deleting a missing
// credential is not an error.
func Delete() error {
	err := zkr.Delete(serviceName, accountName)
	if err != nil && !errors.Is(err, zkr.ErrNotFound) {
		return fmt.Errorf("keychain delete: %w", err)
	}
	return nil
}

// Lookup returns the stored credential, or "" when the keychain is disabled,
// unavailable or empty.
func Lookup() string {
	if !Available() {
		return ""
	}
	key, err := Get()
	if err != nil {
		return ""
	}
	return key
}

// Available returns true if the OS keychain is functional.
// Returns false if EXTHARNESS_KEYRING_DISABLED=1 is set (opt-in for headless/CI/Docker).
// Otherwise probes the keychain with a test write/read/delete cycle.
func Available() bool {
	if os.Getenv("EXTHARNESS_KEYRING_DISABLED") == "1" {
		return false
	}
	testService := "extharness-keyring-probe"
	testAccount := "probe"
	if err := zkr.Set(testService, testAccount, "ok"); err != nil {
		return false
	}
	_ = zkr.Delete(testService, testAccount)
	return true
}
