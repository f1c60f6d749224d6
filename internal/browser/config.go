package browser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Config describes one browser launch.
type Config struct {
	// ExecutablePath overrides auto-detection of Chrome.
	ExecutablePath string `yaml:"executablePath,omitempty"`

	// ExtensionPath is the unpacked extension directory to preload. Required.
	ExtensionPath string `yaml:"extensionPath"`

	// ProfileDir is the user data directory for this launch. Required; must be
	// unique to the run (see NewProfileDir).
	ProfileDir string `yaml:"profileDir"`

	// Headless runs the browser without a window.
	Headless bool `yaml:"headless,omitempty"`

	// NoSandbox disables Chrome sandbox (needed in some containers).
	NoSandbox bool `yaml:"noSandbox,omitempty"`

	// StartMaximized opens the window maximized.
	StartMaximized bool `yaml:"startMaximized,omitempty"`

	// LaunchTimeout bounds start-up. Zero means DefaultLaunchTimeout.
	LaunchTimeout time.Duration `yaml:"launchTimeout,omitempty"`
}

// validate checks the required paths and prepares the profile directory.
func (c *Config) validate() error {
	if c.ExtensionPath == "" {
		return errors.New("extension path is required")
	}
	ext, err := filepath.Abs(c.ExtensionPath)
	if err != nil {
		return fmt.Errorf("extension path: %w", err)
	}
	if !fileExists(filepath.Join(ext, "manifest.json")) {
		return fmt.Errorf("no manifest.json in extension path %s", ext)
	}
	c.ExtensionPath = ext

	if c.ProfileDir == "" {
		return errors.New("profile directory is required")
	}
	profile, err := filepath.Abs(c.ProfileDir)
	if err != nil {
		return fmt.Errorf("profile directory: %w", err)
	}
	if err := os.MkdirAll(profile, 0755); err != nil {
		return fmt.Errorf("failed to create profile dir: %w", err)
	}
	probe, err := os.CreateTemp(profile, ".writable-*")
	if err != nil {
		return fmt.Errorf("profile dir %s is not writable: %w", profile, err)
	}
	probe.Close()
	os.Remove(probe.Name())
	c.ProfileDir = profile

	if c.LaunchTimeout <= 0 {
		c.LaunchTimeout = DefaultLaunchTimeout
	}
	return nil
}

// NewProfileDir returns a fresh, not yet created directory under root for one
// run: run-<timestamp>-<short uuid>.
func NewProfileDir(root string) string {
	name := fmt.Sprintf("%s%s-%s", profilePrefix, time.Now().Format("20060102-150405"), uuid.New().String()[:8])
	return filepath.Join(root, name)
}
