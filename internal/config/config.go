package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultPort           = 8000
	DefaultExtensionPath  = "."
	DefaultFixturesDir    = "tests/fixtures"
	DefaultFixture        = "test.html"
	DefaultExtensionName  = "Doctor Info Extractor"
	DefaultReadyTimeout   = 10 * time.Second
	DefaultElementTimeout = 10 * time.Second
	DefaultLaunchTimeout  = 30 * time.Second
	DefaultProbeModel     = "gpt-4o-mini"
)

// Environment variables read by ApplyEnv.
const (
	EnvPort          = "TEST_SERVER_PORT"
	EnvProfileDir    = "CHROME_PROFILE_DIR"
	EnvAPIKey        = "OPENAI_API_KEY"
	EnvExtensionPath = "EXTENSION_PATH"
	EnvFixturesDir   = "FIXTURES_DIR"
	EnvExtensionName = "EXTENSION_NAME"
	EnvChromePath    = "CHROME_PATH"
	EnvHeadless      = "HEADLESS"
	EnvKeepProfile   = "KEEP_PROFILE"
)

// LoadFromBytes loads configuration from YAML bytes with environment variable
// expansion. Keys missing from data keep their defaults.
func LoadFromBytes(data []byte) (Config, error) {
	c := Default()
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &c); err != nil {
		return c, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

// MergeFile overlays the YAML file at path onto c. An empty path is a no-op.
func (c *Config) MergeFile(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// parseBool parses a string as boolean with a default value.
// Accepts: "true", "1", "yes" as true; empty or other values return default.
func parseBool(s string, defaultVal bool) bool {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return defaultVal
	}
	return s == "true" || s == "1" || s == "yes"
}

type Config struct {
	Server struct {
		Port        int    `yaml:"port"`
		FixturesDir string `yaml:"fixturesDir"`
		Fixture     string `yaml:"fixture"`
		Watch       string `yaml:"watch"`
	} `yaml:"server"`
	Browser struct {
		ProfileDir     string        `yaml:"profileDir"`
		ChromePath     string        `yaml:"chromePath"`
		ExtensionPath  string        `yaml:"extensionPath"`
		Headless       string        `yaml:"headless"`
		NoSandbox      string        `yaml:"noSandbox"`
		StartMaximized string        `yaml:"startMaximized"`
		KeepProfile    string        `yaml:"keepProfile"`
		LaunchTimeout  time.Duration `yaml:"launchTimeout"`
	} `yaml:"browser"`
	Extension struct {
		Name           string        `yaml:"name"`
		APIKey         string        `yaml:"apiKey"`
		Verify         string        `yaml:"verify"`
		BatchSize      string        `yaml:"batchSize"`
		BatchDelay     string        `yaml:"batchDelay"`
		Prompt         string        `yaml:"prompt"`
		ReadyTimeout   time.Duration `yaml:"readyTimeout"`
		ElementTimeout time.Duration `yaml:"elementTimeout"`
	} `yaml:"extension"`
	Probe struct {
		Model   string   `yaml:"model"`
		BaseURL string   `yaml:"baseURL"`
		Names   []string `yaml:"names"`
	} `yaml:"probe"`
}

// Default returns the configuration used when nothing else is given.
func Default() Config {
	var c Config
	c.Server.Port = DefaultPort
	c.Server.FixturesDir = DefaultFixturesDir
	c.Server.Fixture = DefaultFixture
	c.Browser.ExtensionPath = DefaultExtensionPath
	c.Browser.StartMaximized = "true"
	c.Browser.LaunchTimeout = DefaultLaunchTimeout
	c.Extension.Name = DefaultExtensionName
	c.Extension.ReadyTimeout = DefaultReadyTimeout
	c.Extension.ElementTimeout = DefaultElementTimeout
	c.Probe.Model = DefaultProbeModel
	return c
}

// ApplyEnv overrides settings from the environment. Unset or empty
// variables leave the current value.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid port %q", EnvPort, v)
		}
		c.Server.Port = port
	}
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Browser.ProfileDir, EnvProfileDir)
	set(&c.Extension.APIKey, EnvAPIKey)
	set(&c.Browser.ExtensionPath, EnvExtensionPath)
	set(&c.Server.FixturesDir, EnvFixturesDir)
	set(&c.Extension.Name, EnvExtensionName)
	set(&c.Browser.ChromePath, EnvChromePath)
	set(&c.Browser.Headless, EnvHeadless)
	set(&c.Browser.KeepProfile, EnvKeepProfile)
	return nil
}

// ResolveCredential fills an empty APIKey from lookup and reports where the
// credential came from: "config", "keyring" or "" when there is none.
func (c *Config) ResolveCredential(lookup func() string) string {
	if c.Extension.APIKey != "" {
		return "config"
	}
	if lookup == nil {
		return ""
	}
	if key := lookup(); key != "" {
		c.Extension.APIKey = key
		return "keyring"
	}
	return ""
}

// Validate checks the settings a harness run needs.
func (c Config) Validate() error {
	var errs []error
	if c.Browser.ProfileDir == "" {
		errs = append(errs, fmt.Errorf("profile directory is required (set %s)", EnvProfileDir))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Server.Port))
	}
	if c.Server.FixturesDir == "" {
		errs = append(errs, errors.New("fixtures directory is required"))
	}
	if c.Server.Fixture == "" {
		errs = append(errs, errors.New("fixture page is required"))
	}
	if c.Browser.ExtensionPath == "" {
		errs = append(errs, errors.New("extension path is required"))
	}
	if c.Extension.Name == "" {
		errs = append(errs, errors.New("extension name is required"))
	}
	if c.Extension.ReadyTimeout <= 0 || c.Extension.ElementTimeout <= 0 || c.Browser.LaunchTimeout <= 0 {
		errs = append(errs, errors.New("timeouts must be positive"))
	}
	return errors.Join(errs...)
}

// HasCredential reports whether an API key is configured.
func (c Config) HasCredential() bool {
	return c.Extension.APIKey != ""
}

func (c Config) IsHeadless() bool {
	return parseBool(c.Browser.Headless, false)
}

func (c Config) IsNoSandbox() bool {
	return parseBool(c.Browser.NoSandbox, false)
}

func (c Config) IsStartMaximized() bool {
	return parseBool(c.Browser.StartMaximized, true)
}

func (c Config) IsKeepProfile() bool {
	return parseBool(c.Browser.KeepProfile, false)
}

func (c Config) IsWatchEnabled() bool {
	return parseBool(c.Server.Watch, false)
}

func (c Config) IsVerifyEnabled() bool {
	return parseBool(c.Extension.Verify, false)
}
