package cli

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/neboloop/extharness/internal/browser"
	"github.com/neboloop/extharness/internal/config"
	"github.com/neboloop/extharness/internal/extension"
	"github.com/neboloop/extharness/internal/fixture"
	"github.com/neboloop/extharness/internal/keyring"
	"github.com/neboloop/extharness/internal/lifecycle"
	"github.com/neboloop/extharness/internal/logging"
	"github.com/neboloop/extharness/internal/orchestrator"
)

// Run flags; applied over file and environment settings only when set.
var runFlags struct {
	port          int
	profileDir    string
	extensionPath string
	fixturesDir   string
	extensionName string
	chromePath    string
	headless      bool
	noSandbox     bool
	keepProfile   bool
	watch         bool
	verify        bool
}

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntVar(&runFlags.port, "port", config.DefaultPort, "fixture server port (0 picks a free port)")
	f.StringVar(&runFlags.profileDir, "profile-dir", "", "root directory for per-run Chrome profiles")
	f.StringVar(&runFlags.extensionPath, "extension-path", config.DefaultExtensionPath, "unpacked extension directory")
	f.StringVar(&runFlags.fixturesDir, "fixtures-dir", config.DefaultFixturesDir, "directory served by the fixture server")
	f.StringVar(&runFlags.extensionName, "extension-name", config.DefaultExtensionName, "display name to look for on chrome://extensions")
	f.StringVar(&runFlags.chromePath, "chrome-path", "", "Chrome executable (default: auto-detect)")
	f.BoolVar(&runFlags.headless, "headless", false, "run Chrome without a window")
	f.BoolVar(&runFlags.noSandbox, "no-sandbox", false, "disable the Chrome sandbox (containers)")
	f.BoolVar(&runFlags.keepProfile, "keep-profile", false, "keep the profile directory after shutdown")
	f.BoolVar(&runFlags.watch, "watch", false, "reload the fixture page when fixture files change")
	f.BoolVar(&runFlags.verify, "verify", false, "reload the options page and check the saved values")
}

func applyRunFlags(cmd *cobra.Command, c *config.Config) {
	f := cmd.Flags()
	if f.Lookup("port") == nil {
		return
	}
	if f.Changed("port") {
		c.Server.Port = runFlags.port
	}
	if f.Changed("profile-dir") {
		c.Browser.ProfileDir = runFlags.profileDir
	}
	if f.Changed("extension-path") {
		c.Browser.ExtensionPath = runFlags.extensionPath
	}
	if f.Changed("fixtures-dir") {
		c.Server.FixturesDir = runFlags.fixturesDir
	}
	if f.Changed("extension-name") {
		c.Extension.Name = runFlags.extensionName
	}
	if f.Changed("chrome-path") {
		c.Browser.ChromePath = runFlags.chromePath
	}
	setBool := func(dst *string, name string, v bool) {
		if f.Changed(name) {
			*dst = strconv.FormatBool(v)
		}
	}
	setBool(&c.Browser.Headless, "headless", runFlags.headless)
	setBool(&c.Browser.NoSandbox, "no-sandbox", runFlags.noSandbox)
	setBool(&c.Browser.KeepProfile, "keep-profile", runFlags.keepProfile)
	setBool(&c.Server.Watch, "watch", runFlags.watch)
	setBool(&c.Extension.Verify, "verify", runFlags.verify)
}

// RunCmd starts the test environment (same as the root command)
func RunCmd(c *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the test environment and hold it open until Ctrl+C",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHarness(cmd.Context(), c)
		},
	}
	addRunFlags(cmd)
	return cmd
}

// managedSession routes Terminate through the manager so the profile
// directory is cleaned up with the browser.
type managedSession struct {
	*browser.Session
	mgr *browser.Manager
}

func (s managedSession) Terminate() {
	s.mgr.Terminate()
}

func runHarness(ctx context.Context, c *config.Config) error {
	if err := c.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logging.Component("cli")
	switch source := c.ResolveCredential(keyring.Lookup); source {
	case "":
		log.Warn("no API key in config, environment or keychain")
	default:
		log.Info("API key loaded", "source", source)
	}

	mgr := browser.NewManager(browser.Config{
		ExecutablePath: c.Browser.ChromePath,
		ExtensionPath:  c.Browser.ExtensionPath,
		Headless:       c.IsHeadless(),
		NoSandbox:      c.IsNoSandbox(),
		StartMaximized: c.IsStartMaximized(),
		LaunchTimeout:  c.Browser.LaunchTimeout,
	}, c.Browser.ProfileDir, c.IsKeepProfile())

	locator := extension.Locator{ReadyTimeout: c.Extension.ReadyTimeout}
	configurator := extension.Configurator{ElementTimeout: c.Extension.ElementTimeout}
	values := extension.CredentialValues(c.Extension.APIKey, extension.Settings{
		BatchSize:  c.Extension.BatchSize,
		BatchDelay: c.Extension.BatchDelay,
		Prompt:     c.Extension.Prompt,
	})

	deps := orchestrator.Deps{
		StartServer: func(port int, root string) (orchestrator.Server, error) {
			srv, err := fixture.Start(port, root)
			if err != nil {
				return nil, err
			}
			if err := srv.WaitReady(ctx, c.Extension.ReadyTimeout); err != nil {
				srv.Stop()
				return nil, err
			}
			log.Info("fixture server ready", "port", srv.Port(), "root", srv.Root())
			return srv, nil
		},
		Launch: func(ctx context.Context) (orchestrator.Session, error) {
			s, err := mgr.Launch(ctx)
			if err != nil {
				return nil, err
			}
			log.Info("browser ready", "extension", s.ExtensionPath(), "profile", s.ProfileDir())
			return managedSession{Session: s, mgr: mgr}, nil
		},
		Resolve: func(ctx context.Context, page extension.Page) (extension.Identity, error) {
			return locator.Resolve(ctx, page, extension.NameContains(c.Extension.Name))
		},
		Configure: func(ctx context.Context, page extension.Page, id extension.Identity) error {
			if err := configurator.Apply(ctx, page, id, values); err != nil {
				return err
			}
			if c.IsVerifyEnabled() {
				return configurator.Verify(ctx, page, values)
			}
			return nil
		},
		Watch: func(root string) (orchestrator.Watcher, error) {
			w, err := fixture.Watch(root)
			if err != nil {
				return nil, err
			}
			return w, nil
		},
	}

	events := lifecycle.Default()
	events.OnStateChange(func(sc lifecycle.StateChange) {
		log.Debug("state", "from", sc.From, "to", sc.To)
	})

	o := orchestrator.New(orchestrator.Options{
		Port:            c.Server.Port,
		FixturesDir:     c.Server.FixturesDir,
		Fixture:         c.Server.Fixture,
		HasCredential:   c.HasCredential(),
		Watch:           c.IsWatchEnabled(),
		NavigateTimeout: c.Extension.ReadyTimeout,
		Out:             os.Stdout,
		Events:          events,
	}, deps)

	if err := o.Run(ctx); err != nil {
		return &reportedError{err: err}
	}
	return nil
}
