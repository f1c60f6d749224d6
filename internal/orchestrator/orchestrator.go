// Package orchestrator runs one harness session: fixture server, browser,
// extension setup, fixture page, then a hold until interrupted and an ordered
// teardown.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/neboloop/extharness/internal/crashlog"
	"github.com/neboloop/extharness/internal/extension"
	"github.com/neboloop/extharness/internal/failure"
	"github.com/neboloop/extharness/internal/lifecycle"
	"github.com/neboloop/extharness/internal/logging"
	"github.com/neboloop/extharness/internal/wait"
)

// DefaultNavigateTimeout bounds the final fixture navigation and reloads.
const DefaultNavigateTimeout = 10 * time.Second

// Server is a running fixture server.
type Server interface {
	URL(path string) string
	Stop() error
}

// Session is a running browser.
type Session interface {
	extension.Page
	Terminate()
}

// Watcher reports fixture file changes.
type Watcher interface {
	Changes() <-chan string
	Close() error
}

// Deps are the stage implementations. Watch is optional.
type Deps struct {
	StartServer func(port int, root string) (Server, error)
	Launch      func(ctx context.Context) (Session, error)
	Resolve     func(ctx context.Context, page extension.Page) (extension.Identity, error)
	Configure   func(ctx context.Context, page extension.Page, id extension.Identity) error
	Watch       func(root string) (Watcher, error)
}

// Options configure a run.
type Options struct {
	Port        int
	FixturesDir string
	Fixture     string

	// HasCredential enables the configuration stage.
	HasCredential bool

	// Watch reloads the fixture page when files under FixturesDir change.
	Watch bool

	NavigateTimeout time.Duration

	// Out receives progress markers. Nil means os.Stdout.
	Out io.Writer

	// Events receives state changes. Nil means lifecycle.Default().
	Events *lifecycle.Manager
}

// Orchestrator sequences the harness stages. A value runs once.
type Orchestrator struct {
	opts Options
	deps Deps
	out  io.Writer
	log  *slog.Logger

	mu    sync.Mutex
	state State

	server  Server
	session Session
	watcher Watcher
}

// New creates an orchestrator in state Idle.
func New(opts Options, deps Deps) *Orchestrator {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Events == nil {
		opts.Events = lifecycle.Default()
	}
	if opts.NavigateTimeout <= 0 {
		opts.NavigateTimeout = DefaultNavigateTimeout
	}
	return &Orchestrator{
		opts: opts,
		deps: deps,
		out:  opts.Out,
		log:  logging.Component("orchestrator"),
	}
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) transition(to State, err error) {
	o.mu.Lock()
	from := o.state
	o.state = to
	o.mu.Unlock()

	o.log.Debug("state change", "from", from.String(), "to", to.String())
	o.opts.Events.Emit(lifecycle.EventStateChange, lifecycle.StateChange{
		From: from.String(),
		To:   to.String(),
		Err:  err,
	})
}

func (o *Orchestrator) printf(format string, args ...any) {
	fmt.Fprintf(o.out, format+"\n", args...)
}

// Run executes the stages, holds in Running until ctx is cancelled, then
// tears down. It always ends in Stopped. The returned error is the stage
// failure, or nil when the run ended by interrupt.
func (o *Orchestrator) Run(ctx context.Context) error {
	if o.State() != Idle {
		return errors.New("orchestrator already ran")
	}

	err := o.guard(func() error { return o.start(ctx) })
	switch {
	case err == nil:
		if err = o.guard(func() error { o.hold(ctx); return nil }); err != nil {
			o.fatal(err)
		}
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		o.log.Info("interrupted during start-up", "state", o.State().String())
		err = nil
	default:
		o.fatal(err)
	}

	o.teardown(err)
	return err
}

// guard runs fn and turns a panic into an error naming the current state.
func (o *Orchestrator) guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			state := o.State().String()
			crashlog.LogPanic("orchestrator", r, "state", state)
			err = fmt.Errorf("panic in %s: %v", state, r)
		}
	}()
	return fn()
}

func (o *Orchestrator) fatal(err error) {
	kind := failure.KindOf(err)
	if kind == failure.KindUnknown {
		o.printf("❌ Error: %v", err)
	} else {
		o.printf("❌ Error [%s]: %v", kind, err)
	}
	o.log.Error("run failed", "state", o.State().String(), "kind", kind.String(), "error", err)
}

func (o *Orchestrator) start(ctx context.Context) error {
	o.transition(ServerStarting, nil)
	server, err := o.deps.StartServer(o.opts.Port, o.opts.FixturesDir)
	if err != nil {
		return fmt.Errorf("start fixture server: %w", err)
	}
	o.server = server
	o.transition(ServerReady, nil)
	o.printf("🌐 Fixture server running at %s", server.URL(""))
	o.opts.Events.Emit(lifecycle.EventServerStarted, lifecycle.StageEventData{Detail: server.URL("")})

	o.transition(BrowserLaunching, nil)
	o.printf("🚀 Launching browser")
	session, err := o.deps.Launch(ctx)
	if err != nil {
		return err
	}
	o.session = session
	o.transition(BrowserReady, nil)
	o.opts.Events.Emit(lifecycle.EventBrowserLaunched, lifecycle.StageEventData{})

	if o.opts.HasCredential {
		o.transition(ExtensionLocating, nil)
		id, err := o.deps.Resolve(ctx, session)
		if err != nil {
			return err
		}
		o.printf("📦 Found extension %q (%s)", id.Name, id.ID)
		o.opts.Events.Emit(lifecycle.EventExtensionResolved, lifecycle.StageEventData{Detail: id.ID})

		o.transition(ExtensionConfiguring, nil)
		if err := o.deps.Configure(ctx, session, id); err != nil {
			return err
		}
		o.printf("⚙️  Extension configured")
		o.opts.Events.Emit(lifecycle.EventExtensionConfigured, lifecycle.StageEventData{Detail: id.ID})
	} else {
		o.printf("⚠️  Warning: no API key provided, skipping extension configuration")
		o.log.Warn("no credential, configuration skipped")
	}

	o.transition(NavigatingFixture, nil)
	target := server.URL(o.opts.Fixture)
	err = wait.Do(ctx, "open fixture page", o.opts.NavigateTimeout, func(ctx context.Context) error {
		return session.Navigate(ctx, target)
	})
	if err != nil {
		return err
	}
	o.printf("📄 Opened %s", target)

	if o.opts.Watch && o.deps.Watch != nil {
		w, err := o.deps.Watch(o.opts.FixturesDir)
		if err != nil {
			o.printf("⚠️  Warning: fixture watch disabled: %v", err)
			o.log.Warn("fixture watch disabled", "error", err)
		} else {
			o.watcher = w
		}
	}
	return nil
}

// hold blocks in Running until ctx is done. Fixture changes reload the page
// from this goroutine.
func (o *Orchestrator) hold(ctx context.Context) {
	o.transition(Running, nil)
	o.printf("✨ Test environment ready. Press Ctrl+C to stop.")

	var changes <-chan string
	if o.watcher != nil {
		changes = o.watcher.Changes()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case name, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			o.reload(ctx, name)
		}
	}
}

func (o *Orchestrator) reload(ctx context.Context, name string) {
	err := wait.Do(ctx, "reload fixture page", o.opts.NavigateTimeout, o.session.Reload)
	if err != nil {
		o.log.Warn("fixture reload failed", "file", name, "error", err)
		return
	}
	o.log.Info("fixture reloaded", "file", name)
	o.opts.Events.Emit(lifecycle.EventFixtureReloaded, lifecycle.StageEventData{Detail: name})
}

// teardown releases resources in fixed order: watcher, browser session,
// fixture server. Failures are logged and never stop the sequence.
func (o *Orchestrator) teardown(cause error) {
	o.transition(ShuttingDown, cause)
	o.printf("🛑 Shutting down test environment")
	o.opts.Events.Emit(lifecycle.EventShutdownStarted, nil)

	if o.watcher != nil {
		w := o.watcher
		o.safeRelease("fixture watcher", w.Close)
	}
	if o.session != nil {
		s := o.session
		o.safeRelease("browser session", func() error {
			s.Terminate()
			return nil
		})
	}
	if o.server != nil {
		o.safeRelease("fixture server", o.server.Stop)
	}
	o.watcher, o.session, o.server = nil, nil, nil

	if n := crashlog.Panics(); n > 0 {
		o.log.Warn("panics recovered during run", "count", n)
	}
	o.transition(Stopped, cause)
	o.opts.Events.Emit(lifecycle.EventShutdownComplete, nil)
	o.printf("👋 Test environment stopped")
}

func (o *Orchestrator) safeRelease(name string, release func() error) {
	defer func() {
		if r := recover(); r != nil {
			crashlog.LogPanic("orchestrator", r, "resource", name)
		}
	}()
	if err := release(); err != nil {
		crashlog.LogError("orchestrator", err, "resource", name)
	}
}
