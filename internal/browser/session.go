package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/neboloop/extharness/internal/failure"
	"github.com/neboloop/extharness/internal/logging"
)

// Session is one running browser with the extension under test loaded.
// A Session is not safe for concurrent page operations; the harness drives it
// from a single goroutine.
type Session struct {
	mu sync.Mutex

	cfg Config
	exe *BrowserExecutable

	ctx         context.Context // chromedp browser context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	audit  *auditLogger
	closed bool
}

// Launch starts a browser for cfg. Any failure, including a start-up that
// exceeds cfg.LaunchTimeout, is a failure.Launch; nothing is left running.
func Launch(ctx context.Context, cfg Config) (*Session, error) {
	if err := cfg.validate(); err != nil {
		return nil, failure.Launch("launch browser", err)
	}

	exe, err := FindChromeExecutable(cfg.ExecutablePath)
	if err != nil {
		return nil, failure.Launch("launch browser", err)
	}

	// The browser outlives the launch call; only its start-up is bounded by ctx.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocatorOptions(cfg, exe)...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)

	s := &Session{
		cfg:         cfg,
		exe:         exe,
		ctx:         browserCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		audit:       newAuditLogger(),
	}

	started := make(chan error, 1)
	go func() {
		// Run with no actions allocates the browser and opens the first tab.
		started <- chromedp.Run(browserCtx)
	}()

	select {
	case err = <-started:
	case <-time.After(cfg.LaunchTimeout):
		err = fmt.Errorf("browser did not start within %s", cfg.LaunchTimeout)
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		s.Terminate()
		return nil, failure.Launch("launch browser", err)
	}

	logging.Component("browser").Info("browser launched",
		"executable", s.executableName(),
		"profile", cfg.ProfileDir,
		"extension", cfg.ExtensionPath,
	)
	return s, nil
}

func (s *Session) executableName() string {
	if s.exe == nil {
		return "chromedp-default"
	}
	return s.exe.Path
}

// ProfileDir returns the isolated profile directory.
func (s *Session) ProfileDir() string {
	return s.cfg.ProfileDir
}

// ExtensionPath returns the loaded extension directory.
func (s *Session) ExtensionPath() string {
	return s.cfg.ExtensionPath
}

// Terminate closes the browser. It never fails: a graceful close is attempted
// first, then the process group is killed. Safe to call on a nil session,
// after a partial launch, and more than once.
func (s *Session) Terminate() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	log := logging.Component("browser")
	pid := s.pid()

	if s.ctx != nil {
		done := make(chan error, 1)
		go func() { done <- chromedp.Cancel(s.ctx) }()
		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Debug("graceful close failed", "error", err)
			}
		case <-time.After(terminateTimeout):
			log.Warn("browser did not close in time, killing", "pid", pid)
			killChromeProcessGroup(pid, true)
		}
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
	log.Info("browser terminated", "profile", s.cfg.ProfileDir)
}

func (s *Session) pid() int {
	if s.ctx == nil {
		return 0
	}
	c := chromedp.FromContext(s.ctx)
	if c == nil || c.Browser == nil {
		return 0
	}
	if p := c.Browser.Process(); p != nil {
		return p.Pid
	}
	return 0
}

// run executes actions on the browser tab, bounded by ctx's deadline and
// cancellation.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return errors.New("browser session is closed")
	}

	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if deadline, ok := ctx.Deadline(); ok {
		runCtx, cancel = context.WithDeadline(s.ctx, deadline)
	} else {
		runCtx, cancel = context.WithCancel(s.ctx)
	}
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Navigate loads url in the tab and waits for the load event.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.audit.logAction("navigate", url, "")
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// Reload reloads the current page.
func (s *Session) Reload(ctx context.Context) error {
	s.audit.logAction("reload", "", "")
	if err := s.run(ctx, chromedp.Reload()); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	return nil
}

// Evaluate runs expr in the page and decodes its result into res. Promises
// are awaited.
func (s *Session) Evaluate(ctx context.Context, expr string, res any) error {
	s.audit.logAction("evaluate", "", expr)
	return s.run(ctx, chromedp.Evaluate(expr, res, awaitPromise))
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

// Present reports whether selector currently matches an element.
func (s *Session) Present(ctx context.Context, selector string) (bool, error) {
	quoted, err := json.Marshal(selector)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := s.run(ctx, chromedp.Evaluate(fmt.Sprintf("document.querySelector(%s) !== null", quoted), &ok)); err != nil {
		return false, err
	}
	return ok, nil
}

// Clear empties the input matched by selector.
func (s *Session) Clear(ctx context.Context, selector string) error {
	s.audit.logAction("clear", selector, "")
	return s.run(ctx, chromedp.Clear(selector, chromedp.ByQuery))
}

// SendKeys types value into the element matched by selector.
func (s *Session) SendKeys(ctx context.Context, selector, value string) error {
	s.audit.logAction("sendKeys", selector, value)
	return s.run(ctx, chromedp.SendKeys(selector, value, chromedp.ByQuery))
}

// Click clicks the element matched by selector.
func (s *Session) Click(ctx context.Context, selector string) error {
	s.audit.logAction("click", selector, "")
	return s.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

// Value reads the value property of the element matched by selector.
func (s *Session) Value(ctx context.Context, selector string) (string, error) {
	var v string
	if err := s.run(ctx, chromedp.Value(selector, &v, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return v, nil
}

// Text reads the text content of the element matched by selector, or "" when
// nothing matches.
func (s *Session) Text(ctx context.Context, selector string) (string, error) {
	quoted, err := json.Marshal(selector)
	if err != nil {
		return "", err
	}
	var v string
	expr := fmt.Sprintf("(document.querySelector(%s) || {}).textContent || ''", quoted)
	if err := s.run(ctx, chromedp.Evaluate(expr, &v)); err != nil {
		return "", err
	}
	return v, nil
}
