package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neboloop/extharness/internal/crashlog"
	"github.com/neboloop/extharness/internal/extension"
	"github.com/neboloop/extharness/internal/failure"
	"github.com/neboloop/extharness/internal/lifecycle"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type fakeServer struct {
	rec  *recorder
	port int
}

func (s *fakeServer) URL(path string) string {
	return fmt.Sprintf("http://localhost:%d/%s", s.port, path)
}

func (s *fakeServer) Stop() error {
	s.rec.add("server.stop")
	return nil
}

type fakeSession struct {
	rec       *recorder
	navErr    error
	navigated chan string
	panicStop bool
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error {
	s.rec.add("navigate " + url)
	if s.navErr != nil {
		return s.navErr
	}
	if s.navigated != nil {
		s.navigated <- url
	}
	return nil
}

func (s *fakeSession) Reload(ctx context.Context) error {
	s.rec.add("reload")
	return nil
}

func (s *fakeSession) Evaluate(ctx context.Context, expr string, res any) error { return nil }
func (s *fakeSession) Present(ctx context.Context, sel string) (bool, error) { return true, nil }
func (s *fakeSession) Clear(ctx context.Context, sel string) error { return nil }
func (s *fakeSession) SendKeys(ctx context.Context, sel, v string) error { return nil }
func (s *fakeSession) Click(ctx context.Context, sel string) error { return nil }
func (s *fakeSession) Value(ctx context.Context, sel string) (string, error) { return "", nil }
func (s *fakeSession) Text(ctx context.Context, sel string) (string, error) { return "", nil }

func (s *fakeSession) Terminate() {
	s.rec.add("session.terminate")
	if s.panicStop {
		panic("terminate exploded")
	}
}

type fakeWatcher struct {
	rec *recorder
	ch  chan string
}

func (w *fakeWatcher) Changes() <-chan string { return w.ch }

func (w *fakeWatcher) Close() error {
	w.rec.add("watcher.close")
	return nil
}

type harness struct {
	rec     *recorder
	session *fakeSession
	deps    Deps
	out     *bytes.Buffer
	states  []string
	events  *lifecycle.Manager
}

func newHarness() *harness {
	rec := &recorder{}
	h := &harness{
		rec:     rec,
		session: &fakeSession{rec: rec},
		out:     &bytes.Buffer{},
		events:  lifecycle.NewManager(),
	}
	h.events.OnStateChange(func(c lifecycle.StateChange) {
		h.states = append(h.states, c.To)
	})
	h.deps = Deps{
		StartServer: func(port int, root string) (Server, error) {
			rec.add(fmt.Sprintf("server.start %d %s", port, root))
			return &fakeServer{rec: rec, port: port}, nil
		},
		Launch: func(ctx context.Context) (Session, error) {
			rec.add("launch")
			return h.session, nil
		},
		Resolve: func(ctx context.Context, page extension.Page) (extension.Identity, error) {
			rec.add("resolve")
			return extension.Identity{ID: "abcdef", Name: "Doctor Info Extractor"}, nil
		},
		Configure: func(ctx context.Context, page extension.Page, id extension.Identity) error {
			rec.add("configure " + id.ID)
			return nil
		},
	}
	return h
}

func (h *harness) orchestrator(credential bool) *Orchestrator {
	return New(Options{
		Port:          8123,
		FixturesDir:   "tests/fixtures",
		Fixture:       "test.html",
		HasCredential: credential,
		Out:           h.out,
		Events:        h.events,
	}, h.deps)
}

func indexOf(calls []string, s string) int {
	for i, c := range calls {
		if c == s {
			return i
		}
	}
	return -1
}

func cancelled() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

func TestNoCredentialScenario(t *testing.T) {
	h := newHarness()
	h.session.navigated = make(chan string, 1)
	o := h.orchestrator(false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	select {
	case url := <-h.session.navigated:
		assert.Equal(t, "http://localhost:8123/test.html", url)
	case <-time.After(2 * time.Second):
		t.Fatal("fixture page was never opened")
	}
	require.Eventually(t, func() bool { return o.State() == Running }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop after interrupt")
	}

	assert.Equal(t, Stopped, o.State())
	calls := h.rec.list()
	assert.Equal(t, "server.start 8123 tests/fixtures", calls[0])
	assert.Equal(t, -1, indexOf(calls, "resolve"))
	assert.Equal(t, -1, indexOf(calls, "configure abcdef"))
	assert.Less(t, indexOf(calls, "session.terminate"), indexOf(calls, "server.stop"))

	out := h.out.String()
	assert.Contains(t, out, "Warning")
	assert.Contains(t, out, "👋 Test environment stopped")
	assert.NotContains(t, out, "❌")

	assert.Equal(t, []string{
		"ServerStarting", "ServerReady", "BrowserLaunching", "BrowserReady",
		"NavigatingFixture", "Running", "ShuttingDown", "Stopped",
	}, h.states)
}

func TestWithCredentialConfiguresBeforeNavigating(t *testing.T) {
	h := newHarness()
	o := h.orchestrator(true)

	h.session.navigated = make(chan string, 1)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-h.session.navigated
		cancel()
	}()

	require.NoError(t, o.Run(ctx))

	calls := h.rec.list()
	assert.Less(t, indexOf(calls, "resolve"), indexOf(calls, "configure abcdef"))
	assert.Less(t, indexOf(calls, "configure abcdef"), indexOf(calls, "navigate http://localhost:8123/test.html"))
	assert.Contains(t, h.states, "ExtensionLocating")
	assert.Contains(t, h.states, "ExtensionConfiguring")
}

func TestEveryFailureReachesStopped(t *testing.T) {
	tests := []struct {
		name       string
		inject     func(h *harness)
		kind       failure.Kind
		wantServer bool
		wantTerm   bool
	}{
		{
			name: "server start",
			inject: func(h *harness) {
				h.deps.StartServer = func(int, string) (Server, error) {
					return nil, errors.New("address already in use")
				}
			},
			kind: failure.KindUnknown,
		},
		{
			name: "launch",
			inject: func(h *harness) {
				h.deps.Launch = func(context.Context) (Session, error) {
					return nil, failure.Launch("launch browser", errors.New("no chrome"))
				}
			},
			kind:       failure.KindLaunch,
			wantServer: true,
		},
		{
			name: "locate",
			inject: func(h *harness) {
				h.deps.Resolve = func(context.Context, extension.Page) (extension.Identity, error) {
					return extension.Identity{}, failure.NotFound("resolve extension", nil)
				}
			},
			kind:       failure.KindNotFound,
			wantServer: true,
			wantTerm:   true,
		},
		{
			name: "configure",
			inject: func(h *harness) {
				h.deps.Configure = func(context.Context, extension.Page, extension.Identity) error {
					return failure.Configuration("configure extension", errors.New("click failed"))
				}
			},
			kind:       failure.KindConfiguration,
			wantServer: true,
			wantTerm:   true,
		},
		{
			name: "navigate",
			inject: func(h *harness) {
				h.session.navErr = failure.Timeout("open fixture page", nil)
			},
			kind:       failure.KindTimeout,
			wantServer: true,
			wantTerm:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			tt.inject(h)
			o := h.orchestrator(true)

			err := o.Run(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.kind, failure.KindOf(err))
			assert.Equal(t, Stopped, o.State())
			assert.NotContains(t, h.states, "Running")

			calls := h.rec.list()
			assert.Equal(t, tt.wantServer, indexOf(calls, "server.stop") >= 0)
			assert.Equal(t, tt.wantTerm, indexOf(calls, "session.terminate") >= 0)
			if tt.wantServer && tt.wantTerm {
				assert.Less(t, indexOf(calls, "session.terminate"), indexOf(calls, "server.stop"))
			}

			out := h.out.String()
			assert.Contains(t, out, "❌ Error")
			if tt.kind != failure.KindUnknown {
				assert.Contains(t, out, "["+tt.kind.String()+"]")
			}
			assert.Contains(t, out, "👋 Test environment stopped")
		})
	}
}

func TestTeardownSwallowsPanics(t *testing.T) {
	h := newHarness()
	h.session.panicStop = true
	o := h.orchestrator(false)

	require.NoError(t, o.Run(cancelled()))

	assert.Equal(t, Stopped, o.State())
	assert.GreaterOrEqual(t, indexOf(h.rec.list(), "server.stop"), 0)
}

func TestStagePanicReachesStopped(t *testing.T) {
	h := newHarness()
	h.deps.Resolve = func(context.Context, extension.Page) (extension.Identity, error) {
		panic("nil node")
	}
	o := h.orchestrator(true)
	before := crashlog.Panics()

	var err error
	require.NotPanics(t, func() { err = o.Run(context.Background()) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in ExtensionLocating")
	assert.Equal(t, before+1, crashlog.Panics())
	assert.Equal(t, Stopped, o.State())

	calls := h.rec.list()
	require.GreaterOrEqual(t, indexOf(calls, "session.terminate"), 0)
	assert.Less(t, indexOf(calls, "session.terminate"), indexOf(calls, "server.stop"))
	assert.Contains(t, h.out.String(), "❌ Error: panic in ExtensionLocating")
	assert.Contains(t, h.out.String(), "👋 Test environment stopped")
}

func TestInterruptDuringStartIsNotFatal(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	h.deps.Launch = func(context.Context) (Session, error) {
		cancel()
		return nil, failure.Launch("launch browser", context.Canceled)
	}
	o := h.orchestrator(false)

	assert.NoError(t, o.Run(ctx))
	assert.Equal(t, Stopped, o.State())
	assert.NotContains(t, h.out.String(), "❌")
	assert.GreaterOrEqual(t, indexOf(h.rec.list(), "server.stop"), 0)
}

func TestRunTwice(t *testing.T) {
	h := newHarness()
	o := h.orchestrator(false)
	require.NoError(t, o.Run(cancelled()))
	assert.Error(t, o.Run(cancelled()))
}

func TestFixtureChangeReloadsPage(t *testing.T) {
	h := newHarness()
	w := &fakeWatcher{rec: h.rec, ch: make(chan string, 1)}
	h.deps.Watch = func(root string) (Watcher, error) { return w, nil }
	o := New(Options{
		Port:        8123,
		FixturesDir: "tests/fixtures",
		Fixture:     "test.html",
		Watch:       true,
		Out:         h.out,
		Events:      h.events,
	}, h.deps)

	reloaded := make(chan struct{})
	h.events.On(lifecycle.EventFixtureReloaded, func(lifecycle.Event, any) { close(reloaded) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	require.Eventually(t, func() bool { return o.State() == Running }, 2*time.Second, 5*time.Millisecond)
	w.ch <- "test.html"

	select {
	case <-reloaded:
	case <-time.After(2 * time.Second):
		t.Fatal("page was not reloaded")
	}
	cancel()
	require.NoError(t, <-done)

	calls := h.rec.list()
	assert.Less(t, indexOf(calls, "watcher.close"), indexOf(calls, "session.terminate"))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "NavigatingFixture", NavigatingFixture.String())
	assert.Equal(t, "Unknown", State(99).String())
}
