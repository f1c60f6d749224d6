// Package fixture serves the static fixture directory the harness navigates to.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/neboloop/extharness/internal/logging"
	"github.com/neboloop/extharness/internal/wait"
)

// DefaultPort is used when the caller passes a negative port.
const DefaultPort = 8000

const shutdownTimeout = 5 * time.Second

// Server is a static file server running on its own goroutine.
type Server struct {
	mu sync.Mutex

	root     string
	port     int
	listener net.Listener
	srv      *http.Server
	done     chan struct{}
	stopped  bool
}

// Start binds port and serves root. Port 0 picks a free port; a negative port
// means DefaultPort. The listener is bound before Start returns and the serve
// loop runs on a background goroutine.
func Start(port int, root string) (*Server, error) {
	if port < 0 {
		port = DefaultPort
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("fixture root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("fixture root %s is not a directory", root)
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("listen on port %d: %w", port, err)
	}

	s := &Server{
		root:     root,
		port:     ln.Addr().(*net.TCPAddr).Port,
		listener: ln,
		done:     make(chan struct{}),
	}
	s.srv = &http.Server{
		Handler:           newRouter(root),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		defer close(s.done)
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Component("fixture").Error("serve failed", "port", s.port, "error", err)
		}
	}()

	logging.Component("fixture").Debug("server started", "port", s.port, "root", root)
	return s, nil
}

// newRouter mounts root at "/". Requests are not logged.
func newRouter(root string) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Handle("/*", http.FileServer(http.Dir(root)))
	return r
}

// Stop shuts the server down and waits for the serve goroutine. It is a no-op
// on a nil, never started or already stopped server.
func (s *Server) Stop() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || s.srv == nil {
		s.stopped = true
		return nil
	}
	s.stopped = true

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := s.srv.Shutdown(ctx)
	if err != nil {
		err = errors.Join(err, s.srv.Close())
	}
	<-s.done

	logging.Component("fixture").Debug("server stopped", "port", s.port)
	if err != nil {
		return fmt.Errorf("stop fixture server: %w", err)
	}
	return nil
}

// Port returns the bound port.
func (s *Server) Port() int {
	return s.port
}

// Root returns the served directory.
func (s *Server) Root() string {
	return s.root
}

// URL returns the address of path on this server.
func (s *Server) URL(path string) string {
	return fmt.Sprintf("http://localhost:%d/%s", s.port, strings.TrimPrefix(path, "/"))
}

// WaitReady polls the server root until it answers or timeout expires.
func (s *Server) WaitReady(ctx context.Context, timeout time.Duration) error {
	client := &http.Client{Timeout: time.Second}
	return wait.For(ctx, "fixture server on "+s.URL(""), wait.Options{Timeout: timeout, Interval: 50 * time.Millisecond},
		func(ctx context.Context) (bool, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL(""), nil)
			if err != nil {
				return false, err
			}
			resp, err := client.Do(req)
			if err != nil {
				return false, nil
			}
			resp.Body.Close()
			return resp.StatusCode < 500, nil
		})
}
