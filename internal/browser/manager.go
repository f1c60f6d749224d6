package browser

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/neboloop/extharness/internal/logging"
)

// Manager owns the single browser session of a harness run. Each Launch gets
// a fresh profile directory under ProfileRoot.
type Manager struct {
	mu sync.Mutex

	base        Config
	profileRoot string
	keepProfile bool

	session *Session
}

// NewManager creates a manager. base.ProfileDir is ignored; profiles are
// created under profileRoot. keepProfile leaves the profile on disk after
// Terminate.
func NewManager(base Config, profileRoot string, keepProfile bool) *Manager {
	return &Manager{
		base:        base,
		profileRoot: profileRoot,
		keepProfile: keepProfile,
	}
}

// Launch starts the browser. Only one session may be active.
func (m *Manager) Launch(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		return nil, errors.New("browser session already running")
	}
	if m.profileRoot == "" {
		return nil, errors.New("profile directory is required")
	}

	cfg := m.base
	cfg.ProfileDir = NewProfileDir(m.profileRoot)

	session, err := Launch(ctx, cfg)
	if err != nil {
		m.removeProfile(cfg.ProfileDir)
		return nil, err
	}
	m.session = session
	return session, nil
}

// Terminate closes the active session, if any, and removes its profile unless
// the manager keeps profiles. Never fails.
func (m *Manager) Terminate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return
	}
	m.session.Terminate()
	m.removeProfile(m.session.ProfileDir())
	m.session = nil
}

func (m *Manager) removeProfile(dir string) {
	if m.keepProfile || dir == "" {
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		logging.Component("browser").Warn("failed to remove profile", "dir", dir, "error", err)
	}
}
