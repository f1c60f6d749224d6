// Package lifecycle provides event hooks for harness state changes and
// shutdown.
package lifecycle

import (
	"sync"

	"github.com/neboloop/extharness/internal/logging"
)

// Event types for lifecycle hooks
type Event string

const (
	// EventStateChange fires on every orchestrator transition; data is a
	// StateChange.
	EventStateChange Event = "state_change"

	// Teardown events
	EventShutdownStarted  Event = "shutdown_started"
	EventShutdownComplete Event = "shutdown_complete"

	// Stage events; data is a StageEventData.
	EventServerStarted       Event = "server_started"
	EventBrowserLaunched     Event = "browser_launched"
	EventExtensionResolved   Event = "extension_resolved"
	EventExtensionConfigured Event = "extension_configured"
	EventFixtureReloaded     Event = "fixture_reloaded"
)

// Handler is a function that handles a lifecycle event
type Handler func(event Event, data any)

// StateChange is the payload of EventStateChange.
type StateChange struct {
	From string
	To   string
	Err  error
}

// StageEventData is the payload of stage events.
type StageEventData struct {
	Detail string
}

// Manager manages lifecycle event subscriptions and dispatching
type Manager struct {
	mu       sync.RWMutex
	handlers map[Event][]Handler
}

// NewManager creates a manager with no handlers.
func NewManager() *Manager {
	return &Manager{handlers: make(map[Event][]Handler)}
}

// Global lifecycle manager
var global = NewManager()

// Default returns the process-wide manager.
func Default() *Manager {
	return global
}

// On registers a handler for a lifecycle event
func (m *Manager) On(event Event, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[event] = append(m.handlers[event], handler)
}

// Emit dispatches an event to all registered handlers. A nil manager drops
// the event.
func (m *Manager) Emit(event Event, data any) {
	if m == nil {
		return
	}
	m.mu.RLock()
	handlers := m.handlers[event]
	m.mu.RUnlock()

	logging.Debug("lifecycle event", "event", string(event))
	for _, h := range handlers {
		// Run handlers synchronously (they can spawn goroutines if needed)
		h(event, data)
	}
}

// OnStateChange registers a handler for orchestrator transitions
func (m *Manager) OnStateChange(handler func(StateChange)) {
	m.On(EventStateChange, func(e Event, data any) {
		if d, ok := data.(StateChange); ok {
			handler(d)
		}
	})
}
