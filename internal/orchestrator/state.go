package orchestrator

// State is a step of a harness run.
type State int

const (
	Idle State = iota
	ServerStarting
	ServerReady
	BrowserLaunching
	BrowserReady
	ExtensionLocating
	ExtensionConfiguring
	NavigatingFixture
	Running
	ShuttingDown
	Stopped
)

var stateNames = [...]string{
	Idle:                 "Idle",
	ServerStarting:       "ServerStarting",
	ServerReady:          "ServerReady",
	BrowserLaunching:     "BrowserLaunching",
	BrowserReady:         "BrowserReady",
	ExtensionLocating:    "ExtensionLocating",
	ExtensionConfiguring: "ExtensionConfiguring",
	NavigatingFixture:    "NavigatingFixture",
	Running:              "Running",
	ShuttingDown:         "ShuttingDown",
	Stopped:              "Stopped",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}
