// Package browser launches Chrome with an unpacked extension preloaded into an
// isolated profile and exposes the page operations the harness stages use.
package browser

import "time"

const (
	// ExtensionsPageURL is Chrome's extension management UI.
	ExtensionsPageURL = "chrome://extensions"

	// ExtensionScheme addresses pages served by an installed extension.
	ExtensionScheme = "chrome-extension"

	// DefaultLaunchTimeout bounds browser start-up.
	DefaultLaunchTimeout = 30 * time.Second

	// terminateTimeout bounds the graceful close before the process group is killed.
	terminateTimeout = 5 * time.Second

	// profilePrefix names per-run profile directories.
	profilePrefix = "run-"
)
