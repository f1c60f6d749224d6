//go:build windows

package browser

import (
	"os"
	"os/exec"
)

// setChromeProcessGroup is a no-op on Windows.
func setChromeProcessGroup(cmd *exec.Cmd) {}

// killChromeProcessGroup kills the Chrome process on Windows.
// Windows doesn't have Unix-style process groups, so we kill the main process
// and rely on Chrome's own cleanup for child processes.
func killChromeProcessGroup(pid int, force bool) {
	if pid <= 0 {
		return
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return
	}
	if force {
		_ = p.Kill()
	} else {
		_ = p.Signal(os.Interrupt)
	}
}
