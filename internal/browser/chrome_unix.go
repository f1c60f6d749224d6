//go:build !windows

package browser

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setChromeProcessGroup puts Chrome in its own process group so renderers,
// GPU and utility children can be killed together on terminate. Any existing
// SysProcAttr is kept.
func setChromeProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// killChromeProcessGroup sends a signal to the entire Chrome process group.
// force=false sends SIGTERM (graceful), force=true sends SIGKILL.
func killChromeProcessGroup(pid int, force bool) {
	if pid <= 0 {
		return
	}
	sig := unix.SIGTERM
	if force {
		sig = unix.SIGKILL
	}
	// Negative PID targets the entire process group
	_ = unix.Kill(-pid, sig)
}
