//go:build windows

package sysproc

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// HideConsole stops the child from opening its own console window.
func HideConsole(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.HideWindow = true
	cmd.SysProcAttr.CreationFlags |= windows.CREATE_NO_WINDOW
}
