//go:build windows

package infrastructure

import (
	"os/exec"
	"syscall"
)

const createNoWindow = 0x08000000

// setSysProcAttr keeps the tool from opening a console window
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: createNoWindow,
	}
}
