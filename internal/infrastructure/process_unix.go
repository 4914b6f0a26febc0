//go:build !windows

package infrastructure

import "os/exec"

// setSysProcAttr has nothing to configure outside Windows
func setSysProcAttr(cmd *exec.Cmd) {}
