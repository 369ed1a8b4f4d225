//go:build unix

package source

import (
	"os/exec"
	"syscall"
)

// setProcessGroup starts the command as the leader of a new process group,
// so cancellation can reach children it spawns (dotnet run starts the app
// as a grandchild that inherits the output pipes).
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
