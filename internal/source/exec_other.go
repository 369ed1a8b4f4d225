//go:build !unix

package source

import "os/exec"

// setProcessGroup is a no-op off unix; cancellation kills the direct child
// only and Run stops waiting for inherited pipes after execWaitDelay.
func setProcessGroup(cmd *exec.Cmd) {}
