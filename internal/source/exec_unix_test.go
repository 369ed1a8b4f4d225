//go:build unix

package source

import (
	"context"
	"os/exec"
	"testing"
	"time"
)

func TestExecSourceCancelKillsDescendants(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The background sleep inherits both pipes and outlives a kill of sh alone.
	src := NewExecSource([]string{sh, "-c", "sleep 5 & echo ready; wait"})
	ready := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- src.Run(ctx, func(line string) {
			if line == "ready" {
				select {
				case ready <- struct{}{}:
				default:
				}
			}
		})
	}()

	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		t.Fatal("no output from child")
	}
	cancel()

	// Killing the process group closes the pipes without waiting out the
	// grace period.
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run = %v, want context.Canceled", err)
		}
	case <-time.After(execWaitDelay):
		t.Fatal("Run still blocked after cancel")
	}
}
