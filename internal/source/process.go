package source

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcessInfo describes the process whose output is being watched.
type ProcessInfo struct {
	PID       int32
	Name      string
	CmdLine   string
	StartTime time.Time
}

// DescribeProcess looks up a running process by PID.
func DescribeProcess(ctx context.Context, pid int32) (ProcessInfo, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return ProcessInfo{}, fmt.Errorf("process %d: %w", pid, err)
	}
	info := ProcessInfo{PID: pid}
	if info.Name, err = p.NameWithContext(ctx); err != nil {
		return ProcessInfo{}, fmt.Errorf("process %d name: %w", pid, err)
	}
	// Command line and start time may be unreadable for another user's
	// process; the name alone is enough to report.
	if cmdline, err := p.CmdlineWithContext(ctx); err == nil {
		info.CmdLine = cmdline
	}
	if ms, err := p.CreateTimeWithContext(ctx); err == nil {
		info.StartTime = time.UnixMilli(ms)
	}
	return info, nil
}

// WaitForExit polls until the process is gone or ctx is done.
func WaitForExit(ctx context.Context, pid int32, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		alive, err := process.PidExistsWithContext(ctx, pid)
		if err != nil {
			return fmt.Errorf("checking process %d: %w", pid, err)
		}
		if !alive {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
