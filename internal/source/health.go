package source

import (
	"sync"
	"time"
)

type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusFailed   Status = "failed"
	StatusStopped  Status = "stopped"
)

// Health is a point-in-time copy of a source's counters.
type Health struct {
	Source              string
	Status              Status
	Lines               int
	ParseFailures       int
	ConsecutiveFailures int
	LastError           string
	LastErrorAt         time.Time
}

// sourceHealth is written from emit, which may run on several goroutines,
// and read by the UI, so every field is behind mu.
type sourceHealth struct {
	mu                  sync.Mutex
	lines               int
	parseFailures       int
	consecutiveFailures int
	lastErr             string
	lastErrAt           time.Time
	failed              bool
	stopped             bool
}

func newSourceHealth() *sourceHealth {
	return &sourceHealth{}
}

func (h *sourceHealth) recordLine(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lines++
	if err == nil {
		h.consecutiveFailures = 0
		return
	}
	h.parseFailures++
	h.consecutiveFailures++
	h.lastErr = err.Error()
	h.lastErrAt = time.Now()
}

func (h *sourceHealth) recordFailure(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failed = true
	h.lastErr = err.Error()
	h.lastErrAt = time.Now()
}

func (h *sourceHealth) recordStopped() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopped = true
}

// statusLocked computes health status. Caller must hold h.mu.
func (h *sourceHealth) statusLocked(threshold int) Status {
	switch {
	case h.failed:
		return StatusFailed
	case h.stopped:
		return StatusStopped
	case h.consecutiveFailures >= threshold:
		return StatusDegraded
	}
	return StatusHealthy
}

func (h *sourceHealth) status(threshold int) Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.statusLocked(threshold)
}

func (h *sourceHealth) snapshot(name string, threshold int) Health {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Health{
		Source:              name,
		Status:              h.statusLocked(threshold),
		Lines:               h.lines,
		ParseFailures:       h.parseFailures,
		ConsecutiveFailures: h.consecutiveFailures,
		LastError:           h.lastErr,
		LastErrorAt:         h.lastErrAt,
	}
}
