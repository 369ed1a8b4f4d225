// Package source produces raw output lines and pumps them into a session.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Source produces raw lines until its context is cancelled or its input
// ends. emit may be called from several goroutines at once.
type Source interface {
	// Name is a short identifier used in logs and health reports,
	// e.g. "exec:dotnet", "file:/tmp/app.log".
	Name() string

	// Run blocks until the source is exhausted or ctx is done.
	Run(ctx context.Context, emit func(line string)) error
}

// Ingester consumes raw lines. *session.Session satisfies it.
type Ingester interface {
	Ingest(line string) error
}

// ErrorHook receives parse and source errors as they happen.
type ErrorHook func(source string, err error)

// Pump feeds the lines of one or more sources into an Ingester and tracks
// the health of each source.
type Pump struct {
	ing       Ingester
	logger    *slog.Logger
	threshold int

	mu      sync.Mutex
	health  map[string]*sourceHealth
	order   []string
	onError ErrorHook
}

// NewPump returns a pump. A source is reported degraded after threshold
// consecutive parse failures.
func NewPump(ing Ingester, threshold int, logger *slog.Logger) *Pump {
	if logger == nil {
		logger = slog.Default()
	}
	if threshold <= 0 {
		threshold = 1
	}
	return &Pump{
		ing:       ing,
		logger:    logger,
		threshold: threshold,
		health:    make(map[string]*sourceHealth),
	}
}

func (p *Pump) SetErrorHook(fn ErrorHook) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onError = fn
}

func (p *Pump) hook() ErrorHook {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.onError
}

func (p *Pump) register(name string) *sourceHealth {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.health[name]; ok {
		return h
	}
	h := newSourceHealth()
	p.health[name] = h
	p.order = append(p.order, name)
	return h
}

// Run pumps a single source until it returns. Cancellation is not reported
// as an error.
func (p *Pump) Run(ctx context.Context, src Source) error {
	name := src.Name()
	h := p.register(name)
	logger := p.logger.With("source", name)
	logger.Info("source started")

	emit := func(line string) {
		err := p.ing.Ingest(line)
		h.recordLine(err)
		if err != nil {
			logger.Debug("ingest failed", "err", err)
			if fn := p.hook(); fn != nil {
				fn(name, err)
			}
		}
	}

	err := src.Run(ctx, emit)
	if err != nil && ctx.Err() == nil && !errors.Is(err, context.Canceled) {
		h.recordFailure(err)
		logger.Error("source failed", "err", err)
		if fn := p.hook(); fn != nil {
			fn(name, err)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	h.recordStopped()
	logger.Info("source stopped")
	return nil
}

// RunAll runs every source concurrently and waits for all of them.
func (p *Pump) RunAll(ctx context.Context, srcs ...Source) error {
	errs := make([]error, len(srcs))
	var wg sync.WaitGroup
	for i, src := range srcs {
		p.register(src.Name())
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = p.Run(ctx, src)
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

// Health returns a snapshot of every source the pump has seen, in the
// order they were first run.
func (p *Pump) Health() []Health {
	p.mu.Lock()
	names := append([]string(nil), p.order...)
	hs := make([]*sourceHealth, len(names))
	for i, n := range names {
		hs[i] = p.health[n]
	}
	p.mu.Unlock()

	out := make([]Health, len(names))
	for i, h := range hs {
		out[i] = h.snapshot(names[i], p.threshold)
	}
	return out
}
