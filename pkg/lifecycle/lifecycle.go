// Package lifecycle coordinates startup and shutdown of long-lived subsystems.
// Hooks are registered by name and run concurrently when the coordinator starts
// or stops, so subsystems never block one another.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// ReadinessChecker reports whether a subsystem is ready to serve traffic.
type ReadinessChecker interface {
	Ready() bool
}

// Hook is a startup or shutdown step. Startup hooks receive a context that is
// cancelled when a sibling hook fails; shutdown hooks receive one bounded by the
// shutdown timeout.
type Hook func(ctx context.Context) error

type namedHook struct {
	name string
	fn   Hook
}

// Coordinator manages startup and shutdown hooks for the application lifecycle.
type Coordinator struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	mu       sync.Mutex
	startup  []namedHook
	shutdown []namedHook

	ready atomic.Bool
}

// New creates a Coordinator with a cancellable context. A nil logger discards output.
func New(logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		ctx:    ctx,
		cancel: cancel,
		logger: logger.With("system", "lifecycle"),
	}
}

// Context returns the coordinator's context, cancelled when Shutdown begins.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// OnStartup registers a hook to run during WaitForStartup.
func (c *Coordinator) OnStartup(name string, fn Hook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startup = append(c.startup, namedHook{name, fn})
}

// OnShutdown registers a hook to run during Shutdown.
func (c *Coordinator) OnShutdown(name string, fn Hook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shutdown = append(c.shutdown, namedHook{name, fn})
}

// Ready reports whether every startup hook has succeeded and shutdown has not begun.
func (c *Coordinator) Ready() bool {
	return c.ready.Load()
}

// WaitForStartup runs all startup hooks concurrently and blocks until they
// finish. The first failure cancels the remaining hooks and is returned; the
// coordinator only becomes ready when every hook succeeds.
func (c *Coordinator) WaitForStartup() error {
	g, ctx := errgroup.WithContext(c.ctx)

	for _, h := range c.hooks(&c.startup) {
		g.Go(func() error {
			start := time.Now()
			if err := h.fn(ctx); err != nil {
				return fmt.Errorf("startup %s: %w", h.name, err)
			}
			c.logger.Debug("startup hook complete", "hook", h.name, "duration", time.Since(start))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	c.ready.Store(true)
	return nil
}

// Shutdown cancels the coordinator context and runs all shutdown hooks
// concurrently. Hook errors are joined; exceeding timeout returns an error
// without waiting for stragglers.
func (c *Coordinator) Shutdown(timeout time.Duration) error {
	c.ready.Store(false)
	c.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	hooks := c.hooks(&c.shutdown)
	errs := make([]error, len(hooks))

	var wg sync.WaitGroup
	for i, h := range hooks {
		wg.Go(func() {
			if err := h.fn(ctx); err != nil {
				errs[i] = fmt.Errorf("shutdown %s: %w", h.name, err)
			}
		})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return errors.Join(errs...)
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout after %v", timeout)
	}
}

func (c *Coordinator) hooks(list *[]namedHook) []namedHook {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]namedHook(nil), *list...)
}
