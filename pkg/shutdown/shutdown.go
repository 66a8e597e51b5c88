// Package shutdown coordinates graceful teardown of long-running
// commands on SIGINT/SIGTERM.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// Manager runs registered teardown functions when a signal arrives.
type Manager struct {
	mu      sync.Mutex
	funcs   []func(context.Context) error
	timeout time.Duration
	done    chan struct{}
	once    sync.Once
}

// New creates a manager with the given teardown timeout.
func New(timeout time.Duration) *Manager {
	return &Manager{
		timeout: timeout,
		done:    make(chan struct{}),
	}
}

// Register adds a teardown function. Functions run in reverse order.
func (m *Manager) Register(fn func(context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.funcs = append(m.funcs, fn)
}

// Wait blocks until SIGINT or SIGTERM, then marks shutdown initiated.
func (m *Manager) Wait() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan
	m.initiate()
}

// Done is closed once shutdown has been initiated.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

func (m *Manager) initiate() {
	m.once.Do(func() { close(m.done) })
}

// Shutdown executes the registered functions, newest first, each bounded
// by the manager's timeout. The first error is returned after all
// functions have run.
func (m *Manager) Shutdown() error {
	m.initiate()

	m.mu.Lock()
	funcs := make([]func(context.Context) error, len(m.funcs))
	copy(funcs, m.funcs)
	m.mu.Unlock()

	var firstErr error
	for i := len(funcs) - 1; i >= 0; i-- {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		if err := funcs[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		cancel()
	}
	return firstErr
}
