// Package shutdown coordinates graceful teardown of the API and worker
// processes.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"manimq/internal/pkg/logger"
)

type handler struct {
	name    string
	cleanup func(ctx context.Context) error
}

// Manager runs registered cleanup handlers, most recent first, when a
// termination signal arrives.
type Manager struct {
	log      *logger.Logger
	timeout  time.Duration
	mu       sync.Mutex
	handlers []handler
	stopping chan struct{}
	once     sync.Once
}

// NewManager creates a Manager with the given overall cleanup timeout.
func NewManager(log *logger.Logger, timeout time.Duration) *Manager {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Manager{
		log:      log,
		timeout:  timeout,
		stopping: make(chan struct{}),
	}
}

// Register adds a cleanup handler. Handlers run LIFO.
func (m *Manager) Register(name string, cleanup func(ctx context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handler{name: name, cleanup: cleanup})
}

// Context returns a context canceled as soon as shutdown begins. Worker
// loops watch this to stop between tasks.
func (m *Manager) Context() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-m.stopping
		cancel()
	}()
	return ctx
}

// Wait blocks until SIGINT/SIGTERM, then runs cleanup.
func (m *Manager) Wait() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	m.log.Info("shutdown signal received", "signal", sig.String())

	m.Shutdown()
}

// Shutdown cancels Context and runs all handlers in reverse registration
// order under the configured timeout.
func (m *Manager) Shutdown() {
	m.once.Do(func() {
		close(m.stopping)

		m.mu.Lock()
		handlers := make([]handler, len(m.handlers))
		copy(handlers, m.handlers)
		m.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		for i := len(handlers) - 1; i >= 0; i-- {
			h := handlers[i]
			start := time.Now()
			if err := h.cleanup(ctx); err != nil {
				m.log.Error("shutdown handler failed",
					"name", h.name,
					"error", err.Error(),
					"duration_ms", time.Since(start).Milliseconds(),
				)
				continue
			}
			m.log.Debug("shutdown handler completed",
				"name", h.name,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		}

		m.log.Info("graceful shutdown completed")
	})
}
