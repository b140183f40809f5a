// Package shutdown cancels in-flight enhancement on SIGINT/SIGTERM and
// stops registered components in reverse registration order.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"xray-mike/internal/logger"
)

const component = "ShutdownManager"

type Shutdownable interface {
	Shutdown()
}

type Manager struct {
	components []Shutdownable
	logger     logger.Logger
	grace      time.Duration
	mu         sync.Mutex
	once       sync.Once
	done       chan struct{}
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewManager derives the manager context from parent. grace bounds how long
// each component may take to stop.
func NewManager(parent context.Context, log logger.Logger, grace time.Duration) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	ctx, cancel := context.WithCancel(parent)

	return &Manager{
		logger: log,
		grace:  grace,
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (m *Manager) Register(c Shutdownable) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.components = append(m.components, c)
}

// Listen triggers Shutdown on the first interrupt or terminate signal. The
// returned func detaches the handler.
func (m *Manager) Listen() func() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			m.logger.Info(component, "shutdown signal received", map[string]interface{}{
				"signal": sig.String(),
			})
			m.Shutdown()
		case <-m.done:
		}
	}()

	return func() { signal.Stop(sigChan) }
}

// Shutdown is idempotent.
func (m *Manager) Shutdown() {
	m.once.Do(m.shutdown)
}

func (m *Manager) shutdown() {
	m.mu.Lock()
	components := append([]Shutdownable(nil), m.components...)
	m.mu.Unlock()

	close(m.done)
	m.cancel()

	m.logger.Debug(component, "shutdown sequence initiated", map[string]interface{}{
		"components": len(components),
	})

	for i := len(components) - 1; i >= 0; i-- {
		c := components[i]

		stopped := make(chan struct{})
		go func() {
			defer close(stopped)
			c.Shutdown()
		}()

		select {
		case <-stopped:
		case <-time.After(m.grace):
			m.logger.Warning(component, "component shutdown timeout", map[string]interface{}{
				"component_index": i,
				"grace":           m.grace.String(),
			})
		}
	}

	m.logger.Debug(component, "shutdown sequence completed", nil)
}

func (m *Manager) Context() context.Context {
	return m.ctx
}

func (m *Manager) Done() <-chan struct{} {
	return m.done
}
