// Package middleware provides cross-cutting HTTP concerns shared by the
// node-agent, customer, ops and marketplace-callback routers: graceful
// shutdown, CORS, security headers, panic recovery, and rate limiting.
package middleware

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/virtengine/virtengine-sub011/internal/logging"
)

// GracefulShutdown coordinates draining multiple HTTP servers (the runtime
// exposes four: node-agent, customer, ops, marketplace-callback) plus
// arbitrary background-loop stop callbacks.
type GracefulShutdown struct {
	mu           sync.Mutex
	servers      []*http.Server
	timeout      time.Duration
	shutdownChan chan struct{}
	callbacks    []func()
	logger       *logging.Logger
}

// NewGracefulShutdown creates a shutdown coordinator for the given servers.
func NewGracefulShutdown(logger *logging.Logger, timeout time.Duration, servers ...*http.Server) *GracefulShutdown {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GracefulShutdown{
		servers:      servers,
		timeout:      timeout,
		shutdownChan: make(chan struct{}),
		logger:       logger,
	}
}

// OnShutdown registers a callback run before servers are shut down, in
// registration order. Used to stop background loops (scheduler ticker,
// outbox flusher, chain client) before the listeners close.
func (g *GracefulShutdown) OnShutdown(callback func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.callbacks = append(g.callbacks, callback)
}

// ListenForSignals spawns a goroutine that triggers Shutdown on
// SIGINT/SIGTERM/SIGQUIT.
func (g *GracefulShutdown) ListenForSignals() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		sig := <-sigChan
		if g.logger != nil {
			g.logger.WithFields(map[string]interface{}{"signal": sig.String()}).Info("received shutdown signal")
		}
		g.Shutdown()
	}()
}

// Shutdown runs callbacks then drains every registered server.
func (g *GracefulShutdown) Shutdown() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, callback := range g.callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil && g.logger != nil {
					g.logger.WithFields(map[string]interface{}{"panic": r}).Error("panic in shutdown callback")
				}
			}()
			callback()
		}()
	}

	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	for _, server := range g.servers {
		if server == nil {
			continue
		}
		if err := server.Shutdown(ctx); err != nil && g.logger != nil {
			g.logger.WithError(err).Error("error during server shutdown")
		}
	}

	close(g.shutdownChan)
}

// Wait blocks until Shutdown has fully run.
func (g *GracefulShutdown) Wait() {
	<-g.shutdownChan
}
