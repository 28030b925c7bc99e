// Package core wires every component into a single deployable process
// (spec §2 "Process layout"), modeled on the teacher's app_system/service
// lifecycle registry: each attached component exposes Name()/Start(ctx)/
// Stop(ctx), and the runtime starts them in attach order and stops them in
// reverse order, so later components (which may depend on earlier ones)
// always shut down first.
package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/virtengine/virtengine-sub011/internal/logging"
)

// Service is a lifecycle-managed component. Every long-running subsystem
// (the heartbeat monitor sweep, the outbox flusher, the chain event client,
// the lifecycle engine's retry queue, each HTTP router) implements this so
// the runtime can start and stop them deterministically instead of each
// wiring its own ad hoc goroutine in main().
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// ReadinessProvider is implemented by services that can report whether they
// are ready to serve traffic, independent of whether they are running
// (supplemented feature: /readyz reports per-component readiness, spec
// SPEC_FULL §9 "self-process health/metrics endpoint").
type ReadinessProvider interface {
	Ready() bool
}

// Runtime is the single "core" value constructed at startup (spec §9 "no
// process-wide singletons in the core"): it owns the attached services and
// drives their lifecycle. Nothing it holds is a package-level global.
type Runtime struct {
	mu       sync.Mutex
	services []Service
	started  []Service
	logger   *logging.Logger
}

// NewRuntime creates an empty Runtime.
func NewRuntime(logger *logging.Logger) *Runtime {
	return &Runtime{logger: logger}
}

// Attach registers a service. Order matters: Start runs attached services
// in attach order, Stop runs them in reverse.
func (r *Runtime) Attach(svc Service) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services = append(r.services, svc)
}

// Start starts every attached service in order, stopping whatever already
// started if one fails, and returning the first error.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	services := append([]Service(nil), r.services...)
	r.mu.Unlock()

	for _, svc := range services {
		if r.logger != nil {
			r.logger.WithFields(map[string]interface{}{"service": svc.Name()}).Info("starting service")
		}
		if err := svc.Start(ctx); err != nil {
			r.stopStarted(context.Background())
			return fmt.Errorf("core: start %s: %w", svc.Name(), err)
		}
		r.mu.Lock()
		r.started = append(r.started, svc)
		r.mu.Unlock()
	}
	return nil
}

// Stop stops every started service in reverse start order, continuing past
// individual failures so one stuck component doesn't block the rest from
// draining (spec §5 shutdownGracePeriod applies per caller-supplied ctx).
func (r *Runtime) Stop(ctx context.Context) {
	r.stopStarted(ctx)
}

func (r *Runtime) stopStarted(ctx context.Context) {
	r.mu.Lock()
	started := append([]Service(nil), r.started...)
	r.started = nil
	r.mu.Unlock()

	for i := len(started) - 1; i >= 0; i-- {
		svc := started[i]
		if r.logger != nil {
			r.logger.WithFields(map[string]interface{}{"service": svc.Name()}).Info("stopping service")
		}
		if err := svc.Stop(ctx); err != nil && r.logger != nil {
			r.logger.WithError(err).WithFields(map[string]interface{}{"service": svc.Name()}).Error("service stop failed")
		}
	}
}

// BackgroundService adapts a component whose own API is a blocking
// Run/Start(ctx) loop plus a separate Stop() into core.Service, for
// components (monitor.Monitor, outboxstore.Flusher, lifecycle.Engine's
// retry queue) whose native lifecycle methods predate the Service
// interface and are exercised directly by their own package's tests.
type BackgroundService struct {
	name  string
	run   func(ctx context.Context)
	halt  func()
	ready func() bool
}

// NewBackgroundService wraps run (called once in its own goroutine on
// Start) and halt (called synchronously by Stop) as a core.Service.
func NewBackgroundService(name string, run func(ctx context.Context), halt func()) *BackgroundService {
	return &BackgroundService{name: name, run: run, halt: halt}
}

// WithReadiness attaches a readiness probe and returns the same service for
// chaining at construction time.
func (b *BackgroundService) WithReadiness(ready func() bool) *BackgroundService {
	b.ready = ready
	return b
}

func (b *BackgroundService) Name() string { return b.name }

// Start launches run on its own goroutine and returns immediately; the
// runtime does not block waiting for background loops to exit.
func (b *BackgroundService) Start(ctx context.Context) error {
	go b.run(ctx)
	return nil
}

// Stop calls halt, which must block until the background loop has fully
// exited (monitor.Stop and outboxstore.Flusher.Stop both do).
func (b *BackgroundService) Stop(_ context.Context) error {
	if b.halt != nil {
		b.halt()
	}
	return nil
}

// Ready reports the attached readiness probe, defaulting to true.
func (b *BackgroundService) Ready() bool {
	if b.ready == nil {
		return true
	}
	return b.ready()
}

// HTTPService adapts a *http.Server into a core.Service: Start launches
// ListenAndServe on its own goroutine, logging anything but the expected
// ErrServerClosed; Stop performs a graceful shutdown bounded by ctx.
type HTTPService struct {
	name   string
	server *http.Server
	logger *logging.Logger
}

// NewHTTPService wraps server under name for runtime lifecycle management.
func NewHTTPService(name string, server *http.Server, logger *logging.Logger) *HTTPService {
	return &HTTPService{name: name, server: server, logger: logger}
}

func (h *HTTPService) Name() string { return h.name }

func (h *HTTPService) Start(_ context.Context) error {
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			if h.logger != nil {
				h.logger.WithError(err).WithFields(map[string]interface{}{"server": h.name}).Error("http server exited unexpectedly")
			}
		}
	}()
	return nil
}

func (h *HTTPService) Stop(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// Readiness reports per-component readiness for every attached service that
// implements ReadinessProvider (services without an opinion are reported
// ready so they don't block overall readiness).
func (r *Runtime) Readiness() map[string]bool {
	r.mu.Lock()
	services := append([]Service(nil), r.services...)
	r.mu.Unlock()

	out := make(map[string]bool, len(services))
	for _, svc := range services {
		if rp, ok := svc.(ReadinessProvider); ok {
			out[svc.Name()] = rp.Ready()
		} else {
			out[svc.Name()] = true
		}
	}
	return out
}
