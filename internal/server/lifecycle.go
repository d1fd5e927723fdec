// Package server runs the relay's long-lived services: it starts them in
// order, waits for a signal or a failure, and stops them in reverse order.
package server

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Service is a long-running component. Start blocks until Stop is called or
// the service fails.
type Service interface {
	Start() error
	Stop()
}

// Resource wraps something that only needs releasing, such as a database
// pool, as a Service. Start blocks until Stop, which then calls release once.
// Registering it before its users makes it outlive them.
type Resource struct {
	release func()
	done    chan struct{}
	once    sync.Once
}

// NewResource returns a Resource calling release on Stop.
//
// Precondition: release must be non-nil.
func NewResource(release func()) *Resource {
	return &Resource{release: release, done: make(chan struct{})}
}

// Start blocks until Stop is called.
func (r *Resource) Start() error {
	<-r.done
	return nil
}

// Stop releases the resource. Safe to call multiple times.
func (r *Resource) Stop() {
	r.once.Do(func() {
		r.release()
		close(r.done)
	})
}

type namedService struct {
	name    string
	service Service
}

// Lifecycle owns the process's services.
type Lifecycle struct {
	logger   *zap.Logger
	mu       sync.Mutex
	services []namedService
}

// NewLifecycle creates an empty Lifecycle.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{logger: logger}
}

// Add registers svc to start after every service added before it.
//
// Precondition: name must be non-empty; svc must be non-nil; Run has not been called.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = append(l.services, namedService{name: name, service: svc})
}

// Run starts every service and blocks until SIGINT or SIGTERM arrives, ctx is
// cancelled, or a service fails.
//
// Postcondition: Every service has been stopped, last-added first. The
// returned error is the failure that caused shutdown, or nil.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	l.mu.Lock()
	services := append([]namedService(nil), l.services...)
	l.mu.Unlock()

	failures := make(chan error, len(services))
	for _, ns := range services {
		go l.run(ns, failures)
	}
	l.logger.Info("services started", zap.Int("count", len(services)))

	var failure error
	select {
	case failure = <-failures:
	case <-ctx.Done():
		// a failure may race the signal; prefer reporting it
		select {
		case failure = <-failures:
		default:
		}
	}
	if failure != nil {
		l.logger.Error("service failed, shutting down", zap.Error(failure))
	} else {
		l.logger.Info("shutting down", zap.NamedError("cause", context.Cause(ctx)))
	}

	for i := len(services) - 1; i >= 0; i-- {
		ns := services[i]
		began := time.Now()
		ns.service.Stop()
		l.logger.Info("service stopped",
			zap.String("service", ns.name),
			zap.Duration("elapsed", time.Since(began)),
		)
	}

	l.logger.Info("shutdown complete", zap.Duration("uptime", time.Since(start)))
	return failure
}

func (l *Lifecycle) run(ns namedService, failures chan<- error) {
	l.logger.Info("starting service", zap.String("service", ns.name))
	began := time.Now()
	if err := ns.service.Start(); err != nil {
		l.logger.Error("service exited",
			zap.String("service", ns.name),
			zap.Error(err),
			zap.Duration("uptime", time.Since(began)),
		)
		failures <- fmt.Errorf("service %s: %w", ns.name, err)
	}
}
