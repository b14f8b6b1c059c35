package metricsbackend

import (
	"context"
	"time"

	"github.com/atlasops/service-autoscaler/internal/resilience"
)

// ResilientBackend wraps a Backend with a circuit breaker so one flapping
// metrics endpoint stops being hammered every tick. There is no retry
// inside a tick; a tripped or failed call surfaces to the collector, which
// substitutes a zero record and moves on.
type ResilientBackend struct {
	backend Backend
	breaker *resilience.CircuitBreaker
}

type ResilientBackendConfig struct {
	Backend       Backend
	MaxFailures   int
	Timeout       time.Duration
	OnStateChange func(name string, from, to resilience.State)
}

func NewResilientBackend(cfg ResilientBackendConfig) *ResilientBackend {
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:          "metrics-backend",
		MaxFailures:   cfg.MaxFailures,
		Timeout:       cfg.Timeout,
		OnStateChange: cfg.OnStateChange,
	})

	return &ResilientBackend{
		backend: cfg.Backend,
		breaker: breaker,
	}
}

func (r *ResilientBackend) QueryRange(ctx context.Context, serviceID, metric string, window time.Duration) ([]Sample, error) {
	var samples []Sample

	err := r.breaker.Execute(func() error {
		var qerr error
		samples, qerr = r.backend.QueryRange(ctx, serviceID, metric, window)
		return qerr
	})
	if err != nil {
		return nil, err
	}

	return samples, nil
}

func (r *ResilientBackend) HealthCheck(ctx context.Context) error {
	return r.backend.HealthCheck(ctx)
}

func (r *ResilientBackend) Close() error {
	return r.backend.Close()
}

func (r *ResilientBackend) CircuitState() resilience.State {
	return r.breaker.State()
}
