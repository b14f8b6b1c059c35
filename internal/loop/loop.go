// Package loop runs the controller's periodic reconcile cycle:
// collect metrics, evaluate reactive policies, then the predictive pass.
package loop

import (
	"context"
	"sync"
	"time"

	"github.com/atlasops/service-autoscaler/internal/collector"
	"github.com/atlasops/service-autoscaler/internal/logger"
	"github.com/atlasops/service-autoscaler/internal/metricstore"
	"github.com/atlasops/service-autoscaler/internal/policy"
	"github.com/atlasops/service-autoscaler/internal/predictor"
	"github.com/atlasops/service-autoscaler/internal/telemetry"
	"github.com/atlasops/service-autoscaler/pkg/models"
)

const defaultInterval = 5 * time.Minute

// Loop owns the controller state. A single mutex serializes ticks against
// policy CRUD, so a policy can never be edited mid-evaluation and cooldown
// bookkeeping always observes a consistent view.
type Loop struct {
	mu sync.Mutex

	interval  time.Duration
	collector *collector.Collector
	store     *metricstore.Store
	policies  *policy.Store
	engine    *policy.Engine
	predictor *predictor.Scaler
	services  []models.MonitoredService
	telemetry *telemetry.Metrics

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Config struct {
	Interval  time.Duration
	Collector *collector.Collector
	Store     *metricstore.Store
	Policies  *policy.Store
	Engine    *policy.Engine
	Predictor *predictor.Scaler // nil disables the predictive pass
	Services  []models.MonitoredService
	Telemetry *telemetry.Metrics
}

func New(cfg Config) *Loop {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	return &Loop{
		interval:  cfg.Interval,
		collector: cfg.Collector,
		store:     cfg.Store,
		policies:  cfg.Policies,
		engine:    cfg.Engine,
		predictor: cfg.Predictor,
		services:  cfg.Services,
		telemetry: cfg.Telemetry,
	}
}

// Start begins ticking in a background goroutine. The first tick runs
// immediately rather than waiting one full interval.
func (l *Loop) Start(ctx context.Context) {
	ctx, l.cancel = context.WithCancel(ctx)
	l.wg.Add(1)

	go func() {
		defer l.wg.Done()

		logger.Infof("Control loop started (interval %s, %d services)", l.interval, len(l.services))
		l.Tick(ctx, time.Now())

		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				logger.Info("Control loop stopping")
				return
			case now := <-ticker.C:
				l.Tick(ctx, now)
			}
		}
	}()
}

// Stop cancels the loop and waits for an in-flight tick to finish.
func (l *Loop) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
	l.wg.Wait()
}

// Tick runs one full reconcile cycle. Failures inside a phase are handled
// by that phase; a tick never aborts the loop.
func (l *Loop) Tick(ctx context.Context, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := time.Now()
	logger.Debug("Tick started")

	l.collector.CollectAll(ctx, now)

	if l.predictor != nil {
		for _, svc := range l.services {
			if latest, ok := l.store.Latest(svc.ID); ok {
				l.predictor.Train(latest)
			}
		}
	}

	l.engine.EvaluateAll(ctx, now)

	if l.predictor != nil {
		l.predictor.EvaluateAll(ctx, l.services, now)
	}

	elapsed := time.Since(start)
	if l.telemetry != nil {
		l.telemetry.RecordTick(elapsed)
	}
	logger.Debugf("Tick finished in %s", elapsed)
}

// Policy CRUD. These share the tick mutex: creating, updating, or deleting
// a policy is atomic with respect to evaluation.

func (l *Loop) CreatePolicy(p *models.ScalingPolicy) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.policies.Create(p)
}

func (l *Loop) UpdatePolicy(p *models.ScalingPolicy) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.policies.Update(p)
}

func (l *Loop) DeletePolicy(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.policies.Delete(id)
}

func (l *Loop) GetPolicy(id string) (*models.ScalingPolicy, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.policies.Get(id)
}

func (l *Loop) ListPolicies(serviceID string) []*models.ScalingPolicy {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.policies.List(serviceID)
}

// Read-only metric queries are served straight from the store, which
// carries its own lock.

func (l *Loop) RecentMetrics(serviceID string, limit int) []models.ScalingMetrics {
	return l.store.Recent(serviceID, limit)
}

func (l *Loop) MetricAggregate(serviceID, metric string, lookback time.Duration) (models.MetricAggregate, error) {
	return l.store.Aggregate(serviceID, metric, lookback, time.Now())
}
