package policy

import (
	"context"
	"time"

	"github.com/atlasops/service-autoscaler/internal/events"
	"github.com/atlasops/service-autoscaler/internal/logger"
	"github.com/atlasops/service-autoscaler/internal/metricstore"
	"github.com/atlasops/service-autoscaler/internal/telemetry"
	"github.com/atlasops/service-autoscaler/pkg/models"
)

// Executor dispatches the actions of a fired policy. Implementations catch
// their own downstream failures; Execute only errors on total inability to
// act, and even then the engine just logs and keeps going.
type Executor interface {
	Execute(ctx context.Context, policy *models.ScalingPolicy) error
}

// Engine evaluates scaling policies against the metric store. Not safe for
// concurrent use; the control loop serializes evaluation and CRUD behind
// one lock, which is what makes the cooldown check-then-set atomic.
type Engine struct {
	store     *Store
	metrics   *metricstore.Store
	executor  Executor
	publisher *events.Publisher
	telemetry *telemetry.Metrics
}

func NewEngine(store *Store, metrics *metricstore.Store, executor Executor, publisher *events.Publisher, tel *telemetry.Metrics) *Engine {
	return &Engine{
		store:     store,
		metrics:   metrics,
		executor:  executor,
		publisher: publisher,
		telemetry: tel,
	}
}

// EvaluateAll walks every enabled policy in ascending priority order and
// fires those whose conditions all hold. A policy's cooldown stamp is set
// the moment it fires, before action dispatch, so a partially failing
// dispatch cannot re-fire next tick ahead of its cooldown.
func (e *Engine) EvaluateAll(ctx context.Context, now time.Time) {
	for _, p := range e.store.Enabled() {
		e.evaluate(ctx, p, now)
	}
}

func (e *Engine) evaluate(ctx context.Context, p *models.ScalingPolicy, now time.Time) {
	if p.InCooldown(now) {
		logger.WithPolicy(p.ID).Debugf("Skipping policy %q: cooldown active", p.Name)
		return
	}

	for _, cond := range p.Conditions {
		if !e.conditionMet(p.ServiceID, cond, now) {
			logger.WithPolicy(p.ID).Debugf(
				"Policy %q not fired: %s %s %.2f not met over %s",
				p.Name, cond.Metric, cond.Operator, cond.Threshold, cond.Duration,
			)
			return
		}
	}

	logger.WithPolicy(p.ID).Infof("Policy %q fired for service %s", p.Name, p.ServiceID)

	e.store.MarkExecuted(p.ID, now)
	if e.telemetry != nil {
		e.telemetry.RecordPolicyFiring(p.ID, string(p.Type))
	}
	e.publisher.PolicyFired(p)

	if err := e.executor.Execute(ctx, p); err != nil {
		logger.WithPolicy(p.ID).Errorf("Action dispatch failed: %v", err)
	}
}

// conditionMet selects all samples inside the condition's trailing window
// and requires every one of them to satisfy the comparison. An empty
// window fails closed: no data means no action.
func (e *Engine) conditionMet(serviceID string, cond models.ScalingCondition, now time.Time) bool {
	window := e.metrics.Window(serviceID, cond.Duration, now)
	if len(window) == 0 {
		return false
	}

	for i := range window {
		value, err := window[i].Value(cond.Metric)
		if err != nil {
			logger.WithService(serviceID).Warnf("Condition references unknown metric %q", cond.Metric)
			return false
		}
		if !cond.Operator.Compare(value, cond.Threshold) {
			return false
		}
	}

	return true
}
