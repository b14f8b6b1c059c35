package executor

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/atlasops/service-autoscaler/internal/dbadmin"
	"github.com/atlasops/service-autoscaler/internal/events"
	"github.com/atlasops/service-autoscaler/internal/logger"
	"github.com/atlasops/service-autoscaler/internal/metricstore"
	"github.com/atlasops/service-autoscaler/internal/orchestrator"
	"github.com/atlasops/service-autoscaler/internal/telemetry"
	"github.com/atlasops/service-autoscaler/pkg/models"
)

// Executor turns a fired policy into concrete capacity changes against the
// orchestrator and the managed-database control plane. Failures are caught
// per action: one failing action never aborts the rest of the policy, the
// rest of the tick, or the loop.
type Executor struct {
	orch      orchestrator.Client
	dbAdmin   dbadmin.Client
	metrics   *metricstore.Store
	publisher *events.Publisher
	telemetry *telemetry.Metrics
	services  map[string]models.MonitoredService
	cfg       Config
}

type Config struct {
	MinReplicas          int
	MaxReplicas          int
	PerReplicaHourlyCost float64
	HoursPerMonth        float64

	CPULimitMultiplier    float64
	MemoryLimitMultiplier float64

	InstanceClasses []string

	TargetQueueDepth float64
	MinWorkers       int
	MaxWorkers       int
}

func New(orch orchestrator.Client, dbAdmin dbadmin.Client, metrics *metricstore.Store, publisher *events.Publisher, tel *telemetry.Metrics, services []models.MonitoredService, cfg Config) *Executor {
	if cfg.MaxReplicas <= 0 {
		cfg.MaxReplicas = 100
	}
	if cfg.HoursPerMonth <= 0 {
		cfg.HoursPerMonth = 730
	}
	if cfg.CPULimitMultiplier <= 0 {
		cfg.CPULimitMultiplier = 2.0
	}
	if cfg.MemoryLimitMultiplier <= 0 {
		cfg.MemoryLimitMultiplier = 1.5
	}
	if cfg.TargetQueueDepth <= 0 {
		cfg.TargetQueueDepth = 100
	}
	if cfg.MinWorkers <= 0 {
		cfg.MinWorkers = 1
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 50
	}

	byID := make(map[string]models.MonitoredService, len(services))
	for _, svc := range services {
		byID[svc.ID] = svc
	}

	return &Executor{
		orch:      orch,
		dbAdmin:   dbAdmin,
		metrics:   metrics,
		publisher: publisher,
		telemetry: tel,
		services:  byID,
		cfg:       cfg,
	}
}

// Execute dispatches every action of a fired policy. Per-action errors are
// logged and swallowed so remaining actions and policies still run.
func (e *Executor) Execute(ctx context.Context, policy *models.ScalingPolicy) error {
	svc, ok := e.services[policy.ServiceID]
	if !ok {
		return fmt.Errorf("policy %s targets unknown service %q", policy.ID, policy.ServiceID)
	}

	for _, action := range policy.Actions {
		var err error
		switch policy.Type {
		case models.PolicyTypeHorizontal:
			err = e.executeHorizontal(ctx, policy, svc, action)
		case models.PolicyTypeVertical:
			err = e.executeVertical(ctx, policy, svc, action)
		case models.PolicyTypeDatabase:
			err = e.executeDatabase(ctx, policy, svc, action)
		case models.PolicyTypeQueue:
			err = e.executeQueue(policy, svc, action)
		default:
			err = fmt.Errorf("unsupported policy type %q", policy.Type)
		}

		if err != nil {
			logger.WithPolicy(policy.ID).Errorf("Action %s failed: %v", action.Kind, err)
			if e.telemetry != nil {
				e.telemetry.RecordActionFailure(svc.ID, string(action.Kind))
			}
			e.publisher.ScalingFailed(svc.ID, fmt.Sprintf("policy %q action %s", policy.Name, action.Kind), err)
		}
	}

	return nil
}

// ScaleReplicas is the horizontal-scale primitive shared with the
// predictive scaler. It clamps to bounds, skips no-op changes, patches the
// orchestrator, and emits a ScalingEvent with its estimated cost impact.
func (e *Executor) ScaleReplicas(ctx context.Context, svc models.MonitoredService, current, target int, min, max int, trigger models.ScalingTrigger, policyID, reason string) error {
	target = clamp(target, min, max)
	if target == current {
		logger.WithService(svc.ID).Debugf("Replica target %d equals current, nothing to do", target)
		return nil
	}

	if err := e.orch.SetReplicas(ctx, svc, target); err != nil {
		return err
	}

	if e.telemetry != nil {
		e.telemetry.RecordAction(svc.ID, "set_replicas")
		e.telemetry.SetDesiredReplicas(svc.ID, target)
	}

	kind := models.ActionScaleUp
	if target < current {
		kind = models.ActionScaleDown
	}

	event := models.NewScalingEvent(svc.ID, kind, reason)
	event.PolicyID = policyID
	event.Trigger = trigger
	event.PreviousValue = strconv.Itoa(current)
	event.NewValue = strconv.Itoa(target)
	event.CostImpact = float64(target-current) * e.cfg.PerReplicaHourlyCost * e.cfg.HoursPerMonth
	e.publisher.ScalingExecuted(event)

	logger.WithService(svc.ID).Infof("Scaled replicas %d -> %d (%s)", current, target, reason)
	return nil
}

func (e *Executor) executeHorizontal(ctx context.Context, policy *models.ScalingPolicy, svc models.MonitoredService, action models.ScalingAction) error {
	latest, ok := e.metrics.Latest(svc.ID)
	if !ok {
		return fmt.Errorf("no metrics recorded for service %q", svc.ID)
	}
	current := latest.CurrentReplicas

	var target int
	switch action.Kind {
	case models.ActionScaleUp:
		target = current + delta(current, action)
	case models.ActionScaleDown:
		target = current - delta(current, action)
	case models.ActionScaleTo:
		target = int(action.Value)
	default:
		return fmt.Errorf("action kind %q is not valid for horizontal scaling", action.Kind)
	}

	min, max := e.bounds(action)
	reason := fmt.Sprintf("policy %q: %s %g %s", policy.Name, action.Kind, action.Value, action.Unit)
	return e.ScaleReplicas(ctx, svc, current, target, min, max, models.TriggerAutomatic, policy.ID, reason)
}

// delta resolves a relative scale step. Percent scaling always moves at
// least one replica so a small base cannot strand the action.
func delta(current int, action models.ScalingAction) int {
	if action.Unit == models.UnitPercent {
		d := int(math.Round(float64(current) * action.Value / 100.0))
		if d < 1 {
			d = 1
		}
		return d
	}
	return int(action.Value)
}

func (e *Executor) bounds(action models.ScalingAction) (int, int) {
	min := e.cfg.MinReplicas
	max := e.cfg.MaxReplicas
	if action.MinInstances != nil {
		min = *action.MinInstances
	}
	if action.MaxInstances != nil {
		max = *action.MaxInstances
	}
	return min, max
}

func (e *Executor) executeVertical(ctx context.Context, policy *models.ScalingPolicy, svc models.MonitoredService, action models.ScalingAction) error {
	deployment, err := e.orch.GetDeployment(ctx, svc)
	if err != nil {
		return err
	}

	resources := deployment.Resources
	switch action.Unit {
	case models.UnitCPU:
		resources.RequestCPUMillicores = int64(action.Value)
	case models.UnitMemory:
		resources.RequestMemoryBytes = int64(action.Value)
	default:
		return fmt.Errorf("unit %q is not valid for vertical scaling", action.Unit)
	}

	// Limits track requests at fixed multipliers.
	resources.LimitCPUMillicores = int64(float64(resources.RequestCPUMillicores) * e.cfg.CPULimitMultiplier)
	resources.LimitMemoryBytes = int64(float64(resources.RequestMemoryBytes) * e.cfg.MemoryLimitMultiplier)

	if err := e.orch.SetContainerResources(ctx, svc, resources); err != nil {
		return err
	}

	if e.telemetry != nil {
		e.telemetry.RecordAction(svc.ID, "set_resources")
	}

	event := models.NewScalingEvent(svc.ID, models.ActionAdjustResources,
		fmt.Sprintf("policy %q: adjust %s", policy.Name, action.Unit))
	event.PolicyID = policy.ID
	event.PreviousValue = formatResources(deployment.Resources)
	event.NewValue = formatResources(resources)
	e.publisher.ScalingExecuted(event)

	logger.WithService(svc.ID).Infof(
		"Adjusted resources: cpu=%dm mem=%d bytes (limits %dm/%d)",
		resources.RequestCPUMillicores, resources.RequestMemoryBytes,
		resources.LimitCPUMillicores, resources.LimitMemoryBytes,
	)
	return nil
}

func formatResources(r models.ContainerResources) string {
	return fmt.Sprintf("cpu=%dm,mem=%d", r.RequestCPUMillicores, r.RequestMemoryBytes)
}

func (e *Executor) executeDatabase(ctx context.Context, policy *models.ScalingPolicy, svc models.MonitoredService, action models.ScalingAction) error {
	if svc.DBInstanceID == "" {
		return fmt.Errorf("service %q has no database instance configured", svc.ID)
	}

	currentClass, err := e.dbAdmin.DescribeInstance(ctx, svc.DBInstanceID)
	if err != nil {
		return err
	}

	idx := indexOf(e.cfg.InstanceClasses, currentClass)
	if idx < 0 {
		return fmt.Errorf("instance class %q is not in the configured ladder", currentClass)
	}

	next := idx
	switch action.Kind {
	case models.ActionScaleUp:
		next = idx + 1
	case models.ActionScaleDown:
		next = idx - 1
	default:
		return fmt.Errorf("action kind %q is not valid for database scaling", action.Kind)
	}
	next = clamp(next, 0, len(e.cfg.InstanceClasses)-1)

	if next == idx {
		logger.WithService(svc.ID).Debugf("Instance already at ladder boundary (%s)", currentClass)
		return nil
	}

	newClass := e.cfg.InstanceClasses[next]
	if err := e.dbAdmin.ModifyInstance(ctx, svc.DBInstanceID, newClass); err != nil {
		return err
	}

	if e.telemetry != nil {
		e.telemetry.RecordAction(svc.ID, "modify_instance")
	}

	event := models.NewScalingEvent(svc.ID, action.Kind,
		fmt.Sprintf("policy %q: database %s", policy.Name, action.Kind))
	event.PolicyID = policy.ID
	event.PreviousValue = currentClass
	event.NewValue = newClass
	e.publisher.ScalingExecuted(event)

	logger.WithService(svc.ID).Infof("Database instance class %s -> %s", currentClass, newClass)
	return nil
}

// executeQueue computes a worker-pool recommendation from current queue
// depth but deliberately does not resize anything; the recommendation is
// logged and published for operators to act on.
func (e *Executor) executeQueue(policy *models.ScalingPolicy, svc models.MonitoredService, action models.ScalingAction) error {
	latest, ok := e.metrics.Latest(svc.ID)
	if !ok {
		return fmt.Errorf("no metrics recorded for service %q", svc.ID)
	}

	workers := int(math.Ceil(latest.QueueDepth / e.cfg.TargetQueueDepth))
	workers = clamp(workers, e.cfg.MinWorkers, e.cfg.MaxWorkers)

	msg := fmt.Sprintf(
		"Worker pool recommendation: %d workers (queue depth %.0f, target %.0f per worker)",
		workers, latest.QueueDepth, e.cfg.TargetQueueDepth,
	)
	logger.WithService(svc.ID).Info(msg)
	e.publisher.Recommendation(svc.ID, msg, map[string]interface{}{
		"policy_id":           policy.ID,
		"recommended_workers": workers,
		"queue_depth":         latest.QueueDepth,
	})
	return nil
}

func indexOf(classes []string, class string) int {
	for i, c := range classes {
		if c == class {
			return i
		}
	}
	return -1
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// EstimateMonthlyCost exposes the replica cost model for the advisor.
func (e *Executor) EstimateMonthlyCost(replicaDelta int) float64 {
	return float64(replicaDelta) * e.cfg.PerReplicaHourlyCost * e.cfg.HoursPerMonth
}
