// Package advisor scans collected metrics for services that look
// over-provisioned and publishes cost-saving recommendations. It is
// strictly read-only: it never scales anything.
package advisor

import (
	"time"

	"github.com/atlasops/service-autoscaler/internal/events"
	"github.com/atlasops/service-autoscaler/internal/logger"
	"github.com/atlasops/service-autoscaler/internal/metricstore"
	"github.com/atlasops/service-autoscaler/pkg/models"
)

// CostEstimator prices a replica-count change per month.
type CostEstimator interface {
	EstimateMonthlyCost(replicaDelta int) float64
}

type Config struct {
	IdleCPUPercent float64
	IdleRPS        float64
	Lookback       time.Duration
	MinReplicas    int
}

type Advisor struct {
	store     *metricstore.Store
	publisher *events.Publisher
	cost      CostEstimator
	cfg       Config
}

func New(store *metricstore.Store, publisher *events.Publisher, cost CostEstimator, cfg Config) *Advisor {
	if cfg.IdleCPUPercent <= 0 {
		cfg.IdleCPUPercent = 20
	}
	if cfg.IdleRPS <= 0 {
		cfg.IdleRPS = 10
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 24 * time.Hour
	}
	if cfg.MinReplicas <= 0 {
		cfg.MinReplicas = 1
	}
	return &Advisor{store: store, publisher: publisher, cost: cost, cfg: cfg}
}

// Recommendation flags one idle service.
type Recommendation struct {
	ServiceID       string  `json:"service_id"`
	CurrentReplicas int     `json:"current_replicas"`
	TargetReplicas  int     `json:"target_replicas"`
	AvgCPUPercent   float64 `json:"avg_cpu_percent"`
	AvgRPS          float64 `json:"avg_rps"`
	MonthlySavings  float64 `json:"monthly_savings"`
}

// Scan inspects each service's trailing window and returns a
// recommendation for every one idling below both thresholds with replicas
// to spare. Each recommendation is also logged and published.
func (a *Advisor) Scan(services []models.MonitoredService, now time.Time) []Recommendation {
	var out []Recommendation

	for _, svc := range services {
		rec, ok := a.inspect(svc, now)
		if !ok {
			continue
		}
		out = append(out, rec)

		logger.WithService(svc.ID).Infof(
			"Idle service: avg cpu %.1f%%, avg %.1f rps over %s; %d -> %d replicas would save %.2f/month",
			rec.AvgCPUPercent, rec.AvgRPS, a.cfg.Lookback,
			rec.CurrentReplicas, rec.TargetReplicas, rec.MonthlySavings,
		)
		a.publisher.Recommendation(svc.ID, "Service appears over-provisioned", rec)
	}

	return out
}

func (a *Advisor) inspect(svc models.MonitoredService, now time.Time) (Recommendation, bool) {
	cpu, err := a.store.Aggregate(svc.ID, models.MetricCPUUtilization, a.cfg.Lookback, now)
	if err != nil || cpu.SampleCount == 0 {
		return Recommendation{}, false
	}
	rps, err := a.store.Aggregate(svc.ID, models.MetricRequestsPerSecond, a.cfg.Lookback, now)
	if err != nil {
		return Recommendation{}, false
	}

	if cpu.Avg >= a.cfg.IdleCPUPercent || rps.Avg >= a.cfg.IdleRPS {
		return Recommendation{}, false
	}

	latest, ok := a.store.Latest(svc.ID)
	if !ok || latest.CurrentReplicas <= a.cfg.MinReplicas {
		return Recommendation{}, false
	}

	target := latest.CurrentReplicas / 2
	if target < a.cfg.MinReplicas {
		target = a.cfg.MinReplicas
	}

	rec := Recommendation{
		ServiceID:       svc.ID,
		CurrentReplicas: latest.CurrentReplicas,
		TargetReplicas:  target,
		AvgCPUPercent:   cpu.Avg,
		AvgRPS:          rps.Avg,
	}
	if a.cost != nil {
		rec.MonthlySavings = -a.cost.EstimateMonthlyCost(target - latest.CurrentReplicas)
	}
	return rec, true
}
