package collector

import (
	"context"
	"time"

	"github.com/atlasops/service-autoscaler/internal/events"
	"github.com/atlasops/service-autoscaler/internal/logger"
	"github.com/atlasops/service-autoscaler/internal/metricsbackend"
	"github.com/atlasops/service-autoscaler/internal/metricstore"
	"github.com/atlasops/service-autoscaler/internal/orchestrator"
	"github.com/atlasops/service-autoscaler/internal/telemetry"
	"github.com/atlasops/service-autoscaler/pkg/models"
)

// Collector observes every monitored service once per tick: replica counts
// and container usage from the orchestrator, load metrics from the metrics
// backend. One service's failure never blocks the others; a failed service
// gets a zero-valued record for the tick so downstream condition windows
// fail closed rather than silently thin out.
type Collector struct {
	orch       orchestrator.Client
	backend    metricsbackend.Backend
	store      *metricstore.Store
	services   []models.MonitoredService
	sampleSpan time.Duration
	memBase    int64
	publisher  *events.Publisher
	metrics    *telemetry.Metrics
}

type Config struct {
	Orchestrator orchestrator.Client
	Backend      metricsbackend.Backend
	Store        *metricstore.Store
	Services     []models.MonitoredService
	// SampleSpan is the trailing window queried from the metrics backend,
	// normally one loop interval.
	SampleSpan time.Duration
	// MemoryBaselineBytes is what 100% memory utilization means.
	MemoryBaselineBytes int64
	Publisher           *events.Publisher
	Telemetry           *telemetry.Metrics
}

func New(cfg Config) *Collector {
	sampleSpan := cfg.SampleSpan
	if sampleSpan <= 0 {
		sampleSpan = 5 * time.Minute
	}
	memBase := cfg.MemoryBaselineBytes
	if memBase <= 0 {
		memBase = 2 << 30
	}

	return &Collector{
		orch:       cfg.Orchestrator,
		backend:    cfg.Backend,
		store:      cfg.Store,
		services:   cfg.Services,
		sampleSpan: sampleSpan,
		memBase:    memBase,
		publisher:  cfg.Publisher,
		metrics:    cfg.Telemetry,
	}
}

// CollectAll records one ScalingMetrics per monitored service and prunes
// expired history. It never returns an error: per-service failures are
// logged and replaced with a zero record.
func (c *Collector) CollectAll(ctx context.Context, now time.Time) {
	for _, svc := range c.services {
		record, err := c.collectService(ctx, svc, now)
		if err != nil {
			logger.WithService(svc.ID).Warnf("Collection failed, recording zero metrics: %v", err)
			if c.metrics != nil {
				c.metrics.RecordCollectionError(svc.ID)
			}
			if c.publisher != nil {
				c.publisher.CollectionFailed(svc.ID, err)
			}
			record = models.ScalingMetrics{ServiceID: svc.ID, Timestamp: now}
		}
		c.store.Append(record)
		if c.metrics != nil {
			c.metrics.RecordCollection(svc.ID)
		}
		if c.publisher != nil && err == nil {
			c.publisher.MetricsCollected(&record)
		}
	}

	if evicted := c.store.Prune(now); evicted > 0 {
		logger.Debugf("Evicted %d expired metric records", evicted)
	}
}

func (c *Collector) collectService(ctx context.Context, svc models.MonitoredService, now time.Time) (models.ScalingMetrics, error) {
	deployment, err := c.orch.GetDeployment(ctx, svc)
	if err != nil {
		return models.ScalingMetrics{}, err
	}

	record := models.ScalingMetrics{
		ServiceID:         svc.ID,
		Timestamp:         now,
		CurrentReplicas:   deployment.CurrentReplicas,
		DesiredReplicas:   deployment.DesiredReplicas,
		CPUUtilization:    normalizeCPU(deployment.Resources.UsageCPUMillicores),
		MemoryUtilization: normalizeMemory(deployment.Resources.UsageMemoryBytes, c.memBase),
	}

	record.RequestsPerSecond, err = c.queryLatest(ctx, svc.ID, models.MetricRequestsPerSecond)
	if err != nil {
		return models.ScalingMetrics{}, err
	}
	record.AvgResponseTime, err = c.queryLatest(ctx, svc.ID, models.MetricResponseTime)
	if err != nil {
		return models.ScalingMetrics{}, err
	}
	record.QueueDepth, err = c.queryLatest(ctx, svc.ID, models.MetricQueueDepth)
	if err != nil {
		return models.ScalingMetrics{}, err
	}
	record.ErrorRate, err = c.queryLatest(ctx, svc.ID, models.MetricErrorRate)
	if err != nil {
		return models.ScalingMetrics{}, err
	}

	logger.WithService(svc.ID).Debugf(
		"Collected: replicas=%d cpu=%.1f%% mem=%.1f%% rps=%.1f",
		record.CurrentReplicas, record.CPUUtilization, record.MemoryUtilization, record.RequestsPerSecond,
	)

	return record, nil
}

// queryLatest averages the samples the backend returns for the trailing
// sampling interval. No samples is not an error; the metric reads zero.
func (c *Collector) queryLatest(ctx context.Context, serviceID, metric string) (float64, error) {
	samples, err := c.backend.QueryRange(ctx, serviceID, metric, c.sampleSpan)
	if err != nil {
		return 0, err
	}
	if len(samples) == 0 {
		return 0, nil
	}

	var sum float64
	for _, s := range samples {
		sum += s.Value
	}
	return sum / float64(len(samples)), nil
}

// normalizeCPU converts millicores to a percentage of one logical core.
func normalizeCPU(millicores int64) float64 {
	return float64(millicores) / 10.0
}

// normalizeMemory converts bytes to a percentage of the configured baseline.
func normalizeMemory(bytes, baseline int64) float64 {
	if baseline <= 0 {
		return 0
	}
	return float64(bytes) / float64(baseline) * 100.0
}
