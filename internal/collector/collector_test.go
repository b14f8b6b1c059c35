package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasops/service-autoscaler/internal/metricsbackend"
	"github.com/atlasops/service-autoscaler/internal/metricstore"
	"github.com/atlasops/service-autoscaler/internal/orchestrator"
	"github.com/atlasops/service-autoscaler/pkg/models"
)

func newTestCollector(t *testing.T) (*Collector, *orchestrator.MockClient, *metricsbackend.MockBackend, *metricstore.Store) {
	t.Helper()

	orch := orchestrator.NewMockClient()
	backend := metricsbackend.NewMockBackend()
	store := metricstore.New(0)

	coll := New(Config{
		Orchestrator: orch,
		Backend:      backend,
		Store:        store,
		Services: []models.MonitoredService{
			{ID: "api-service", Namespace: "default", Deployment: "api"},
			{ID: "worker-service", Namespace: "default", Deployment: "worker"},
		},
		SampleSpan:          5 * time.Minute,
		MemoryBaselineBytes: 2 << 30,
	})
	return coll, orch, backend, store
}

func seedDeployment(orch *orchestrator.MockClient, serviceID string, replicas int, cpuMillicores, memBytes int64) {
	orch.SetDeployment(&models.Deployment{
		ServiceID:       serviceID,
		Namespace:       "default",
		Name:            serviceID,
		CurrentReplicas: replicas,
		DesiredReplicas: replicas,
		Resources: models.ContainerResources{
			UsageCPUMillicores: cpuMillicores,
			UsageMemoryBytes:   memBytes,
		},
	})
}

func TestCollectAll_RecordsNormalizedMetrics(t *testing.T) {
	coll, orch, backend, store := newTestCollector(t)
	now := time.Now()

	seedDeployment(orch, "api-service", 3, 850, 1<<30)
	seedDeployment(orch, "worker-service", 2, 200, 2<<30)
	backend.SetValue("api-service", models.MetricRequestsPerSecond, 420)
	backend.SetValue("api-service", models.MetricResponseTime, 0.25)
	backend.SetValue("api-service", models.MetricQueueDepth, 17)
	backend.SetValue("api-service", models.MetricErrorRate, 0.5)

	coll.CollectAll(context.Background(), now)

	record, ok := store.Latest("api-service")
	require.True(t, ok)
	assert.Equal(t, 3, record.CurrentReplicas)
	assert.InDelta(t, 85.0, record.CPUUtilization, 0.001)
	assert.InDelta(t, 50.0, record.MemoryUtilization, 0.001)
	assert.InDelta(t, 420.0, record.RequestsPerSecond, 0.001)
	assert.InDelta(t, 0.25, record.AvgResponseTime, 0.001)
	assert.InDelta(t, 17.0, record.QueueDepth, 0.001)
	assert.True(t, record.Timestamp.Equal(now))

	worker, ok := store.Latest("worker-service")
	require.True(t, ok)
	assert.InDelta(t, 20.0, worker.CPUUtilization, 0.001)
	assert.InDelta(t, 100.0, worker.MemoryUtilization, 0.001)
	assert.Equal(t, 0.0, worker.RequestsPerSecond)
}

func TestCollectAll_AveragesBackendSamples(t *testing.T) {
	coll, orch, backend, store := newTestCollector(t)
	now := time.Now()

	seedDeployment(orch, "api-service", 1, 0, 0)
	seedDeployment(orch, "worker-service", 1, 0, 0)
	backend.SetSamples("api-service", models.MetricRequestsPerSecond, []metricsbackend.Sample{
		{Timestamp: now.Add(-2 * time.Minute), Value: 100},
		{Timestamp: now.Add(-time.Minute), Value: 200},
		{Timestamp: now, Value: 300},
	})

	coll.CollectAll(context.Background(), now)

	record, ok := store.Latest("api-service")
	require.True(t, ok)
	assert.InDelta(t, 200.0, record.RequestsPerSecond, 0.001)
}

func TestCollectAll_FailedServiceGetsZeroRecord(t *testing.T) {
	coll, orch, backend, store := newTestCollector(t)
	now := time.Now()

	seedDeployment(orch, "worker-service", 2, 400, 1<<30)
	orch.FailService("api-service", errors.New("connection refused"))
	backend.SetValue("worker-service", models.MetricRequestsPerSecond, 50)

	coll.CollectAll(context.Background(), now)

	// The failed service still gets a record, zero-valued.
	record, ok := store.Latest("api-service")
	require.True(t, ok)
	assert.Equal(t, 0, record.CurrentReplicas)
	assert.Equal(t, 0.0, record.CPUUtilization)
	assert.True(t, record.Timestamp.Equal(now))

	// The healthy service is unaffected.
	worker, ok := store.Latest("worker-service")
	require.True(t, ok)
	assert.Equal(t, 2, worker.CurrentReplicas)
	assert.InDelta(t, 50.0, worker.RequestsPerSecond, 0.001)
}

func TestCollectAll_BackendFailureAlsoZeroes(t *testing.T) {
	coll, orch, backend, store := newTestCollector(t)
	now := time.Now()

	seedDeployment(orch, "api-service", 3, 850, 1<<30)
	seedDeployment(orch, "worker-service", 1, 0, 0)
	backend.FailService("api-service", errors.New("query timeout"))

	coll.CollectAll(context.Background(), now)

	record, ok := store.Latest("api-service")
	require.True(t, ok)
	assert.Equal(t, 0, record.CurrentReplicas)
	assert.Equal(t, 0.0, record.RequestsPerSecond)
}

func TestCollectAll_PrunesExpiredHistory(t *testing.T) {
	orch := orchestrator.NewMockClient()
	backend := metricsbackend.NewMockBackend()
	store := metricstore.New(time.Hour)

	coll := New(Config{
		Orchestrator: orch,
		Backend:      backend,
		Store:        store,
		Services:     []models.MonitoredService{{ID: "api-service", Namespace: "default", Deployment: "api"}},
	})

	now := time.Now()
	store.Append(models.ScalingMetrics{ServiceID: "api-service", Timestamp: now.Add(-2 * time.Hour)})
	seedDeployment(orch, "api-service", 1, 0, 0)

	coll.CollectAll(context.Background(), now)

	assert.Equal(t, 1, store.Count("api-service"))
}

func TestNormalization(t *testing.T) {
	assert.InDelta(t, 85.0, normalizeCPU(850), 0.001)
	assert.InDelta(t, 150.0, normalizeCPU(1500), 0.001)
	assert.InDelta(t, 50.0, normalizeMemory(1<<30, 2<<30), 0.001)
	assert.Equal(t, 0.0, normalizeMemory(1<<30, 0))
}
