package advisor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasops/service-autoscaler/internal/events"
	"github.com/atlasops/service-autoscaler/internal/metricstore"
	"github.com/atlasops/service-autoscaler/pkg/models"
)

type flatCost struct{ perReplica float64 }

func (f flatCost) EstimateMonthlyCost(delta int) float64 {
	return float64(delta) * f.perReplica
}

func seed(store *metricstore.Store, serviceID string, now time.Time, replicas int, cpu, rps float64) {
	for i := 0; i < 5; i++ {
		store.Append(models.ScalingMetrics{
			ServiceID:         serviceID,
			Timestamp:         now.Add(time.Duration(-i) * time.Hour),
			CurrentReplicas:   replicas,
			CPUUtilization:    cpu,
			RequestsPerSecond: rps,
		})
	}
}

func newAdvisor(t *testing.T) (*Advisor, *metricstore.Store) {
	t.Helper()
	store := metricstore.New(0)
	bus := events.NewEventBus(16)
	t.Cleanup(bus.Close)

	adv := New(store, events.NewPublisher(bus), flatCost{perReplica: 87.6}, Config{
		IdleCPUPercent: 20,
		IdleRPS:        10,
		Lookback:       24 * time.Hour,
		MinReplicas:    1,
	})
	return adv, store
}

func TestScan_FlagsIdleService(t *testing.T) {
	adv, store := newAdvisor(t)
	now := time.Now()

	seed(store, "idle-service", now, 8, 5, 2)
	seed(store, "busy-service", now, 8, 75, 500)

	recs := adv.Scan([]models.MonitoredService{
		{ID: "idle-service", Namespace: "default", Deployment: "idle"},
		{ID: "busy-service", Namespace: "default", Deployment: "busy"},
	}, now)

	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, "idle-service", rec.ServiceID)
	assert.Equal(t, 8, rec.CurrentReplicas)
	assert.Equal(t, 4, rec.TargetReplicas)
	assert.InDelta(t, 4*87.6, rec.MonthlySavings, 0.001)
}

func TestScan_BothThresholdsMustBeIdle(t *testing.T) {
	adv, store := newAdvisor(t)
	now := time.Now()

	// CPU is idle but traffic is not.
	seed(store, "api-service", now, 6, 5, 400)

	recs := adv.Scan([]models.MonitoredService{
		{ID: "api-service", Namespace: "default", Deployment: "api"},
	}, now)
	assert.Empty(t, recs)
}

func TestScan_SkipsServicesAtFloor(t *testing.T) {
	adv, store := newAdvisor(t)
	now := time.Now()

	seed(store, "tiny-service", now, 1, 2, 0)

	recs := adv.Scan([]models.MonitoredService{
		{ID: "tiny-service", Namespace: "default", Deployment: "tiny"},
	}, now)
	assert.Empty(t, recs)
}

func TestScan_SkipsServicesWithoutHistory(t *testing.T) {
	adv, _ := newAdvisor(t)

	recs := adv.Scan([]models.MonitoredService{
		{ID: "new-service", Namespace: "default", Deployment: "new"},
	}, time.Now())
	assert.Empty(t, recs)
}
