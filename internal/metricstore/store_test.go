package metricstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasops/service-autoscaler/pkg/models"
)

func record(serviceID string, at time.Time, cpu float64) models.ScalingMetrics {
	return models.ScalingMetrics{
		ServiceID:      serviceID,
		Timestamp:      at,
		CPUUtilization: cpu,
	}
}

func TestStore_AppendAndLatest(t *testing.T) {
	store := New(0)
	now := time.Now()

	_, ok := store.Latest("api-service")
	assert.False(t, ok)

	store.Append(record("api-service", now.Add(-time.Minute), 50))
	store.Append(record("api-service", now, 75))

	latest, ok := store.Latest("api-service")
	require.True(t, ok)
	assert.Equal(t, 75.0, latest.CPUUtilization)
	assert.Equal(t, 2, store.Count("api-service"))
}

func TestStore_WindowSelectsTrailingDuration(t *testing.T) {
	store := New(0)
	now := time.Now()

	store.Append(record("api-service", now.Add(-10*time.Minute), 10))
	store.Append(record("api-service", now.Add(-5*time.Minute), 20))
	store.Append(record("api-service", now.Add(-1*time.Minute), 30))

	window := store.Window("api-service", 5*time.Minute, now)
	require.Len(t, window, 2)
	assert.Equal(t, 20.0, window[0].CPUUtilization)
	assert.Equal(t, 30.0, window[1].CPUUtilization)

	assert.Empty(t, store.Window("api-service", 30*time.Second, now))
	assert.Empty(t, store.Window("unknown", time.Hour, now))
}

func TestStore_PruneEvictsExpiredRecords(t *testing.T) {
	store := New(time.Hour)
	now := time.Now()

	store.Append(record("api-service", now.Add(-3*time.Hour), 10))
	store.Append(record("api-service", now.Add(-2*time.Hour), 20))
	store.Append(record("api-service", now.Add(-30*time.Minute), 30))

	evicted := store.Prune(now)
	assert.Equal(t, 2, evicted)
	assert.Equal(t, 1, store.Count("api-service"))

	latest, ok := store.Latest("api-service")
	require.True(t, ok)
	assert.Equal(t, 30.0, latest.CPUUtilization)
}

func TestStore_DefaultRetentionIsOneWeek(t *testing.T) {
	store := New(0)
	now := time.Now()

	store.Append(record("api-service", now.Add(-8*24*time.Hour), 10))
	store.Append(record("api-service", now.Add(-6*24*time.Hour), 20))

	assert.Equal(t, 1, store.Prune(now))
	assert.Equal(t, 1, store.Count("api-service"))
}

func TestStore_RecentReturnsNewestOldestFirst(t *testing.T) {
	store := New(0)
	now := time.Now()

	for i := 0; i < 5; i++ {
		store.Append(record("api-service", now.Add(time.Duration(i)*time.Minute), float64(i)))
	}

	recent := store.Recent("api-service", 3)
	require.Len(t, recent, 3)
	assert.Equal(t, 2.0, recent[0].CPUUtilization)
	assert.Equal(t, 4.0, recent[2].CPUUtilization)

	all := store.Recent("api-service", 0)
	assert.Len(t, all, 5)
}

func TestStore_Aggregate(t *testing.T) {
	store := New(0)
	now := time.Now()

	for i, v := range []float64{10, 20, 30, 40} {
		store.Append(record("api-service", now.Add(time.Duration(-3+i)*time.Minute), v))
	}

	agg, err := store.Aggregate("api-service", models.MetricCPUUtilization, 10*time.Minute, now)
	require.NoError(t, err)
	assert.Equal(t, 4, agg.SampleCount)
	assert.Equal(t, 25.0, agg.Avg)
	assert.Equal(t, 10.0, agg.Min)
	assert.Equal(t, 40.0, agg.Max)
	assert.Equal(t, 20.0, agg.P50)
	assert.Equal(t, 40.0, agg.P99)
}

func TestStore_AggregateEmptyWindow(t *testing.T) {
	store := New(0)

	agg, err := store.Aggregate("api-service", models.MetricCPUUtilization, time.Hour, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, agg.SampleCount)
	assert.Equal(t, 0.0, agg.Avg)
}

func TestStore_AggregateUnknownMetric(t *testing.T) {
	store := New(0)
	store.Append(record("api-service", time.Now(), 10))

	_, err := store.Aggregate("api-service", "nonsense", time.Hour, time.Now())
	assert.Error(t, err)
}
