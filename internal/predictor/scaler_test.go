package predictor

import (
	"context"
	"math"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasops/service-autoscaler/internal/events"
	"github.com/atlasops/service-autoscaler/internal/metricstore"
	"github.com/atlasops/service-autoscaler/pkg/models"
)

// stubForecaster returns a fixed forecast.
type stubForecaster struct {
	value      float64
	confidence float64
}

func (s *stubForecaster) Predict(features FeatureVector) (float64, float64, error) {
	return s.value, s.confidence, nil
}
func (s *stubForecaster) Observe(serviceID string, at time.Time, value float64) {}
func (s *stubForecaster) Close() error                                          { return nil }

// recordingScaler captures replica changes the predictive pass requests.
type recordingScaler struct {
	calls []scaleCall
}

type scaleCall struct {
	serviceID string
	current   int
	target    int
	trigger   models.ScalingTrigger
}

func (r *recordingScaler) ScaleReplicas(ctx context.Context, svc models.MonitoredService, current, target, min, max int, trigger models.ScalingTrigger, policyID, reason string) error {
	r.calls = append(r.calls, scaleCall{svc.ID, current, target, trigger})
	return nil
}

func newTestScaler(t *testing.T, forecaster Forecaster) (*Scaler, *metricstore.Store, *recordingScaler) {
	t.Helper()
	store := metricstore.New(0)
	recorder := &recordingScaler{}
	bus := events.NewEventBus(256)
	t.Cleanup(bus.Close)

	scaler := NewScaler(store, forecaster, recorder, events.NewPublisher(bus), nil, Config{
		MinSamples:          60,
		ConfidenceThreshold: 0.8,
		RatePerReplica:      100,
		ForecastHorizon:     15 * time.Minute,
		MinReplicas:         1,
		MaxReplicas:         20,
	})
	return scaler, store, recorder
}

func seedHistory(store *metricstore.Store, serviceID string, count, replicas int, rps float64) {
	now := time.Now()
	for i := 0; i < count; i++ {
		store.Append(models.ScalingMetrics{
			ServiceID:         serviceID,
			Timestamp:         now.Add(time.Duration(i-count) * time.Minute),
			CurrentReplicas:   replicas,
			RequestsPerSecond: rps,
		})
	}
}

func services(ids ...string) []models.MonitoredService {
	out := make([]models.MonitoredService, len(ids))
	for i, id := range ids {
		out[i] = models.MonitoredService{ID: id, Namespace: "default", Deployment: id}
	}
	return out
}

func TestPredict_InsufficientHistoryHasZeroConfidence(t *testing.T) {
	scaler, store, _ := newTestScaler(t, &stubForecaster{value: 500, confidence: 0.99})
	seedHistory(store, "api-service", 59, 3, 200)

	prediction, _ := scaler.Predict("api-service", time.Now())
	assert.Equal(t, 0.0, prediction.Confidence)
	assert.Equal(t, 0.0, prediction.PredictedRPS)
	assert.Equal(t, 0, prediction.RecommendedReplicas)
}

func TestPredict_RecommendsForUpperBound(t *testing.T) {
	scaler, store, _ := newTestScaler(t, &stubForecaster{value: 540, confidence: 0.9})
	seedHistory(store, "api-service", 60, 3, 200)

	prediction, _ := scaler.Predict("api-service", time.Now())
	require.NotNil(t, prediction)

	// Flat history has zero variance, so the band collapses to the point
	// forecast and replicas come straight from it.
	assert.Equal(t, 540.0, prediction.PredictedRPS)
	assert.Equal(t, 540.0, prediction.UpperBound)
	assert.Equal(t, int(math.Ceil(540.0/100)), prediction.RecommendedReplicas)
}

func TestPredict_BandWidensWithVariance(t *testing.T) {
	scaler, store, _ := newTestScaler(t, &stubForecaster{value: 300, confidence: 0.9})

	now := time.Now()
	for i := 0; i < 60; i++ {
		rps := 200.0
		if i%2 == 0 {
			rps = 400.0
		}
		store.Append(models.ScalingMetrics{
			ServiceID:         "api-service",
			Timestamp:         now.Add(time.Duration(i-60) * time.Minute),
			CurrentReplicas:   3,
			RequestsPerSecond: rps,
		})
	}

	prediction, _ := scaler.Predict("api-service", now)
	assert.Greater(t, prediction.UpperBound, prediction.PredictedRPS)
	assert.Less(t, prediction.LowerBound, prediction.PredictedRPS)
	assert.GreaterOrEqual(t, prediction.LowerBound, 0.0)
}

func TestEvaluateAll_ScalesUpOnConfidentForecast(t *testing.T) {
	scaler, store, recorder := newTestScaler(t, &stubForecaster{value: 900, confidence: 0.95})
	seedHistory(store, "api-service", 60, 3, 200)

	scaler.EvaluateAll(context.Background(), services("api-service"), time.Now())

	require.Len(t, recorder.calls, 1)
	call := recorder.calls[0]
	assert.Equal(t, 3, call.current)
	assert.Equal(t, 9, call.target)
	assert.Equal(t, models.TriggerPredictive, call.trigger)
}

func TestEvaluateAll_LowConfidenceDoesNotScale(t *testing.T) {
	scaler, store, recorder := newTestScaler(t, &stubForecaster{value: 900, confidence: 0.8})
	seedHistory(store, "api-service", 60, 3, 200)

	// Confidence must exceed the threshold, not merely reach it.
	scaler.EvaluateAll(context.Background(), services("api-service"), time.Now())
	assert.Empty(t, recorder.calls)
}

func TestEvaluateAll_NeverScalesDown(t *testing.T) {
	scaler, store, recorder := newTestScaler(t, &stubForecaster{value: 100, confidence: 0.95})
	seedHistory(store, "api-service", 60, 8, 100)

	scaler.EvaluateAll(context.Background(), services("api-service"), time.Now())
	assert.Empty(t, recorder.calls)
}

func TestEvaluateAll_InsufficientHistoryDoesNotScale(t *testing.T) {
	scaler, store, recorder := newTestScaler(t, &stubForecaster{value: 900, confidence: 0.95})
	seedHistory(store, "api-service", 10, 3, 200)

	scaler.EvaluateAll(context.Background(), services("api-service"), time.Now())
	assert.Empty(t, recorder.calls)
}

func TestEvaluateAll_ClampsToMaxReplicas(t *testing.T) {
	scaler, store, recorder := newTestScaler(t, &stubForecaster{value: 5000, confidence: 0.95})
	seedHistory(store, "api-service", 60, 3, 200)

	scaler.EvaluateAll(context.Background(), services("api-service"), time.Now())

	require.Len(t, recorder.calls, 1)
	assert.Equal(t, 20, recorder.calls[0].target)
}

func TestBaselineForecaster_LearnsSeasonalBaseline(t *testing.T) {
	f := NewBaselineForecaster("")

	at := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC) // Monday 09:00
	for i := 0; i < 20; i++ {
		f.Observe("api-service", at.AddDate(0, 0, -7*i), 300)
	}

	samples := make([]float64, 60)
	for i := range samples {
		samples[i] = 300
	}
	value, confidence, err := f.Predict(FeatureVector{
		ServiceID: "api-service",
		Samples:   samples,
		Target:    at,
	})
	require.NoError(t, err)
	assert.InDelta(t, 300, value, 1)
	assert.Greater(t, confidence, 0.8)
}

func TestBaselineForecaster_UntrainedSlotFallsBackToRecency(t *testing.T) {
	f := NewBaselineForecaster("")

	samples := []float64{100, 100, 100}
	value, confidence, err := f.Predict(FeatureVector{
		ServiceID: "api-service",
		Samples:   samples,
		Target:    time.Now(),
	})
	require.NoError(t, err)
	assert.InDelta(t, 100, value, 0.001)
	assert.Less(t, confidence, 0.8)
}

func TestBaselineForecaster_ArtifactRoundTrip(t *testing.T) {
	path := t.TempDir() + "/model.json"

	f := NewBaselineForecaster(path)
	at := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	f.Observe("api-service", at, 250)
	require.NoError(t, f.Close())

	reloaded := NewBaselineForecaster(path)
	b := reloaded.buckets("api-service")
	assert.Equal(t, int64(1), b[bucketIndex(at)].Count)
	assert.Equal(t, 250.0, b[bucketIndex(at)].EMA)
}

func TestBaselineForecaster_CorruptArtifactStartsUntrained(t *testing.T) {
	path := t.TempDir() + "/model.json"
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	f := NewBaselineForecaster(path)
	assert.Empty(t, f.state.Buckets)
}
