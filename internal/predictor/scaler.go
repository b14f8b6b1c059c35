package predictor

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/atlasops/service-autoscaler/internal/events"
	"github.com/atlasops/service-autoscaler/internal/logger"
	"github.com/atlasops/service-autoscaler/internal/metricstore"
	"github.com/atlasops/service-autoscaler/internal/telemetry"
	"github.com/atlasops/service-autoscaler/pkg/models"
)

// ReplicaScaler is the horizontal-scale primitive the predictive pass
// drives. Satisfied by the action executor.
type ReplicaScaler interface {
	ScaleReplicas(ctx context.Context, svc models.MonitoredService, current, target, min, max int, trigger models.ScalingTrigger, policyID, reason string) error
}

type Config struct {
	MinSamples          int
	ConfidenceThreshold float64
	RatePerReplica      float64
	ForecastHorizon     time.Duration
	MinReplicas         int
	MaxReplicas         int
}

// Scaler runs the predictive pass of a tick: forecast each service's
// request rate one horizon ahead and scale up early when the forecast is
// trustworthy. It only ever raises replica counts; scaling back down is
// left to reactive policies.
type Scaler struct {
	store      *metricstore.Store
	forecaster Forecaster
	scaler     ReplicaScaler
	publisher  *events.Publisher
	telemetry  *telemetry.Metrics
	cfg        Config
}

func NewScaler(store *metricstore.Store, forecaster Forecaster, scaler ReplicaScaler, publisher *events.Publisher, tel *telemetry.Metrics, cfg Config) *Scaler {
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = 60
	}
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = 0.8
	}
	if cfg.RatePerReplica <= 0 {
		cfg.RatePerReplica = 100
	}
	if cfg.ForecastHorizon <= 0 {
		cfg.ForecastHorizon = 15 * time.Minute
	}
	if cfg.MaxReplicas <= 0 {
		cfg.MaxReplicas = 100
	}
	return &Scaler{
		store:      store,
		forecaster: forecaster,
		scaler:     scaler,
		publisher:  publisher,
		telemetry:  tel,
		cfg:        cfg,
	}
}

// EvaluateAll runs the predictive pass for every service. Per-service
// failures are logged; the pass never aborts the tick.
func (s *Scaler) EvaluateAll(ctx context.Context, services []models.MonitoredService, now time.Time) {
	for _, svc := range services {
		outcome, err := s.evaluate(ctx, svc, now)
		if err != nil {
			logger.WithService(svc.ID).Errorf("Predictive pass failed: %v", err)
			continue
		}
		logger.WithService(svc.ID).Debugf("Predictive pass outcome: %s", outcome)
	}
}

func (s *Scaler) evaluate(ctx context.Context, svc models.MonitoredService, now time.Time) (models.PredictionOutcome, error) {
	prediction, history := s.Predict(svc.ID, now)
	s.publisher.PredictionMade(prediction)
	if s.telemetry != nil {
		s.telemetry.SetPredictionConfidence(svc.ID, prediction.Confidence)
	}

	if prediction.Confidence == 0 {
		return models.OutcomeInsufficientData, nil
	}
	if !prediction.IsHighConfidence(s.cfg.ConfidenceThreshold) {
		return models.OutcomeSkipped, nil
	}

	current := history[len(history)-1].CurrentReplicas
	if prediction.RecommendedReplicas <= current {
		return models.OutcomeSkipped, nil
	}

	reason := fmt.Sprintf("predicted %.0f rps at %s (upper bound %.0f, confidence %.2f)",
		prediction.PredictedRPS, prediction.ForecastTime.Format(time.RFC3339),
		prediction.UpperBound, prediction.Confidence)

	if err := s.scaler.ScaleReplicas(ctx, svc, current, prediction.RecommendedReplicas,
		s.cfg.MinReplicas, s.cfg.MaxReplicas, models.TriggerPredictive, "", reason); err != nil {
		return models.OutcomeSkipped, err
	}
	return models.OutcomeActedOn, nil
}

// Predict builds a forecast for one service from its recent history. With
// fewer than MinSamples observations the prediction carries zero
// confidence and is never acted on. The returned history is the feature
// window used, newest last; it is nil when empty.
func (s *Scaler) Predict(serviceID string, now time.Time) (*models.TrafficPrediction, []models.ScalingMetrics) {
	target := now.Add(s.cfg.ForecastHorizon)
	prediction := &models.TrafficPrediction{
		ServiceID:    serviceID,
		ForecastTime: target,
	}

	history := s.store.Recent(serviceID, s.cfg.MinSamples)
	if len(history) < s.cfg.MinSamples {
		return prediction, history
	}

	features := FeatureVector{
		ServiceID:  serviceID,
		Samples:    make([]float64, len(history)),
		CPU:        make([]float64, len(history)),
		Memory:     make([]float64, len(history)),
		Latency:    make([]float64, len(history)),
		ErrorRate:  make([]float64, len(history)),
		Replicas:   make([]int, len(history)),
		Timestamps: make([]time.Time, len(history)),
		Target:     target,
	}
	for i := range history {
		features.Samples[i] = history[i].RequestsPerSecond
		features.CPU[i] = history[i].CPUUtilization
		features.Memory[i] = history[i].MemoryUtilization
		features.Latency[i] = history[i].AvgResponseTime
		features.ErrorRate[i] = history[i].ErrorRate
		features.Replicas[i] = history[i].CurrentReplicas
		features.Timestamps[i] = history[i].Timestamp
	}

	value, confidence, err := s.forecaster.Predict(features)
	if err != nil {
		logger.WithService(serviceID).Warnf("Forecast failed: %v", err)
		return prediction, history
	}

	sigma := stddev(features.Samples)
	prediction.PredictedRPS = value
	prediction.Confidence = confidence
	prediction.UpperBound = value + 2*sigma
	prediction.LowerBound = math.Max(0, value-2*sigma)
	prediction.RecommendedReplicas = s.replicasFor(prediction.UpperBound)

	return prediction, history
}

// Train feeds freshly collected observations into the forecaster.
func (s *Scaler) Train(m models.ScalingMetrics) {
	s.forecaster.Observe(m.ServiceID, m.Timestamp, m.RequestsPerSecond)
}

// replicasFor sizes a replica count for a request rate, provisioning for
// the upper prediction bound.
func (s *Scaler) replicasFor(rps float64) int {
	replicas := int(math.Ceil(rps / s.cfg.RatePerReplica))
	if replicas < s.cfg.MinReplicas {
		replicas = s.cfg.MinReplicas
	}
	if replicas > s.cfg.MaxReplicas {
		replicas = s.cfg.MaxReplicas
	}
	return replicas
}

// Close flushes forecaster state.
func (s *Scaler) Close() error {
	return s.forecaster.Close()
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}
