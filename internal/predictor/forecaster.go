// Package predictor forecasts near-term request rates from collected
// metrics and proactively raises replica counts ahead of predicted load.
package predictor

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/atlasops/service-autoscaler/internal/logger"
)

// FeatureVector is the input to a forecast: the recent history of one
// service plus the target time the forecast is for. All series are
// oldest first and share indexes with Timestamps. The baseline model only
// consumes the request rate; richer models may use the rest.
type FeatureVector struct {
	ServiceID  string
	Samples    []float64 // requests per second
	CPU        []float64
	Memory     []float64
	Latency    []float64
	ErrorRate  []float64
	Replicas   []int
	Timestamps []time.Time
	Target     time.Time
}

// Forecaster produces a point forecast and a confidence in [0,1].
type Forecaster interface {
	Predict(features FeatureVector) (value, confidence float64, err error)
	Observe(serviceID string, at time.Time, value float64)
	Close() error
}

const hourBuckets = 7 * 24

// seasonalBucket is one hour-of-week slot of the baseline model.
type seasonalBucket struct {
	EMA   float64 `json:"ema"`
	Count int64   `json:"count"`
}

type modelState struct {
	Alpha   float64                     `json:"alpha"`
	Buckets map[string][]seasonalBucket `json:"buckets"` // per service, 168 slots
}

// BaselineForecaster blends an hour-of-week seasonal EMA with the recent
// short-term trend. It trains online from every observation and can
// persist its state to a JSON artifact between runs.
type BaselineForecaster struct {
	state        modelState
	artifactPath string
}

const defaultAlpha = 0.2

// NewBaselineForecaster loads the model artifact if one exists at path;
// otherwise it starts untrained and earns confidence as buckets fill.
func NewBaselineForecaster(path string) *BaselineForecaster {
	f := &BaselineForecaster{
		state: modelState{
			Alpha:   defaultAlpha,
			Buckets: make(map[string][]seasonalBucket),
		},
		artifactPath: path,
	}

	if path == "" {
		return f
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warnf("Could not read model artifact %s, starting untrained: %v", path, err)
		}
		return f
	}

	var loaded modelState
	if err := json.Unmarshal(data, &loaded); err != nil {
		logger.Warnf("Model artifact %s is corrupt, starting untrained: %v", path, err)
		return f
	}
	if loaded.Alpha <= 0 || loaded.Alpha > 1 {
		loaded.Alpha = defaultAlpha
	}
	if loaded.Buckets == nil {
		loaded.Buckets = make(map[string][]seasonalBucket)
	}
	f.state = loaded
	logger.Infof("Loaded model artifact %s (%d services)", path, len(loaded.Buckets))
	return f
}

func bucketIndex(t time.Time) int {
	return int(t.UTC().Weekday())*24 + t.UTC().Hour()
}

func (f *BaselineForecaster) buckets(serviceID string) []seasonalBucket {
	b, ok := f.state.Buckets[serviceID]
	if !ok {
		b = make([]seasonalBucket, hourBuckets)
		f.state.Buckets[serviceID] = b
	}
	return b
}

// Observe folds one observation into the seasonal baseline.
func (f *BaselineForecaster) Observe(serviceID string, at time.Time, value float64) {
	b := f.buckets(serviceID)
	idx := bucketIndex(at)
	if b[idx].Count == 0 {
		b[idx].EMA = value
	} else {
		b[idx].EMA = f.state.Alpha*value + (1-f.state.Alpha)*b[idx].EMA
	}
	b[idx].Count++
}

// Predict forecasts the request rate at features.Target. The point
// forecast blends the seasonal baseline for the target slot with the mean
// of the recent samples; confidence reflects how well-trained the slot is
// and how closely the baseline agrees with recent observations.
func (f *BaselineForecaster) Predict(features FeatureVector) (float64, float64, error) {
	if len(features.Samples) == 0 {
		return 0, 0, fmt.Errorf("no samples for service %q", features.ServiceID)
	}

	var sum float64
	for _, v := range features.Samples {
		sum += v
	}
	recentMean := sum / float64(len(features.Samples))

	b := f.buckets(features.ServiceID)
	slot := b[bucketIndex(features.Target)]

	if slot.Count == 0 {
		// Untrained slot: fall back to recency with modest confidence.
		return recentMean, confidenceFloor(features.Samples, recentMean), nil
	}

	predicted := 0.6*slot.EMA + 0.4*recentMean

	// Training depth: a slot needs repeated visits before it is trusted.
	depth := float64(slot.Count) / 10.0
	if depth > 1 {
		depth = 1
	}

	// Agreement between baseline and recent behavior.
	denom := recentMean
	if denom < 1 {
		denom = 1
	}
	diff := slot.EMA - recentMean
	if diff < 0 {
		diff = -diff
	}
	agreement := 1 - diff/denom
	if agreement < 0 {
		agreement = 0
	}

	confidence := 0.5 + 0.45*depth*agreement
	return predicted, confidence, nil
}

// confidenceFloor scores an untrained forecast by how steady the recent
// samples are: a flat series is still worth acting on cautiously.
func confidenceFloor(samples []float64, mean float64) float64 {
	if mean <= 0 {
		return 0.3
	}
	var ss float64
	for _, v := range samples {
		d := v - mean
		ss += d * d
	}
	cv := 0.0
	if len(samples) > 1 {
		cv = math.Sqrt(ss/float64(len(samples)-1)) / mean
	}
	conf := 0.6 - cv
	if conf < 0.3 {
		conf = 0.3
	}
	return conf
}

// Close persists the model artifact so training survives restarts.
func (f *BaselineForecaster) Close() error {
	if f.artifactPath == "" {
		return nil
	}
	data, err := json.MarshalIndent(f.state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal model state: %w", err)
	}
	if err := os.WriteFile(f.artifactPath, data, 0o644); err != nil {
		return fmt.Errorf("write model artifact: %w", err)
	}
	return nil
}
