package models

import "time"

// TrafficPrediction is a short-horizon forecast of a service's request
// rate. Recomputed each tick; never persisted beyond the cycle except via
// a scaling event it may trigger.
type TrafficPrediction struct {
	ServiceID           string    `json:"service_id"`
	ForecastTime        time.Time `json:"forecast_time"`
	PredictedRPS        float64   `json:"predicted_rps"`
	Confidence          float64   `json:"confidence"`
	RecommendedReplicas int       `json:"recommended_replicas"`
	UpperBound          float64   `json:"upper_bound"`
	LowerBound          float64   `json:"lower_bound"`
}

func (p *TrafficPrediction) IsHighConfidence(threshold float64) bool {
	return p.Confidence > threshold
}

// PredictionOutcome labels what the predictive pass did for one service.
type PredictionOutcome string

const (
	OutcomeInsufficientData PredictionOutcome = "insufficient_data"
	OutcomeSkipped          PredictionOutcome = "skipped"
	OutcomeActedOn          PredictionOutcome = "acted_on"
)
