package events

import (
	"fmt"

	"github.com/atlasops/service-autoscaler/pkg/models"
)

type Publisher struct {
	bus *EventBus
}

func NewPublisher(bus *EventBus) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) PolicyFired(policy *models.ScalingPolicy) {
	msg := fmt.Sprintf("Policy %q fired", policy.Name)
	event := models.NewEvent(models.EventTypePolicyFired, policy.ServiceID, msg).
		WithData(policy)
	p.bus.Publish(event)
}

func (p *Publisher) ScalingExecuted(scalingEvent *models.ScalingEvent) {
	msg := fmt.Sprintf("Scaling executed: %s %s -> %s",
		scalingEvent.Action, scalingEvent.PreviousValue, scalingEvent.NewValue)
	event := models.NewEvent(models.EventTypeScalingExecuted, scalingEvent.ServiceID, msg).
		WithData(scalingEvent)
	p.bus.Publish(event)
}

func (p *Publisher) ScalingFailed(serviceID, reason string, err error) {
	msg := "Scaling failed: " + reason
	event := models.NewEvent(models.EventTypeScalingFailed, serviceID, msg).
		WithSeverity(models.SeverityCritical).
		WithData(map[string]interface{}{
			"reason": reason,
			"error":  err.Error(),
		})
	p.bus.Publish(event)
}

func (p *Publisher) MetricsCollected(m *models.ScalingMetrics) {
	msg := fmt.Sprintf("Metrics collected: %.1f%% cpu, %.1f rps, %d replicas",
		m.CPUUtilization, m.RequestsPerSecond, m.CurrentReplicas)
	event := models.NewEvent(models.EventTypeMetricsCollected, m.ServiceID, msg).
		WithData(m)
	p.bus.Publish(event)
}

func (p *Publisher) CollectionFailed(serviceID string, err error) {
	event := models.NewEvent(models.EventTypeCollectionFailed, serviceID, "Metric collection failed").
		WithSeverity(models.SeverityWarning).
		WithData(map[string]interface{}{
			"error": err.Error(),
		})
	p.bus.Publish(event)
}

func (p *Publisher) PredictionMade(prediction *models.TrafficPrediction) {
	msg := fmt.Sprintf("Traffic prediction: %.1f rps (confidence %.2f)",
		prediction.PredictedRPS, prediction.Confidence)
	event := models.NewEvent(models.EventTypePredictionMade, prediction.ServiceID, msg).
		WithData(prediction)
	p.bus.Publish(event)
}

func (p *Publisher) Recommendation(serviceID, message string, data interface{}) {
	event := models.NewEvent(models.EventTypeRecommendation, serviceID, message).
		WithData(data)
	p.bus.Publish(event)
}

func (p *Publisher) Error(serviceID, message string, err error) {
	event := models.NewEvent(models.EventTypeError, serviceID, message).
		WithSeverity(models.SeverityCritical).
		WithData(map[string]interface{}{
			"error": err.Error(),
		})
	p.bus.Publish(event)
}
