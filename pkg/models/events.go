package models

import "time"

type EventType string

const (
	EventTypeMetricsCollected  EventType = "metrics_collected"
	EventTypeCollectionFailed  EventType = "collection_failed"
	EventTypePolicyFired       EventType = "policy_fired"
	EventTypeScalingExecuted   EventType = "scaling_executed"
	EventTypeScalingFailed     EventType = "scaling_failed"
	EventTypePredictionMade    EventType = "prediction_made"
	EventTypeRecommendation    EventType = "recommendation"
	EventTypeError             EventType = "error"
)

type EventSeverity string

const (
	SeverityInfo     EventSeverity = "info"
	SeverityWarning  EventSeverity = "warning"
	SeverityCritical EventSeverity = "critical"
)

// Event is an internal bus message. ScalingEvent payloads ride on
// EventTypeScalingExecuted events and are persisted by the audit sink.
type Event struct {
	ID        string        `json:"id"`
	Type      EventType     `json:"type"`
	Severity  EventSeverity `json:"severity"`
	ServiceID string        `json:"service_id,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Message   string        `json:"message"`
	Data      interface{}   `json:"data,omitempty"`
}

func NewEvent(eventType EventType, serviceID, message string) *Event {
	return &Event{
		ID:        NewUUID(),
		Type:      eventType,
		Severity:  SeverityInfo,
		ServiceID: serviceID,
		Timestamp: time.Now(),
		Message:   message,
	}
}

func (e *Event) WithSeverity(severity EventSeverity) *Event {
	e.Severity = severity
	return e
}

func (e *Event) WithData(data interface{}) *Event {
	e.Data = data
	return e
}

// ScalingTrigger identifies what initiated a capacity change.
type ScalingTrigger string

const (
	TriggerAutomatic  ScalingTrigger = "automatic"
	TriggerManual     ScalingTrigger = "manual"
	TriggerPredictive ScalingTrigger = "predictive"
)

// ScalingEvent records one executed capacity change. Immutable; the
// append-only history is consumed by the audit sink.
type ScalingEvent struct {
	ID            string         `json:"id"`
	Timestamp     time.Time      `json:"timestamp"`
	ServiceID     string         `json:"service_id"`
	PolicyID      string         `json:"policy_id,omitempty"`
	Action        ActionKind     `json:"action"`
	Reason        string         `json:"reason"`
	PreviousValue string         `json:"previous_value"`
	NewValue      string         `json:"new_value"`
	Trigger       ScalingTrigger `json:"trigger"`
	CostImpact    float64        `json:"cost_impact"`
}

func NewScalingEvent(serviceID string, action ActionKind, reason string) *ScalingEvent {
	return &ScalingEvent{
		ID:        NewUUID(),
		Timestamp: time.Now(),
		ServiceID: serviceID,
		Action:    action,
		Reason:    reason,
		Trigger:   TriggerAutomatic,
	}
}
