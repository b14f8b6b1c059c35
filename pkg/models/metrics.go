package models

import (
	"fmt"
	"time"
)

// Metric names accepted in scaling conditions and aggregate queries.
const (
	MetricCPUUtilization    = "cpu_utilization"
	MetricMemoryUtilization = "memory_utilization"
	MetricRequestsPerSecond = "requests_per_second"
	MetricResponseTime      = "response_time"
	MetricQueueDepth        = "queue_depth"
	MetricErrorRate         = "error_rate"
	MetricReplicaCount      = "replica_count"
)

// ScalingMetrics is one observation of a service's load, recorded once per
// collection tick. Records are immutable once appended to the store.
type ScalingMetrics struct {
	ServiceID         string    `json:"service_id"`
	Timestamp         time.Time `json:"timestamp"`
	CurrentReplicas   int       `json:"current_replicas"`
	DesiredReplicas   int       `json:"desired_replicas"`
	CPUUtilization    float64   `json:"cpu_utilization"`
	MemoryUtilization float64   `json:"memory_utilization"`
	RequestsPerSecond float64   `json:"requests_per_second"`
	AvgResponseTime   float64   `json:"avg_response_time"`
	QueueDepth        float64   `json:"queue_depth"`
	ErrorRate         float64   `json:"error_rate"`
}

// Value returns the named metric from this record.
func (m *ScalingMetrics) Value(metric string) (float64, error) {
	switch metric {
	case MetricCPUUtilization:
		return m.CPUUtilization, nil
	case MetricMemoryUtilization:
		return m.MemoryUtilization, nil
	case MetricRequestsPerSecond:
		return m.RequestsPerSecond, nil
	case MetricResponseTime:
		return m.AvgResponseTime, nil
	case MetricQueueDepth:
		return m.QueueDepth, nil
	case MetricErrorRate:
		return m.ErrorRate, nil
	case MetricReplicaCount:
		return float64(m.CurrentReplicas), nil
	default:
		return 0, fmt.Errorf("unknown metric %q", metric)
	}
}

// KnownMetric reports whether name is a metric the store can evaluate.
func KnownMetric(name string) bool {
	switch name {
	case MetricCPUUtilization, MetricMemoryUtilization, MetricRequestsPerSecond,
		MetricResponseTime, MetricQueueDepth, MetricErrorRate, MetricReplicaCount:
		return true
	}
	return false
}

// MetricAggregate holds computed statistics over a lookback window.
type MetricAggregate struct {
	ServiceID   string    `json:"service_id"`
	Metric      string    `json:"metric"`
	From        time.Time `json:"from"`
	To          time.Time `json:"to"`
	SampleCount int       `json:"sample_count"`
	Avg         float64   `json:"avg"`
	Min         float64   `json:"min"`
	Max         float64   `json:"max"`
	P50         float64   `json:"p50"`
	P90         float64   `json:"p90"`
	P95         float64   `json:"p95"`
	P99         float64   `json:"p99"`
}

// ContainerResources describes per-container CPU/memory requests in
// millicores and bytes, as reported by the orchestrator.
type ContainerResources struct {
	RequestCPUMillicores int64 `json:"request_cpu_millicores"`
	RequestMemoryBytes   int64 `json:"request_memory_bytes"`
	LimitCPUMillicores   int64 `json:"limit_cpu_millicores"`
	LimitMemoryBytes     int64 `json:"limit_memory_bytes"`
	UsageCPUMillicores   int64 `json:"usage_cpu_millicores"`
	UsageMemoryBytes     int64 `json:"usage_memory_bytes"`
}

// Deployment is the orchestrator's view of a service.
type Deployment struct {
	ServiceID       string             `json:"service_id"`
	Namespace       string             `json:"namespace"`
	Name            string             `json:"name"`
	CurrentReplicas int                `json:"current_replicas"`
	DesiredReplicas int                `json:"desired_replicas"`
	Resources       ContainerResources `json:"resources"`
}

// MonitoredService identifies one target of the control loop and the
// external references needed to observe and act on it.
type MonitoredService struct {
	ID           string `mapstructure:"id" json:"id"`
	Namespace    string `mapstructure:"namespace" json:"namespace"`
	Deployment   string `mapstructure:"deployment" json:"deployment"`
	DBInstanceID string `mapstructure:"db_instance_id" json:"db_instance_id,omitempty"`
	QueueName    string `mapstructure:"queue_name" json:"queue_name,omitempty"`
}
