// Package telemetry exposes the controller's own operational metrics for
// Prometheus scraping: tick activity, collection failures, policy firings,
// executed actions, and the last desired replica count per service.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/atlasops/service-autoscaler/internal/logger"
)

type Metrics struct {
	TicksTotal            prometheus.Counter
	TickDuration          prometheus.Histogram
	CollectionsTotal      *prometheus.CounterVec
	CollectionErrorsTotal *prometheus.CounterVec
	PolicyFiringsTotal    *prometheus.CounterVec
	ActionsTotal          *prometheus.CounterVec
	ActionFailuresTotal   *prometheus.CounterVec
	DesiredReplicas       *prometheus.GaugeVec
	PredictionConfidence  *prometheus.GaugeVec
}

func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autoscaler_ticks_total",
			Help: "Total number of control loop ticks",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "autoscaler_tick_duration_seconds",
			Help:    "Duration of one full control loop tick",
			Buckets: prometheus.DefBuckets,
		}),
		CollectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autoscaler_collections_total",
			Help: "Total metric collections by service",
		}, []string{"service_id"}),
		CollectionErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autoscaler_collection_errors_total",
			Help: "Total failed metric collections by service",
		}, []string{"service_id"}),
		PolicyFiringsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autoscaler_policy_firings_total",
			Help: "Total policy firings by policy",
		}, []string{"policy_id", "policy_type"}),
		ActionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autoscaler_actions_total",
			Help: "Total executed scaling actions by service and kind",
		}, []string{"service_id", "action"}),
		ActionFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autoscaler_action_failures_total",
			Help: "Total failed scaling actions by service and kind",
		}, []string{"service_id", "action"}),
		DesiredReplicas: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "autoscaler_desired_replicas",
			Help: "Last desired replica count set by the controller",
		}, []string{"service_id"}),
		PredictionConfidence: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "autoscaler_prediction_confidence",
			Help: "Confidence of the most recent traffic prediction",
		}, []string{"service_id"}),
	}

	reg.MustRegister(
		m.TicksTotal,
		m.TickDuration,
		m.CollectionsTotal,
		m.CollectionErrorsTotal,
		m.PolicyFiringsTotal,
		m.ActionsTotal,
		m.ActionFailuresTotal,
		m.DesiredReplicas,
		m.PredictionConfidence,
	)

	return m
}

func (m *Metrics) RecordTick(d time.Duration) {
	m.TicksTotal.Inc()
	m.TickDuration.Observe(d.Seconds())
}

func (m *Metrics) RecordCollection(serviceID string) {
	m.CollectionsTotal.WithLabelValues(serviceID).Inc()
}

func (m *Metrics) RecordCollectionError(serviceID string) {
	m.CollectionErrorsTotal.WithLabelValues(serviceID).Inc()
}

func (m *Metrics) RecordPolicyFiring(policyID, policyType string) {
	m.PolicyFiringsTotal.WithLabelValues(policyID, policyType).Inc()
}

func (m *Metrics) RecordAction(serviceID, action string) {
	m.ActionsTotal.WithLabelValues(serviceID, action).Inc()
}

func (m *Metrics) RecordActionFailure(serviceID, action string) {
	m.ActionFailuresTotal.WithLabelValues(serviceID, action).Inc()
}

func (m *Metrics) SetDesiredReplicas(serviceID string, replicas int) {
	m.DesiredReplicas.WithLabelValues(serviceID).Set(float64(replicas))
}

func (m *Metrics) SetPredictionConfidence(serviceID string, confidence float64) {
	m.PredictionConfidence.WithLabelValues(serviceID).Set(confidence)
}

// StartServer serves /metrics on the given port in a background goroutine.
func StartServer(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	addr := ":" + strconv.Itoa(port)
	logger.Infof("Telemetry server listening on %s", addr)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Errorf("Telemetry server error: %v", err)
		}
	}()
}
