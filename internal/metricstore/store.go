package metricstore

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/atlasops/service-autoscaler/pkg/models"
)

// Store holds a bounded rolling window of metrics per service. Records are
// append-only; Prune evicts entries older than the retention window. The
// store carries its own lock so read-only queries (aggregates, recent
// metrics) can be served while the loop is between ticks.
type Store struct {
	mu        sync.RWMutex
	records   map[string][]models.ScalingMetrics
	retention time.Duration
}

const defaultRetention = 168 * time.Hour

func New(retention time.Duration) *Store {
	if retention <= 0 {
		retention = defaultRetention
	}
	return &Store{
		records:   make(map[string][]models.ScalingMetrics),
		retention: retention,
	}
}

// Append records one observation for a service.
func (s *Store) Append(m models.ScalingMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[m.ServiceID] = append(s.records[m.ServiceID], m)
}

// Prune drops records older than the retention window for every service.
// Returns the number of evicted records.
func (s *Store) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-s.retention)
	evicted := 0

	for serviceID, history := range s.records {
		idx := sort.Search(len(history), func(i int) bool {
			return history[i].Timestamp.After(cutoff)
		})
		if idx == 0 {
			continue
		}
		evicted += idx
		s.records[serviceID] = append([]models.ScalingMetrics(nil), history[idx:]...)
	}

	return evicted
}

// Latest returns the most recent record for a service.
func (s *Store) Latest(serviceID string) (models.ScalingMetrics, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.records[serviceID]
	if len(history) == 0 {
		return models.ScalingMetrics{}, false
	}
	return history[len(history)-1], true
}

// Window returns all records for a service whose timestamp falls within the
// trailing duration, oldest first.
func (s *Store) Window(serviceID string, duration time.Duration, now time.Time) []models.ScalingMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := now.Add(-duration)
	history := s.records[serviceID]

	var out []models.ScalingMetrics
	for _, m := range history {
		if !m.Timestamp.Before(cutoff) {
			out = append(out, m)
		}
	}
	return out
}

// Recent returns up to limit most-recent records, oldest first.
func (s *Store) Recent(serviceID string, limit int) []models.ScalingMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.records[serviceID]
	if limit <= 0 || limit > len(history) {
		limit = len(history)
	}

	out := make([]models.ScalingMetrics, limit)
	copy(out, history[len(history)-limit:])
	return out
}

// Count returns the number of records held for a service.
func (s *Store) Count(serviceID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records[serviceID])
}

// Aggregate computes avg/min/max and percentiles for one metric over a
// trailing lookback window.
func (s *Store) Aggregate(serviceID, metric string, lookback time.Duration, now time.Time) (models.MetricAggregate, error) {
	window := s.Window(serviceID, lookback, now)

	agg := models.MetricAggregate{
		ServiceID: serviceID,
		Metric:    metric,
		From:      now.Add(-lookback),
		To:        now,
	}

	values := make([]float64, 0, len(window))
	for i := range window {
		v, err := window[i].Value(metric)
		if err != nil {
			return models.MetricAggregate{}, err
		}
		values = append(values, v)
	}

	agg.SampleCount = len(values)
	if len(values) == 0 {
		return agg, nil
	}

	sort.Float64s(values)

	var sum float64
	for _, v := range values {
		sum += v
	}

	agg.Avg = sum / float64(len(values))
	agg.Min = values[0]
	agg.Max = values[len(values)-1]
	agg.P50 = percentile(values, 50)
	agg.P90 = percentile(values, 90)
	agg.P95 = percentile(values, 95)
	agg.P99 = percentile(values, 99)

	return agg, nil
}

// percentile uses nearest-rank on a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}
