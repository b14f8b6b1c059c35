package metricsbackend

import (
	"context"
	"sync"
	"time"
)

// MockBackend serves canned samples, keyed by service and metric.
type MockBackend struct {
	mu       sync.Mutex
	samples  map[string]map[string][]Sample
	failures map[string]error
}

func NewMockBackend() *MockBackend {
	return &MockBackend{
		samples:  make(map[string]map[string][]Sample),
		failures: make(map[string]error),
	}
}

func (m *MockBackend) SetSamples(serviceID, metric string, samples []Sample) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.samples[serviceID] == nil {
		m.samples[serviceID] = make(map[string][]Sample)
	}
	m.samples[serviceID][metric] = samples
}

// SetValue is a shorthand for a single just-now sample.
func (m *MockBackend) SetValue(serviceID, metric string, value float64) {
	m.SetSamples(serviceID, metric, []Sample{{Timestamp: time.Now(), Value: value}})
}

func (m *MockBackend) FailService(serviceID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, serviceID)
		return
	}
	m.failures[serviceID] = err
}

func (m *MockBackend) QueryRange(ctx context.Context, serviceID, metric string, window time.Duration) ([]Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failures[serviceID]; err != nil {
		return nil, err
	}

	out := make([]Sample, len(m.samples[serviceID][metric]))
	copy(out, m.samples[serviceID][metric])
	return out, nil
}

func (m *MockBackend) HealthCheck(ctx context.Context) error {
	return nil
}

func (m *MockBackend) Close() error {
	return nil
}
